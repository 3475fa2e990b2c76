package source

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hupe1980/brickstream/blobstore"
	"github.com/hupe1980/brickstream/internal/compress"
	"github.com/hupe1980/brickstream/model"
)

// Option configures Open.
type Option func(*options)

type options struct {
	logger *slog.Logger
	prefix string
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPrefix reads the volume from blobs named prefix+ManifestName and
// prefix+DataName.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// BlobSource is a VolumeSource over a packed volume in a blob store.
type BlobSource struct {
	info   model.VolumeInfo
	nodes  map[model.BrickID]model.LODNode
	data   blobstore.Blob
	logger *slog.Logger
}

// Open reads the manifest and opens the data blob.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*BlobSource, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range optFns {
		fn(&o)
	}

	raw, err := blobstore.ReadAll(ctx, store, o.prefix+ManifestName)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	info, nodes, err := decodeManifest(raw)
	if err != nil {
		return nil, err
	}

	data, err := store.Open(ctx, o.prefix+DataName)
	if err != nil {
		return nil, fmt.Errorf("open brick data: %w", err)
	}

	s := &BlobSource{
		info:   info,
		nodes:  make(map[model.BrickID]model.LODNode, len(nodes)),
		data:   data,
		logger: o.logger,
	}
	for _, n := range nodes {
		if n.Offset < 0 || n.Length < 0 || n.Offset+n.Length > data.Size() {
			_ = data.Close()
			return nil, fmt.Errorf("%w: %v extent [%d,+%d) outside data blob", ErrFormat, n.ID, n.Offset, n.Length)
		}
		s.nodes[n.ID] = n
	}

	o.logger.Info("opened volume",
		"bricks", len(nodes),
		"depth", info.Depth,
		"data_type", info.DataType,
		"compression", info.Compression,
	)
	return s, nil
}

// Info returns the volume description.
func (s *BlobSource) Info() model.VolumeInfo { return s.info }

// Node returns the octree node for id.
func (s *BlobSource) Node(id model.BrickID) (model.LODNode, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns every node in id order.
func (s *BlobSource) Nodes() []model.LODNode {
	out := make([]model.LODNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b model.LODNode) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// FetchPayload reads and decodes the payload of id. The result is owned by
// the caller.
func (s *BlobSource) FetchPayload(ctx context.Context, id model.BrickID) ([]byte, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownBrick, id)
	}

	raw, err := blobstore.ReadExtent(ctx, s.data, n.Offset, int(n.Length))
	if err != nil {
		return nil, fmt.Errorf("fetch %v: %w", id, err)
	}
	out, err := compress.Decode(raw, s.info.Compression)
	if err != nil {
		return nil, fmt.Errorf("decode %v: %w", id, err)
	}
	return out, nil
}

// Close releases the data blob.
func (s *BlobSource) Close() error {
	return s.data.Close()
}
