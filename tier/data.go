package tier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/brickstream/cache"
	"github.com/hupe1980/brickstream/internal/resource"
	"github.com/hupe1980/brickstream/internal/worker"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/source"
)

var (
	// ErrUnsupportedDataType is returned when the volume's voxel type cannot
	// be streamed.
	ErrUnsupportedDataType = errors.New("unsupported data type")
	// ErrPayloadSize is reported when a fetched payload does not match the
	// node's voxel count.
	ErrPayloadSize = errors.New("payload size mismatch")
)

// DataTierName labels the data tier in logs and metrics.
const DataTierName = "data"

// Brick is a decoded brick held by the data tier. It is immutable once
// published.
type Brick struct {
	ID         model.BrickID
	Node       model.LODNode
	Data       []byte
	DataType   model.DataType
	Components uint32
}

// DataOptions configures a DataTier.
type DataOptions struct {
	Budget int64
	// Controller rate-limits payload reads; nil means unlimited.
	Controller      *resource.Controller
	Clock           cache.Clock
	Logger          *slog.Logger
	Observer        cache.Observer
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// DataTier caches decoded bricks in host memory.
type DataTier struct {
	*cache.Cache[*Brick]

	src    source.VolumeSource
	info   model.VolumeInfo
	pool   *worker.Pool
	rc     *resource.Controller
	logger *slog.Logger
}

// NewDataTier creates the data tier. Fills run on pool.
func NewDataTier(src source.VolumeSource, pool *worker.Pool, opts DataOptions) (*DataTier, error) {
	info := src.Info()
	if !info.DataType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDataType, info.DataType)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	t := &DataTier{
		src:    src,
		info:   info,
		pool:   pool,
		rc:     opts.Controller,
		logger: opts.Logger,
	}
	t.Cache = cache.New[*Brick](dataStrategy{t}, cache.Options{
		Name:            DataTierName,
		Budget:          opts.Budget,
		Clock:           opts.Clock,
		Logger:          opts.Logger,
		Observer:        opts.Observer,
		RetryBackoff:    opts.RetryBackoff,
		MaxRetryBackoff: opts.MaxRetryBackoff,
	})
	return t, nil
}

// Info returns the volume description the tier was built for.
func (t *DataTier) Info() model.VolumeInfo { return t.info }

func (t *DataTier) load(ctx context.Context, id model.BrickID) (*Brick, error) {
	node, ok := t.src.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %v", source.ErrUnknownBrick, id)
	}
	if err := t.rc.AcquireIO(ctx, int(node.Length)); err != nil {
		return nil, err
	}

	data, err := t.src.FetchPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	if want := node.VoxelCount() * int64(t.info.BytesPerVoxel()); int64(len(data)) != want {
		return nil, fmt.Errorf("%w: %v has %d bytes, want %d", ErrPayloadSize, id, len(data), want)
	}

	return &Brick{
		ID:         id,
		Node:       node,
		Data:       data,
		DataType:   t.info.DataType,
		Components: max(t.info.Components, 1),
	}, nil
}

type dataStrategy struct {
	t *DataTier
}

func (s dataStrategy) Fill(id model.BrickID, done cache.Done[*Brick]) {
	err := s.t.pool.Submit(func(ctx context.Context) {
		done(s.t.load(ctx, id))
	})
	if err != nil {
		done(nil, err)
	}
}

func (dataStrategy) Cost(b *Brick) int64 { return int64(len(b.Data)) }

// Release leaves the buffer to the garbage collector; readers holding an
// older handle may still be finishing with it.
func (dataStrategy) Release(model.BrickID, *Brick) {}
