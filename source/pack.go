package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/brickstream/blobstore"
	"github.com/hupe1980/brickstream/codec"
	"github.com/hupe1980/brickstream/internal/compress"
	"github.com/hupe1980/brickstream/internal/resource"
	"github.com/hupe1980/brickstream/model"
)

// BrickFunc produces the raw voxels of a brick: BrickSize³ voxels of
// BytesPerVoxel bytes each, x fastest.
type BrickFunc func(id model.BrickID) ([]byte, error)

// PackOptions configures Pack.
type PackOptions struct {
	// Codec encodes the manifest. Defaults to codec.Default.
	Codec codec.Codec
	// Prefix is prepended to the blob names.
	Prefix string
	// Concurrency bounds parallel brick encoding. Defaults to GOMAXPROCS.
	Concurrency int
	// Controller, if set, rate-limits writes of the data blob.
	Controller *resource.Controller
	Logger     *slog.Logger
}

// PackStats summarizes a packed volume.
type PackStats struct {
	Bricks      int
	RawBytes    int64
	StoredBytes int64
}

// Pack writes a complete octree of info.Depth levels to store. Bricks are
// generated and compressed in parallel and written in id order. Zero
// info.Voxels is derived from the brick size and depth.
func Pack(ctx context.Context, store blobstore.BlobStore, info model.VolumeInfo, gen BrickFunc, opts PackOptions) (PackStats, error) {
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if err := validatePack(&info); err != nil {
		return PackStats{}, err
	}

	w, err := store.Create(ctx, opts.Prefix+DataName)
	if err != nil {
		return PackStats{}, fmt.Errorf("create brick data: %w", err)
	}

	nodes, stats, err := writeBricks(ctx, resource.NewRateLimitedWriter(ctx, w, opts.Controller), info, gen, opts.Concurrency)
	if err != nil {
		_ = w.Abort()
		return PackStats{}, err
	}
	if err := w.Close(); err != nil {
		return PackStats{}, fmt.Errorf("close brick data: %w", err)
	}

	m, err := encodeManifest(opts.Codec, info, nodes)
	if err != nil {
		return PackStats{}, err
	}
	if err := store.Put(ctx, opts.Prefix+ManifestName, m); err != nil {
		return PackStats{}, fmt.Errorf("write manifest: %w", err)
	}

	opts.Logger.Info("packed volume",
		"bricks", stats.Bricks,
		"raw_bytes", stats.RawBytes,
		"stored_bytes", stats.StoredBytes,
		"compression", info.Compression,
	)
	return stats, nil
}

func validatePack(info *model.VolumeInfo) error {
	if info.Depth == 0 || info.Depth > model.MaxLevel+1 {
		return fmt.Errorf("pack: depth %d out of range [1,%d]", info.Depth, model.MaxLevel+1)
	}
	if info.BrickSize == 0 {
		return fmt.Errorf("pack: brick size must be positive")
	}
	if !info.DataType.Valid() {
		return fmt.Errorf("pack: unsupported data type %s", info.DataType)
	}
	if info.Components == 0 {
		info.Components = 1
	}
	if info.Voxels == [3]uint32{} {
		full := info.BrickSize << (info.Depth - 1)
		info.Voxels = [3]uint32{full, full, full}
	}
	if info.WorldSize == (model.Vec3{}) {
		info.WorldSize = model.Vec3{X: 1, Y: 1, Z: 1}
	}
	return nil
}

func writeBricks(ctx context.Context, w io.Writer, info model.VolumeInfo, gen BrickFunc, concurrency int) ([]model.LODNode, PackStats, error) {
	want := int(info.BrickSize*info.BrickSize*info.BrickSize) * info.BytesPerVoxel()
	voxels := [3]uint32{info.BrickSize, info.BrickSize, info.BrickSize}

	var (
		nodes  []model.LODNode
		stats  PackStats
		offset int64
	)
	flush := func(batch []model.BrickID) error {
		encoded := make([][]byte, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, id := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				raw, err := gen(id)
				if err != nil {
					return fmt.Errorf("generate %v: %w", id, err)
				}
				if len(raw) != want {
					return fmt.Errorf("generate %v: got %d bytes, want %d", id, len(raw), want)
				}
				enc, err := compress.Encode(raw, info.Compression)
				if err != nil {
					return fmt.Errorf("encode %v: %w", id, err)
				}
				encoded[i] = enc
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, id := range batch {
			if _, err := w.Write(encoded[i]); err != nil {
				return fmt.Errorf("write %v: %w", id, err)
			}
			n := int64(len(encoded[i]))
			nodes = append(nodes, model.LODNode{
				ID:       id,
				WorldBox: info.BrickBox(id),
				Offset:   offset,
				Length:   n,
				Voxels:   voxels,
			})
			offset += n
			stats.Bricks++
			stats.RawBytes += int64(want)
			stats.StoredBytes += n
		}
		return nil
	}

	batch := make([]model.BrickID, 0, concurrency*4)
	for level := range info.Depth {
		cells := uint32(1) << level
		for x := range cells {
			for y := range cells {
				for z := range cells {
					batch = append(batch, model.NewBrickID(level, x, y, z))
					if len(batch) == cap(batch) {
						if err := flush(batch); err != nil {
							return nil, PackStats{}, err
						}
						batch = batch[:0]
					}
				}
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(batch); err != nil {
			return nil, PackStats{}, err
		}
	}
	return nodes, stats, nil
}
