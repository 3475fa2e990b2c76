package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/brickstream/blobstore"
	"github.com/hupe1980/brickstream/codec"
	"github.com/hupe1980/brickstream/internal/resource"
	"github.com/hupe1980/brickstream/model"
)

func testInfo(c model.Compression) model.VolumeInfo {
	return model.VolumeInfo{
		BrickSize:   4,
		Depth:       3,
		DataType:    model.DataTypeUint16,
		Components:  1,
		WorldSize:   model.Vec3{X: 2, Y: 2, Z: 2},
		Compression: c,
	}
}

func TestPackOpen_RoundTrip(t *testing.T) {
	for _, c := range []model.Compression{model.CompressionNone, model.CompressionLZ4, model.CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()
			info := testInfo(c)

			stats, err := Pack(ctx, store, info, Sphere(info), PackOptions{Prefix: "vol/", Concurrency: 3})
			require.NoError(t, err)
			assert.Equal(t, 1+8+64, stats.Bricks)
			assert.Equal(t, int64(73*4*4*4*2), stats.RawBytes)

			src, err := Open(ctx, store, WithPrefix("vol/"))
			require.NoError(t, err)
			defer src.Close()

			got := src.Info()
			assert.Equal(t, [3]uint32{16, 16, 16}, got.Voxels)
			assert.Equal(t, c, got.Compression)
			assert.Equal(t, model.DataTypeUint16, got.DataType)
			assert.Len(t, src.Nodes(), 73)

			gen := Sphere(got)
			for _, id := range []model.BrickID{model.RootBrick, model.NewBrickID(1, 1, 0, 1), model.NewBrickID(2, 3, 3, 0)} {
				n, ok := src.Node(id)
				require.True(t, ok)
				assert.Equal(t, info.BrickBox(id), n.WorldBox)
				assert.Equal(t, int64(4*4*4), n.VoxelCount())

				data, err := src.FetchPayload(ctx, id)
				require.NoError(t, err)
				want, _ := gen(id)
				assert.Equal(t, want, data)
			}

			_, err = src.FetchPayload(ctx, model.NewBrickID(3, 0, 0, 0))
			require.ErrorIs(t, err, ErrUnknownBrick)
		})
	}
}

func TestPack_LocalStoreRateLimited(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	info := testInfo(model.CompressionLZ4)
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 30})

	_, err := Pack(ctx, store, info, Sphere(info), PackOptions{Codec: codec.JSON{}, Controller: rc})
	require.NoError(t, err)
	assert.Positive(t, rc.IOBytes())

	src, err := Open(ctx, store)
	require.NoError(t, err)
	defer src.Close()

	data, err := src.FetchPayload(ctx, model.RootBrick)
	require.NoError(t, err)
	assert.Len(t, data, 4*4*4*2)
}

func TestPack_GeneratorFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	info := testInfo(model.CompressionNone)
	boom := errors.New("boom")

	_, err := Pack(ctx, store, info, func(id model.BrickID) ([]byte, error) {
		if id.Level() == 2 {
			return nil, boom
		}
		return Sphere(info)(id)
	}, PackOptions{})
	require.ErrorIs(t, err, boom)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPack_Validation(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	info := testInfo(model.CompressionNone)
	info.DataType = model.DataTypeUndefined
	_, err := Pack(ctx, store, info, Sphere(info), PackOptions{})
	require.Error(t, err)

	info = testInfo(model.CompressionNone)
	info.Depth = 0
	_, err = Pack(ctx, store, info, Sphere(info), PackOptions{})
	require.Error(t, err)

	info = testInfo(model.CompressionNone)
	_, err = Pack(ctx, store, info, func(model.BrickID) ([]byte, error) { return []byte{1}, nil }, PackOptions{})
	require.Error(t, err)
}

func TestOpen_BadManifest(t *testing.T) {
	ctx := context.Background()

	for name, manifest := range map[string]string{
		"no header":         `{"version":1}`,
		"unknown codec":     "msgpack\n{}",
		"bad version":       "json\n{\"version\":7,\"compression\":\"none\"}",
		"bad body":          "json\n{",
		"zero depth":        "json\n{\"version\":1,\"compression\":\"none\",\"depth\":0}",
		"depth too deep":    "json\n{\"version\":1,\"compression\":\"none\",\"depth\":17}",
		"brick below depth": "json\n{\"version\":1,\"compression\":\"none\",\"depth\":2,\"bricks\":[{\"id\":2305843009213693952}]}",
	} {
		t.Run(name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			require.NoError(t, store.Put(ctx, ManifestName, []byte(manifest)))
			require.NoError(t, store.Put(ctx, DataName, nil))

			_, err := Open(ctx, store)
			require.ErrorIs(t, err, ErrFormat)
		})
	}

	_, err := Open(ctx, blobstore.NewMemoryStore())
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestOpen_UndefinedDataTypeIsDeferred(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	manifest := "json\n{\"version\":1,\"data_type\":\"complex64\",\"compression\":\"none\",\"depth\":1,\"brick_size\":1}"
	require.NoError(t, store.Put(ctx, ManifestName, []byte(manifest)))
	require.NoError(t, store.Put(ctx, DataName, nil))

	src, err := Open(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeUndefined, src.Info().DataType)
}
