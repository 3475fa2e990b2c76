package tier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/brickstream/cache"
	"github.com/hupe1980/brickstream/internal/resource"
	"github.com/hupe1980/brickstream/internal/worker"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/source"
	"github.com/hupe1980/brickstream/testutil"
)

// faultySource wraps a packed volume and fails or blocks chosen bricks.
type faultySource struct {
	*source.BlobSource

	mu    sync.Mutex
	fail  map[model.BrickID]error
	gate  chan struct{}
	calls map[model.BrickID]int
}

func (s *faultySource) FetchPayload(ctx context.Context, id model.BrickID) ([]byte, error) {
	s.mu.Lock()
	s.calls[id]++
	err := s.fail[id]
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return s.BlobSource.FetchPayload(ctx, id)
}

func (s *faultySource) setFail(id model.BrickID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[id] = err
}

func newSource(t *testing.T) *faultySource {
	t.Helper()
	info := testutil.SmallVolume()
	info.Components = 3

	return &faultySource{
		BlobSource: testutil.PackVolume(t, info),
		fail:       make(map[model.BrickID]error),
		calls:      make(map[model.BrickID]int),
	}
}

// 2x2x2 voxels, 3 components of one byte.
const brickBytes = 24

func newTiers(t *testing.T, src source.VolumeSource, dataBudget, gpuBudget int64, maxUploads int) (*DataTier, *ResidencyTier, *HostUploader) {
	t.Helper()
	pool := worker.New(resource.NewController(resource.Config{MaxFillWorkers: 2}))
	t.Cleanup(func() { _ = pool.Close() })

	data, err := NewDataTier(src, pool, DataOptions{Budget: dataBudget, RetryBackoff: -1})
	require.NoError(t, err)

	up := NewHostUploader()
	gpu := NewResidencyTier(data, up, ResidencyOptions{Budget: gpuBudget, MaxUploadsPerFrame: maxUploads, RetryBackoff: -1})
	return data, gpu, up
}

func waitState(t *testing.T, c interface {
	Peek(model.BrickID) (cache.Handle[*Brick], bool)
}, id model.BrickID, want cache.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		h, ok := c.Peek(id)
		return ok && h.State == want
	}, 2*time.Second, time.Millisecond)
}

func TestDataTier_FillsOnPool(t *testing.T) {
	src := newSource(t)
	data, _, _ := newTiers(t, src, 1<<20, 1<<20, 0)

	id := model.NewBrickID(1, 1, 0, 1)
	h := data.Get(id)
	assert.Equal(t, cache.StatePending, h.State)

	waitState(t, data, id, cache.StateReady)
	h = data.Get(id)
	require.True(t, h.Ready())
	assert.Len(t, h.Payload.Data, brickBytes)
	assert.Equal(t, id, h.Payload.ID)
	assert.Equal(t, uint32(3), h.Payload.Components)
	assert.Equal(t, int64(brickBytes), data.Stats().UsedBytes)
}

func TestDataTier_UnsupportedDataType(t *testing.T) {
	src := &undefinedSource{newSource(t)}
	pool := worker.New(resource.NewController(resource.Config{MaxFillWorkers: 1}))
	defer pool.Close()

	_, err := NewDataTier(src, pool, DataOptions{})
	require.ErrorIs(t, err, ErrUnsupportedDataType)
}

type undefinedSource struct {
	*faultySource
}

func (s *undefinedSource) Info() model.VolumeInfo {
	info := s.faultySource.Info()
	info.DataType = model.DataTypeUndefined
	return info
}

func TestDataTier_FailureAndUnknownBrick(t *testing.T) {
	src := newSource(t)
	data, _, _ := newTiers(t, src, 1<<20, 1<<20, 0)

	boom := errors.New("disk on fire")
	id := model.NewBrickID(1, 0, 0, 0)
	src.setFail(id, boom)

	data.Get(id)
	waitState(t, data, id, cache.StateFailed)
	h, _ := data.Peek(id)
	require.ErrorIs(t, h.Err, boom)

	unknown := model.NewBrickID(5, 0, 0, 0)
	data.Get(unknown)
	waitState(t, data, unknown, cache.StateFailed)
	h, _ = data.Peek(unknown)
	require.ErrorIs(t, h.Err, source.ErrUnknownBrick)

	// Back-off is disabled, so the next Get retries.
	src.setFail(id, nil)
	data.Get(id)
	waitState(t, data, id, cache.StateReady)
}

func TestResidencyTier_UploadAfterDataArrives(t *testing.T) {
	src := newSource(t)
	src.gate = make(chan struct{})
	data, gpu, up := newTiers(t, src, 1<<20, 1<<20, 0)

	id := model.RootBrick
	h := gpu.GetAndPin(id)
	assert.Equal(t, cache.StatePending, h.State)

	// Data not there yet: the request waits.
	st := gpu.Prepare()
	assert.Equal(t, 1, st.Waiting)
	assert.Zero(t, st.Uploaded)

	dh, ok := data.Peek(id)
	require.True(t, ok)
	assert.Equal(t, cache.StatePending, dh.State)
	assert.Equal(t, 1, data.Stats().Pinned)

	close(src.gate)
	waitState(t, data, id, cache.StateReady)

	st = gpu.Prepare()
	assert.Equal(t, 1, st.Uploaded)
	assert.Zero(t, st.Waiting)

	th, ok := gpu.Peek(id)
	require.True(t, ok)
	require.True(t, th.Ready())
	assert.Equal(t, FormatRGB, th.Payload.Format)
	assert.Equal(t, int64(brickBytes), th.Size)

	texData, ok := up.Data(th.Payload.ID)
	require.True(t, ok)
	dh, _ = data.Peek(id)
	assert.Equal(t, dh.Payload.Data, texData)
	assert.Zero(t, data.Stats().Pinned, "data pin dropped after upload")
}

func TestResidencyTier_EvictedTexturesFreedOnPrepare(t *testing.T) {
	src := newSource(t)
	data, gpu, up := newTiers(t, src, 1<<20, brickBytes, 0)

	a, b := model.NewBrickID(1, 0, 0, 0), model.NewBrickID(1, 1, 1, 1)
	for _, id := range []model.BrickID{a, b} {
		gpu.Get(id)
		waitState(t, data, id, cache.StateReady)
		gpu.Prepare()
	}

	// Uploading b pushed a out, but the free waits for the next Prepare.
	_, ok := gpu.Peek(a)
	assert.False(t, ok)
	assert.Equal(t, 2, up.Live())

	st := gpu.Prepare()
	assert.Equal(t, 1, st.Freed)
	assert.Equal(t, 1, up.Live())
}

func TestResidencyTier_MaxUploadsPerFrame(t *testing.T) {
	src := newSource(t)
	data, gpu, _ := newTiers(t, src, 1<<20, 1<<20, 2)

	ids := model.RootBrick.Children()
	for _, id := range ids[:5] {
		gpu.Get(id)
	}
	for _, id := range ids[:5] {
		waitState(t, data, id, cache.StateReady)
	}

	assert.Equal(t, 2, gpu.Prepare().Uploaded)
	assert.Equal(t, 2, gpu.Prepare().Uploaded)
	st := gpu.Prepare()
	assert.Equal(t, 1, st.Uploaded)
	assert.Zero(t, st.Waiting)
}

func TestResidencyTier_DataFailurePropagates(t *testing.T) {
	src := newSource(t)
	data, gpu, _ := newTiers(t, src, 1<<20, 1<<20, 0)

	boom := errors.New("boom")
	id := model.NewBrickID(1, 0, 1, 0)
	src.setFail(id, boom)

	gpu.Get(id)
	waitState(t, data, id, cache.StateFailed)

	st := gpu.Prepare()
	assert.Equal(t, 1, st.Failed)

	h, ok := gpu.Peek(id)
	require.True(t, ok)
	assert.Equal(t, cache.StateFailed, h.State)
	require.ErrorIs(t, h.Err, boom)
	assert.Zero(t, data.Stats().Pinned)
}

func TestResidencyTier_Close(t *testing.T) {
	src := newSource(t)
	src.gate = make(chan struct{})
	data, gpu, up := newTiers(t, src, 1<<20, 1<<20, 0)

	gpu.Get(model.RootBrick)
	require.NoError(t, gpu.Close())

	assert.Zero(t, data.Stats().Pinned)
	assert.Zero(t, up.Live())
	close(src.gate)
}
