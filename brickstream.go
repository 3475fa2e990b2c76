package brickstream

import (
	"context"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/brickstream/cache"
	"github.com/hupe1980/brickstream/histogram"
	"github.com/hupe1980/brickstream/internal/clock"
	"github.com/hupe1980/brickstream/internal/resource"
	"github.com/hupe1980/brickstream/internal/worker"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/source"
	"github.com/hupe1980/brickstream/tier"
	"github.com/hupe1980/brickstream/visibility"
)

// Draw is a brick whose texture is resident for the current frame.
type Draw struct {
	Brick   model.BrickID
	Texture tier.Texture
}

// Frame is the render plan returned by BeginFrame.
type Frame struct {
	ID uint32
	// Ordered holds the distinct candidates, front to back.
	Ordered []model.BrickID
	// Draws holds the candidates with a resident texture, in draw order.
	// Their textures stay valid until EndFrame.
	Draws         []Draw
	SamplesPerRay uint32
	Prepare       tier.PrepareStats
}

// Missing returns how many candidates could not be drawn this frame.
func (f Frame) Missing() int { return len(f.Ordered) - len(f.Draws) }

// Stats is a snapshot of the streamer state.
type Stats struct {
	Frame        uint32
	GPU          cache.Stats
	CPU          cache.Stats
	PendingFills int
	ActiveFills  int64
	IOBytes      int64
}

// Streamer keeps the working set of a volume resident for a renderer.
//
// BeginFrame, EndFrame, Texture and Close must be called from the render
// goroutine; they drive texture uploads and frees. The remaining methods are
// safe for concurrent use.
type Streamer struct {
	src     source.VolumeSource
	info    model.VolumeInfo
	logger  *Logger
	metrics MetricsCollector
	clock   cache.Clock

	rc   *resource.Controller
	pool *worker.Pool
	data *tier.DataTier
	gpu  *tier.ResidencyTier

	mu        sync.Mutex
	cfg       Config
	frameID   uint32
	inFrame   bool
	started   time.Time
	visible   *roaring64.Bitmap
	drawn     []uint32
	lastDrawn []uint32
	closed    bool
}

// New creates a Streamer for src that uploads textures through up. An
// unsupported voxel type is reported here as *ErrUnsupportedDataType.
func New(src source.VolumeSource, up tier.Uploader, optFns ...Option) (*Streamer, error) {
	o := applyOptions(optFns)
	info := src.Info()
	ctx := context.Background()

	if err := o.config.Validate(); err != nil {
		o.logger.LogOpen(ctx, info, err)
		return nil, err
	}
	if o.clock == nil {
		o.clock = clock.Real{}
	}

	rc := resource.NewController(resource.Config{
		MaxFillWorkers:     int64(o.config.FillWorkers),
		IOLimitBytesPerSec: o.config.IOLimitBytesPerSec,
	})
	pool := worker.New(rc)

	data, err := tier.NewDataTier(src, pool, tier.DataOptions{
		Budget:          o.cpuBytes(),
		Controller:      rc,
		Clock:           o.clock,
		Logger:          o.logger.WithTier(tier.DataTierName).Logger,
		Observer:        o.metricsCollector,
		RetryBackoff:    o.config.RetryBackoff,
		MaxRetryBackoff: o.config.MaxRetryBackoff,
	})
	if err != nil {
		_ = pool.Close()
		err = translateError(err, info.DataType)
		o.logger.LogOpen(ctx, info, err)
		return nil, err
	}

	gpu := tier.NewResidencyTier(data, up, tier.ResidencyOptions{
		Budget:             o.gpuBytes(),
		MaxUploadsPerFrame: o.config.MaxUploadsPerFrame,
		Clock:              o.clock,
		Logger:             o.logger.WithTier(tier.ResidencyTierName).Logger,
		Observer:           o.metricsCollector,
		RetryBackoff:       o.config.RetryBackoff,
		MaxRetryBackoff:    o.config.MaxRetryBackoff,
	})

	o.logger.LogOpen(ctx, info, nil)
	return &Streamer{
		src:     src,
		info:    info,
		logger:  o.logger,
		metrics: o.metricsCollector,
		clock:   o.clock,
		rc:      rc,
		pool:    pool,
		data:    data,
		gpu:     gpu,
		cfg:     o.config,
		visible: roaring64.New(),
	}, nil
}

// Info returns the volume description.
func (s *Streamer) Info() model.VolumeInfo { return s.info }

// Select runs the reference LOD selector with the configured LOD range and
// screen-space error.
func (s *Streamer) Select(f model.Frustum) []model.BrickID {
	s.mu.Lock()
	cfg := s.cfg.selectConfig()
	s.mu.Unlock()
	return visibility.Select(s.src, s.info, f, cfg)
}

// BeginFrame uploads the textures that became ready since the last frame,
// orders candidates front to back and pins each of them in the residency
// tier until EndFrame. Missing textures are requested and appear in a later
// frame; BeginFrame never waits for them.
func (s *Streamer) BeginFrame(f model.Frustum, candidates []model.BrickID) (Frame, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return Frame{}, ErrClosed
	case s.inFrame:
		s.mu.Unlock()
		return Frame{}, ErrFrameInProgress
	}
	s.inFrame = true
	s.frameID++
	s.started = s.clock.Now()
	frame := Frame{ID: s.frameID}
	samples := s.cfg.sampleConfig()
	s.mu.Unlock()

	frame.Prepare = s.gpu.Prepare()

	ordered := visibility.Order(candidates, s.src, f)
	frame.Ordered = ordered[:0]
	drawn := make([]uint32, 0, len(ordered))
	for _, id := range ordered {
		if !s.visible.CheckedAdd(uint64(id)) {
			continue
		}
		frame.Ordered = append(frame.Ordered, id)
		h := s.gpu.GetAndPin(id)
		if h.Ready() {
			frame.Draws = append(frame.Draws, Draw{Brick: id, Texture: h.Payload})
			drawn = append(drawn, h.Payload.ID)
		}
	}
	frame.SamplesPerRay = visibility.SamplesPerRay(frame.Ordered, s.info, samples)

	s.mu.Lock()
	s.drawn = drawn
	s.mu.Unlock()
	return frame, nil
}

// Texture returns the residency entry for id, requesting it on a miss.
func (s *Streamer) Texture(id model.BrickID) cache.Handle[tier.Texture] {
	return s.gpu.Get(id)
}

// EndFrame releases the pins taken by BeginFrame and trims both tiers to
// their budgets.
func (s *Streamer) EndFrame() error {
	s.mu.Lock()
	if !s.inFrame {
		s.mu.Unlock()
		return ErrNoFrame
	}
	s.inFrame = false
	id := s.frameID
	started := s.started
	drawn := s.drawn
	s.lastDrawn, s.drawn = drawn, nil
	s.mu.Unlock()

	visible := int(s.visible.GetCardinality())
	it := s.visible.Iterator()
	for it.HasNext() {
		s.gpu.Unpin(model.BrickID(it.Next()))
	}
	s.visible.Clear()

	s.gpu.Shrink()
	s.data.Shrink()

	elapsed := s.clock.Now().Sub(started)
	s.metrics.RecordFrame(visible, len(drawn), elapsed)
	s.logger.LogFrame(id, visible, len(drawn), elapsed)
	return nil
}

// LastDrawn returns the texture ids drawn by the most recently ended frame.
func (s *Streamer) LastDrawn() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.lastDrawn...)
}

// SetGPUBudget changes the residency tier budget in bytes.
func (s *Streamer) SetGPUBudget(bytes int64) {
	s.gpu.SetBudget(bytes)
	s.logger.LogBudget(tier.ResidencyTierName, bytes)
}

// SetCPUBudget changes the data tier budget in bytes.
func (s *Streamer) SetCPUBudget(bytes int64) {
	s.data.SetBudget(bytes)
	s.logger.LogBudget(tier.DataTierName, bytes)
}

// SetSamplesPerRay fixes the ray sample rate from the next frame on. Zero
// selects it per frame.
func (s *Streamer) SetSamplesPerRay(n uint32) {
	s.mu.Lock()
	s.cfg.SamplesPerRay = n
	s.mu.Unlock()
}

// SetLOD changes the reference selector's level range and error threshold.
func (s *Streamer) SetLOD(minLOD, maxLOD uint32, screenSpaceError float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	cfg.MinLOD, cfg.MaxLOD, cfg.ScreenSpaceError = minLOD, maxLOD, screenSpaceError
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Config returns the current configuration.
func (s *Streamer) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.cfg
	cfg.GPUBudgetMiB = s.gpu.Budget() / mib
	cfg.CPUBudgetMiB = s.data.Budget() / mib
	return cfg
}

// Stats returns a snapshot of both tiers and the fill pipeline.
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	id := s.frameID
	s.mu.Unlock()

	return Stats{
		Frame:        id,
		GPU:          s.gpu.Stats(),
		CPU:          s.data.Stats(),
		PendingFills: s.pool.Pending(),
		ActiveFills:  s.rc.ActiveFills(),
		IOBytes:      s.rc.IOBytes(),
	}
}

// Close frees every texture, drops the data tier and stops the fill pool.
func (s *Streamer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.inFrame = false
	s.mu.Unlock()

	s.visible.Clear()
	gpuErr := s.gpu.Close()
	dataErr := s.data.Close()
	poolErr := s.pool.Close()

	st := s.Stats()
	s.logger.LogStats(st.GPU, st.CPU)
	s.logger.Info("streamer closed", "frames", st.Frame)

	if gpuErr != nil {
		return gpuErr
	}
	if dataErr != nil {
		return dataErr
	}
	return poolErr
}

// NewAggregator creates a histogram aggregator wired to the configured
// latency, logger and metrics collector.
func NewAggregator(optFns ...Option) *histogram.Aggregator {
	o := applyOptions(optFns)
	return histogram.NewAggregator(histogram.Options{
		Latency:  o.config.HistogramLatency,
		Logger:   o.logger.Logger.With("component", "histogram"),
		Observer: o.metricsCollector,
	})
}
