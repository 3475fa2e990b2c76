package tier

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hupe1980/brickstream/cache"
	"github.com/hupe1980/brickstream/model"
)

// ResidencyTierName labels the residency tier in logs and metrics.
const ResidencyTierName = "residency"

// PixelFormat is the texture channel layout derived from the component count.
type PixelFormat uint8

const (
	FormatRed PixelFormat = iota + 1
	FormatRG
	FormatRGB
	FormatRGBA
)

// FormatFor maps a voxel component count to a texture format.
func FormatFor(components uint32) PixelFormat {
	switch components {
	case 2:
		return FormatRG
	case 3:
		return FormatRGB
	case 4:
		return FormatRGBA
	default:
		return FormatRed
	}
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRG:
		return "rg"
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	default:
		return "red"
	}
}

// Texture is a resident brick.
type Texture struct {
	ID       uint32
	Size     int64
	Format   PixelFormat
	DataType model.DataType
	Voxels   [3]uint32
}

// Uploader creates and destroys textures. Both methods are only called from
// ResidencyTier.Prepare and Close.
type Uploader interface {
	Upload(b *Brick) (Texture, error)
	Free(t Texture)
}

// ResidencyOptions configures a ResidencyTier.
type ResidencyOptions struct {
	Budget int64
	// MaxUploadsPerFrame bounds uploads per Prepare; zero means unbounded.
	MaxUploadsPerFrame int
	Clock              cache.Clock
	Logger             *slog.Logger
	Observer           cache.Observer
	RetryBackoff       time.Duration
	MaxRetryBackoff    time.Duration
}

type uploadRequest struct {
	id   model.BrickID
	done cache.Done[Texture]
}

// PrepareStats reports the work done by one Prepare.
type PrepareStats struct {
	Uploaded int
	Failed   int
	Freed    int
	Waiting  int
}

// ResidencyTier caches textures. A miss pins the brick in the data tier
// until its upload has been attempted.
type ResidencyTier struct {
	*cache.Cache[Texture]

	data       *DataTier
	up         Uploader
	maxUploads int
	logger     *slog.Logger

	mu       sync.Mutex
	requests []uploadRequest
	freed    []Texture
}

// NewResidencyTier creates a residency tier fed by data.
func NewResidencyTier(data *DataTier, up Uploader, opts ResidencyOptions) *ResidencyTier {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	r := &ResidencyTier{
		data:       data,
		up:         up,
		maxUploads: opts.MaxUploadsPerFrame,
		logger:     opts.Logger,
	}
	r.Cache = cache.New[Texture](residencyStrategy{r}, cache.Options{
		Name:            ResidencyTierName,
		Budget:          opts.Budget,
		Clock:           opts.Clock,
		Logger:          opts.Logger,
		Observer:        opts.Observer,
		RetryBackoff:    opts.RetryBackoff,
		MaxRetryBackoff: opts.MaxRetryBackoff,
	})
	return r
}

// Prepare runs on the render goroutine at frame setup. It frees evicted
// textures, then uploads every requested brick whose data is ready.
func (r *ResidencyTier) Prepare() PrepareStats {
	r.mu.Lock()
	reqs := r.requests
	freed := r.freed
	r.requests = nil
	r.freed = nil
	r.mu.Unlock()

	var st PrepareStats
	for _, t := range freed {
		r.up.Free(t)
	}
	st.Freed = len(freed)

	var waiting []uploadRequest
	for _, req := range reqs {
		h, ok := r.data.Peek(req.id)
		switch {
		case !ok:
			// The data entry went away with its pin; ask again.
			r.data.GetAndPin(req.id)
			waiting = append(waiting, req)
		case h.State == cache.StatePending:
			waiting = append(waiting, req)
		case h.State == cache.StateFailed:
			r.data.Unpin(req.id)
			req.done(Texture{}, h.Err)
			st.Failed++
		case r.maxUploads > 0 && st.Uploaded >= r.maxUploads:
			waiting = append(waiting, req)
		default:
			tex, err := r.up.Upload(h.Payload)
			r.data.Unpin(req.id)
			req.done(tex, err)
			if err != nil {
				st.Failed++
				continue
			}
			st.Uploaded++
		}
	}
	st.Waiting = len(waiting)

	if len(waiting) > 0 {
		r.mu.Lock()
		r.requests = append(waiting, r.requests...)
		r.mu.Unlock()
	}

	if st.Uploaded > 0 || st.Failed > 0 {
		r.logger.Debug("prepared textures",
			"uploaded", st.Uploaded,
			"failed", st.Failed,
			"freed", st.Freed,
			"waiting", st.Waiting,
		)
	}
	return st
}

// Close frees every texture and drops the data pins of pending uploads. It
// must be called on the render goroutine.
func (r *ResidencyTier) Close() error {
	err := r.Cache.Close()

	r.mu.Lock()
	reqs := r.requests
	freed := r.freed
	r.requests = nil
	r.freed = nil
	r.mu.Unlock()

	for _, req := range reqs {
		r.data.Unpin(req.id)
		req.done(Texture{}, cache.ErrClosed)
	}
	for _, t := range freed {
		r.up.Free(t)
	}
	return err
}

type residencyStrategy struct {
	r *ResidencyTier
}

func (s residencyStrategy) Fill(id model.BrickID, done cache.Done[Texture]) {
	s.r.data.GetAndPin(id)

	s.r.mu.Lock()
	s.r.requests = append(s.r.requests, uploadRequest{id: id, done: done})
	s.r.mu.Unlock()
}

func (residencyStrategy) Cost(t Texture) int64 { return t.Size }

func (s residencyStrategy) Release(_ model.BrickID, t Texture) {
	s.r.mu.Lock()
	s.r.freed = append(s.r.freed, t)
	s.r.mu.Unlock()
}
