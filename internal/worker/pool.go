// Package worker provides the bounded pool that runs brick fills off the
// render goroutine.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/brickstream/internal/resource"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker: pool closed")

// Job is a unit of work. ctx is cancelled when the pool closes.
type Job func(ctx context.Context)

// Pool runs submitted jobs on a fixed set of goroutines. Submit never blocks;
// jobs wait in an unbounded FIFO until a worker and a fill slot are free.
type Pool struct {
	rc *resource.Controller

	mu     sync.Mutex
	queue  []Job
	closed bool
	notify chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
}

// New starts a pool with one goroutine per fill slot of rc.
func New(rc *resource.Controller) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	p := &Pool{
		rc:     rc,
		notify: make(chan struct{}, 1),
		ctx:    gctx,
		cancel: cancel,
		g:      g,
	}

	for range rc.MaxFillWorkers() {
		g.Go(p.run)
	}

	return p
}

// Submit enqueues job. It never blocks.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()

	p.signal()
	return nil
}

// Pending returns the number of queued jobs not yet picked up by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops the workers and waits for running jobs. Jobs still queued are
// invoked with a cancelled context so they can report failure.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	err := p.g.Wait()

	p.mu.Lock()
	rest := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, job := range rest {
		job(p.ctx)
	}

	return err
}

func (p *Pool) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pool) next() (Job, bool) {
	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			job := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			more := len(p.queue) > 0
			p.mu.Unlock()
			if more {
				// Wake another worker for the remaining jobs.
				p.signal()
			}
			return job, true
		}
		p.mu.Unlock()

		select {
		case <-p.ctx.Done():
			return nil, false
		case <-p.notify:
		}
	}
}

func (p *Pool) run() error {
	for {
		job, ok := p.next()
		if !ok {
			return nil
		}
		if err := p.rc.AcquireFill(p.ctx); err != nil {
			p.requeue(job)
			return nil
		}
		job(p.ctx)
		p.rc.ReleaseFill()
	}
}

func (p *Pool) requeue(job Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append([]Job{job}, p.queue...)
}
