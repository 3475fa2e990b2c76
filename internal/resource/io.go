package resource

import (
	"context"
	"io"
)

// RateLimitedWriter admits every write through the controller's IO limit
// before passing it on. Pack uses it so that packing a volume does not starve
// concurrent brick fills of bandwidth.
type RateLimitedWriter struct {
	ctx     context.Context
	w       io.Writer
	rc      *Controller
	written int64
}

// NewRateLimitedWriter wraps w. A nil controller admits everything.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	n, err := w.w.Write(p)
	w.written += int64(n)
	return n, err
}

// Written returns the bytes passed to the underlying writer.
func (w *RateLimitedWriter) Written() int64 { return w.written }
