package brickstream

import (
	"errors"
	"fmt"

	"github.com/hupe1980/brickstream/cache"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/tier"
)

var (
	// ErrClosed is returned by operations on a closed Streamer.
	ErrClosed = errors.New("brickstream: closed")

	// ErrFrameInProgress is returned by BeginFrame when the previous frame
	// has not been ended.
	ErrFrameInProgress = errors.New("brickstream: frame in progress")

	// ErrNoFrame is returned by EndFrame without a matching BeginFrame.
	ErrNoFrame = errors.New("brickstream: no frame in progress")
)

// ErrUnsupportedDataType indicates a volume whose voxel type cannot be
// streamed. It is detected once when the Streamer is created and is never
// retried.
//
// The underlying error can be accessed via errors.Unwrap.
type ErrUnsupportedDataType struct {
	DataType model.DataType
	cause    error
}

func (e *ErrUnsupportedDataType) Error() string {
	return fmt.Sprintf("unsupported data type: %s", e.DataType)
}

func (e *ErrUnsupportedDataType) Unwrap() error { return e.cause }

// ErrInvalidConfig indicates a configuration value that cannot work.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func translateError(err error, dt model.DataType) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tier.ErrUnsupportedDataType) {
		return &ErrUnsupportedDataType{DataType: dt, cause: err}
	}
	if errors.Is(err, cache.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
