package brickstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/naoina/toml"

	"github.com/hupe1980/brickstream/histogram"
	"github.com/hupe1980/brickstream/visibility"
)

const mib = 1 << 20

// Config holds the runtime-tunable streaming parameters.
type Config struct {
	// GPUBudgetMiB is the residency tier budget.
	GPUBudgetMiB int64
	// CPUBudgetMiB is the data tier budget.
	CPUBudgetMiB int64

	MinLOD           uint32
	MaxLOD           uint32
	ScreenSpaceError float64

	// SamplesPerRay fixes the ray sample rate; 0 selects it per frame from
	// the finest visible level.
	SamplesPerRay uint32
	MinSamples    uint32
	MaxSamples    uint32

	// MaxUploadsPerFrame bounds texture uploads per frame; 0 is unbounded.
	MaxUploadsPerFrame int
	// FillWorkers sizes the data fill pool; 0 uses GOMAXPROCS.
	FillWorkers int
	// IOLimitBytesPerSec throttles payload reads; 0 is unlimited.
	IOLimitBytesPerSec int64

	// RetryBackoff is the wait after a failed fill before Get retries it.
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration

	// HistogramLatency is the number of frames render nodes may lag behind
	// each other before histogram frames are abandoned.
	HistogramLatency int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	sel := visibility.DefaultSelectConfig()
	return Config{
		GPUBudgetMiB:     3072,
		CPUBudgetMiB:     8192,
		MinLOD:           sel.MinLOD,
		MaxLOD:           sel.MaxLOD,
		ScreenSpaceError: sel.ScreenSpaceError,
		MinSamples:       visibility.DefaultMinSamples,
		MaxSamples:       visibility.DefaultMaxSamples,
		RetryBackoff:     100 * time.Millisecond,
		MaxRetryBackoff:  10 * time.Second,
		HistogramLatency: histogram.DefaultLatency,
	}
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	switch {
	case c.GPUBudgetMiB < 0:
		return &ErrInvalidConfig{Field: "GPUBudgetMiB", Reason: "must not be negative"}
	case c.CPUBudgetMiB < 0:
		return &ErrInvalidConfig{Field: "CPUBudgetMiB", Reason: "must not be negative"}
	case c.MinLOD > c.MaxLOD:
		return &ErrInvalidConfig{Field: "MinLOD", Reason: fmt.Sprintf("%d exceeds MaxLOD %d", c.MinLOD, c.MaxLOD)}
	case c.ScreenSpaceError <= 0:
		return &ErrInvalidConfig{Field: "ScreenSpaceError", Reason: "must be positive"}
	case c.MaxSamples > 0 && c.MinSamples > c.MaxSamples:
		return &ErrInvalidConfig{Field: "MinSamples", Reason: fmt.Sprintf("%d exceeds MaxSamples %d", c.MinSamples, c.MaxSamples)}
	case c.MaxUploadsPerFrame < 0:
		return &ErrInvalidConfig{Field: "MaxUploadsPerFrame", Reason: "must not be negative"}
	case c.HistogramLatency < 0:
		return &ErrInvalidConfig{Field: "HistogramLatency", Reason: "must not be negative"}
	}
	return nil
}

func (c Config) selectConfig() visibility.SelectConfig {
	return visibility.SelectConfig{
		MinLOD:           c.MinLOD,
		MaxLOD:           c.MaxLOD,
		ScreenSpaceError: c.ScreenSpaceError,
	}
}

func (c Config) sampleConfig() visibility.SampleConfig {
	return visibility.SampleConfig{
		Configured: c.SamplesPerRay,
		Min:        c.MinSamples,
		Max:        c.MaxSamples,
	}
}

// Keys are the Go field names; unknown keys are an error.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadConfig reads a TOML file over DefaultConfig.
func LoadConfig(file string) (Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	cfg, err := DecodeConfig(bufio.NewReader(f))
	// Add file name to errors that have a line number.
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = errors.New(file + ", " + err.Error())
	}
	return cfg, err
}

// DecodeConfig reads TOML from r over DefaultConfig and validates the result.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := tomlSettings.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EncodeConfig writes cfg as TOML.
func EncodeConfig(w io.Writer, cfg Config) error {
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
