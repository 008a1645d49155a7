package streamtpl

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default limits.
const (
	DefaultCapacity    = 16
	DefaultMaxNameLen  = 24
	DefaultBufferSize  = 512
	DefaultMaxSteps    = 50
	DefaultBulkChunk   = 512
	DefaultDirectChunk = 128
	DefaultOutputChunk = 64
)

// DefaultMaxDepth counts frames, not templates. Each nested template takes an
// indirect frame and a template frame, so a depth of d leaves room for about
// (d-1)/2 levels of nesting below the root: seven with the default.
const DefaultMaxDepth = 16

// Config holds the limits shared by registries, contexts, and renderers.
// Zero or negative limits fall back to the defaults.
type Config struct {
	// Capacity is the number of entries a registry can hold.
	Capacity int `yaml:"capacity"`
	// MaxNameLen bounds placeholder names, delimiters included. Names must
	// be strictly shorter than this.
	MaxNameLen int `yaml:"max_name_len"`
	// MaxDepth bounds the rendering frame stack. See DefaultMaxDepth for
	// how frames map to nesting levels.
	MaxDepth int `yaml:"max_depth"`
	// BufferSize is the staging buffer used to read template sources.
	BufferSize int `yaml:"buffer_size"`
	// MaxSteps caps the internal steps of one Next call.
	MaxSteps int `yaml:"max_steps"`
	// BulkChunk and DirectChunk cap a single data copy per locality.
	BulkChunk   int `yaml:"bulk_chunk"`
	DirectChunk int `yaml:"direct_chunk"`
	// OutputChunk is the size of the buffers a Pool renders into, and so
	// the most bytes written to the client per write.
	OutputChunk int `yaml:"output_chunk"`
	// LogLevel selects a stderr logger when Logger is nil.
	LogLevel string `yaml:"log_level"`

	Logger Logger `yaml:"-"`
}

// DefaultConfig returns the default limits with logging off.
func DefaultConfig() Config {
	return Config{
		Capacity:    DefaultCapacity,
		MaxNameLen:  DefaultMaxNameLen,
		MaxDepth:    DefaultMaxDepth,
		BufferSize:  DefaultBufferSize,
		MaxSteps:    DefaultMaxSteps,
		BulkChunk:   DefaultBulkChunk,
		DirectChunk: DefaultDirectChunk,
		OutputChunk: DefaultOutputChunk,
		LogLevel:    LogOff.String(),
	}
}

// Validate reports the first limit that is out of range.
func (c Config) Validate() error {
	checks := []struct {
		name string
		val  int
		min  int
	}{
		{"capacity", c.Capacity, 1},
		{"max_name_len", c.MaxNameLen, 3},
		{"max_depth", c.MaxDepth, 1},
		{"buffer_size", c.BufferSize, 1},
		{"max_steps", c.MaxSteps, 1},
		{"bulk_chunk", c.BulkChunk, 1},
		{"direct_chunk", c.DirectChunk, 1},
		{"output_chunk", c.OutputChunk, 1},
	}
	for _, chk := range checks {
		if chk.val < chk.min {
			return fmt.Errorf("%w: %s must be at least %d, got %d", ErrInvalidConfig, chk.name, chk.min, chk.val)
		}
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ParseConfig decodes YAML over the defaults. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// normalize replaces out-of-range limits with defaults.
func (c Config) normalize() Config {
	d := DefaultConfig()
	fix := func(v *int, def, lo int) {
		if *v < lo {
			*v = def
		}
	}
	fix(&c.Capacity, d.Capacity, 1)
	fix(&c.MaxNameLen, d.MaxNameLen, 3)
	fix(&c.MaxDepth, d.MaxDepth, 1)
	fix(&c.BufferSize, d.BufferSize, 1)
	fix(&c.MaxSteps, d.MaxSteps, 1)
	fix(&c.BulkChunk, d.BulkChunk, 1)
	fix(&c.DirectChunk, d.DirectChunk, 1)
	fix(&c.OutputChunk, d.OutputChunk, 1)
	return c
}

func (c Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil || level == LogOff {
		return NopLogger{}
	}
	return NewLogger(os.Stderr, level)
}

// Option adjusts a Config.
type Option func(*Config)

func buildConfig(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.normalize()
}

// WithConfig replaces every setting with cfg.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}

// WithCapacity sets the registry capacity.
func WithCapacity(n int) Option {
	return func(c *Config) { c.Capacity = n }
}

// WithMaxNameLen sets the placeholder name bound.
func WithMaxNameLen(n int) Option {
	return func(c *Config) { c.MaxNameLen = n }
}

// WithMaxDepth sets the frame stack bound.
func WithMaxDepth(n int) Option {
	return func(c *Config) { c.MaxDepth = n }
}

// WithBufferSize sets the staging buffer size.
func WithBufferSize(n int) Option {
	return func(c *Config) { c.BufferSize = n }
}

// WithMaxSteps sets the per-call step cap.
func WithMaxSteps(n int) Option {
	return func(c *Config) { c.MaxSteps = n }
}

// WithChunkSizes sets the per-copy caps for bulk and direct data.
func WithChunkSizes(bulk, direct int) Option {
	return func(c *Config) {
		c.BulkChunk = bulk
		c.DirectChunk = direct
	}
}

// WithOutputChunk sets the size of pooled output buffers.
func WithOutputChunk(n int) Option {
	return func(c *Config) { c.OutputChunk = n }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}
