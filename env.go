package streamtpl

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is prepended to every environment override name.
const EnvPrefix = "STREAMTPL_"

var envInts = []struct {
	key string
	set func(*Config, int)
}{
	{"CAPACITY", func(c *Config, v int) { c.Capacity = v }},
	{"MAX_NAME_LEN", func(c *Config, v int) { c.MaxNameLen = v }},
	{"MAX_DEPTH", func(c *Config, v int) { c.MaxDepth = v }},
	{"BUFFER_SIZE", func(c *Config, v int) { c.BufferSize = v }},
	{"MAX_STEPS", func(c *Config, v int) { c.MaxSteps = v }},
	{"BULK_CHUNK", func(c *Config, v int) { c.BulkChunk = v }},
	{"DIRECT_CHUNK", func(c *Config, v int) { c.DirectChunk = v }},
	{"OUTPUT_CHUNK", func(c *Config, v int) { c.OutputChunk = v }},
}

// ConfigFromEnv returns the defaults overlaid with STREAMTPL_* variables.
func ConfigFromEnv() (Config, error) {
	return ApplyEnv(DefaultConfig(), os.LookupEnv)
}

// ApplyEnv overlays variables found by lookup onto cfg. Malformed numbers
// are reported rather than ignored.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	for _, e := range envInts {
		raw, ok := lookup(EnvPrefix + e.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, e.key, raw)
		}
		e.set(&cfg, v)
	}
	if raw, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok && raw != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
