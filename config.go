package derivable

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the runtime options
type Config struct {
	// MaxReactionDepth bounds synchronous reentrancy of a single reactor
	MaxReactionDepth int `yaml:"max_reaction_depth" validate:"gte=0,lte=100000"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	// AutoCacheByDefault auto-caches every derived node of the runtime
	AutoCacheByDefault bool `yaml:"auto_cache_by_default"`
}

var configValidate = validator.New()

// DefaultConfig returns the configuration NewRuntime uses without options
func DefaultConfig() Config {
	return Config{
		MaxReactionDepth: DefaultMaxReactionDepth,
		LogLevel:         "info",
	}
}

// ParseConfig decodes and validates YAML. Missing keys keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level returns the slog level named by LogLevel
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Options maps the configuration onto runtime options. The logger, if
// given, is filtered at the configured level.
func (c *Config) Options(logger *slog.Logger) []Option {
	opts := []Option{WithMaxReactionDepth(c.MaxReactionDepth)}
	if logger != nil {
		opts = append(opts, WithLogger(slog.New(&levelHandler{level: c.Level(), next: logger.Handler()})))
	}
	if c.AutoCacheByDefault {
		opts = append(opts, WithAutoCacheByDefault())
	}
	return opts
}

// levelHandler drops records below level before they reach next
type levelHandler struct {
	level slog.Level
	next  slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level && h.next.Enabled(ctx, l)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, next: h.next.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, next: h.next.WithGroup(name)}
}
