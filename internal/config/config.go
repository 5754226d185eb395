// Package config holds the configuration of the covmatrix command.
package config

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrInvalidConfig is matched by the error returned by [Config.Validate].
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the configuration of the covmatrix command. Every field can be
// set from a YAML file and overridden by command-line flags.
type Config struct {
	// Workers is the number of goroutines consuming samples concurrently.
	Workers int `yaml:"workers"`
	// Buffer is the capacity of the channel between the reader and the
	// workers.
	Buffer int `yaml:"buffer"`
	// Delimiter separates the values of a sample.
	Delimiter string `yaml:"delimiter"`
	// Comment starts lines that are ignored. Empty disables comments.
	Comment string `yaml:"comment"`
	// Format of the printed matrix: text, json or yaml.
	Format string `yaml:"format"`
	// Strict makes samples with a wrong dimension a fatal error instead of
	// skipping them.
	Strict bool `yaml:"strict"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`
	// MetricsFile, when set, receives the final matrix in the Prometheus text
	// exposition format, for node_exporter's textfile collector.
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Workers:   4,
		Buffer:    1024,
		Delimiter: ",",
		Comment:   "#",
		Format:    FormatText,
		LogLevel:  "info",
	}
}

// Read reads a YAML file on top of the default configuration, without
// validating the result.
func Read(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Load is like [Read], but also validates the result.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate reports every problem found in the configuration.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.Workers < 1 {
		errs = multierror.Append(errs, fmt.Errorf("workers must be at least"+
			" 1, got %d", c.Workers))
	}
	if c.Buffer < 0 {
		errs = multierror.Append(errs, fmt.Errorf("buffer must not be"+
			" negative, got %d", c.Buffer))
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		errs = multierror.Append(errs, fmt.Errorf("delimiter must be a single"+
			" character, got %q", c.Delimiter))
	} else if !validDelim(c.Delimiter) {
		errs = multierror.Append(errs, fmt.Errorf("invalid delimiter %q",
			c.Delimiter))
	}
	if utf8.RuneCountInString(c.Comment) > 1 {
		errs = multierror.Append(errs, fmt.Errorf("comment must be empty or a"+
			" single character, got %q", c.Comment))
	} else if c.Comment != "" && !validDelim(c.Comment) {
		errs = multierror.Append(errs, fmt.Errorf("invalid comment %q",
			c.Comment))
	} else if c.Comment != "" && c.Comment == c.Delimiter {
		errs = multierror.Append(errs, fmt.Errorf("comment and delimiter"+
			" must differ, both are %q", c.Comment))
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown format %q",
			c.Format))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("log_level: %w", err))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// validDelim reports whether encoding/csv accepts the single character in `s`
// as a delimiter or comment.
func validDelim(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != 0 && r != '"' && r != '\r' && r != '\n' &&
		r != utf8.RuneError
}

// DelimiterRune returns the delimiter as a rune. It must only be called on a
// valid Config.
func (c Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// CommentRune returns the comment character, or zero if comments are
// disabled. It must only be called on a valid Config.
func (c Config) CommentRune() rune {
	if c.Comment == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(c.Comment)
	return r
}

// Level returns the parsed log level. It must only be called on a valid
// Config.
func (c Config) Level() zapcore.Level {
	l, _ := zapcore.ParseLevel(c.LogLevel)
	return l
}
