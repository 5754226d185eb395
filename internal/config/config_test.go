package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ',', cfg.DelimiterRune())
	assert.Equal(t, '#', cfg.CommentRune())
	assert.Equal(t, zapcore.InfoLevel, cfg.Level())
	assert.Equal(t, FormatText, cfg.Format)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr int // number of reported problems
	}{
		{"valid tab delimiter", func(c *Config) { c.Delimiter = "\t" }, 0},
		{"comments disabled", func(c *Config) { c.Comment = "" }, 0},
		{"zero workers", func(c *Config) { c.Workers = 0 }, 1},
		{"negative buffer", func(c *Config) { c.Buffer = -1 }, 1},
		{"long delimiter", func(c *Config) { c.Delimiter = ";;" }, 1},
		{"empty delimiter", func(c *Config) { c.Delimiter = "" }, 1},
		{"quote delimiter", func(c *Config) { c.Delimiter = `"` }, 1},
		{"newline delimiter", func(c *Config) { c.Delimiter = "\n" }, 1},
		{"carriage return delimiter", func(c *Config) { c.Delimiter = "\r" }, 1},
		{"invalid utf-8 delimiter", func(c *Config) { c.Delimiter = "\xff" }, 1},
		{"replacement char delimiter", func(c *Config) { c.Delimiter = "\uFFFD" }, 1},
		{"quote comment", func(c *Config) { c.Comment = `"` }, 1},
		{"long comment", func(c *Config) { c.Comment = "//" }, 1},
		{"comment equals delimiter", func(c *Config) { c.Comment = "," }, 1},
		{"unknown format", func(c *Config) { c.Format = "xml" }, 1},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }, 1},
		{"everything wrong", func(c *Config) {
			c.Workers = -3
			c.Buffer = -1
			c.Delimiter = ""
			c.Format = "csv"
			c.LogLevel = "loud"
		}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == 0 {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			assert.Len(t, merr.Errors, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
		return p
	}

	t.Run("overrides defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := Load(write("ok.yaml", "workers: 2\ndelimiter: \";\"\n"+
			"format: json\nstrict: true\nlog_level: debug\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, ';', cfg.DelimiterRune())
		assert.Equal(t, FormatJSON, cfg.Format)
		assert.True(t, cfg.Strict)
		assert.Equal(t, zapcore.DebugLevel, cfg.Level())
		assert.Equal(t, Default().Buffer, cfg.Buffer, "unset keys keep"+
			" their default")
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()
		p := write("bad.yaml", "workers: 0\n")
		_, err := Load(p)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		// Read leaves validation to the caller
		cfg, err := Read(p)
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.Workers)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		_, err := Load(write("malformed.yaml", "workers: [\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config file")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
