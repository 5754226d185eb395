package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/diegommm/covmatrix/internal/config"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		fc         = config.Default()
	)

	cmd := &cobra.Command{
		Use:   "covmatrix [flags] [file]",
		Short: "Compute the covariance matrix of a stream of samples",
		Long: "Reads one sample per line from a file, or the standard input" +
			" if the file is omitted or \"-\", and prints the covariance" +
			" matrix of all the samples.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configPath, fc)
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Level())
			defer func() { _ = logger.Sync() }()

			in, closeIn, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closeIn()

			r := &runner{cfg: cfg, logger: logger}
			m, err := r.run(cmd.Context(), in)
			if err != nil {
				logger.Error("Error computing covariance matrix", zap.Error(err))
				return err
			}
			if err := writeMatrix(cmd.OutOrStdout(), cfg.Format, m); err != nil {
				return fmt.Errorf("write matrix: %w", err)
			}
			if cfg.MetricsFile != "" {
				if err := writeMetricsFile(cfg.MetricsFile, m); err != nil {
					return fmt.Errorf("write metrics file: %w", err)
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.IntVarP(&fc.Workers, "workers", "w", fc.Workers,
		"number of concurrent consumers")
	flags.IntVar(&fc.Buffer, "buffer", fc.Buffer,
		"number of parsed samples queued for the consumers")
	flags.StringVarP(&fc.Delimiter, "delimiter", "d", fc.Delimiter,
		"character separating the values of a sample")
	flags.StringVar(&fc.Comment, "comment", fc.Comment,
		"character starting ignored lines, empty to disable")
	flags.StringVarP(&fc.Format, "format", "f", fc.Format,
		"output format: text, json or yaml")
	flags.BoolVar(&fc.Strict, "strict", fc.Strict,
		"fail on samples with a different dimension instead of skipping them")
	flags.StringVar(&fc.LogLevel, "log-level", fc.LogLevel, "log level")
	flags.StringVar(&fc.MetricsFile, "metrics-file", fc.MetricsFile,
		"write the matrix to this file in the Prometheus text format")

	return cmd
}

// resolveConfig loads the configuration file, if any, and applies the flags
// that were explicitly set on top of it.
func resolveConfig(cmd *cobra.Command, path string,
	fc config.Config) (config.Config, error) {
	if path == "" {
		return fc, fc.Validate()
	}

	cfg, err := config.Read(path)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("workers") {
		cfg.Workers = fc.Workers
	}
	if changed("buffer") {
		cfg.Buffer = fc.Buffer
	}
	if changed("delimiter") {
		cfg.Delimiter = fc.Delimiter
	}
	if changed("comment") {
		cfg.Comment = fc.Comment
	}
	if changed("format") {
		cfg.Format = fc.Format
	}
	if changed("strict") {
		cfg.Strict = fc.Strict
	}
	if changed("log-level") {
		cfg.LogLevel = fc.LogLevel
	}
	if changed("metrics-file") {
		cfg.MetricsFile = fc.MetricsFile
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(core)
}

func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
