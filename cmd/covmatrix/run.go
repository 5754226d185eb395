package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/diegommm/covmatrix"
	"github.com/diegommm/covmatrix/internal/config"
	"github.com/diegommm/covmatrix/internal/sampleio"
)

const (
	accumulatorName = "covmatrix"
	// poolThreshold is the number of standard deviations from the mean
	// sample length within which released samples are kept for reuse.
	poolThreshold = 1
)

type lineSample struct {
	values []float64
	line   int
}

type runner struct {
	cfg    config.Config
	logger *zap.Logger
	pool   *sampleio.Pool[float64] // created by run if nil

	consumed, rejected atomic.Int64
}

// run reads every sample from `in` and consumes them with cfg.Workers
// goroutines sharing one accumulator.
func (r *runner) run(ctx context.Context,
	in io.Reader) (covmatrix.Matrix[float64], error) {
	start := time.Now()
	acc := covmatrix.New[float64](
		covmatrix.WithLogger(r.logger),
		covmatrix.WithMeterProvider(otel.GetMeterProvider()),
		covmatrix.WithName(accumulatorName),
	)

	if r.pool == nil {
		r.pool = sampleio.NewPool[float64](poolThreshold)
	}

	samples := make(chan lineSample, r.cfg.Buffer)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(samples)
		rd := sampleio.NewReader(in, r.cfg.DelimiterRune(),
			r.cfg.CommentRune()).WithPool(r.pool)
		for {
			values, line, err := rd.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case samples <- lineSample{values: values, line: line}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	for i := 0; i < r.cfg.Workers; i++ {
		g.Go(func() error {
			for s := range samples {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := r.consume(acc, s); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return covmatrix.Matrix[float64]{}, err
	}

	m := acc.Get()
	r.logger.Info("Computed covariance matrix",
		zap.Int("dimension", m.Dim()),
		zap.Int64("consumed", r.consumed.Load()),
		zap.Int64("rejected", r.rejected.Load()),
		zap.Int("workers", r.cfg.Workers),
		zap.Duration("elapsed", time.Since(start)),
	)
	return m, nil
}

// consume releases the sample to the pool after acc.Consume returns, which
// does not retain it.
func (r *runner) consume(acc covmatrix.Consumer[float64], s lineSample) error {
	err := acc.Consume(s.values, covmatrix.AuxiliaryData{"line": s.line})
	r.pool.Release(s.values)
	if errors.Is(err, covmatrix.ErrDimensionMismatch) && !r.cfg.Strict {
		r.rejected.Add(1)
		r.logger.Warn("Skipping sample", zap.Int("line", s.line),
			zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("line %d: %w", s.line, err)
	}
	r.consumed.Add(1)
	return nil
}

func writeMatrix(w io.Writer, format string,
	m covmatrix.Matrix[float64]) error {
	switch format {
	case config.FormatJSON:
		return json.NewEncoder(w).Encode(m)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, m)
		return err
	}
}

func writeMetricsFile(path string, m covmatrix.Matrix[float64]) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(covmatrix.NewCollector[float64](accumulatorName,
		"", snapshot(m))); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}

// snapshot serves a fixed matrix as a covmatrix.Getter.
type snapshot covmatrix.Matrix[float64]

func (s snapshot) Get() covmatrix.Matrix[float64] {
	return covmatrix.Matrix[float64](s)
}
