// Package covmatrix computes the covariance matrix of a stream of vector
// samples without storing them.
package covmatrix

import (
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

// AuxiliaryData is metadata that producers may attach to a sample. Consumers
// in this package accept it and ignore it.
type AuxiliaryData map[string]any

// Consumer receives samples from a producer.
type Consumer[T constraints.Float] interface {
	Consume(sample []T, aux AuxiliaryData) error
}

// Getter returns the current covariance matrix estimate.
type Getter[T constraints.Float] interface {
	Get() Matrix[T]
}

var (
	_ Consumer[float64] = (*CovarianceMatrix[float64])(nil)
	_ Getter[float64]   = (*CovarianceMatrix[float64])(nil)
)

// CovarianceMatrix computes the running covariance matrix of the samples
// consumed so far:
//
//	C_k = C_{k-1} + (x_k - m_{k-1})(x_k - m_{k-1})^T / k
//	m_k = m_{k-1} + (x_k - m_{k-1}) / k
//
// where m_k is the running mean and C_1 is the zero matrix. Note that the
// outer product uses the mean before the update for both factors, which is
// not the two-delta update of Welford's algorithm.
//
// The dimension of the samples is set by the first one consumed, and every
// later sample must have the same length.
//
// It is safe for concurrent use. Concurrent calls to Consume are serialized
// in an unspecified order, and since each update depends on the mean of all
// the previous samples, different orders of the same samples generally
// produce slightly different results.
//
// The zero value is ready to use, without logging or metrics.
type CovarianceMatrix[T constraints.Float] struct {
	mu    sync.Mutex
	count uint64
	mean  []T
	cov   Matrix[T]
	delta []T // scratch, len(mean)

	logger *zap.Logger
	tel    *telemetry
}

// New returns a new, empty CovarianceMatrix.
func New[T constraints.Float](opts ...Option) *CovarianceMatrix[T] {
	o := options{logger: nopLogger}
	for _, opt := range opts {
		opt(&o)
	}

	ret := &CovarianceMatrix[T]{logger: o.logger}
	if o.name != "" {
		ret.logger = o.logger.With(zap.String("accumulator", o.name))
	}
	if o.meterProvider != nil {
		ret.tel = newTelemetry(o.meterProvider, o.name, ret.logger)
	}
	return ret
}

func (c *CovarianceMatrix[T]) log() *zap.Logger {
	if c.logger == nil {
		return nopLogger
	}
	return c.logger
}

// Consume updates the covariance matrix with the given sample. The first
// sample sets the dimension and results in a zero matrix. A sample with a
// different length than the first one is rejected with a
// [*DimensionMismatchError], leaving the state unchanged. The sample is
// copied, so the caller can reuse it after the call returns. The auxiliary
// data is ignored.
func (c *CovarianceMatrix[T]) Consume(sample []T, _ AuxiliaryData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 {
		c.count = 1
		c.mean = slices.Clone(sample)
		c.delta = make([]T, len(sample))
		c.cov = NewMatrix[T](len(sample))
		c.log().Debug("Established sample dimension",
			zap.Int("dimension", len(sample)))
		c.logSample(sample)
		c.tel.sampleConsumed()
		return nil
	}

	n := len(c.mean)
	if len(sample) != n {
		err := &DimensionMismatchError{Want: n, Got: len(sample)}
		c.log().Debug("Rejected sample", zap.Error(err))
		c.tel.sampleRejected()
		return err
	}

	c.count++
	k := T(c.count)

	subInto(c.delta, sample, c.mean)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c.cov.addAt(i, j, c.delta[i]*c.delta[j]/k)
		}
	}
	divInPlace(c.delta, k)
	addInPlace(c.mean, c.delta)

	c.logSample(sample)
	c.tel.sampleConsumed()
	return nil
}

// logSample must be called with c.mu held, so that entries are written in the
// same order the samples were consumed.
func (c *CovarianceMatrix[T]) logSample(sample []T) {
	if ce := c.log().Check(zap.DebugLevel, "Consumed sample"); ce != nil {
		ce.Write(
			zap.Uint64("index", c.count),
			zap.Reflect("sample", slices.Clone(sample)),
		)
	}
}

// Get returns a copy of the current covariance matrix. If no sample was
// consumed yet, the empty matrix is returned.
func (c *CovarianceMatrix[T]) Get() Matrix[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cov.Clone()
}
