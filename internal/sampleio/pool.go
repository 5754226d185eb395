package sampleio

import (
	"math"
	"sync"
)

// Pool is a [sync.Pool] of slices that uses the lengths of the slices
// released to it to size new ones and to decide which ones are worth
// keeping. Statistics are updated each time Release is called, regardless of
// whether the slice is put back into the sync.Pool. A released slice is kept
// only if its length is within `mean ± threshold * stdDev`, so once the
// sample dimension settles, rows of any other length are left to the garbage
// collector.
type Pool[T any] struct {
	pool      syncPool
	threshold float64

	statsMu sync.Mutex
	stats   lenStats
}

// NewPool returns a Pool accepting slices whose length is within `threshold`
// standard deviations of the mean length. `threshold` must be non-negative.
func NewPool[T any](threshold float64) *Pool[T] {
	ret := &Pool[T]{threshold: threshold}
	ret.pool = &sync.Pool{
		New: ret.new,
	}
	return ret
}

func (p *Pool[T]) new() any {
	n, mean, stdDev := p.ReadStats()
	return make([]T, 0, int(createSize(n, mean, stdDev, p.threshold)))
}

// ReadStats returns the number of slices released and the mean and
// (population) standard deviation of their lengths. The standard deviation is
// NaN while less than two slices were released.
func (p *Pool[T]) ReadStats() (n, mean, stdDev float64) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats.n, p.stats.mean, p.stats.stdDev()
}

// Acquire returns an empty slice from the pool, allocating it if needed.
func (p *Pool[T]) Acquire() []T {
	return p.pool.Get().([]T)[:0]
}

// Release records the length of `s` and puts it back into the pool if it is
// close enough to the mean. The caller must not use `s` afterwards.
func (p *Pool[T]) Release(s []T) {
	size := float64(len(s))
	n, mean, stdDev := p.writeThenRead(size)
	if accept(n, mean, stdDev, p.threshold, size) {
		p.pool.Put(s)
	}
}

func (p *Pool[T]) writeThenRead(size float64) (n, mean, stdDev float64) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.push(size)
	return p.stats.n, p.stats.mean, p.stats.stdDev()
}

// createSize is the capacity of new slices. If n is at most 1, the standard
// deviation is not known yet and the mean is used.
func createSize(n, mean, stdDev, thresh float64) float64 {
	if n > 1 {
		return mean + thresh*stdDev
	}
	return mean
}

// accept is always false while stdDev is NaN.
func accept(n, mean, stdDev, thresh, size float64) bool {
	return mean-thresh*stdDev <= size && size <= mean+thresh*stdDev
}

// lenStats is a running mean and standard deviation of slice lengths.
type lenStats struct {
	n, mean, m2 float64
}

func (s *lenStats) push(v float64) {
	s.n++
	if s.n == 1 {
		s.mean = v
		return
	}
	oldMean := s.mean
	s.mean = math.FMA(oldMean, s.n-1, v) / s.n
	s.m2 = math.FMA(v-oldMean, v-s.mean, s.m2)
}

func (s *lenStats) stdDev() float64 {
	if s.n > 1 {
		return math.Sqrt(s.m2 / s.n)
	}
	return math.NaN()
}

type syncPool interface {
	Get() any
	Put(any)
}
