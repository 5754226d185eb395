// Package sampleio reads vector samples from delimited text.
package sampleio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrNotFinite is the error of a [*ParseError] for a NaN or infinite value.
var ErrNotFinite = errors.New("value is not a finite number")

// ParseError reports a value that could not be parsed as a finite number.
type ParseError struct {
	Line  int // 1-based line of the record
	Field int // 1-based field within the record
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, field %d: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader reads one sample per line. Records may have any number of fields;
// checking that all samples have the same dimension is left to the consumer.
// It is not safe for concurrent use.
type Reader struct {
	cr   *csv.Reader
	pool *Pool[float64]
}

// NewReader returns a Reader splitting fields on `delim`. Lines starting with
// `comment` are skipped, unless it is zero.
func NewReader(r io.Reader, delim, comment rune) *Reader {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.Comment = comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{cr: cr}
}

// WithPool makes r take the slices it returns from `p`. The caller should
// Release each sample to `p` once it is done with it.
func (r *Reader) WithPool(p *Pool[float64]) *Reader {
	r.pool = p
	return r
}

// Read returns the next sample and the line it started at. A different slice
// is returned on each call, unless an earlier one was released to the pool
// set with WithPool. At the end of the input it returns io.EOF.
func (r *Reader) Read() (sample []float64, line int, err error) {
	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		return nil, 0, fmt.Errorf("read sample: %w", err)
	}
	line, _ = r.cr.FieldPos(0)

	sample = r.newSample(len(rec))
	for i, s := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = ErrNotFinite
		}
		if err != nil {
			return nil, line, &ParseError{Line: line, Field: i + 1, Err: err}
		}
		sample = append(sample, v)
	}
	return sample, line, nil
}

func (r *Reader) newSample(n int) []float64 {
	if r.pool == nil {
		return make([]float64, 0, n)
	}
	return r.pool.Acquire()
}
