package covmatrix

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/constraints"
)

// covariance_test_data.tsv.bz2 holds 512 three-dimensional samples, one per
// record, followed by the running mean and the upper triangle of the running
// covariance matrix expected after consuming that sample:
//
//	x0 x1 x2 mean0 mean1 mean2 c00 c01 c02 c11 c12 c22
//
//go:embed covariance_test_data.tsv.bz2
var covarianceTestData []byte

const (
	testDataDim    = 3
	testDataFields = 2*testDataDim + testDataDim*(testDataDim+1)/2
)

// testRecord is one parsed record of the test data.
type testRecord struct {
	sample []float64
	mean   []float64
	cov    [][]float64 // full matrix, rebuilt from the upper triangle
}

func parseFloats(ss []string, ret []float64) error {
	for i, s := range ss {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse %d-eth float: %w", i, err)
		}
		ret[i] = f
	}
	return nil
}

func tsvTestDataReader(tb testing.TB) *csv.Reader {
	tb.Helper()
	r := bufio.NewReader(bzip2.NewReader(bytes.NewReader(covarianceTestData)))

	// discard the header
	for {
		_, isPrefix, err := r.ReadLine()
		require.NoError(tb, err)
		if !isPrefix {
			break
		}
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = testDataFields
	cr.ReuseRecord = true

	return cr
}

func allTestDataRecords(tb testing.TB) []testRecord {
	tb.Helper()

	ret := make([]testRecord, 0, 512)
	v := make([]float64, testDataFields)

	cr := tsvTestDataReader(tb)
	for i := 1; ; i++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(tb, err, "read record #%d", i)
		require.NoError(tb, parseFloats(rec, v), "parse record #%d: %v", i,
			rec)

		tr := testRecord{
			sample: append([]float64(nil), v[:testDataDim]...),
			mean:   append([]float64(nil), v[testDataDim:2*testDataDim]...),
			cov:    make([][]float64, testDataDim),
		}
		for r := range tr.cov {
			tr.cov[r] = make([]float64, testDataDim)
		}
		upper := v[2*testDataDim:]
		for r := 0; r < testDataDim; r++ {
			for c := r; c < testDataDim; c++ {
				tr.cov[r][c] = upper[0]
				tr.cov[c][r] = upper[0]
				upper = upper[1:]
			}
		}
		ret = append(ret, tr)
	}

	return ret
}

func allTestDataSamples(tb testing.TB) [][]float64 {
	tb.Helper()
	recs := allTestDataRecords(tb)
	ret := make([][]float64, len(recs))
	for i := range recs {
		ret[i] = recs[i].sample
	}
	return ret
}

// meanOf returns a copy of the running mean of c.
func meanOf[T constraints.Float](c *CovarianceMatrix[T]) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.mean...)
}

// countOf returns the number of samples consumed by c.
func countOf[T constraints.Float](c *CovarianceMatrix[T]) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// consumeAll consumes every sample in order into a new CovarianceMatrix.
func consumeAll(tb testing.TB, samples ...[]float64) *CovarianceMatrix[float64] {
	tb.Helper()
	c := New[float64]()
	for i, s := range samples {
		require.NoError(tb, c.Consume(s, nil), "consume sample #%d", i)
	}
	return c
}
