package covmatrix

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/constraints"
)

var _ prometheus.Collector = (*Collector[float64])(nil)

// Collector is a [prometheus.Collector] that exports a snapshot of a
// covariance matrix on each scrape. Only the upper triangle is exported,
// since the matrix is symmetric.
type Collector[T constraints.Float] struct {
	src       Getter[T]
	entryDesc *prometheus.Desc
	dimDesc   *prometheus.Desc
}

// NewCollector returns a Collector reading from `src`. The exported metrics
// are `<namespace>_<name>_covariance` with `row` and `col` labels, and
// `<namespace>_<name>_dimension`.
func NewCollector[T constraints.Float](namespace, name string,
	src Getter[T]) *Collector[T] {
	return &Collector[T]{
		src: src,
		entryDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, name, "covariance"),
			"Current covariance matrix estimate, upper triangle.",
			[]string{"row", "col"}, nil,
		),
		dimDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, name, "dimension"),
			"Dimension of the consumed samples, zero if none was consumed.",
			nil, nil,
		),
	}
}

// Describe is part of the implementation of the prometheus.Collector
// interface.
func (c *Collector[T]) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entryDesc
	ch <- c.dimDesc
}

// Collect is part of the implementation of the prometheus.Collector
// interface.
func (c *Collector[T]) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Get()
	n := m.Dim()
	ch <- prometheus.MustNewConstMetric(c.dimDesc, prometheus.GaugeValue,
		float64(n))
	for i := 0; i < n; i++ {
		row := strconv.Itoa(i)
		for j := i; j < n; j++ {
			ch <- prometheus.MustNewConstMetric(c.entryDesc,
				prometheus.GaugeValue, float64(m.At(i, j)), row,
				strconv.Itoa(j))
		}
	}
}
