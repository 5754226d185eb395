// Command covmatrix computes the covariance matrix of the samples read from a
// file or the standard input, one sample per line.
//
// Usage:
//
//	covmatrix samples.csv
//	covmatrix --workers 8 --format json - < samples.csv
//	covmatrix --config covmatrix.yaml --delimiter ' ' samples.txt
//
// Samples are consumed by several workers concurrently. The first sample
// consumed sets the dimension, and since the estimate depends on the order of
// the samples, results may differ slightly between runs with more than one
// worker. Use `--workers 1` for reproducible output.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
