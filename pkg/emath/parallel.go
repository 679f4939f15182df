package emath

import(
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFactor caps how many goroutines the parallel helpers use.
var ParallelFactor = runtime.GOMAXPROCS(0)

// ParallelForEachRow calls f once for every y in [0,height), spread
// over ParallelFactor goroutines, each taking a contiguous band of rows.
func ParallelForEachRow(height int, f func(y int)) {
	_ = ParallelFor(context.Background(), height, func(y int) error {
		f(y)
		return nil
	})
}

// ParallelFor calls f for each i in [0,n). The first error stops the
// remaining bands from starting new work, and is returned.
func ParallelFor(ctx context.Context, n int, f func(i int) error) error {
	if n <= 0 {
		return nil
	}

	nBands := ParallelFactor
	if nBands < 1 { nBands = 1 }
	if nBands > n { nBands = n }
	bandSize := (n + nBands - 1) / nBands

	g, ctx := errgroup.WithContext(ctx)
	for from := 0; from < n; from += bandSize {
		from, to := from, from+bandSize
		if to > n { to = n }

		g.Go(func() error {
			for i := from; i < to; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := f(i); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
