// Package utils contains small helpers shared by the kinz packages.
package utils

import (
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor is the number of goroutines per-row work is spread over. Tests may lower it.
var ParallelFactor = max(runtime.GOMAXPROCS(0), 1)

// RowBand is the half-open range of rows [From, To) handled by one goroutine.
type RowBand struct {
	From, To int
}

// RowBands splits [0, height) into at most ParallelFactor contiguous bands whose sizes differ by
// at most one row. The larger bands come first.
func RowBands(height int) []RowBand {
	if height <= 0 {
		return nil
	}
	n := min(ParallelFactor, height)
	size, extra := height/n, height%n
	bands := make([]RowBand, n)
	from := 0
	for i := range bands {
		to := from + size
		if i < extra {
			to++
		}
		bands[i] = RowBand{From: from, To: to}
		from = to
	}
	return bands
}

// ParallelForEachRow calls f once for every row in [0, height), each band of rows on its own
// goroutine, and returns when all rows are done. f must only touch data owned by its row. A panic
// in f stops its band; once the other bands finish, the first panic is re-raised on the calling
// goroutine.
func ParallelForEachRow(height int, f func(y int)) {
	bands := RowBands(height)
	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicked interface{}
	)
	wg.Add(len(bands))
	for _, band := range bands {
		utils.PanicCapturingGoWithCallback(func() {
			for y := band.From; y < band.To; y++ {
				f(y)
			}
			wg.Done()
		}, func(err interface{}) {
			panicMu.Lock()
			if panicked == nil {
				panicked = err
			}
			panicMu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
}
