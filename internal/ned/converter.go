package ned

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/bybunni/vector-space/internal/geodesy"
)

// parallelThreshold is the stream length below which the batch is converted
// on the calling goroutine; spawning workers costs more than the math for
// small batches.
const parallelThreshold = 512

// Converter maps position streams into the NED frame of a resolved
// reference. Rows are independent once the reference is fixed, so large
// batches fan out across a bounded set of goroutines with indexed
// write-back: output index i always corresponds to input index i.
type Converter struct {
	workers int
	logger  *slog.Logger
}

// NewConverter creates a Converter. workers <= 0 defaults to NumCPU.
func NewConverter(workers int, logger *slog.Logger) *Converter {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Converter{workers: workers, logger: logger}
}

// ConvertStream converts an ordered stream of geodetic samples to NED
// offsets from ref, one output per input in the same order. Any non-finite
// sample fails the whole batch with an InvalidSampleError for the earliest
// offending row; there is no partial output.
func (c *Converter) ConvertStream(ctx context.Context, stream []geodesy.Geodetic, ref geodesy.Reference) ([]geodesy.NED, error) {
	return convert(ctx, c, len(stream), func(i int) (geodesy.NED, error) {
		p := stream[i]
		if !p.Finite() {
			return geodesy.NED{}, &InvalidSampleError{Index: i, Field: "position", Reason: "not finite"}
		}
		return ref.GeodeticToNED(p), nil
	})
}

// ConvertECEF is ConvertStream for samples already in ECEF meters.
func (c *Converter) ConvertECEF(ctx context.Context, stream []geodesy.ECEF, ref geodesy.Reference) ([]geodesy.NED, error) {
	return convert(ctx, c, len(stream), func(i int) (geodesy.NED, error) {
		p := stream[i]
		if !p.Finite() {
			return geodesy.NED{}, &InvalidSampleError{Index: i, Field: "position", Reason: "not finite"}
		}
		return ref.ECEFToNED(p), nil
	})
}

// convert runs row() for indices [0, n) and assembles results in input
// order. The batch either fully succeeds or returns the error with the
// lowest row index so failures are deterministic regardless of scheduling.
func convert(ctx context.Context, c *Converter, n int, row func(i int) (geodesy.NED, error)) ([]geodesy.NED, error) {
	if n == 0 {
		return []geodesy.NED{}, nil
	}

	out := make([]geodesy.NED, n)

	if c.workers == 1 || n < parallelThreshold {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			v, err := row(i)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	errs := make([]error, n)
	jobs := make(chan int, c.workers*2)

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i], errs[i] = row(i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("batch conversion failed", "row", i, "error", err)
			}
			return nil, err
		}
	}
	return out, nil
}
