// Package worker provides a fixed-size pool that processes independent
// items concurrently while keeping results in input order, which the
// archive writer depends on.
package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Options configures a pool run
type Options struct {
	Workers int

	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	return o
}

// Result holds the output for one input item
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
}

// ProcessAll runs the processor over all items on opts.Workers goroutines.
// The returned slice is indexed by input position regardless of completion
// order. Processing stops between items when ctx is cancelled.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[In, Out], len(items))

	type job struct {
		idx int
		in  In
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					out[j.idx] = Result[In, Out]{Input: j.in, Err: err}
					continue
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						out[j.idx] = Result[In, Out]{Input: j.in, Err: err}
						continue
					}
				}
				res, err := processor(ctx, j.in)
				out[j.idx] = Result[In, Out]{Input: j.in, Output: res, Err: err}
			}
		}()
	}

	for i, item := range items {
		jobs <- job{idx: i, in: item}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
