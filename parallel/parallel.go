// Package parallel runs a function over disjoint row ranges on several goroutines.
// Cancellation is cooperative: the context is checked between chunks, never
// inside one.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"colexpr-go/errs"

	"golang.org/x/sync/errgroup"
)

type Schedule uint8

const (
	// Dynamic hands out chunks to whichever worker is free.
	Dynamic Schedule = iota
	// Static gives every worker one contiguous share of the rows up front.
	Static
)

func (s Schedule) String() string {
	switch s {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	default:
		return fmt.Sprintf("Schedule(%d)", uint8(s))
	}
}

// ParseSchedule maps "static" and "dynamic" onto a Schedule.
func ParseSchedule(s string) (Schedule, error) {
	switch s {
	case "dynamic", "":
		return Dynamic, nil
	case "static":
		return Static, nil
	default:
		return Dynamic, errs.ValueErrorf("unknown schedule %q", s)
	}
}

type Options struct {
	Workers   int
	ChunkSize int
	Schedule  Schedule
	// MinRows is the row count below which work runs on the calling goroutine.
	MinRows int
}

func DefaultOptions() Options {
	return Options{
		Workers:   runtime.GOMAXPROCS(0),
		ChunkSize: 4096,
		Schedule:  Dynamic,
		MinRows:   16384,
	}
}

func (o Options) normalize() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 4096
	}
	return o
}

// For calls fn over [0, nrows) split into chunks of at most opts.ChunkSize rows.
// Chunks are disjoint and cover every row exactly once. The first error
// returned by fn, or the context's error, stops the remaining chunks and is
// returned.
func For(ctx context.Context, nrows int, opts Options, fn func(start, end int) error) error {
	opts = opts.normalize()
	if nrows <= 0 {
		return ctx.Err()
	}
	nchunks := (nrows + opts.ChunkSize - 1) / opts.ChunkSize
	workers := min(opts.Workers, nchunks)
	if workers <= 1 || nrows < opts.MinRows {
		return serial(ctx, 0, nrows, opts.ChunkSize, fn)
	}

	g, gctx := errgroup.WithContext(ctx)
	switch opts.Schedule {
	case Static:
		for w := 0; w < workers; w++ {
			start := w * nrows / workers
			end := (w + 1) * nrows / workers
			g.Go(func() error {
				return serial(gctx, start, end, opts.ChunkSize, fn)
			})
		}
	default:
		var next atomic.Int64
		for w := 0; w < workers; w++ {
			g.Go(func() error {
				for {
					if err := gctx.Err(); err != nil {
						return err
					}
					c := int(next.Add(1) - 1)
					if c >= nchunks {
						return nil
					}
					start := c * opts.ChunkSize
					if err := fn(start, min(start+opts.ChunkSize, nrows)); err != nil {
						return err
					}
				}
			})
		}
	}
	return g.Wait()
}

func serial(ctx context.Context, start, end, chunk int, fn func(start, end int) error) error {
	for s := start; s < end; s += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(s, min(s+chunk, end)); err != nil {
			return err
		}
	}
	return nil
}
