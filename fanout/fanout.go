// Package fanout issues the same operation to many nodes concurrently and
// collects one outcome per node.
//
// Execute never fails as a whole: every target yields exactly one Outcome,
// in input order, carrying either a value or an error.
package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrTimeout is the outcome of an operation which did not settle before its deadline.
var ErrTimeout = errors.New("fanout: operation timed out")

// Op is an operation targeted at a single node.
type Op[T any] func(ctx context.Context, node topicdisc.NodeRecord) (T, error)

// Outcome is the result of running an Op against Node.
type Outcome[T any] struct {
	Node    topicdisc.NodeRecord
	Value   T
	Err     error
	Elapsed time.Duration
}

func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

type config struct {
	timeout     time.Duration
	parallelism int
}

// Option configures Execute.
type Option func(*config)

// WithTimeout bounds each operation.  An operation still running at the
// deadline gets ErrTimeout as its outcome and its context is cancelled.
// Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithParallelism limits how many operations run at once.  An operation
// abandoned at its deadline keeps its slot until it returns.
// Zero or less means no limit.
func WithParallelism(n int) Option {
	return func(c *config) {
		c.parallelism = n
	}
}

// Execute runs op against every target concurrently and waits for all of
// them to settle.  The outcomes are in the same order as targets.
func Execute[T any](ctx context.Context, targets []topicdisc.NodeRecord, op Op[T], opts ...Option) []Outcome[T] {
	outs := make([]Outcome[T], len(targets))
	if len(targets) == 0 {
		return outs
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	var sem *semaphore.Weighted
	if cfg.parallelism > 0 {
		sem = semaphore.NewWeighted(int64(cfg.parallelism))
	}
	var eg errgroup.Group
	for i := range targets {
		i := i
		eg.Go(func() error {
			outs[i] = run(ctx, cfg, sem, targets[i], op)
			return nil
		})
	}
	eg.Wait()
	return outs
}

func run[T any](ctx context.Context, cfg config, sem *semaphore.Weighted, node topicdisc.NodeRecord, op Op[T]) Outcome[T] {
	start := time.Now()
	out := Outcome[T]{Node: node}
	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			out.Err = err
			out.Elapsed = time.Since(start)
			return out
		}
	}
	opCtx, cancel := ctx, context.CancelFunc(func() {})
	if cfg.timeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
	}
	defer cancel()

	p := newPromise[T]()
	go func() {
		// the slot is held until op returns, even after its outcome is published
		if sem != nil {
			defer sem.Release(1)
		}
		defer func() {
			if r := recover(); r != nil {
				var zero T
				p.settle(zero, fmt.Errorf("fanout: operation panicked: %v", r))
			}
		}()
		p.settle(op(opCtx, node))
	}()

	select {
	case <-p.done:
		out.Value, out.Err = p.unwrap()
		if out.Err != nil && cfg.timeout > 0 && errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			out.Err = errors.Wrapf(ErrTimeout, "after %v: %v", cfg.timeout, out.Err)
		}
	case <-opCtx.Done():
		if ctx.Err() != nil {
			out.Err = ctx.Err()
		} else {
			out.Err = errors.Wrapf(ErrTimeout, "after %v", cfg.timeout)
		}
	}
	out.Elapsed = time.Since(start)
	return out
}

func IsErrTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
