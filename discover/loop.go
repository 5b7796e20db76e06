// Package discover keeps the local peer set fresh by looking up random
// targets on a fixed period.
//
// Lookup failures are never fatal: a maintenance lookup is not targeted, so a
// failed cycle is logged and the next cycle's delay acts as the backoff.
package discover

import (
	"context"
	"crypto/rand"
	"io"
	"sync/atomic"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/iteration"
	"github.com/brendoncarroll/go-topicdisc/metrics"
	"github.com/brendoncarroll/go-topicdisc/tracing"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type State int32

const (
	Idle State = iota
	Searching
	Sleeping
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Sleeping:
		return "sleeping"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

type Params struct {
	Engine topicdisc.Engine
	Policy iteration.Policy
	// Delay is the time slept between cycles.
	Delay time.Duration

	Clock   clockwork.Clock
	Rand    io.Reader
	Log     logrus.FieldLogger
	OnState func(State)
}

// Stats summarises a finished Loop.
type Stats struct {
	Cycles     int
	Failures   int
	Discovered int
}

// Loop is a single run of the peer discovery state machine:
// Idle -> Searching -> (Sleeping -> Searching)* -> Done.
type Loop struct {
	params Params
	state  int32
}

func New(params Params) *Loop {
	if params.Engine == nil {
		panic("discover: nil engine")
	}
	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}
	if params.Rand == nil {
		params.Rand = rand.Reader
	}
	if params.Log == nil {
		params.Log = topicdisc.Logger
	}
	return &Loop{params: params}
}

// State returns the current state of the loop.
func (l *Loop) State() State {
	return State(atomic.LoadInt32(&l.state))
}

func (l *Loop) setState(s State) {
	atomic.StoreInt32(&l.state, int32(s))
	if l.params.OnState != nil {
		l.params.OnState(s)
	}
}

// Run performs cycles until the policy is exhausted or ctx is done.
// The only errors returned are from ctx and the random source.
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	defer l.setState(Done)
	ctrl := iteration.NewController(l.params.Policy)
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if _, ok := ctrl.Next(); !ok {
			return stats, nil
		}
		l.setState(Searching)
		n, err := l.cycle(ctx, ctrl)
		if err != nil {
			return stats, err
		}
		stats.Cycles++
		if n < 0 {
			stats.Failures++
		} else {
			stats.Discovered += n
		}
		if ctrl.Last() {
			return stats, nil
		}
		l.setState(Sleeping)
		if err := Sleep(ctx, l.params.Clock, l.params.Delay); err != nil {
			return stats, err
		}
	}
}

// cycle performs one lookup and returns the number of nodes found, or -1
// if the lookup failed.
func (l *Loop) cycle(ctx context.Context, ctrl *iteration.Controller) (int, error) {
	log := l.params.Log.WithField("iteration", ctrl.String())
	log.Info("searching for peers...")
	target, err := topicdisc.RandomNodeID(l.params.Rand)
	if err != nil {
		return 0, err
	}
	ctx, span := tracing.Start(ctx, "discover.lookup")
	found, err := l.params.Engine.LookupClosest(ctx, target)
	span.End(err)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return 0, ctx.Err()
	}
	metrics.Lookups.WithLabelValues(metrics.Result(err)).Inc()

	n := -1
	if err != nil {
		log.WithError(err).WithField("target", target.Short()).Warn("find node failed")
	} else {
		n = len(found)
		metrics.DiscoveredNodes.Add(float64(n))
		log.WithField("nodes", n).Info("query completed")
		for _, rec := range found {
			log.WithField("node", rec.ID.String()).Info("found node")
		}
	}
	peers := l.params.Engine.ConnectedPeers()
	metrics.ConnectedPeers.Set(float64(peers))
	log.WithField("peers", peers).Info("connected peers")
	return n, nil
}

// Sleep blocks for d on clock or until ctx is done.
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
