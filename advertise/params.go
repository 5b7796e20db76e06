// Package advertise orchestrates topic registration, queries and removal
// against a topicdisc.Engine.
//
// Every operation follows the same phases, each finishing before the next
// starts: warm up the peer set, find the nodes closest to the topic digest,
// fan the operation out to them, then report.  Per-node failures and lookup
// failures are logged and never abort an operation; only context
// cancellation does.
package advertise

import (
	"context"
	"io"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/discover"
	"github.com/brendoncarroll/go-topicdisc/fanout"
	"github.com/brendoncarroll/go-topicdisc/iteration"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/brendoncarroll/go-topicdisc/tracing"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

type Params struct {
	Hasher       *topic.Hasher
	// Bootstrap, if set, is added to the engine before warming up.
	Bootstrap    *topicdisc.NodeRecord
	// Settle is slept after adding Bootstrap.
	Settle       time.Duration
	WarmupCycles int
	WarmupDelay  time.Duration

	// OpTimeout bounds each per-node operation.  Zero means no bound.
	OpTimeout   time.Duration
	Parallelism int

	// PollInterval is the period of the active topic poll.
	PollInterval time.Duration
	// PollPolicy defaults to Unbounded.
	PollPolicy   iteration.Policy

	// Rounds is the number of query rounds; negative means forever, zero means one.
	Rounds     int
	RoundDelay time.Duration

	Clock clockwork.Clock
	Rand  io.Reader
	Log   logrus.FieldLogger
}

// DefaultParams returns the timings used by the CLI.
func DefaultParams() Params {
	return Params{
		Hasher:       topic.DefaultHasher(),
		Settle:       5 * time.Second,
		WarmupCycles: discover.DefaultWarmupCycles,
		WarmupDelay:  time.Second,
		OpTimeout:    10 * time.Second,
		PollInterval: 15 * time.Second,
		PollPolicy:   iteration.Unbounded(),
		Rounds:       1,
		RoundDelay:   5 * time.Second,
	}
}

func (p Params) withDefaults() Params {
	if p.Hasher == nil {
		p.Hasher = topic.DefaultHasher()
	}
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	if p.Log == nil {
		p.Log = topicdisc.Logger
	}
	if p.Rounds == 0 {
		p.Rounds = 1
	}
	return p
}

func (p Params) fanoutOpts() []fanout.Option {
	return []fanout.Option{
		fanout.WithTimeout(p.OpTimeout),
		fanout.WithParallelism(p.Parallelism),
	}
}

// locate warms up the peer set and returns the nodes closest to d.
// A failed lookup yields no nodes rather than an error.
func locate(ctx context.Context, e topicdisc.Engine, p Params, d topic.Digest, log logrus.FieldLogger) ([]topicdisc.NodeRecord, error) {
	wctx, span := tracing.Start(ctx, "topic.warmup")
	stats, err := discover.Warmup(wctx, discover.WarmupParams{
		Engine:    e,
		Bootstrap: p.Bootstrap,
		Settle:    p.Settle,
		Cycles:    p.WarmupCycles,
		Delay:     p.WarmupDelay,
		Clock:     p.Clock,
		Rand:      p.Rand,
		Log:       log,
	})
	span.SetInt("cycles", stats.Cycles)
	span.End(err)
	if err != nil {
		return nil, err
	}

	cctx, span := tracing.Start(ctx, "topic.closest")
	nodes, err := e.ClosestToDigest(cctx, d)
	span.End(err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("could not find nodes closest to topic, continuing with none")
		return nil, nil
	}
	log.WithField("nodes", len(nodes)).Info("found nodes closest to topic")
	return nodes, nil
}

func logHashes(log logrus.FieldLogger, hashes []topic.Hashed) {
	for _, h := range hashes {
		log.WithFields(logrus.Fields{
			"func":   h.Func,
			"digest": h.Digest.String(),
		}).Info("topic hash")
	}
}
