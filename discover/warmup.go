package discover

import (
	"context"
	"io"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/iteration"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// DefaultWarmupCycles is how many lookups are made before a topic operation.
const DefaultWarmupCycles = 3

// WarmupParams configure Warmup.
type WarmupParams struct {
	Engine topicdisc.Engine
	// Bootstrap, if set, is added to the local table first.
	Bootstrap *topicdisc.NodeRecord
	// Settle is slept after adding the bootstrap record.
	Settle time.Duration
	// Cycles is the number of lookups; Delay is the time between them.
	Cycles int
	Delay  time.Duration

	Clock clockwork.Clock
	Rand  io.Reader
	Log   logrus.FieldLogger
}

// Warmup seeds the local table and runs a short bounded discovery loop, so
// that topic operations are not issued against an empty or stale peer set.
func Warmup(ctx context.Context, params WarmupParams) (Stats, error) {
	if params.Log == nil {
		params.Log = topicdisc.Logger
	}
	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}
	if params.Bootstrap != nil {
		AddBootstrap(params.Engine, *params.Bootstrap, params.Log)
		if err := Sleep(ctx, params.Clock, params.Settle); err != nil {
			return Stats{}, err
		}
	}
	return New(Params{
		Engine: params.Engine,
		Policy: iteration.Bounded(params.Cycles),
		Delay:  params.Delay,
		Clock:  params.Clock,
		Rand:   params.Rand,
		Log:    params.Log,
	}).Run(ctx)
}

// AddBootstrap adds rec to the engine's table.  Failure is logged and
// reported, but never fatal.
func AddBootstrap(e topicdisc.Engine, rec topicdisc.NodeRecord, log logrus.FieldLogger) bool {
	log = log.WithFields(logrus.Fields{
		"node": rec.ID.String(),
		"ip":   rec.IP,
		"udp":  rec.UDP,
		"tcp":  rec.TCP,
	})
	log.Info("connecting to node record")
	if err := e.AddNode(rec); err != nil {
		log.WithError(err).Warn("node record not added")
		return false
	}
	return true
}
