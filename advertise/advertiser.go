package advertise

import (
	"context"
	"sort"
	"strings"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/discover"
	"github.com/brendoncarroll/go-topicdisc/fanout"
	"github.com/brendoncarroll/go-topicdisc/iteration"
	"github.com/brendoncarroll/go-topicdisc/metrics"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/brendoncarroll/go-topicdisc/tracing"
	"github.com/sirupsen/logrus"
)

// Advertiser registers a topic with the nodes closest to its digest and
// then polls which nodes hold the advertisement.
type Advertiser struct {
	engine topicdisc.Engine
	params Params
}

func NewAdvertiser(e topicdisc.Engine, params Params) *Advertiser {
	return &Advertiser{engine: e, params: params.withDefaults()}
}

// Run registers t and then polls until the poll policy is exhausted or ctx is done.
func (a *Advertiser) Run(ctx context.Context, t topic.Topic) error {
	if _, err := a.Register(ctx, t); err != nil {
		return err
	}
	return a.Poll(ctx, t)
}

// Register sends a registration of t to every node closest to its digest.
// It returns one outcome per node; partial success is expected.
func (a *Advertiser) Register(ctx context.Context, t topic.Topic) ([]fanout.Outcome[struct{}], error) {
	log := a.params.Log.WithField("topic", t)
	hashes := a.params.Hasher.Digests(t)
	logHashes(log, hashes)

	targets, err := locate(ctx, a.engine, a.params, hashes[0].Digest, log)
	if err != nil {
		return nil, err
	}
	log.WithField("nodes", len(targets)).Info("registering topic")
	rctx, span := tracing.Start(ctx, "topic.register")
	outs := fanout.Execute(rctx, targets, func(ctx context.Context, node topicdisc.NodeRecord) (struct{}, error) {
		return struct{}{}, a.engine.RegisterTopic(ctx, node, t)
	}, a.params.fanoutOpts()...)
	span.SetInt("accepted", len(fanout.Succeeded(outs)))
	span.End(nil)
	fanout.Report(log, "register", outs)
	if err := ctx.Err(); err != nil {
		return outs, err
	}
	return outs, nil
}

// Poll asks the engine for the active topics every PollInterval.
// Poll failures are logged and the next poll proceeds.
func (a *Advertiser) Poll(ctx context.Context, t topic.Topic) error {
	ctrl := iteration.NewController(a.params.PollPolicy)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := ctrl.Next(); !ok {
			return nil
		}
		if err := discover.Sleep(ctx, a.params.Clock, a.params.PollInterval); err != nil {
			return err
		}
		a.pollOnce(ctx, a.params.Log.WithFields(logrus.Fields{
			"topic": t,
			"poll":  ctrl.String(),
		}))
	}
}

func (a *Advertiser) pollOnce(ctx context.Context, log logrus.FieldLogger) {
	log.Info("requesting active topics")
	ctx, span := tracing.Start(ctx, "topic.poll")
	active, err := a.engine.ActiveTopics(ctx)
	span.End(err)
	metrics.Polls.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.WithError(err).Error("failed to obtain ads published on other nodes")
		return
	}
	log.WithField("topics", len(active)).Info("ads published by us active on other nodes")
	topics := make([]string, 0, len(active))
	for t := range active {
		topics = append(topics, string(t))
	}
	sort.Strings(topics)
	for _, t := range topics {
		nodes := active[topic.Topic(t)]
		metrics.ActiveAdvertisements.WithLabelValues(t).Set(float64(len(nodes)))
		log.WithFields(logrus.Fields{
			"active_topic":   t,
			"advertised_at": joinIDs(nodes),
		}).Info("active topic")
	}
}

func joinIDs(recs []topicdisc.NodeRecord) string {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID.String()
	}
	return strings.Join(ids, ", ")
}
