package advertise

import (
	"context"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/discover"
	"github.com/brendoncarroll/go-topicdisc/fanout"
	"github.com/brendoncarroll/go-topicdisc/iteration"
	"github.com/brendoncarroll/go-topicdisc/metrics"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/brendoncarroll/go-topicdisc/tracing"
	"github.com/sirupsen/logrus"
)

// QueryResult is the outcome of one query round.
type QueryResult struct {
	Digest    topic.Digest
	Queried   int
	Responded int
	// Ads holds one record per advertised node, in the order first reported.
	Ads []topicdisc.AdvertisementRecord
}

// Queryer looks up advertisements of a topic on the nodes closest to its digest.
type Queryer struct {
	engine topicdisc.Engine
	params Params
}

func NewQueryer(e topicdisc.Engine, params Params) *Queryer {
	return &Queryer{engine: e, params: params.withDefaults()}
}

// RunTopic hashes t with the primary hash function and queries for it.
func (q *Queryer) RunTopic(ctx context.Context, t topic.Topic) (*QueryResult, error) {
	hashes := q.params.Hasher.Digests(t)
	logHashes(q.params.Log.WithField("topic", t), hashes)
	return q.Run(ctx, hashes[0].Digest)
}

// Run warms up, finds the nodes closest to d and queries each of them for
// advertisements.  It returns the merged result of the last round.
func (q *Queryer) Run(ctx context.Context, d topic.Digest) (*QueryResult, error) {
	log := q.params.Log.WithField("digest", d.String())
	targets, err := locate(ctx, q.engine, q.params, d, log)
	if err != nil {
		return nil, err
	}
	var res *QueryResult
	ctrl := iteration.NewController(iteration.FromCount(q.params.Rounds))
	for {
		i, ok := ctrl.Next()
		if !ok {
			return res, nil
		}
		if i > 1 {
			if err := discover.Sleep(ctx, q.params.Clock, q.params.RoundDelay); err != nil {
				return res, err
			}
		}
		res = q.round(ctx, targets, d, log.WithField("round", ctrl.String()))
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
}

func (q *Queryer) round(ctx context.Context, targets []topicdisc.NodeRecord, d topic.Digest, log logrus.FieldLogger) *QueryResult {
	log.WithField("nodes", len(targets)).Info("sending topic queries")
	ctx, span := tracing.Start(ctx, "topic.query")
	outs := fanout.Execute(ctx, targets, func(ctx context.Context, node topicdisc.NodeRecord) ([]topicdisc.AdvertisementRecord, error) {
		return q.engine.QueryTopic(ctx, node, d)
	}, q.params.fanoutOpts()...)
	fanout.Report(log, "query", outs)

	res := &QueryResult{
		Digest:    d,
		Queried:   len(outs),
		Responded: len(fanout.Succeeded(outs)),
		Ads:       Merge(outs),
	}
	span.SetInt("ads", len(res.Ads))
	span.End(nil)
	metrics.AdsFound.WithLabelValues(d.String()).Add(float64(len(res.Ads)))

	log.WithField("ads", len(res.Ads)).Info("ads found")
	for _, ad := range res.Ads {
		log.WithFields(logrus.Fields{
			"node": ad.Node.ID.String(),
			"from": ad.From.ID.String(),
		}).Info("advertisement")
	}
	return res
}

// Merge flattens the advertisements of the successful outcomes, keeping the
// first record reported for each (digest, advertised node) pair.
func Merge(outs []fanout.Outcome[[]topicdisc.AdvertisementRecord]) []topicdisc.AdvertisementRecord {
	type key struct {
		digest topic.Digest
		node   topicdisc.NodeID
	}
	seen := map[key]struct{}{}
	var ret []topicdisc.AdvertisementRecord
	for _, o := range outs {
		if o.Err != nil {
			continue
		}
		for _, ad := range o.Value {
			k := key{digest: ad.Digest, node: ad.Node.ID}
			if _, exists := seen[k]; exists {
				continue
			}
			seen[k] = struct{}{}
			ret = append(ret, ad)
		}
	}
	return ret
}
