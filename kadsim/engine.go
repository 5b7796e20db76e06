package kadsim

import (
	"context"
	"sync"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/kademlia"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

var _ topicdisc.Engine = &Engine{}

// Engine is a topicdisc.Engine running as one node of a Network.
type Engine struct {
	net  *Network
	self *node

	mu sync.Mutex
	// topics is the set of topics to republish
	topics map[topic.Topic]topic.Digest
	// registrars are the nodes which accepted an advertisement, by topic
	registrars map[topic.Topic]map[topicdisc.NodeID]topicdisc.NodeRecord
}

func newEngine(n *Network, self *node) *Engine {
	return &Engine{
		net:        n,
		self:       self,
		topics:     make(map[topic.Topic]topic.Digest),
		registrars: make(map[topic.Topic]map[topicdisc.NodeID]topicdisc.NodeRecord),
	}
}

func (e *Engine) LocalNode() topicdisc.NodeRecord {
	return e.self.rec
}

func (e *Engine) LookupClosest(ctx context.Context, target topicdisc.NodeID) ([]topicdisc.NodeRecord, error) {
	k := e.net.bucketSize
	initial := e.self.closest(target, k)
	if len(initial) == 0 {
		return nil, topicdisc.ErrNoPeers
	}
	res := kademlia.Lookup(kademlia.LookupParams{
		Initial: initial,
		Target:  target,
		K:       k,
		Self:    e.self.rec.ID,
		Ask: func(peer topicdisc.NodeRecord) ([]topicdisc.NodeRecord, error) {
			remote, err := e.net.call(ctx, e.self, peer.ID)
			if err != nil {
				if e.net.get(peer.ID) == nil {
					e.self.removePeer(peer.ID)
				}
				return nil, err
			}
			return remote.closest(target, k), nil
		},
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, rec := range res.Closest {
		e.self.addPeer(rec)
	}
	if res.Responded == 0 {
		return nil, errors.Wrapf(topicdisc.ErrUnreachable, "none of %d contacted nodes responded", res.Contacted)
	}
	return res.Closest, nil
}

func (e *Engine) ConnectedPeers() int {
	return e.self.numPeers()
}

func (e *Engine) AddNode(rec topicdisc.NodeRecord) error {
	if rec.ID == e.self.rec.ID {
		return topicdisc.ErrSelfRecord
	}
	if e.net.get(rec.ID) == nil {
		return errors.Wrapf(topicdisc.ErrUnreachable, "no node %v", rec.ID.Short())
	}
	e.self.addPeer(rec)
	return nil
}

func (e *Engine) ClosestToDigest(ctx context.Context, d topic.Digest) ([]topicdisc.NodeRecord, error) {
	return e.LookupClosest(ctx, topicdisc.NodeIDFromDigest(d))
}

func (e *Engine) RegisterTopic(ctx context.Context, rec topicdisc.NodeRecord, t topic.Topic) error {
	d := e.net.hasher.Digest(t).Digest
	remote, err := e.net.call(ctx, e.self, rec.ID)
	if err != nil {
		return errors.Wrapf(err, "registering %q", t)
	}
	remote.storeAd(d, e.self.rec)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.topics[t] = d
	if e.registrars[t] == nil {
		e.registrars[t] = make(map[topicdisc.NodeID]topicdisc.NodeRecord)
	}
	e.registrars[t][rec.ID] = rec
	return nil
}

func (e *Engine) QueryTopic(ctx context.Context, rec topicdisc.NodeRecord, d topic.Digest) ([]topicdisc.AdvertisementRecord, error) {
	remote, err := e.net.call(ctx, e.self, rec.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %v", d)
	}
	return remote.adsFor(d), nil
}

// RemoveTopic stops republishing t.  Advertisements already stored on other
// nodes remain until they expire.
func (e *Engine) RemoveTopic(t topic.Topic) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, exists := e.topics[t]
	if !exists {
		return "", errors.Wrapf(topicdisc.ErrTopicNotFound, "%q", t)
	}
	delete(e.topics, t)
	delete(e.registrars, t)
	return d.String(), nil
}

func (e *Engine) ActiveTopics(ctx context.Context) (topicdisc.ActiveTopics, error) {
	e.mu.Lock()
	topics := maps.Clone(e.topics)
	registrars := make(map[topic.Topic][]topicdisc.NodeRecord, len(e.registrars))
	for t, m := range e.registrars {
		registrars[t] = kademlia.Closest(topicdisc.NodeIDFromDigest(topics[t]), maps.Values(m), len(m))
	}
	e.mu.Unlock()

	ret := make(topicdisc.ActiveTopics, len(topics))
	for t, d := range topics {
		var holders []topicdisc.NodeRecord
		for _, rec := range registrars[t] {
			remote, err := e.net.call(ctx, e.self, rec.ID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			if remote.hasAd(d, e.self.rec.ID) {
				holders = append(holders, rec)
			}
		}
		ret[t] = holders
	}
	return ret, nil
}

// Republish registers every topic in the republish set again with the nodes
// that accepted it before.  It returns the number of registrations made.
func (e *Engine) Republish(ctx context.Context) int {
	e.mu.Lock()
	var jobs []struct {
		t   topic.Topic
		rec topicdisc.NodeRecord
	}
	for t, m := range e.registrars {
		for _, rec := range m {
			jobs = append(jobs, struct {
				t   topic.Topic
				rec topicdisc.NodeRecord
			}{t, rec})
		}
	}
	e.mu.Unlock()

	var count int
	for _, job := range jobs {
		if e.reregister(ctx, job.rec, job.t) {
			count++
		}
	}
	return count
}

// reregister stores the advertisement of t on rec again, unless t was
// removed while the request was in flight.
func (e *Engine) reregister(ctx context.Context, rec topicdisc.NodeRecord, t topic.Topic) bool {
	remote, err := e.net.call(ctx, e.self, rec.ID)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	d, exists := e.topics[t]
	if !exists {
		return false
	}
	remote.storeAd(d, e.self.rec)
	if e.registrars[t] == nil {
		e.registrars[t] = make(map[topicdisc.NodeID]topicdisc.NodeRecord)
	}
	e.registrars[t][rec.ID] = rec
	return true
}

// RunRepublisher calls Republish every interval until ctx is done.
func (e *Engine) RunRepublisher(ctx context.Context, interval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.net.clock.After(interval):
		}
		n := e.Republish(ctx)
		e.net.log.WithField("registrations", n).Debug("republished topics")
	}
}
