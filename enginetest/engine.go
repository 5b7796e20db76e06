// Package enginetest provides a scripted topicdisc.Engine for tests.
package enginetest

import (
	"context"
	"net"
	"sync"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/topic"
)

var _ topicdisc.Engine = &Engine{}

// Engine records every call and answers with the configured funcs.
// A nil func answers with a zero value and no error.
type Engine struct {
	Local topicdisc.NodeRecord
	Peers int

	LookupFunc   func(ctx context.Context, target topicdisc.NodeID) ([]topicdisc.NodeRecord, error)
	AddFunc      func(rec topicdisc.NodeRecord) error
	ClosestFunc  func(ctx context.Context, d topic.Digest) ([]topicdisc.NodeRecord, error)
	RegisterFunc func(ctx context.Context, node topicdisc.NodeRecord, t topic.Topic) error
	QueryFunc    func(ctx context.Context, node topicdisc.NodeRecord, d topic.Digest) ([]topicdisc.AdvertisementRecord, error)
	RemoveFunc   func(t topic.Topic) (string, error)
	ActiveFunc   func(ctx context.Context) (topicdisc.ActiveTopics, error)

	mu         sync.Mutex
	lookups    []topicdisc.NodeID
	added      []topicdisc.NodeRecord
	closest    []topic.Digest
	registered []topicdisc.NodeRecord
	queried    []topicdisc.NodeRecord
	removed    []topic.Topic
	polls      int
}

func (e *Engine) LocalNode() topicdisc.NodeRecord {
	return e.Local
}

func (e *Engine) LookupClosest(ctx context.Context, target topicdisc.NodeID) ([]topicdisc.NodeRecord, error) {
	e.mu.Lock()
	e.lookups = append(e.lookups, target)
	e.mu.Unlock()
	if e.LookupFunc == nil {
		return nil, nil
	}
	return e.LookupFunc(ctx, target)
}

func (e *Engine) ConnectedPeers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Peers
}

func (e *Engine) AddNode(rec topicdisc.NodeRecord) error {
	e.mu.Lock()
	e.added = append(e.added, rec)
	e.mu.Unlock()
	if e.AddFunc == nil {
		return nil
	}
	return e.AddFunc(rec)
}

func (e *Engine) ClosestToDigest(ctx context.Context, d topic.Digest) ([]topicdisc.NodeRecord, error) {
	e.mu.Lock()
	e.closest = append(e.closest, d)
	e.mu.Unlock()
	if e.ClosestFunc == nil {
		return nil, nil
	}
	return e.ClosestFunc(ctx, d)
}

func (e *Engine) RegisterTopic(ctx context.Context, node topicdisc.NodeRecord, t topic.Topic) error {
	e.mu.Lock()
	e.registered = append(e.registered, node)
	e.mu.Unlock()
	if e.RegisterFunc == nil {
		return nil
	}
	return e.RegisterFunc(ctx, node, t)
}

func (e *Engine) QueryTopic(ctx context.Context, node topicdisc.NodeRecord, d topic.Digest) ([]topicdisc.AdvertisementRecord, error) {
	e.mu.Lock()
	e.queried = append(e.queried, node)
	e.mu.Unlock()
	if e.QueryFunc == nil {
		return nil, nil
	}
	return e.QueryFunc(ctx, node, d)
}

func (e *Engine) RemoveTopic(t topic.Topic) (string, error) {
	e.mu.Lock()
	e.removed = append(e.removed, t)
	e.mu.Unlock()
	if e.RemoveFunc == nil {
		return string(t), nil
	}
	return e.RemoveFunc(t)
}

func (e *Engine) ActiveTopics(ctx context.Context) (topicdisc.ActiveTopics, error) {
	e.mu.Lock()
	e.polls++
	e.mu.Unlock()
	if e.ActiveFunc == nil {
		return topicdisc.ActiveTopics{}, nil
	}
	return e.ActiveFunc(ctx)
}

// Lookups returns the targets passed to LookupClosest, in call order.
func (e *Engine) Lookups() []topicdisc.NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]topicdisc.NodeID{}, e.lookups...)
}

func (e *Engine) Added() []topicdisc.NodeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]topicdisc.NodeRecord{}, e.added...)
}

func (e *Engine) ClosestCalls() []topic.Digest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]topic.Digest{}, e.closest...)
}

func (e *Engine) Registered() []topicdisc.NodeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]topicdisc.NodeRecord{}, e.registered...)
}

func (e *Engine) Queried() []topicdisc.NodeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]topicdisc.NodeRecord{}, e.queried...)
}

func (e *Engine) Removed() []topic.Topic {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]topic.Topic{}, e.removed...)
}

// Polls returns the number of ActiveTopics calls.
func (e *Engine) Polls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.polls
}

// SetPeers changes the value reported by ConnectedPeers.
func (e *Engine) SetPeers(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Peers = n
}

// NewRecords returns n distinct records on the loopback address.
func NewRecords(n int) []topicdisc.NodeRecord {
	recs := make([]topicdisc.NodeRecord, n)
	for i := range recs {
		recs[i] = NewRecord(byte(i + 1))
	}
	return recs
}

// NewRecord returns a record whose ID is filled with b.
func NewRecord(b byte) topicdisc.NodeRecord {
	var rec topicdisc.NodeRecord
	for i := range rec.ID {
		rec.ID[i] = b
	}
	rec.IP = net.IPv4(127, 0, 0, 1)
	rec.UDP = 30000 + uint16(b)
	return rec
}
