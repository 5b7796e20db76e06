// Package kadsim is an in-memory network of Kademlia nodes with topic
// tables.  It implements topicdisc.Engine without any transport, for the
// CLI and for tests.
package kadsim

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

const (
	DefaultBucketSize    = 16
	DefaultAdLifetime    = 15 * time.Minute
	DefaultTableCapacity = 1000
	// BasePort is the UDP port of the first spawned node.
	BasePort = 30000
)

// Network is a set of simulated nodes which can reach each other.
type Network struct {
	clock         clockwork.Clock
	latency       time.Duration
	dropRate      float64
	seed          int64
	bucketSize    int
	adLifetime    time.Duration
	tableCapacity int
	hasher        *topic.Hasher
	log           logrus.FieldLogger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.RWMutex
	nodes map[topicdisc.NodeID]*node
	order []topicdisc.NodeID
}

func New(opts ...Option) *Network {
	n := &Network{
		bucketSize:    DefaultBucketSize,
		adLifetime:    DefaultAdLifetime,
		tableCapacity: DefaultTableCapacity,
		seed:          1,
		nodes:         make(map[topicdisc.NodeID]*node),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.clock == nil {
		n.clock = clockwork.NewRealClock()
	}
	if n.log == nil {
		n.log = topicdisc.Logger
	}
	if n.hasher == nil {
		n.hasher = topic.DefaultHasher()
	}
	n.rng = rand.New(rand.NewSource(n.seed))
	return n
}

// Spawn adds count nodes to the network.  Every node is offered every other
// node, so each bucket holds as many peers as the bucket size allows.
// Node IDs depend only on the seed, so two networks with the same seed and
// count contain the same records.
func (n *Network) Spawn(count int) []topicdisc.NodeRecord {
	recs := make([]topicdisc.NodeRecord, 0, count)
	for i := 0; i < count; i++ {
		var id topicdisc.NodeID
		n.rngMu.Lock()
		n.rng.Read(id[:])
		n.rngMu.Unlock()

		n.mu.RLock()
		port := uint16(BasePort + len(n.order))
		n.mu.RUnlock()
		rec := topicdisc.NodeRecord{
			ID:  id,
			Seq: 1,
			IP:  net.IPv4(127, 0, 0, 1),
			UDP: port,
			TCP: port,
		}
		nd := n.add(rec)
		for _, other := range recs {
			n.link(nd, n.get(other.ID))
		}
		recs = append(recs, rec)
	}
	n.log.WithField("nodes", len(recs)).Debug("spawned simulated nodes")
	return recs
}

// Records returns the records of every node, in the order they were added.
func (n *Network) Records() []topicdisc.NodeRecord {
	n.mu.RLock()
	defer n.mu.RUnlock()
	recs := make([]topicdisc.NodeRecord, len(n.order))
	for i, id := range n.order {
		recs[i] = n.nodes[id].rec
	}
	return recs
}

func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}

// Remove takes a node off the network.  Other nodes keep it in their tables
// and will find it unreachable.
func (n *Network) Remove(id topicdisc.NodeID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.nodes[id]; !exists {
		return false
	}
	delete(n.nodes, id)
	if i := slices.Index(n.order, id); i >= 0 {
		n.order = slices.Delete(n.order, i, i+1)
	}
	return true
}

// NewEngine adds local to the network with an empty peer table and returns
// an Engine running as it.
func (n *Network) NewEngine(local topicdisc.NodeRecord) (*Engine, error) {
	if local.ID.IsZero() {
		return nil, errors.Wrap(topicdisc.ErrInvalidRecord, "local record has zero id")
	}
	if n.get(local.ID) != nil {
		return nil, errors.Errorf("node %v is already on the network", local.ID.Short())
	}
	return newEngine(n, n.add(local)), nil
}

func (n *Network) add(rec topicdisc.NodeRecord) *node {
	nd := newNode(rec, n.bucketSize, n.tableCapacity, n.adLifetime)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[rec.ID] = nd
	n.order = append(n.order, rec.ID)
	return nd
}

func (n *Network) get(id topicdisc.NodeID) *node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.nodes[id]
}

func (n *Network) link(a, b *node) {
	a.addPeer(b.rec)
	b.addPeer(a.rec)
}

// call delivers a request from `from` to the node `to`, applying latency
// and drops.  The remote node learns about the caller.
func (n *Network) call(ctx context.Context, from *node, to topicdisc.NodeID) (*node, error) {
	if n.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-n.clock.After(n.latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n.drop() {
		return nil, errors.Wrapf(topicdisc.ErrUnreachable, "request to %v dropped", to.Short())
	}
	remote := n.get(to)
	if remote == nil {
		return nil, errors.Wrapf(topicdisc.ErrUnreachable, "no node %v", to.Short())
	}
	remote.addPeer(from.rec)
	return remote, nil
}

func (n *Network) drop() bool {
	if n.dropRate <= 0 {
		return false
	}
	n.rngMu.Lock()
	defer n.rngMu.Unlock()
	return n.rng.Float64() < n.dropRate
}
