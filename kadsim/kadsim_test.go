package kadsim

import (
	"context"
	"crypto/ed25519"
	"net"
	"testing"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/kademlia"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newLocal(t testing.TB) topicdisc.NodeRecord {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return topicdisc.NodeRecord{
		ID:  topicdisc.NewNodeID(pub),
		IP:  net.IPv4(127, 0, 0, 1),
		UDP: 9000,
	}
}

func setup(t testing.TB, count int, opts ...Option) (*Network, *Engine, []topicdisc.NodeRecord) {
	n := New(opts...)
	recs := n.Spawn(count)
	e, err := n.NewEngine(newLocal(t))
	require.NoError(t, err)
	require.NoError(t, e.AddNode(recs[0]))
	return n, e, recs
}

func TestSpawnDeterministic(t *testing.T) {
	a := New(WithSeed(42)).Spawn(10)
	b := New(WithSeed(42)).Spawn(10)
	c := New(WithSeed(43)).Spawn(10)
	require.Equal(t, topicdisc.IDs(a), topicdisc.IDs(b))
	require.NotEqual(t, topicdisc.IDs(a), topicdisc.IDs(c))
	for i, rec := range a {
		require.Equal(t, uint16(BasePort+i), rec.UDP)
	}
}

func TestSpawnedTablesFilled(t *testing.T) {
	n := New()
	recs := n.Spawn(64)
	require.Equal(t, 64, n.Len())
	require.Equal(t, recs, n.Records())
	for _, rec := range recs {
		require.NotZero(t, n.get(rec.ID).numPeers())
	}
}

func TestLookupEmptyTable(t *testing.T) {
	n := New()
	n.Spawn(8)
	e, err := n.NewEngine(newLocal(t))
	require.NoError(t, err)
	require.Equal(t, 0, e.ConnectedPeers())
	_, err = e.LookupClosest(ctx, topicdisc.NodeID{1})
	require.True(t, topicdisc.IsErrNoPeers(err))
}

func TestLookupClosest(t *testing.T) {
	n, e, _ := setup(t, 100)
	target := topicdisc.NodeID{0xde, 0xad}
	found, err := e.LookupClosest(ctx, target)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	for i := 1; i < len(found); i++ {
		require.True(t, kademlia.DistanceLt(target, found[i-1].ID, found[i].ID))
	}
	best := kademlia.Closest(target, n.Records(), 2)
	// the local node is on the network too, but never returned
	if best[0].ID == e.LocalNode().ID {
		best = best[1:]
	}
	require.Equal(t, best[0].ID, found[0].ID)
	require.Greater(t, e.ConnectedPeers(), 1)
}

func TestAddNode(t *testing.T) {
	n := New()
	recs := n.Spawn(4)
	e, err := n.NewEngine(newLocal(t))
	require.NoError(t, err)
	require.True(t, topicdisc.IsErrSelfRecord(e.AddNode(e.LocalNode())))
	require.True(t, topicdisc.IsErrUnreachable(e.AddNode(topicdisc.NodeRecord{ID: topicdisc.NodeID{7}})))
	require.NoError(t, e.AddNode(recs[1]))
	require.Equal(t, 1, e.ConnectedPeers())

	_, err = n.NewEngine(e.LocalNode())
	require.Error(t, err)
	_, err = n.NewEngine(topicdisc.NodeRecord{})
	require.Error(t, err)
}

func TestRegisterQueryActive(t *testing.T) {
	_, e, _ := setup(t, 50)
	const tp = topic.Topic("lighthouse")
	d := topic.Hash(tp)
	closest, err := e.ClosestToDigest(ctx, d)
	require.NoError(t, err)
	require.NotEmpty(t, closest)

	for _, rec := range closest[:3] {
		require.NoError(t, e.RegisterTopic(ctx, rec, tp))
	}
	ads, err := e.QueryTopic(ctx, closest[0], d)
	require.NoError(t, err)
	require.Len(t, ads, 1)
	require.Equal(t, e.LocalNode().ID, ads[0].Node.ID)
	require.Equal(t, closest[0].ID, ads[0].From.ID)
	require.Equal(t, d, ads[0].Digest)

	ads, err = e.QueryTopic(ctx, closest[0], topic.Hash("other"))
	require.NoError(t, err)
	require.Len(t, ads, 0)

	active, err := e.ActiveTopics(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.ElementsMatch(t, topicdisc.IDs(closest[:3]), topicdisc.IDs(active[tp]))
}

func TestActiveTopicsUnreachable(t *testing.T) {
	n, e, _ := setup(t, 30)
	const tp = topic.Topic("eth2")
	closest, err := e.ClosestToDigest(ctx, topic.Hash(tp))
	require.NoError(t, err)
	for _, rec := range closest[:2] {
		require.NoError(t, e.RegisterTopic(ctx, rec, tp))
	}
	require.True(t, n.Remove(closest[0].ID))
	active, err := e.ActiveTopics(ctx)
	require.NoError(t, err)
	require.Equal(t, topicdisc.IDs(closest[1:2]), topicdisc.IDs(active[tp]))

	err = e.RegisterTopic(ctx, closest[0], tp)
	require.True(t, topicdisc.IsErrUnreachable(err))
}

func TestRemoveTopic(t *testing.T) {
	_, e, _ := setup(t, 30)
	const tp = topic.Topic("removable")
	_, err := e.RemoveTopic(tp)
	require.True(t, topicdisc.IsErrTopicNotFound(err))

	closest, err := e.ClosestToDigest(ctx, topic.Hash(tp))
	require.NoError(t, err)
	require.NoError(t, e.RegisterTopic(ctx, closest[0], tp))
	require.Equal(t, 1, e.Republish(ctx))

	s, err := e.RemoveTopic(tp)
	require.NoError(t, err)
	require.Equal(t, topic.Hash(tp).String(), s)
	require.Equal(t, 0, e.Republish(ctx))

	active, err := e.ActiveTopics(ctx)
	require.NoError(t, err)
	require.Len(t, active, 0)

	// the advertisement itself stays until it expires
	ads, err := e.QueryTopic(ctx, closest[0], topic.Hash(tp))
	require.NoError(t, err)
	require.Len(t, ads, 1)
}

func TestDropRate(t *testing.T) {
	n := New(WithDropRate(1))
	recs := n.Spawn(10)
	e, err := n.NewEngine(newLocal(t))
	require.NoError(t, err)
	require.NoError(t, e.AddNode(recs[0]))
	_, err = e.LookupClosest(ctx, topicdisc.NodeID{})
	require.True(t, topicdisc.IsErrUnreachable(err))
	_, err = e.QueryTopic(ctx, recs[0], topic.Hash("x"))
	require.True(t, topicdisc.IsErrUnreachable(err))
}

func TestWithHasher(t *testing.T) {
	h, err := topic.NewHasher("blake3", "sha2-256")
	require.NoError(t, err)
	_, e, recs := setup(t, 10, WithHasher(h))
	const tp = topic.Topic("blake")
	require.NoError(t, e.RegisterTopic(ctx, recs[2], tp))

	ads, err := e.QueryTopic(ctx, recs[2], h.Digest(tp).Digest)
	require.NoError(t, err)
	require.Len(t, ads, 1)
	ads, err = e.QueryTopic(ctx, recs[2], topic.Hash(tp))
	require.NoError(t, err)
	require.Len(t, ads, 0)
}

func TestLookupEvictsRemoved(t *testing.T) {
	n := New()
	recs := n.Spawn(5)
	e, err := n.NewEngine(newLocal(t))
	require.NoError(t, err)
	require.NoError(t, e.AddNode(recs[0]))
	require.NoError(t, e.AddNode(recs[1]))
	require.True(t, n.Remove(recs[1].ID))

	found, err := e.LookupClosest(ctx, recs[1].ID)
	require.NoError(t, err)
	require.NotContains(t, topicdisc.IDs(found), recs[1].ID)
	_, exists := e.self.peers[recs[1].ID]
	require.False(t, exists, "unreachable peer should be evicted")
}

func TestRemoveDuringRepublish(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, e, recs := setup(t, 5, WithClock(clock), WithLatency(time.Second))
	const tp = topic.Topic("racy")

	errs := make(chan error, 1)
	go func() { errs <- e.RegisterTopic(ctx, recs[1], tp) }()
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.NoError(t, <-errs)

	counts := make(chan int, 1)
	go func() { counts <- e.Republish(ctx) }()
	clock.BlockUntil(1)
	_, err := e.RemoveTopic(tp)
	require.NoError(t, err)
	clock.Advance(time.Second)
	require.Equal(t, 0, <-counts)

	_, err = e.RemoveTopic(tp)
	require.True(t, topicdisc.IsErrTopicNotFound(err), "removed topic must stay out of the republish set")
	require.Equal(t, 0, e.Republish(ctx))
}
