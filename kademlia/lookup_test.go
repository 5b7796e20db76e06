package kademlia

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/stretchr/testify/require"
)

// setupTables gives every node up to bucketSize peers at each log distance.
func setupTables(rng *rand.Rand, n, bucketSize int) map[topicdisc.NodeID][]topicdisc.NodeRecord {
	recs := make([]topicdisc.NodeRecord, n)
	for i := range recs {
		recs[i].ID = randomID(rng)
	}
	tables := map[topicdisc.NodeID][]topicdisc.NodeRecord{}
	for _, rec := range recs {
		counts := map[int]int{}
		for _, peer := range recs {
			if peer.ID == rec.ID {
				continue
			}
			ld := LogDistance(rec.ID, peer.ID)
			if counts[ld] < bucketSize {
				counts[ld]++
				tables[rec.ID] = append(tables[rec.ID], peer)
			}
		}
	}
	return tables
}

func TestLookupFindsClosest(t *testing.T) {
	const (
		N = 200
		K = 8
	)
	rng := rand.New(rand.NewSource(3))
	tables := setupTables(rng, N, K)
	var all []topicdisc.NodeRecord
	for id := range tables {
		all = append(all, topicdisc.NodeRecord{ID: id})
	}

	for i := 0; i < 10; i++ {
		start := all[rng.Intn(len(all))]
		target := randomID(rng)
		res := Lookup(LookupParams{
			Initial: tables[start.ID],
			Target:  target,
			K:       K,
			Self:    start.ID,
			Ask: func(node topicdisc.NodeRecord) ([]topicdisc.NodeRecord, error) {
				return Closest(target, tables[node.ID], K), nil
			},
		})
		require.Len(t, res.Closest, K)
		require.Equal(t, res.Contacted, res.Responded)
		best := Closest(target, all, 1)[0]
		if best.ID != start.ID {
			require.Equal(t, best.ID, res.Closest[0].ID)
		}
		for j := 1; j < len(res.Closest); j++ {
			require.True(t, DistanceLt(target, res.Closest[j-1].ID, res.Closest[j].ID))
		}
	}
}

func TestLookupAskFailures(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	initial := []topicdisc.NodeRecord{{ID: randomID(rng)}, {ID: randomID(rng)}}
	res := Lookup(LookupParams{
		Initial: initial,
		Target:  randomID(rng),
		K:       4,
		Ask: func(node topicdisc.NodeRecord) ([]topicdisc.NodeRecord, error) {
			return nil, errors.New("unreachable")
		},
	})
	require.Len(t, res.Closest, 0)
	require.Equal(t, 2, res.Contacted)
	require.Equal(t, 0, res.Responded)
}

func TestLookupNeverAsksSelf(t *testing.T) {
	self := topicdisc.NodeID{1}
	other := topicdisc.NodeRecord{ID: topicdisc.NodeID{2}}
	res := Lookup(LookupParams{
		Initial: []topicdisc.NodeRecord{{ID: self}, other},
		Target:  self,
		Self:    self,
		K:       4,
		Ask: func(node topicdisc.NodeRecord) ([]topicdisc.NodeRecord, error) {
			require.NotEqual(t, self, node.ID)
			return []topicdisc.NodeRecord{{ID: self}}, nil
		},
	})
	require.Equal(t, 1, res.Contacted)
	require.Equal(t, []topicdisc.NodeRecord{other}, res.Closest)
}
