package kademlia

import (
	"github.com/brendoncarroll/go-topicdisc"
)

// AskFunc asks node for the nodes it knows closest to the lookup target.
type AskFunc func(node topicdisc.NodeRecord) ([]topicdisc.NodeRecord, error)

type LookupParams struct {
	Initial []topicdisc.NodeRecord
	Target  topicdisc.NodeID
	Ask     AskFunc
	// K is the number of results wanted.
	K int
	// Self is never contacted.
	Self topicdisc.NodeID
}

type LookupResult struct {
	// Closest are the responding nodes closest to the target, closest first.
	Closest   []topicdisc.NodeRecord
	Contacted int
	Responded int
}

// Lookup performs an iterative closest-node lookup.  It stops once the K
// closest responders are closer than every uncontacted candidate.
func Lookup(params LookupParams) LookupResult {
	if params.K < 1 {
		panic(params.K)
	}
	k := params.K
	asked := map[topicdisc.NodeID]struct{}{params.Self: {}}
	var candidates []topicdisc.NodeRecord
	push := func(rec topicdisc.NodeRecord) {
		if _, exists := asked[rec.ID]; exists {
			return
		}
		if contains(candidates, rec.ID) {
			return
		}
		candidates = append(candidates, rec)
	}
	for _, rec := range params.Initial {
		push(rec)
	}

	var res LookupResult
	for len(candidates) > 0 {
		SortByDistance(params.Target, candidates)
		if len(candidates) > k {
			candidates = candidates[:k]
		}
		var node topicdisc.NodeRecord
		node, candidates = candidates[0], candidates[1:]
		// if the best candidate is further than the k-th responder then we are done
		if len(res.Closest) >= k && !DistanceLt(params.Target, node.ID, res.Closest[k-1].ID) {
			break
		}
		asked[node.ID] = struct{}{}
		res.Contacted++
		nodes, err := params.Ask(node)
		if err != nil {
			continue
		}
		res.Responded++
		res.Closest = insertSorted(params.Target, res.Closest, node)
		if len(res.Closest) > k {
			res.Closest = res.Closest[:k]
		}
		for _, node2 := range nodes {
			push(node2)
		}
	}
	return res
}

func contains(xs []topicdisc.NodeRecord, id topicdisc.NodeID) bool {
	for i := range xs {
		if xs[i].ID == id {
			return true
		}
	}
	return false
}

func insertSorted(target topicdisc.NodeID, xs []topicdisc.NodeRecord, x topicdisc.NodeRecord) []topicdisc.NodeRecord {
	i := 0
	for i < len(xs) && DistanceLt(target, xs[i].ID, x.ID) {
		i++
	}
	xs = append(xs, topicdisc.NodeRecord{})
	copy(xs[i+1:], xs[i:])
	xs[i] = x
	return xs
}
