// Package kademlia implements the XOR metric over node IDs and an
// iterative closest-node lookup.
package kademlia

import (
	"math/bits"

	"github.com/brendoncarroll/go-topicdisc"
	"golang.org/x/exp/slices"
)

// IDBits is the width of a node ID in bits.
const IDBits = len(topicdisc.NodeID{}) * 8

// LeadingZeros returns the number of 0s that occur before the first 1
// when iterating bit by bit, most significant bit first.
func LeadingZeros(x []byte) int {
	total := 0
	for i := range x {
		lz := bits.LeadingZeros8(x[i])
		total += lz
		if lz < 8 {
			break
		}
	}
	return total
}

// Distance is the Kademlia distance metric.
// Distance(a, b) == Distance(b, a)
func Distance(a, b topicdisc.NodeID) (d topicdisc.NodeID) {
	for i := range d {
		d[i] = a[i] ^ b[i]
	}
	return d
}

// LogDistance is the bit length of Distance(a, b): 0 for equal IDs, 256 when
// the first bit differs.
func LogDistance(a, b topicdisc.NodeID) int {
	d := Distance(a, b)
	return IDBits - LeadingZeros(d[:])
}

// DistanceCmp is equivalent to bytes.Compare(Distance(x, a), Distance(x, b))
func DistanceCmp(x, a, b topicdisc.NodeID) int {
	for i := range x {
		xa := x[i] ^ a[i]
		xb := x[i] ^ b[i]
		if xa < xb {
			return -1
		} else if xb < xa {
			return 1
		}
	}
	return 0
}

// DistanceLt returns true if Distance(x, a) < Distance(x, b)
func DistanceLt(x, a, b topicdisc.NodeID) bool {
	return DistanceCmp(x, a, b) < 0
}

// SortByDistance sorts recs in place, closest to target first.
func SortByDistance(target topicdisc.NodeID, recs []topicdisc.NodeRecord) {
	slices.SortFunc(recs, func(a, b topicdisc.NodeRecord) bool {
		return DistanceLt(target, a.ID, b.ID)
	})
}

// Closest returns at most k of recs, closest to target first.
// recs is not modified.
func Closest(target topicdisc.NodeID, recs []topicdisc.NodeRecord, k int) []topicdisc.NodeRecord {
	ret := append([]topicdisc.NodeRecord{}, recs...)
	SortByDistance(target, ret)
	if len(ret) > k {
		ret = ret[:k]
	}
	return ret
}
