package kadsim

import (
	"sync"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/kademlia"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/exp/maps"
)

type adKey struct {
	digest     topic.Digest
	advertiser topicdisc.NodeID
}

// node is the state of a single simulated node: its peer table and its
// topic table.
type node struct {
	rec        topicdisc.NodeRecord
	bucketSize int

	mu    sync.RWMutex
	peers map[topicdisc.NodeID]topicdisc.NodeRecord
	// buckets counts peers by log distance
	buckets map[int]int

	ads *expirable.LRU[adKey, topicdisc.AdvertisementRecord]
}

func newNode(rec topicdisc.NodeRecord, bucketSize, tableCapacity int, adLifetime time.Duration) *node {
	return &node{
		rec:        rec,
		bucketSize: bucketSize,
		peers:      make(map[topicdisc.NodeID]topicdisc.NodeRecord),
		buckets:    make(map[int]int),
		ads:        expirable.NewLRU[adKey, topicdisc.AdvertisementRecord](tableCapacity, nil, adLifetime),
	}
}

// addPeer inserts rec unless its bucket is full.  An existing entry is updated.
func (nd *node) addPeer(rec topicdisc.NodeRecord) bool {
	if rec.ID == nd.rec.ID {
		return false
	}
	nd.mu.Lock()
	defer nd.mu.Unlock()
	if _, exists := nd.peers[rec.ID]; exists {
		nd.peers[rec.ID] = rec
		return false
	}
	ld := kademlia.LogDistance(nd.rec.ID, rec.ID)
	if nd.buckets[ld] >= nd.bucketSize {
		return false
	}
	nd.buckets[ld]++
	nd.peers[rec.ID] = rec
	return true
}

func (nd *node) removePeer(id topicdisc.NodeID) bool {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	if _, exists := nd.peers[id]; !exists {
		return false
	}
	delete(nd.peers, id)
	nd.buckets[kademlia.LogDistance(nd.rec.ID, id)]--
	return true
}

func (nd *node) numPeers() int {
	nd.mu.RLock()
	defer nd.mu.RUnlock()
	return len(nd.peers)
}

// closest returns the k peers closest to target.
func (nd *node) closest(target topicdisc.NodeID, k int) []topicdisc.NodeRecord {
	nd.mu.RLock()
	recs := maps.Values(nd.peers)
	nd.mu.RUnlock()
	return kademlia.Closest(target, recs, k)
}

func (nd *node) storeAd(d topic.Digest, advertiser topicdisc.NodeRecord) {
	nd.ads.Add(adKey{digest: d, advertiser: advertiser.ID}, topicdisc.AdvertisementRecord{
		Digest: d,
		Node:   advertiser,
		From:   nd.rec,
	})
}

func (nd *node) adsFor(d topic.Digest) []topicdisc.AdvertisementRecord {
	var ret []topicdisc.AdvertisementRecord
	for _, ad := range nd.ads.Values() {
		if ad.Digest == d {
			ret = append(ret, ad)
		}
	}
	return ret
}

func (nd *node) hasAd(d topic.Digest, advertiser topicdisc.NodeID) bool {
	_, ok := nd.ads.Get(adKey{digest: d, advertiser: advertiser})
	return ok
}
