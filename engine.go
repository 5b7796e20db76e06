package topicdisc

import (
	"context"

	"github.com/brendoncarroll/go-topicdisc/topic"
)

// Engine is the discovery engine the orchestration layer drives.
// It owns the routing table, the wire protocol and the topic tables.
// Implementations must be safe for concurrent use.
type Engine interface {
	// LocalNode returns the record of the node the engine runs as.
	LocalNode() NodeRecord

	// LookupClosest performs a network lookup and returns the nodes closest to target.
	LookupClosest(ctx context.Context, target NodeID) ([]NodeRecord, error)
	// ConnectedPeers returns the number of peers in the local table.
	ConnectedPeers() int
	// AddNode inserts a record into the local table.
	AddNode(rec NodeRecord) error

	// ClosestToDigest returns the nodes closest to a topic digest.
	ClosestToDigest(ctx context.Context, d topic.Digest) ([]NodeRecord, error)
	// RegisterTopic asks node to store an advertisement of the local node for t.
	RegisterTopic(ctx context.Context, node NodeRecord, t topic.Topic) error
	// QueryTopic asks node for the advertisements it stores under d.
	QueryTopic(ctx context.Context, node NodeRecord, d topic.Digest) ([]AdvertisementRecord, error)
	// RemoveTopic stops republishing t, effective from the next republish interval.
	RemoveTopic(t topic.Topic) (string, error)
	// ActiveTopics reports, for every topic the local node registered,
	// the nodes which currently hold its advertisement.
	ActiveTopics(ctx context.Context) (ActiveTopics, error)
}

// AdvertisementRecord is a claim, reported by From, that Node advertises Digest.
type AdvertisementRecord struct {
	Digest topic.Digest
	Node   NodeRecord
	From   NodeRecord
}

// ActiveTopics maps a topic to the nodes holding its advertisement.
type ActiveTopics map[topic.Topic][]NodeRecord
