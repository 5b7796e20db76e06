package kadsim

import (
	"time"

	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

type Option func(n *Network)

func WithLogger(l logrus.FieldLogger) Option {
	return func(n *Network) {
		n.log = l
	}
}

// WithLatency delays every request by t.
func WithLatency(t time.Duration) Option {
	return func(n *Network) {
		n.latency = t
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(n *Network) {
		n.clock = clock
	}
}

// WithDropRate drops the given fraction of requests.
func WithDropRate(dr float64) Option {
	return func(n *Network) {
		n.dropRate = dr
	}
}

// WithSeed makes node IDs and drops reproducible.
func WithSeed(seed int64) Option {
	return func(n *Network) {
		n.seed = seed
	}
}

// WithBucketSize sets the number of peers a node keeps per log distance.
func WithBucketSize(k int) Option {
	return func(n *Network) {
		n.bucketSize = k
	}
}

// WithAdLifetime sets how long a node stores an advertisement.
func WithAdLifetime(d time.Duration) Option {
	return func(n *Network) {
		n.adLifetime = d
	}
}

// WithTableCapacity sets how many advertisements a node stores.
func WithTableCapacity(c int) Option {
	return func(n *Network) {
		n.tableCapacity = c
	}
}

// WithHasher sets the hasher whose primary function maps topics to digests.
func WithHasher(h *topic.Hasher) Option {
	return func(n *Network) {
		n.hasher = h
	}
}
