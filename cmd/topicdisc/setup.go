package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/advertise"
	"github.com/brendoncarroll/go-topicdisc/kadsim"
	"github.com/brendoncarroll/go-topicdisc/metrics"
	"github.com/brendoncarroll/go-topicdisc/tracing"
	"github.com/pkg/errors"
)

// node is the local node running on a simulated network.
type node struct {
	net      *kadsim.Network
	engine   *kadsim.Engine
	shutdown func(context.Context) error
}

func (n *node) Close() {
	if err := n.shutdown(context.Background()); err != nil {
		log.WithError(err).Warn("flushing traces")
	}
}

// setup builds the simulated network and the local node's engine, and starts
// the optional metrics server.
func setup(ctx context.Context) (*node, error) {
	shutdown, err := tracing.Setup(cfg.Trace, os.Stderr)
	if err != nil {
		return nil, errors.Wrap(err, "setting up tracing")
	}
	if cfg.MetricsAddr != "" {
		metrics.Register()
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generating node key")
	}
	local := topicdisc.NodeRecord{
		ID:  topicdisc.NewNodeID(pub),
		Seq: 1,
		IP:  cfg.IP(),
		UDP: uint16(cfg.ListenPort),
		TCP: uint16(cfg.ListenPort),
	}
	hasher, err := cfg.Hasher()
	if err != nil {
		return nil, err
	}
	network := kadsim.New(cfg.Sim.Options(hasher, log)...)
	network.Spawn(cfg.Sim.Nodes)
	engine, err := network.NewEngine(local)
	if err != nil {
		return nil, errors.Wrap(err, "creating engine")
	}
	log.WithField("node", local.Text()).Info("local node")
	return &node{net: network, engine: engine, shutdown: shutdown}, nil
}

// bootstrap parses the --enr flag.  Without one, the first simulated node
// is used if autoseeding is enabled.
func (n *node) bootstrap(enr string) (*topicdisc.NodeRecord, error) {
	if enr != "" {
		rec, err := topicdisc.ParseRecord(enr)
		if err != nil {
			return nil, errors.Wrap(err, "parsing --enr")
		}
		return &rec, nil
	}
	if !cfg.Sim.AutoSeed {
		return nil, nil
	}
	recs := n.net.Records()
	if len(recs) < 2 {
		return nil, nil
	}
	return &recs[0], nil
}

func (n *node) params(enr string) (advertise.Params, error) {
	params := advertise.DefaultParams()
	hasher, err := cfg.Hasher()
	if err != nil {
		return params, err
	}
	boot, err := n.bootstrap(enr)
	if err != nil {
		return params, err
	}
	params.Hasher = hasher
	params.Bootstrap = boot
	params.OpTimeout = cfg.OpTimeout
	params.Parallelism = cfg.Parallelism
	params.Log = log
	return params, nil
}
