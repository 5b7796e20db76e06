// Package config holds the settings shared by every topicdisc command.
package config

import (
	"net"
	"strings"
	"time"

	"github.com/brendoncarroll/go-topicdisc/kadsim"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const (
	DefaultListenAddr = "127.0.0.1"
	DefaultListenPort = 9000
)

// Sim configures the in-process network the engine runs on.
type Sim struct {
	Nodes    int
	Seed     int64
	DropRate float64
	Latency  time.Duration
	// AdLifetime is how long simulated nodes keep advertisements.
	AdLifetime time.Duration
	// AutoSeed adds a simulated node to the local table when no bootstrap
	// record was given.
	AutoSeed bool
}

type Config struct {
	ListenAddr string
	ListenPort int

	// Hashes names the topic hash functions; the first is primary.
	Hashes      []string
	OpTimeout   time.Duration
	Parallelism int

	MetricsAddr string
	Trace       bool
	LogLevel    string

	Sim Sim
}

func Default() Config {
	return Config{
		ListenAddr: DefaultListenAddr,
		ListenPort: DefaultListenPort,
		Hashes:     []string{topic.DefaultFunc},
		OpTimeout:  10 * time.Second,
		Sim: Sim{
			Nodes:      64,
			Seed:       1,
			AdLifetime: kadsim.DefaultAdLifetime,
			AutoSeed:   true,
		},
	}
}

// BindFlags registers a flag for every field, defaulting to the current values.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ListenAddr, "listen-addr", c.ListenAddr, "IP address of the local node")
	fs.IntVar(&c.ListenPort, "listen-port", c.ListenPort, "UDP and TCP port of the local node")
	fs.StringSliceVar(&c.Hashes, "hash", c.Hashes, "topic hash functions, primary first: "+strings.Join(topic.SupportedFuncs(), ", "))
	fs.DurationVar(&c.OpTimeout, "op-timeout", c.OpTimeout, "timeout for each per-node operation, 0 for none")
	fs.IntVar(&c.Parallelism, "parallelism", c.Parallelism, "maximum concurrent per-node operations, 0 for unlimited")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve prometheus metrics on this address")
	fs.BoolVar(&c.Trace, "trace", c.Trace, "write trace spans to stderr")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level, overrides the LOG environment variable")

	fs.IntVar(&c.Sim.Nodes, "sim-nodes", c.Sim.Nodes, "number of simulated nodes")
	fs.Int64Var(&c.Sim.Seed, "sim-seed", c.Sim.Seed, "seed for simulated node IDs and drops")
	fs.Float64Var(&c.Sim.DropRate, "sim-drop-rate", c.Sim.DropRate, "fraction of simulated requests dropped")
	fs.DurationVar(&c.Sim.Latency, "sim-latency", c.Sim.Latency, "latency of every simulated request")
	fs.DurationVar(&c.Sim.AdLifetime, "sim-ad-lifetime", c.Sim.AdLifetime, "how long simulated nodes store advertisements")
	fs.BoolVar(&c.Sim.AutoSeed, "sim-autoseed", c.Sim.AutoSeed, "add a simulated node when --enr is not given")
}

func (c Config) Validate() error {
	if c.IP() == nil {
		return errors.Errorf("invalid listen address %q", c.ListenAddr)
	}
	if c.ListenPort <= 0 || c.ListenPort > 0xffff {
		return errors.Errorf("invalid listen port %d", c.ListenPort)
	}
	if _, err := c.Hasher(); err != nil {
		return err
	}
	if c.OpTimeout < 0 {
		return errors.Errorf("negative op timeout %v", c.OpTimeout)
	}
	if c.Parallelism < 0 {
		return errors.Errorf("negative parallelism %d", c.Parallelism)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
			return errors.Wrap(err, "invalid log level")
		}
	}
	return c.Sim.Validate()
}

func (s Sim) Validate() error {
	if s.Nodes < 0 {
		return errors.Errorf("negative simulated node count %d", s.Nodes)
	}
	if s.DropRate < 0 || s.DropRate > 1 {
		return errors.Errorf("drop rate %v not in [0, 1]", s.DropRate)
	}
	if s.Latency < 0 {
		return errors.Errorf("negative latency %v", s.Latency)
	}
	if s.AdLifetime <= 0 {
		return errors.Errorf("ad lifetime must be positive, have %v", s.AdLifetime)
	}
	return nil
}

// IP returns the parsed listen address, or nil if it is invalid.
func (c Config) IP() net.IP {
	return net.ParseIP(c.ListenAddr)
}

func (c Config) Hasher() (*topic.Hasher, error) {
	return topic.NewHasher(c.Hashes...)
}

// Options returns the kadsim options for the simulated network.
func (s Sim) Options(hasher *topic.Hasher, log logrus.FieldLogger) []kadsim.Option {
	return []kadsim.Option{
		kadsim.WithHasher(hasher),
		kadsim.WithLogger(log),
		kadsim.WithSeed(s.Seed),
		kadsim.WithDropRate(s.DropRate),
		kadsim.WithLatency(s.Latency),
		kadsim.WithAdLifetime(s.AdLifetime),
	}
}
