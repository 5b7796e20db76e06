package topicdisc

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"net"
	"strconv"

	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// NodeID identifies a node.  It has the same width as a topic.Digest.
type NodeID [32]byte

// NewNodeID derives a NodeID from a node's public key.
func NewNodeID(pubKey ed25519.PublicKey) NodeID {
	return sha3.Sum256(pubKey)
}

// RandomNodeID reads a uniformly random NodeID from r.
func RandomNodeID(r io.Reader) (NodeID, error) {
	var id NodeID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return id, errors.Wrap(err, "reading random node id")
	}
	return id, nil
}

// NodeIDFromDigest reinterprets a topic digest as a lookup target.
func NodeIDFromDigest(d topic.Digest) NodeID {
	return NodeID(d)
}

func (a NodeID) Equals(b NodeID) bool {
	return bytes.Equal(a[:], b[:])
}

func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns an abbreviated form for log lines.
func (id NodeID) Short() string {
	return hex.EncodeToString(id[:4]) + ".." + hex.EncodeToString(id[len(id)-2:])
}

func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *NodeID) UnmarshalText(data []byte) error {
	if len(data) != hex.EncodedLen(len(id)) {
		return errors.New("data is wrong length")
	}
	_, err := hex.Decode(id[:], data)
	return err
}

// NodeRecord is what this module knows about a peer.
type NodeRecord struct {
	ID  NodeID
	Seq uint64
	IP  net.IP
	UDP uint16
	TCP uint16
}

// UDPAddr returns the address the node is reachable at, or nil.
func (r NodeRecord) UDPAddr() *net.UDPAddr {
	if r.IP == nil || r.UDP == 0 {
		return nil
	}
	return &net.UDPAddr{IP: r.IP, Port: int(r.UDP)}
}

func (r NodeRecord) String() string {
	if r.IP == nil {
		return r.ID.Short()
	}
	return r.ID.Short() + "@" + net.JoinHostPort(r.IP.String(), strconv.Itoa(int(r.UDP)))
}

// IDs returns the IDs of recs, in order.
func IDs(recs []NodeRecord) []NodeID {
	ids := make([]NodeID, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
	}
	return ids
}
