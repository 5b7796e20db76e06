// Package topic derives fixed width digests from topic names.
//
// A Topic is advertised and looked up by its Digest, which is the 32 byte
// output of a named hash function.  The names are the multihash names
// (sha2-256, sha3-256, keccak-256, blake3).
package topic

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// DigestSize is the width of a Digest in bytes.
const DigestSize = 32

// Topic is the name of a topic as supplied by the caller.
type Topic string

func (t Topic) String() string {
	return string(t)
}

// Digest is a topic hash.  It has the same width as a node ID so it can be
// used directly as a lookup target.
type Digest [DigestSize]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(data []byte) error {
	x, err := ParseDigest(string(data))
	if err != nil {
		return err
	}
	*d = x
	return nil
}

// ParseDigest parses the hex form of a Digest, with or without a 0x prefix.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != hex.EncodedLen(DigestSize) {
		return d, errors.Errorf("topic digest must be %d hex characters, got %d", hex.EncodedLen(DigestSize), len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, errors.Wrap(err, "parsing topic digest")
	}
	return d, nil
}

// Hashed is a Digest and the name of the hash function that produced it.
type Hashed struct {
	Digest Digest
	Func   string
}

func (h Hashed) String() string {
	return h.Func + ":" + h.Digest.String()
}
