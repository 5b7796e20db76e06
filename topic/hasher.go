package topic

import (
	"fmt"

	"github.com/multiformats/go-multihash"
	_ "github.com/multiformats/go-multihash/register/blake3"
	_ "github.com/multiformats/go-multihash/register/sha3"
	"github.com/pkg/errors"
)

// DefaultFunc is the hash function topics are advertised under unless
// configured otherwise.
const DefaultFunc = "sha2-256"

var supported = []uint64{
	multihash.SHA2_256,
	multihash.SHA3_256,
	multihash.KECCAK_256,
	multihash.BLAKE3,
}

// SupportedFuncs returns the names accepted by NewHasher.
func SupportedFuncs() []string {
	names := make([]string, len(supported))
	for i, code := range supported {
		names[i] = multihash.Codes[code]
	}
	return names
}

// Hasher maps a topic to one digest per configured hash function.
// The first function is the primary one.
type Hasher struct {
	codes []uint64
}

// NewHasher returns a Hasher for the named functions, in order.
// With no names it uses DefaultFunc.
func NewHasher(names ...string) (*Hasher, error) {
	if len(names) == 0 {
		names = []string{DefaultFunc}
	}
	h := &Hasher{}
	seen := map[uint64]struct{}{}
	for _, name := range names {
		code, ok := multihash.Names[name]
		if !ok || !isSupported(code) {
			return nil, errors.Errorf("unsupported topic hash function %q, want one of %v", name, SupportedFuncs())
		}
		if _, exists := seen[code]; exists {
			continue
		}
		seen[code] = struct{}{}
		h.codes = append(h.codes, code)
	}
	return h, nil
}

// DefaultHasher returns a Hasher using only DefaultFunc.
func DefaultHasher() *Hasher {
	return &Hasher{codes: []uint64{multihash.SHA2_256}}
}

// Funcs returns the names of the configured functions, in order.
func (h *Hasher) Funcs() []string {
	names := make([]string, len(h.codes))
	for i, code := range h.codes {
		names[i] = multihash.Codes[code]
	}
	return names
}

// Digests returns the digest of t under every configured function.
func (h *Hasher) Digests(t Topic) []Hashed {
	ret := make([]Hashed, len(h.codes))
	for i, code := range h.codes {
		ret[i] = Hashed{
			Digest: sum(code, []byte(t)),
			Func:   multihash.Codes[code],
		}
	}
	return ret
}

// Digest returns the digest of t under the primary function.
func (h *Hasher) Digest(t Topic) Hashed {
	return Hashed{
		Digest: sum(h.codes[0], []byte(t)),
		Func:   multihash.Codes[h.codes[0]],
	}
}

// Hash returns the DefaultFunc digest of t.
func Hash(t Topic) Digest {
	return sum(multihash.SHA2_256, []byte(t))
}

func sum(code uint64, data []byte) (ret Digest) {
	mh, err := multihash.Sum(data, code, DigestSize)
	if err != nil {
		// only possible for an unregistered code or a bad length, both fixed above
		panic(fmt.Sprintf("multihash %d: %v", code, err))
	}
	dec, err := multihash.Decode(mh)
	if err != nil {
		panic(err)
	}
	copy(ret[:], dec.Digest)
	return ret
}

func isSupported(code uint64) bool {
	for _, c := range supported {
		if c == code {
			return true
		}
	}
	return false
}
