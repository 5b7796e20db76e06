package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashKnownVector(t *testing.T) {
	d := Hash("abc")
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.String())
}

func TestDigestsPure(t *testing.T) {
	h, err := NewHasher(SupportedFuncs()...)
	require.NoError(t, err)
	for _, topic := range []Topic{"", "lighthouse", "eth2/beacon_block/ssz_snappy"} {
		a := h.Digests(topic)
		b := h.Digests(topic)
		require.Equal(t, a, b)
		require.Len(t, a, len(SupportedFuncs()))
		for i, x := range a {
			require.Equal(t, SupportedFuncs()[i], x.Func)
		}
	}
}

func TestDigestsOrder(t *testing.T) {
	h, err := NewHasher("blake3", "sha2-256")
	require.NoError(t, err)
	ds := h.Digests("topic")
	require.Equal(t, []string{"blake3", "sha2-256"}, h.Funcs())
	require.Equal(t, "blake3", ds[0].Func)
	require.Equal(t, "sha2-256", ds[1].Func)
	require.Equal(t, Hash("topic"), ds[1].Digest)
	require.NotEqual(t, ds[0].Digest, ds[1].Digest)
	require.Equal(t, ds[0], h.Digest("topic"))
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher()
	require.NoError(t, err)
	require.Equal(t, []string{DefaultFunc}, h.Funcs())
	require.Equal(t, DefaultHasher().Funcs(), h.Funcs())

	h, err = NewHasher("sha3-256", "sha3-256")
	require.NoError(t, err)
	require.Equal(t, []string{"sha3-256"}, h.Funcs())

	_, err = NewHasher("md5")
	require.Error(t, err)
	_, err = NewHasher("not-a-hash")
	require.Error(t, err)
}

func TestParseDigest(t *testing.T) {
	d := Hash("lighthouse")
	x, err := ParseDigest(d.String())
	require.NoError(t, err)
	require.Equal(t, d, x)

	x, err = ParseDigest("0x" + d.String())
	require.NoError(t, err)
	require.Equal(t, d, x)

	_, err = ParseDigest("abcd")
	require.Error(t, err)
	_, err = ParseDigest("zz" + d.String()[2:])
	require.Error(t, err)

	var y Digest
	require.NoError(t, y.UnmarshalText([]byte(d.String())))
	require.Equal(t, d, y)
	require.True(t, Digest{}.IsZero())
}
