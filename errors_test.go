package topicdisc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestIsErr(t *testing.T) {
	tcs := []struct {
		Err error
		Is  func(error) bool
	}{
		{ErrNoPeers, IsErrNoPeers},
		{ErrUnreachable, IsErrUnreachable},
		{ErrTopicNotFound, IsErrTopicNotFound},
		{ErrInvalidRecord, IsErrInvalidRecord},
		{ErrSelfRecord, IsErrSelfRecord},
	}
	for i, tc := range tcs {
		require.True(t, tc.Is(errors.Wrap(tc.Err, "wrapped")), "case %d", i)
		for j, other := range tcs {
			if i != j {
				require.False(t, tc.Is(other.Err), "case %d matched %d", i, j)
			}
		}
	}
}
