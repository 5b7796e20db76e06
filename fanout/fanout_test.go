package fanout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func records(n int) []topicdisc.NodeRecord {
	recs := make([]topicdisc.NodeRecord, n)
	for i := range recs {
		recs[i].ID[0] = byte(i + 1)
		recs[i].UDP = uint16(9000 + i)
	}
	return recs
}

func TestEmpty(t *testing.T) {
	var called int32
	outs := Execute(ctx, nil, func(ctx context.Context, node topicdisc.NodeRecord) (int, error) {
		atomic.AddInt32(&called, 1)
		return 0, nil
	})
	require.NotNil(t, outs)
	require.Len(t, outs, 0)
	require.Equal(t, int32(0), atomic.LoadInt32(&called))
}

func TestOrderPreserved(t *testing.T) {
	targets := records(3)
	errB := errors.New("b failed")
	// later targets finish first
	outs := Execute(ctx, targets, func(ctx context.Context, node topicdisc.NodeRecord) (byte, error) {
		i := node.ID[0]
		time.Sleep(time.Duration(4-i) * 10 * time.Millisecond)
		if i == 2 {
			return 0, errB
		}
		return i * 10, nil
	})
	require.Len(t, outs, 3)
	for i, o := range outs {
		require.Equal(t, targets[i].ID, o.Node.ID)
	}
	require.NoError(t, outs[0].Err)
	require.Equal(t, byte(10), outs[0].Value)
	require.ErrorIs(t, outs[1].Err, errB)
	require.NoError(t, outs[2].Err)
	require.Equal(t, byte(30), outs[2].Value)

	require.Len(t, Succeeded(outs), 2)
	require.Len(t, Failed(outs), 1)
	require.Equal(t, []byte{10, 30}, Values(outs))
	err := Errors(outs)
	require.Error(t, err)
	require.ErrorIs(t, err, errB)
}

func TestEveryOutcomeOnce(t *testing.T) {
	const N = 100
	targets := records(N)
	var mu sync.Mutex
	calls := map[topicdisc.NodeID]int{}
	outs := Execute(ctx, targets, func(ctx context.Context, node topicdisc.NodeRecord) (int, error) {
		mu.Lock()
		calls[node.ID]++
		mu.Unlock()
		if node.ID[0]%3 == 0 {
			return 0, errors.New("divisible by 3")
		}
		return int(node.ID[0]), nil
	})
	require.Len(t, outs, N)
	for i, o := range outs {
		require.Equal(t, targets[i].ID, o.Node.ID)
		if o.Err == nil {
			require.Equal(t, int(targets[i].ID[0]), o.Value)
		}
	}
	require.NoError(t, Errors(Succeeded(outs)))
	require.Len(t, calls, N)
	for _, n := range calls {
		require.Equal(t, 1, n)
	}
}

func TestTimeout(t *testing.T) {
	targets := records(3)
	block := make(chan struct{})
	defer close(block)
	outs := Execute(ctx, targets, func(ctx context.Context, node topicdisc.NodeRecord) (string, error) {
		switch node.ID[0] {
		case 2:
			// ignores its context entirely
			<-block
			return "late", nil
		case 3:
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	}, WithTimeout(20*time.Millisecond))
	require.Len(t, outs, 3)
	require.NoError(t, outs[0].Err)
	require.Equal(t, "ok", outs[0].Value)
	require.True(t, IsErrTimeout(outs[1].Err), "%v", outs[1].Err)
	require.True(t, IsErrTimeout(outs[2].Err), "%v", outs[2].Err)
}

func TestPanicRecovered(t *testing.T) {
	outs := Execute(ctx, records(2), func(ctx context.Context, node topicdisc.NodeRecord) (int, error) {
		if node.ID[0] == 1 {
			panic("boom")
		}
		return 1, nil
	})
	require.Error(t, outs[0].Err)
	require.Contains(t, outs[0].Err.Error(), "boom")
	require.NoError(t, outs[1].Err)
}

func TestParallelism(t *testing.T) {
	const limit = 3
	var current, max int32
	outs := Execute(ctx, records(12), func(ctx context.Context, node topicdisc.NodeRecord) (struct{}, error) {
		n := atomic.AddInt32(&current, 1)
		defer atomic.AddInt32(&current, -1)
		for {
			m := atomic.LoadInt32(&max)
			if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return struct{}{}, nil
	}, WithParallelism(limit))
	require.Len(t, outs, 12)
	require.LessOrEqual(t, atomic.LoadInt32(&max), int32(limit))
}

func TestParallelismWithHungOps(t *testing.T) {
	const limit = 2
	var current, max int32
	outs := Execute(ctx, records(6), func(ctx context.Context, node topicdisc.NodeRecord) (struct{}, error) {
		n := atomic.AddInt32(&current, 1)
		defer atomic.AddInt32(&current, -1)
		for {
			m := atomic.LoadInt32(&max)
			if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
				break
			}
		}
		// ignores ctx
		time.Sleep(30 * time.Millisecond)
		return struct{}{}, nil
	}, WithParallelism(limit), WithTimeout(10*time.Millisecond))
	require.Len(t, outs, 6)
	for _, o := range outs {
		require.True(t, IsErrTimeout(o.Err), "%v", o.Err)
	}
	require.LessOrEqual(t, atomic.LoadInt32(&max), int32(limit))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	outs := Execute(ctx, records(2), func(ctx context.Context, node topicdisc.NodeRecord) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	for _, o := range outs {
		require.ErrorIs(t, o.Err, context.Canceled)
		require.False(t, IsErrTimeout(o.Err))
	}
}

func TestReport(t *testing.T) {
	log, hook := test.NewNullLogger()
	outs := []Outcome[int]{
		{Node: records(1)[0], Value: 1},
		{Node: records(2)[1], Err: errors.New("nope")},
	}
	Report(log, "test", outs)
	// one line per outcome plus the summary
	require.Len(t, hook.AllEntries(), 3)
	last := hook.LastEntry()
	require.Equal(t, 1, last.Data["succeeded"])
	require.Equal(t, 2, last.Data["total"])
}
