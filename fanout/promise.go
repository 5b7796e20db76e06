package fanout

import (
	"sync"
)

// promise holds the result of a single operation.  Only the first settle
// has an effect, so a late result from an abandoned operation is dropped.
type promise[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newPromise[T any]() *promise[T] {
	return &promise[T]{done: make(chan struct{})}
}

func (p *promise[T]) settle(x T, err error) (ret bool) {
	p.once.Do(func() {
		ret = true
		p.value = x
		p.err = err
		close(p.done)
	})
	return ret
}

func (p *promise[T]) isDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// unwrap returns the result; it panics if called before done is closed.
func (p *promise[T]) unwrap() (T, error) {
	if !p.isDone() {
		panic("unwrap called on incomplete promise")
	}
	return p.value, p.err
}
