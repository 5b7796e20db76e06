// Package iteration implements the "run n times or forever" policy shared by
// the periodic loops.
package iteration

import (
	"fmt"
	"strconv"
)

// Policy is either Unbounded or Bounded(n).
type Policy struct {
	bounded bool
	limit   int
}

// Unbounded returns a Policy which never stops.
func Unbounded() Policy {
	return Policy{}
}

// Bounded returns a Policy which allows exactly n iterations.
// Bounded(0) allows none.
func Bounded(n int) Policy {
	if n < 0 {
		panic(fmt.Sprintf("iteration: negative bound %d", n))
	}
	return Policy{bounded: true, limit: n}
}

// FromCount returns Bounded(n) for n >= 0 and Unbounded otherwise.
// It maps the CLI convention of a negative count meaning "forever".
func FromCount(n int) Policy {
	if n < 0 {
		return Unbounded()
	}
	return Bounded(n)
}

// Limit returns the bound, and false for an Unbounded policy.
func (p Policy) Limit() (int, bool) {
	return p.limit, p.bounded
}

func (p Policy) IsBounded() bool {
	return p.bounded
}

func (p Policy) String() string {
	if !p.bounded {
		return "unbounded"
	}
	return "bounded(" + strconv.Itoa(p.limit) + ")"
}

// Controller tracks the iterations granted under a Policy.
// It is not safe for concurrent use; each loop owns its own.
type Controller struct {
	policy Policy
	n      int
}

func NewController(p Policy) *Controller {
	return &Controller{policy: p}
}

// Next reports whether the loop body should run again.  When it should,
// i is the 1-indexed number of the iteration being granted.
func (c *Controller) Next() (i int, ok bool) {
	if c.policy.bounded && c.n >= c.policy.limit {
		return c.n, false
	}
	c.n++
	return c.n, true
}

// Iteration returns the number of iterations granted so far.
func (c *Controller) Iteration() int {
	return c.n
}

// Last returns true if no further iterations will be granted.
func (c *Controller) Last() bool {
	return c.policy.bounded && c.n >= c.policy.limit
}

// String renders the progress as "i/n", or "i/∞" when unbounded.
func (c *Controller) String() string {
	if !c.policy.bounded {
		return strconv.Itoa(c.n) + "/∞"
	}
	return strconv.Itoa(c.n) + "/" + strconv.Itoa(c.policy.limit)
}
