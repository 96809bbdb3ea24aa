package order

import (
	"fmt"
	"sync"
	"time"
)

// NumberGenerator issues ORD-<unix millis> order numbers. Numbers are
// strictly increasing within a process even when two orders land in the
// same millisecond.
type NumberGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewNumberGenerator creates a generator backed by the wall clock
func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{now: time.Now}
}

// Next returns the next order number
func (g *NumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("ORD-%d", ms)
}
