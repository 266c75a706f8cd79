package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	IDStrategySequence = "sequence"
	IDStrategyClock    = "clock"
)

// IDGenerator hands out strictly increasing ids. Implementations are safe
// for concurrent use.
type IDGenerator interface {
	Next() int64
}

func NewIDGenerator(strategy string) (IDGenerator, error) {
	switch strategy {
	case "", IDStrategySequence:
		return NewSequence(maxSeedID()), nil
	case IDStrategyClock:
		return NewClock(time.Now), nil
	default:
		return nil, fmt.Errorf("id strategy %q: want %s or %s", strategy, IDStrategySequence, IDStrategyClock)
	}
}

type Sequence struct {
	last atomic.Int64
}

// NewSequence starts counting after the given id.
func NewSequence(after int64) *Sequence {
	s := &Sequence{}
	s.last.Store(after)
	return s
}

func (s *Sequence) Next() int64 { return s.last.Add(1) }

// Clock issues unix-millisecond ids. Two calls within the same
// millisecond, or a clock stepping backwards, still get distinct ids.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewClock(now func() time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Next() int64 {
	ms := c.now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}
