package dispatch

import (
	"sync"
	"time"
)

// State is the tri-state belief about direct-binding reachability.
type State int

const (
	StateUnknown State = iota
	StateAvailable
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Availability records whether the direct binding is believed reachable. It is
// an advisory hint: concurrent probes may overwrite each other and the last
// write wins. The lock only guards against torn reads of the pair.
type Availability struct {
	mu            sync.RWMutex
	state         State
	lastCheckedAt time.Time
	ttl           time.Duration
	clock         Clock
}

func NewAvailability(ttl time.Duration, clock Clock) *Availability {
	if clock == nil {
		clock = SystemClock
	}
	return &Availability{ttl: ttl, clock: clock}
}

// Seed overwrites the record, typically to set up a scenario in tests.
func (a *Availability) Seed(state State, lastCheckedAt time.Time) {
	a.mu.Lock()
	a.state = state
	a.lastCheckedAt = lastCheckedAt
	a.mu.Unlock()
}

// Record stores the verdict of a direct-binding attempt at the current time.
func (a *Availability) Record(available bool) {
	state := StateUnavailable
	if available {
		state = StateAvailable
	}
	a.Seed(state, a.clock.Now())
}

func (a *Availability) Snapshot() (State, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state, a.lastCheckedAt
}

func (a *Availability) TTL() time.Duration { return a.ttl }

func (a *Availability) Now() time.Time { return a.clock.Now() }
