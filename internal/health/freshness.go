package health

import (
	"sync"
	"time"

	"pgherd/internal/converge"
)

// defaultStaleAge covers two missed probe rounds.
const defaultStaleAge = 30 * time.Second

type memberState struct {
	lastSeen time.Time
	role     string
	state    string
	lag      int64
}

// MemberHealth is one member's liveness as observed locally.
type MemberHealth struct {
	Freshness time.Duration
	Stale     bool
	Role      string
	State     string
	Lag       int64
}

// FreshnessTracker remembers when each cluster member was last seen
// responding. The local member is not tracked; its health is the agent's own.
type FreshnessTracker struct {
	mu       sync.RWMutex
	members  map[string]memberState
	selfName string
	staleAge time.Duration
	clock    converge.Clock
}

func NewFreshnessTracker(selfName string, clock converge.Clock) *FreshnessTracker {
	return &FreshnessTracker{
		members:  make(map[string]memberState),
		selfName: selfName,
		staleAge: defaultStaleAge,
		clock:    clock,
	}
}

// RecordSeen notes that a member responded to a probe.
func (ft *FreshnessTracker) RecordSeen(name, role, state string, lag int64) {
	if name == ft.selfName {
		return
	}

	ft.mu.Lock()
	ft.members[name] = memberState{
		lastSeen: ft.clock.Now(),
		role:     role,
		state:    state,
		lag:      lag,
	}
	ft.mu.Unlock()
}

// Remove forgets a member, typically after it left the cluster.
func (ft *FreshnessTracker) Remove(name string) {
	ft.mu.Lock()
	delete(ft.members, name)
	ft.mu.Unlock()
}

// Snapshot returns health for every tracked member.
func (ft *FreshnessTracker) Snapshot() map[string]MemberHealth {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	now := ft.clock.Now()
	out := make(map[string]MemberHealth, len(ft.members))
	for name, m := range ft.members {
		freshness := now.Sub(m.lastSeen)
		out[name] = MemberHealth{
			Freshness: freshness,
			Stale:     freshness > ft.staleAge,
			Role:      m.role,
			State:     m.state,
			Lag:       m.lag,
		}
	}
	return out
}
