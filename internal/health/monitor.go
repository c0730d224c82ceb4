package health

import (
	"context"
	"log/slog"
	"time"

	"pgherd/internal/patroni"
)

// defaultProbeInterval keeps the tracker a little fresher than staleAge.
const defaultProbeInterval = 10 * time.Second

// MemberLister is the slice of the Patroni REST client the monitor needs.
type MemberLister interface {
	ClusterMembers(ctx context.Context) ([]patroni.Member, error)
}

// Monitor polls the local Patroni API and feeds the freshness tracker.
type Monitor struct {
	Client   MemberLister
	Tracker  *FreshnessTracker
	Interval time.Duration // defaults to defaultProbeInterval
}

func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	m.probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	members, err := m.Client.ClusterMembers(ctx)
	if err != nil {
		// The local API being down is itself a signal: members go stale
		// on their own as probes stop landing.
		slog.Debug("member probe failed", "err", err)
		return
	}

	seen := make(map[string]bool, len(members))
	for _, member := range members {
		seen[member.Name] = true
		if member.Running() {
			m.Tracker.RecordSeen(member.Name, member.Role, member.State, member.LagBytes())
		}
	}
	for name := range m.Tracker.Snapshot() {
		if !seen[name] {
			m.Tracker.Remove(name)
		}
	}
}
