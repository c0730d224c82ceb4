package converge

import (
	"context"
	"time"
)

// PeerSnapshot is one versioned view of the cluster membership, as reported
// by the resolver. Peers holds the full membership including the local node;
// the driver filters self out before synthesis. Versions increase
// monotonically per source.
type PeerSnapshot struct {
	Version uint64
	Peers   []string
}

// PeerSource abstracts the peer set resolver.
// Production: peersource.File polling a membership file, peersource.Static
// for fixed bootstrap lists. Testing: fake with a scripted change feed.
type PeerSource interface {
	// Subscribe returns the current snapshot and a channel of subsequent
	// snapshots. The channel closes when the source fails; the driver
	// resubscribes with retry.
	Subscribe(ctx context.Context) (PeerSnapshot, <-chan PeerSnapshot, error)
}

// Supervisor abstracts the process supervisor that owns the Patroni +
// PostgreSQL pair. Reload must be idempotent: re-signaling a process that
// already runs the latest configuration is a harmless no-op.
// Production: systemd, docker or pidfile adapters. Testing: fake that
// records signals.
type Supervisor interface {
	Start(ctx context.Context) error
	Reload(ctx context.Context) error
	Running(ctx context.Context) bool
}

// StateStore persists the last applied configuration version and digest so
// agent restarts skip redundant reloads.
// Production: adapter/sqlite.StateStore. Testing: in-memory fake.
type StateStore interface {
	LastApplied(ctx context.Context) (AppliedConfig, bool, error)
	RecordApplied(ctx context.Context, applied AppliedConfig) error
}

// AppliedConfig describes one configuration that reached disk and was
// acknowledged by the supervisor.
type AppliedConfig struct {
	Version   uint64
	Digest    string
	AppliedAt time.Time
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
