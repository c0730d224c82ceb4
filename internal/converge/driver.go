package converge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pgherd/internal/check"
	"pgherd/internal/patroni"
	"pgherd/internal/support/atomicfile"
)

const (
	// fullResyncInterval is 30s: long enough to batch membership churn,
	// short enough to catch a missed change event.
	fullResyncInterval = 30 * time.Second
	// maxSubscribeRetries is 30: ~30s of retries before giving up on the
	// peer source.
	maxSubscribeRetries = 30
	// writeRetryAttempts is 3 with doubling backoff: disk contention is
	// transient or it is not going away.
	writeRetryAttempts  = 3
	writeRetryBaseDelay = 250 * time.Millisecond
	// reloadRetryAttempts is 3: a supervisor that refuses three reloads is
	// degraded, not unlucky; escalation beats spinning.
	reloadRetryAttempts = 3
	reloadRetryDelay    = 2 * time.Second

	configFileMode = 0o600
)

// Driver keeps one node's on-disk configuration converged with the current
// peer set. Renders are serialized per node and committed last-writer-wins
// by peer-set version, never by completion order.
type Driver struct {
	Config      patroni.Config
	Credentials patroni.Credentials
	Peers       PeerSource
	Supervisor  Supervisor
	State       StateStore // optional
	Clock       Clock      // optional
	OnEvent     func(eventType, message string)
	OnFailure   func(error)

	latest atomic.Uint64 // newest version seen in the current subscription

	applyMu sync.Mutex // serializes render+write+reload
	mu      sync.Mutex // guards phase and applied
	phase   Phase
	applied AppliedConfig
}

func (d *Driver) getClock() Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return RealClock{}
}

// Phase returns the driver's current lifecycle phase.
func (d *Driver) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Applied returns the last configuration that reached disk and was
// acknowledged by the supervisor.
func (d *Driver) Applied() (AppliedConfig, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied, d.applied.Digest != ""
}

func (d *Driver) setPhase(p Phase) {
	d.mu.Lock()
	d.phase = p
	d.mu.Unlock()
}

func (d *Driver) emit(eventType, message string) {
	if d.OnEvent != nil {
		d.OnEvent(eventType, message)
	}
	slog.Debug("converge event", "event", eventType, "message", message)
}

func (d *Driver) fail(err error) {
	if d.OnFailure != nil {
		d.OnFailure(err)
	}
	if err != nil {
		slog.Warn("converge failure", "err", err)
	}
}

// Observe records that version is now known. Renders for older versions are
// abandoned before they can reach disk. Versions are comparable only within
// one subscription; rebase resets the floor when a new subscription starts.
func (d *Driver) Observe(version uint64) {
	for {
		cur := d.latest.Load()
		if version <= cur || d.latest.CompareAndSwap(cur, version) {
			return
		}
	}
}

// rebase resets the staleness floor to a fresh subscription's numbering. A
// source hands out versions scoped to one subscription, so the first snapshot
// of a new feed defines a new epoch even when it counts from 1 again.
func (d *Driver) rebase(version uint64) {
	d.latest.Store(version)
}

// Run validates the node identity and credentials, then consumes the peer
// source until ctx is cancelled. Validation failures surface synchronously:
// they indicate a caller bug and are never retried.
func (d *Driver) Run(ctx context.Context) error {
	check.Assert(d.Peers != nil, "Driver.Run: Peers must not be nil")
	check.Assert(d.Supervisor != nil, "Driver.Run: Supervisor must not be nil")

	cfg, err := patroni.NormalizeConfig(d.Config)
	if err != nil {
		return err
	}
	d.Config = cfg
	if err := d.Credentials.Validate(); err != nil {
		return err
	}

	if d.State != nil {
		// Only the digest survives a restart. Stored versions belong to
		// the previous subscription and are not comparable with the
		// numbering a fresh source hands out.
		if applied, ok, err := d.State.LastApplied(ctx); err == nil && ok {
			d.mu.Lock()
			d.applied = applied
			d.mu.Unlock()
		}
	}

	snap, changes, err := d.subscribeWithRetry(ctx)
	if err != nil {
		return err
	}
	d.emit("subscribe.ready", fmt.Sprintf("peer source snapshot version %d (%d members)", snap.Version, len(snap.Peers)))

	d.rebase(snap.Version)
	if err := d.Apply(ctx, snap); err != nil {
		d.fail(err)
	}
	last := snap

	ticker := time.NewTicker(fullResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next, ok := <-changes:
			if !ok {
				snap, changes, err = d.subscribeWithRetry(ctx)
				if err != nil {
					return err
				}
				d.emit("subscribe.ready", fmt.Sprintf("peer source restored at version %d", snap.Version))
				d.rebase(snap.Version)
				next = snap
			}
			// Collapse queued events: only the newest view matters.
			next = drainToLatest(changes, next)
			d.Observe(next.Version)
			last = next
			if err := d.Apply(ctx, next); err != nil {
				d.fail(err)
			}
		case <-ticker.C:
			// Re-applying the latest known set is harmless: unchanged
			// content short-circuits before the reload.
			if err := d.Apply(ctx, last); err != nil {
				d.fail(err)
			}
		}
	}
}

// Apply renders and installs the configuration for one peer-set snapshot.
// Stale snapshots are abandoned without touching disk, even when the apply
// for a newer version already finished.
func (d *Driver) Apply(ctx context.Context, snap PeerSnapshot) error {
	d.Observe(snap.Version)

	membership, err := patroni.ParsePeers(snap.Peers)
	if err != nil {
		return err
	}
	// The resolver reports the full membership; this node wants everyone
	// else. Synthesis re-checks, so a source that misbehaves after this
	// filter still cannot produce a self-replicating document.
	peers := patroni.ExcludeSelf(d.Config.SelfIP, membership)

	doc, err := patroni.Synthesize(d.Config, peers, d.Credentials)
	if err != nil {
		return err
	}
	pgConf := patroni.SynthesizePostgresConf(d.Config)

	sum := sha256.Sum256(append(append([]byte{}, doc...), pgConf...))
	digest := hex.EncodeToString(sum[:])

	d.applyMu.Lock()
	defer d.applyMu.Unlock()

	if stale, cur := d.isStale(snap.Version); stale {
		d.emit("render.stale", fmt.Sprintf("abandoning render for version %d, version %d is known", snap.Version, cur))
		return nil
	}

	bootstrap := !d.Supervisor.Running(ctx)

	if applied, ok := d.Applied(); ok && applied.Digest == digest && !bootstrap {
		// Same bytes already acknowledged and the service is up: record
		// the version and skip the reload.
		d.commitApplied(ctx, AppliedConfig{Version: snap.Version, Digest: digest, AppliedAt: d.getClock().Now()})
		d.setPhase(PhaseConverged)
		return nil
	}

	if bootstrap {
		d.setPhase(PhaseBootstrapping)
	} else {
		d.setPhase(PhaseReconfiguring)
	}

	if err := d.writeWithRetry(ctx, d.Config.ConfigFile, doc); err != nil {
		return fmt.Errorf("write patroni config: %w", err)
	}
	if err := d.writeWithRetry(ctx, d.Config.PostgresConfFile, pgConf); err != nil {
		return fmt.Errorf("write postgresql conf: %w", err)
	}

	if err := d.signalWithRetry(ctx, bootstrap); err != nil {
		d.setPhase(PhaseDegraded)
		return err
	}

	d.commitApplied(ctx, AppliedConfig{Version: snap.Version, Digest: digest, AppliedAt: d.getClock().Now()})
	d.setPhase(PhaseConverged)
	d.emit("converge.apply.success", fmt.Sprintf("version %d applied with %d peers", snap.Version, len(peers)))
	return nil
}

func (d *Driver) isStale(version uint64) (bool, uint64) {
	if cur := d.latest.Load(); version < cur {
		return true, cur
	}
	return false, 0
}

func (d *Driver) commitApplied(ctx context.Context, applied AppliedConfig) {
	d.mu.Lock()
	d.applied = applied
	d.mu.Unlock()
	if d.State != nil {
		if err := d.State.RecordApplied(ctx, applied); err != nil {
			slog.Warn("record applied config", "version", applied.Version, "err", err)
		}
	}
}

func (d *Driver) writeWithRetry(ctx context.Context, path string, data []byte) error {
	delay := writeRetryBaseDelay
	var lastErr error
	for attempt := range writeRetryAttempts {
		lastErr = atomicfile.WriteFile(path, data, configFileMode)
		if lastErr == nil {
			return nil
		}
		d.emit("converge.write.error", lastErr.Error())
		if attempt == writeRetryAttempts-1 {
			break
		}
		if !sleepContext(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}

func (d *Driver) signalWithRetry(ctx context.Context, bootstrap bool) error {
	var lastErr error
	for attempt := range reloadRetryAttempts {
		if bootstrap {
			lastErr = d.Supervisor.Start(ctx)
		} else {
			lastErr = d.Supervisor.Reload(ctx)
		}
		if lastErr == nil {
			return nil
		}
		d.emit("converge.reload.error", lastErr.Error())
		if attempt == reloadRetryAttempts-1 {
			break
		}
		if !sleepContext(ctx, reloadRetryDelay) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("supervisor did not accept the configuration after %d attempts: %w", reloadRetryAttempts, lastErr)
}

func (d *Driver) subscribeWithRetry(ctx context.Context) (PeerSnapshot, <-chan PeerSnapshot, error) {
	for range maxSubscribeRetries {
		snap, changes, err := d.Peers.Subscribe(ctx)
		if err == nil {
			return snap, changes, nil
		}
		d.emit("subscribe.error", err.Error())
		if !sleepContext(ctx, time.Second) {
			return PeerSnapshot{}, nil, ctx.Err()
		}
	}
	return PeerSnapshot{}, nil, fmt.Errorf("peer subscription failed after %d retries", maxSubscribeRetries)
}

func drainToLatest(changes <-chan PeerSnapshot, latest PeerSnapshot) PeerSnapshot {
	for {
		select {
		case next, ok := <-changes:
			if !ok {
				return latest
			}
			if next.Version > latest.Version {
				latest = next
			}
		default:
			return latest
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
