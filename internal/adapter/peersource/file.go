package peersource

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"pgherd/internal/converge"
	"pgherd/internal/patroni"
)

const (
	// defaultPollInterval is 2s: membership files change on operator or
	// orchestrator cadence, not per request.
	defaultPollInterval = 2 * time.Second
	// maxConsecutiveReadFailures is 5: a file that stays unreadable is a
	// failed source and the subscriber should rebuild its view.
	maxConsecutiveReadFailures = 5

	changeBufCapacity = 16
)

var _ converge.PeerSource = (*File)(nil)

// File resolves the peer set from a membership file, one address per line.
// Blank lines and #-comments are ignored. The file is polled; a new snapshot
// is published only when the normalized membership actually changes, so
// rewrites that reorder lines or touch whitespace do not trigger renders.
type File struct {
	Path         string
	PollInterval time.Duration // defaults to defaultPollInterval
}

func (f *File) Subscribe(ctx context.Context) (converge.PeerSnapshot, <-chan converge.PeerSnapshot, error) {
	peers, key, err := readMembership(f.Path)
	if err != nil {
		return converge.PeerSnapshot{}, nil, fmt.Errorf("read membership file: %w", err)
	}

	snap := converge.PeerSnapshot{Version: 1, Peers: peers}
	changes := make(chan converge.PeerSnapshot, changeBufCapacity)
	go f.poll(ctx, snap.Version, key, changes)
	return snap, changes, nil
}

func (f *File) poll(ctx context.Context, version uint64, key string, out chan<- converge.PeerSnapshot) {
	defer close(out)

	interval := f.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		peers, nextKey, err := readMembership(f.Path)
		if err != nil {
			failures++
			if failures >= maxConsecutiveReadFailures {
				return
			}
			continue
		}
		failures = 0

		if nextKey == key {
			continue
		}
		key = nextKey
		version++

		select {
		case <-ctx.Done():
			return
		case out <- converge.PeerSnapshot{Version: version, Peers: peers}:
		}
	}
}

// readMembership parses the file and returns the member addresses plus a
// comparison key over the normalized set.
func readMembership(path string) ([]string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	var raw []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}

	addrs, err := patroni.ParsePeers(raw)
	if err != nil {
		return nil, "", err
	}

	peers := make([]string, len(addrs))
	for i, a := range addrs {
		peers[i] = a.String()
	}
	return peers, strings.Join(peers, ","), nil
}
