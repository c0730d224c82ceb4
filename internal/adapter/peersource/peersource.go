// Package peersource provides peer set resolvers for the convergence driver.
package peersource

import (
	"context"

	"pgherd/internal/converge"
)

var _ converge.PeerSource = (*Static)(nil)

// Static reports a fixed membership and never changes. Useful for bootstrap
// and for clusters managed entirely by hand.
type Static struct {
	Peers []string
}

func (s *Static) Subscribe(ctx context.Context) (converge.PeerSnapshot, <-chan converge.PeerSnapshot, error) {
	changes := make(chan converge.PeerSnapshot)
	go func() {
		<-ctx.Done()
		close(changes)
	}()
	peers := make([]string, len(s.Peers))
	copy(peers, s.Peers)
	return converge.PeerSnapshot{Version: 1, Peers: peers}, changes, nil
}
