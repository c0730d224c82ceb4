package fake

import (
	"context"
	"sync"

	"pgherd/internal/converge"
)

var _ converge.PeerSource = (*PeerSource)(nil)

// PeerSource is a scripted implementation of converge.PeerSource. Tests set
// an initial snapshot, then push subsequent views or fail the feed to force
// a resubscribe.
type PeerSource struct {
	CallRecorder
	mu      sync.Mutex
	current converge.PeerSnapshot
	feed    chan converge.PeerSnapshot

	SubscribeErr func(ctx context.Context) error
}

// NewPeerSource creates a PeerSource reporting the given snapshot.
func NewPeerSource(initial converge.PeerSnapshot) *PeerSource {
	return &PeerSource{current: initial}
}

func (p *PeerSource) Subscribe(ctx context.Context) (converge.PeerSnapshot, <-chan converge.PeerSnapshot, error) {
	p.record("Subscribe")
	if p.SubscribeErr != nil {
		if err := p.SubscribeErr(ctx); err != nil {
			return converge.PeerSnapshot{}, nil, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.feed = make(chan converge.PeerSnapshot, 16)
	return p.current, p.feed, nil
}

// Push publishes a new membership view to the active subscription. It never
// blocks: when the feed buffer is full the oldest queued view is evicted,
// which matches subscribers that only care about the newest view.
func (p *PeerSource) Push(snap converge.PeerSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = snap
	if p.feed == nil {
		return
	}
	for {
		select {
		case p.feed <- snap:
			return
		default:
			select {
			case <-p.feed:
			default:
			}
		}
	}
}

// Fail closes the active feed, simulating a source failure.
func (p *PeerSource) Fail() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.feed != nil {
		close(p.feed)
		p.feed = nil
	}
}
