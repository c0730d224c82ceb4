package patroni

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

// ParsePeers parses, deduplicates and sorts a collection of peer addresses.
// Blank entries are skipped; anything else that does not parse as an IP is an
// error. Sorting keeps renders byte-identical for the same membership
// regardless of the order the resolver reported it in.
func ParsePeers(raw []string) ([]netip.Addr, error) {
	peers := make([]netip.Addr, 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("parse peer address %q: %w", entry, err)
		}
		peers = append(peers, addr.Unmap())
	}
	slices.SortFunc(peers, netip.Addr.Compare)
	return slices.Compact(peers), nil
}

// ExcludeSelf returns peers without self. The resolver reports the full
// membership including the local node; the synthesizer wants everyone else.
func ExcludeSelf(self netip.Addr, peers []netip.Addr) []netip.Addr {
	out := make([]netip.Addr, 0, len(peers))
	for _, p := range peers {
		if p == self.Unmap() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func normalizePeers(peers []netip.Addr) []netip.Addr {
	out := make([]netip.Addr, 0, len(peers))
	for _, p := range peers {
		if !p.IsValid() {
			continue
		}
		out = append(out, p.Unmap())
	}
	slices.SortFunc(out, netip.Addr.Compare)
	return slices.Compact(out)
}
