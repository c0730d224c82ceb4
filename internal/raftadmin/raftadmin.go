// Package raftadmin drives the syncobj_admin tool that ships with Patroni's
// raft DCS. Departed members must be removed from the raft group explicitly
// or the remaining nodes keep counting them against quorum.
package raftadmin

import (
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"strings"

	"pgherd/internal/patroni"
)

// localConn targets the raft listener on this node.
var localConn = netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), patroni.RaftPort).String()

// RemoveMember removes addr from the raft group via the local member.
func RemoveMember(ctx context.Context, addr netip.Addr) error {
	partner := netip.AddrPortFrom(addr.Unmap(), patroni.RaftPort).String()
	out, err := run(ctx, "-conn", localConn, "-remove", partner)
	if err != nil {
		return err
	}
	// syncobj_admin reports failures on stdout with a zero exit code.
	if !strings.Contains(out, "SUCCESS") {
		return fmt.Errorf("remove raft member %s: %s", partner, out)
	}
	return nil
}

// Status returns the raw status report of the local raft member.
func Status(ctx context.Context) (string, error) {
	return run(ctx, "-conn", localConn, "-status")
}

func run(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "syncobj_admin", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("syncobj_admin %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}
