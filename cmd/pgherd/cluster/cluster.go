// Package clustercmd implements "pgherd cluster": operator commands that
// talk to the cluster through a member's Patroni REST API.
package clustercmd

import (
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"pgherd/internal/patroni"
)

func Cmd() *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Inspect and operate the Patroni cluster",
	}
	cmd.PersistentFlags().StringVar(&member, "member", "127.0.0.1", "Address of any cluster member's REST API")

	cmd.AddCommand(statusCmd(&member))
	cmd.AddCommand(switchoverCmd(&member))
	cmd.AddCommand(removeRaftMemberCmd())
	return cmd
}

func clientFor(member string) (*patroni.Client, error) {
	addr, err := netip.ParseAddr(member)
	if err != nil {
		return nil, fmt.Errorf("parse member address %q: %w", member, err)
	}
	return patroni.NewClient(addr), nil
}
