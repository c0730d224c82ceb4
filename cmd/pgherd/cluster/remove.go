package clustercmd

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"pgherd/cmd/pgherd/ui"
	"pgherd/internal/raftadmin"
	"pgherd/internal/telemetry"
)

func removeRaftMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-raft-member <address>",
		Short: "Remove a departed node from the raft group",
		Long: "Run on a surviving member after a node is decommissioned. Until removed,\n" +
			"the departed node still counts against raft quorum.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := netip.ParseAddr(args[0])
			if err != nil {
				return fmt.Errorf("parse member address %q: %w", args[0], err)
			}

			tracer, shutdown := ui.StepTracer()
			defer shutdown()
			op, err := telemetry.Start(cmd.Context(), tracer, "cluster.remove-raft-member", 1)
			if err != nil {
				return err
			}

			err = op.RunStep(op.Context(), "raft_remove", "removing "+addr.String()+" from raft", func(ctx context.Context) error {
				return raftadmin.RemoveMember(ctx, addr)
			})
			op.End(err)
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("%s removed from the raft group", addr))
			return nil
		},
	}
}
