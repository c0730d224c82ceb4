package clustercmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pgherd/cmd/pgherd/ui"
	"pgherd/internal/patroni"
	"pgherd/internal/telemetry"
)

func switchoverCmd(member *string) *cobra.Command {
	return &cobra.Command{
		Use:   "switchover",
		Short: "Hand leadership to another member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientFor(*member)
			if err != nil {
				return err
			}

			tracer, shutdown := ui.StepTracer()
			defer shutdown()
			op, err := telemetry.Start(cmd.Context(), tracer, "cluster.switchover", 3)
			if err != nil {
				return err
			}

			var leader patroni.Member
			err = op.RunStep(op.Context(), "verify", "checking cluster readiness", func(ctx context.Context) error {
				ready, err := client.AllMembersReady(ctx)
				if err != nil {
					return err
				}
				if !ready {
					return fmt.Errorf("cluster is not fully ready; refusing to switch over")
				}
				primary, ok, err := client.Primary(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("cluster has no leader")
				}
				leader = primary
				return nil
			})
			if err != nil {
				op.End(err)
				return err
			}

			err = op.RunStep(op.Context(), "switchover", "switching over from "+leader.Name, func(ctx context.Context) error {
				return client.Switchover(ctx, leader.Name)
			})
			if err != nil {
				op.End(err)
				return err
			}

			err = op.RunStep(op.Context(), "confirm", "confirming new leader", func(ctx context.Context) error {
				primary, ok, err := client.Primary(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no leader after switchover")
				}
				fmt.Println(ui.SuccessMsg("leadership moved from %s to %s", leader.Name, primary.Name))
				return nil
			})
			op.End(err)
			return err
		},
	}
}
