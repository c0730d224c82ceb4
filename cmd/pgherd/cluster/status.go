package clustercmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pgherd/cmd/pgherd/ui"
)

func statusCmd(member *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show all members as seen by one node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientFor(*member)
			if err != nil {
				return err
			}

			members, err := client.ClusterMembers(cmd.Context())
			if err != nil {
				return err
			}
			if len(members) == 0 {
				fmt.Println(ui.WarnMsg("no members reported"))
				return nil
			}

			rows := make([][]string, 0, len(members))
			for _, m := range members {
				lag := "-"
				if !m.Leader() {
					lag = strconv.FormatInt(m.LagBytes(), 10)
				}
				rows = append(rows, []string{
					m.Name,
					ui.Role(m.Role),
					ui.State(m.State),
					m.Host,
					strconv.Itoa(m.Timeline),
					lag,
				})
			}
			fmt.Println(ui.Table([]string{"MEMBER", "ROLE", "STATE", "HOST", "TL", "LAG"}, rows))
			return nil
		},
	}
}
