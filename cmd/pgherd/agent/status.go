package agentcmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pgherd/cmd/pgherd/ui"
	"pgherd/internal/adapter/systemd"
	"pgherd/internal/agent"
	"pgherd/internal/patroni"
	"pgherd/internal/platform"
)

func statusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show unit state and this member's Patroni health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patroniUnit, agentUnit := systemd.Status(cmd.Context())

			pairs := []ui.Pair{
				ui.KV("Agent unit", boolWord(agentUnit.Installed, agentUnit.Active)),
				ui.KV("Patroni unit", boolWord(patroniUnit.Installed, patroniUnit.Active)),
			}

			// Member health is best effort: the units may be down.
			if cfg, err := agent.LoadConfig(configPath); err == nil {
				if pcfg, err := cfg.PatroniConfig(platform.InterfaceAddr); err == nil {
					client := patroni.NewClient(pcfg.SelfIP)
					state, err := client.MemberState(cmd.Context())
					if err != nil {
						state = "unreachable"
					}
					pairs = append(pairs,
						ui.KV("Member", pcfg.MemberName),
						ui.KV("State", ui.State(state)),
						ui.KV("Planned units", strconv.Itoa(pcfg.PlannedUnits)),
					)
				}
			}

			fmt.Println(ui.KeyValues("  ", pairs...))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", agent.DefaultConfigPath, "Agent configuration file")
	return cmd
}

func boolWord(installed, active bool) string {
	switch {
	case active:
		return ui.SuccessStyle.Render("active")
	case installed:
		return ui.WarnStyle.Render("installed, inactive")
	default:
		return ui.Muted("not installed")
	}
}
