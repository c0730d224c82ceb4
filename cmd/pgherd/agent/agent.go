// Package agentcmd implements "pgherd agent": the long-running convergence
// agent plus its install and status helpers.
package agentcmd

import (
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run and manage the node convergence agent",
	}
	cmd.AddCommand(runCmd())
	cmd.AddCommand(installCmd())
	cmd.AddCommand(uninstallCmd())
	cmd.AddCommand(statusCmd())
	return cmd
}
