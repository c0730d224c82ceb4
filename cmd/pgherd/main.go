package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	agentcmd "pgherd/cmd/pgherd/agent"
	clustercmd "pgherd/cmd/pgherd/cluster"
	rendercmd "pgherd/cmd/pgherd/render"
	"pgherd/cmd/pgherd/ui"
	"pgherd/internal/logging"
	"pgherd/internal/support/buildinfo"
)

func main() {
	var (
		debug         bool
		noInteraction bool
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "pgherd",
		Short:         "Deployment-time configuration for Patroni PostgreSQL clusters",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.ConfigureInteraction(noInteraction)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&noInteraction, "no-interaction", false, "Disable colored output")

	root.AddCommand(agentcmd.Cmd())
	root.AddCommand(rendercmd.Cmd())
	root.AddCommand(clustercmd.Cmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
