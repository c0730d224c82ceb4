// Package rendercmd implements "pgherd render": a pure synthesis run that
// prints the configuration a node would converge to, without touching disk
// or any supervisor.
package rendercmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pgherd/internal/agent"
	"pgherd/internal/patroni"
	"pgherd/internal/platform"
)

func Cmd() *cobra.Command {
	var (
		configPath string
		peers      []string
		pgConf     bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the Patroni configuration for this node",
		Long: "Render synthesizes the configuration from the agent config and the given\n" +
			"peer set and prints it to stdout. Identical inputs always produce identical\n" +
			"output, so the result is diffable against the installed file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := agent.LoadConfig(configPath)
			if err != nil {
				return err
			}
			pcfg, err := cfg.PatroniConfig(platform.InterfaceAddr)
			if err != nil {
				return err
			}
			creds, err := cfg.ResolveCredentials()
			if err != nil {
				return err
			}

			if peers == nil {
				peers = cfg.Peers.Static
			}
			membership, err := patroni.ParsePeers(peers)
			if err != nil {
				return err
			}

			if pgConf {
				fmt.Print(string(patroni.SynthesizePostgresConf(pcfg)))
				return nil
			}

			doc, err := patroni.Synthesize(pcfg, patroni.ExcludeSelf(pcfg.SelfIP, membership), creds)
			if err != nil {
				return err
			}
			fmt.Print(string(doc))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", agent.DefaultConfigPath, "Agent configuration file")
	cmd.Flags().StringSliceVar(&peers, "peer", nil, "Peer address (repeatable); defaults to the configured static peers")
	cmd.Flags().BoolVar(&pgConf, "postgresql-conf", false, "Render postgresql.conf overrides instead of patroni.yml")
	return cmd
}
