package agentcmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pgherd/cmd/pgherd/ui"
	"pgherd/internal/adapter/systemd"
	"pgherd/internal/agent"
	"pgherd/internal/platform"
)

func installCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install systemd units for the agent and the managed Patroni",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := agent.LoadConfig(configPath)
			if err != nil {
				return err
			}
			// Fail before touching systemd when the identity is incomplete.
			pcfg, err := cfg.PatroniConfig(platform.InterfaceAddr)
			if err != nil {
				return err
			}

			agentBin, err := systemd.ResolveBinary("pgherd")
			if err != nil {
				return err
			}
			patroniBin, err := systemd.ResolveBinary("patroni")
			if err != nil {
				return err
			}

			install := systemd.InstallConfig{
				PatroniBin:  patroniBin,
				ConfigFile:  pcfg.ConfigFile,
				AgentBin:    agentBin,
				AgentConfig: configPath,
				LogPath:     filepath.Join(pcfg.DataRoot, "agent.log"),
			}
			if err := systemd.Install(cmd.Context(), install); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("agent installed and started"))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", agent.DefaultConfigPath, "Agent configuration file")
	return cmd
}

func uninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the systemd units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := systemd.Uninstall(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("agent uninstalled"))
			return nil
		},
	}
}
