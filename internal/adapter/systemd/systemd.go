// Package systemd supervises the Patroni service through systemctl.
package systemd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"pgherd/internal/converge"
)

const (
	// PatroniUnit is the unit the agent drives on each database node.
	PatroniUnit = "pgherd-patroni.service"
	// AgentUnit runs the agent itself.
	AgentUnit = "pgherd-agent.service"

	unitDir = "/etc/systemd/system"
)

var _ converge.Supervisor = (*Supervisor)(nil)

// Supervisor drives a systemd unit. Reload relies on the unit's ExecReload,
// which delivers SIGHUP to Patroni so it re-reads its configuration without
// restarting PostgreSQL.
type Supervisor struct {
	Unit string
}

// NewSupervisor returns a Supervisor for the Patroni unit.
func NewSupervisor() *Supervisor {
	return &Supervisor{Unit: PatroniUnit}
}

func (s *Supervisor) Start(ctx context.Context) error {
	if err := systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	return systemctl(ctx, "enable", "--now", s.Unit)
}

func (s *Supervisor) Reload(ctx context.Context) error {
	return systemctl(ctx, "reload", s.Unit)
}

func (s *Supervisor) Running(ctx context.Context) bool {
	return systemctlActive(ctx, s.Unit)
}

// UnitStatus reports whether a unit is installed and active.
type UnitStatus struct {
	Installed bool
	Active    bool
}

// Status inspects the Patroni and agent units.
func Status(ctx context.Context) (patroni, agent UnitStatus) {
	patroni = UnitStatus{
		Installed: systemctlEnabled(ctx, PatroniUnit),
		Active:    systemctlActive(ctx, PatroniUnit),
	}
	agent = UnitStatus{
		Installed: systemctlEnabled(ctx, AgentUnit),
		Active:    systemctlActive(ctx, AgentUnit),
	}
	return patroni, agent
}

// InstallConfig parameterizes unit rendering.
type InstallConfig struct {
	PatroniBin  string // path to the patroni executable
	ConfigFile  string // rendered patroni.yml path
	AgentBin    string // path to the pgherd executable
	AgentConfig string // agent configuration file path
	LogPath     string // agent log destination
}

// Install writes both units and enables the agent. The Patroni unit stays
// stopped until the agent's first convergence starts it.
func Install(ctx context.Context, cfg InstallConfig) error {
	patroniContent := fmt.Sprintf(`[Unit]
Description=pgherd managed patroni
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s %s
ExecReload=/bin/kill -s HUP $MAINPID
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`, cfg.PatroniBin, cfg.ConfigFile)

	agentContent := fmt.Sprintf(`[Unit]
Description=pgherd agent
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s agent run --config %s
Restart=always
RestartSec=5
StandardOutput=append:%s
StandardError=append:%s

[Install]
WantedBy=multi-user.target
`, cfg.AgentBin, cfg.AgentConfig, cfg.LogPath, cfg.LogPath)

	if err := os.WriteFile(filepath.Join(unitDir, PatroniUnit), []byte(patroniContent), 0o644); err != nil {
		return fmt.Errorf("write patroni unit: %w", err)
	}
	if err := os.WriteFile(filepath.Join(unitDir, AgentUnit), []byte(agentContent), 0o644); err != nil {
		return fmt.Errorf("write agent unit: %w", err)
	}

	if err := systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	if err := systemctl(ctx, "enable", "--now", AgentUnit); err != nil {
		return fmt.Errorf("enable agent: %w", err)
	}
	return nil
}

// Uninstall disables and removes both units. Best effort: a unit that is
// already gone is not an error.
func Uninstall(ctx context.Context) error {
	_ = systemctl(ctx, "disable", "--now", AgentUnit)
	_ = systemctl(ctx, "disable", "--now", PatroniUnit)

	os.Remove(filepath.Join(unitDir, AgentUnit))
	os.Remove(filepath.Join(unitDir, PatroniUnit))

	_ = systemctl(ctx, "daemon-reload")
	return nil
}

// ResolveBinary finds name next to the current executable or on PATH.
func ResolveBinary(name string) (string, error) {
	if exePath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exePath), name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%s not found in PATH or next to executable", name)
}

func systemctl(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, "systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}

func systemctlActive(ctx context.Context, unit string) bool {
	return exec.CommandContext(ctx, "systemctl", "is-active", "--quiet", unit).Run() == nil
}

func systemctlEnabled(ctx context.Context, unit string) bool {
	return exec.CommandContext(ctx, "systemctl", "is-enabled", "--quiet", unit).Run() == nil
}
