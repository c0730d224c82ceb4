package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"pgherd/internal/adapter/docker"
	"pgherd/internal/adapter/peersource"
	"pgherd/internal/adapter/process"
	"pgherd/internal/adapter/sqlite"
	"pgherd/internal/adapter/systemd"
	"pgherd/internal/converge"
	"pgherd/internal/health"
	"pgherd/internal/patroni"
	"pgherd/internal/platform"
)

// stateDBFile lives under the node's data root next to the raft state.
const stateDBFile = "agent.db"

// Agent is one node's assembled convergence stack.
type Agent struct {
	Driver  *converge.Driver
	Monitor *health.Monitor
	NTP     *health.NTPChecker

	store *sqlite.StateStore
}

// New builds an Agent from the on-disk configuration.
func New(cfg Config) (*Agent, error) {
	pcfg, err := cfg.PatroniConfig(platform.InterfaceAddr)
	if err != nil {
		return nil, err
	}
	creds, err := cfg.ResolveCredentials()
	if err != nil {
		return nil, err
	}

	source, err := buildPeerSource(cfg)
	if err != nil {
		return nil, err
	}
	supervisor, err := buildSupervisor(cfg)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(filepath.Join(pcfg.DataRoot, stateDBFile))
	if err != nil {
		return nil, err
	}

	clock := converge.RealClock{}
	driver := &converge.Driver{
		Config:      pcfg,
		Credentials: creds,
		Peers:       source,
		Supervisor:  supervisor,
		State:       store,
		Clock:       clock,
		OnEvent: func(eventType, message string) {
			slog.Info("convergence event", "event", eventType, "detail", message)
		},
		OnFailure: func(err error) {
			slog.Error("convergence failure", "err", err)
		},
	}

	tracker := health.NewFreshnessTracker(pcfg.MemberName, clock)
	monitor := &health.Monitor{
		Client:  patroni.NewClient(pcfg.SelfIP),
		Tracker: tracker,
	}

	return &Agent{
		Driver:  driver,
		Monitor: monitor,
		NTP:     health.NewNTPChecker(clock),
		store:   store,
	}, nil
}

// Run drives convergence and health probing until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	defer a.store.Close()

	go a.Monitor.Run(ctx)
	go a.NTP.Run(ctx)

	return a.Driver.Run(ctx)
}

func buildPeerSource(cfg Config) (converge.PeerSource, error) {
	switch cfg.Peers.Source {
	case "", "file":
		path := cfg.Peers.File
		if path == "" {
			return nil, fmt.Errorf("peers.file is required for the file source")
		}
		return &peersource.File{Path: path}, nil
	case "static":
		if len(cfg.Peers.Static) == 0 {
			return nil, fmt.Errorf("peers.static is empty")
		}
		return &peersource.Static{Peers: cfg.Peers.Static}, nil
	default:
		return nil, fmt.Errorf("unknown peer source %q", cfg.Peers.Source)
	}
}

func buildSupervisor(cfg Config) (converge.Supervisor, error) {
	switch cfg.Supervisor {
	case "", "systemd":
		return systemd.NewSupervisor(), nil
	case "docker":
		return docker.NewSupervisor(cfg.DockerContainer)
	case "process":
		if cfg.PidFile == "" {
			return nil, fmt.Errorf("pidfile is required for the process supervisor")
		}
		return &process.Supervisor{PidFile: cfg.PidFile, StartCmd: cfg.PatroniStartCmd}, nil
	default:
		return nil, fmt.Errorf("unknown supervisor %q", cfg.Supervisor)
	}
}
