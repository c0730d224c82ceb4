// Package docker supervises a containerized Patroni through the Docker
// Engine API.
package docker

import (
	"context"
	"fmt"

	"pgherd/internal/converge"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// DefaultContainer is the container name the agent drives when Patroni runs
// under Docker instead of systemd.
const DefaultContainer = "pgherd-patroni"

var _ converge.Supervisor = (*Supervisor)(nil)

// Supervisor drives one Patroni container. The container is created by the
// operator or an orchestrator; this adapter only starts it and delivers
// SIGHUP for configuration reloads. The rendered configuration reaches the
// container through a bind mount.
type Supervisor struct {
	cli  *client.Client
	name string
}

// NewSupervisor creates a Supervisor with a Docker client from the
// environment. An empty name selects DefaultContainer.
func NewSupervisor(name string) (*Supervisor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return NewSupervisorFromClient(cli, name), nil
}

// NewSupervisorFromClient wraps an existing Docker client.
func NewSupervisorFromClient(cli *client.Client, name string) *Supervisor {
	if name == "" {
		name = DefaultContainer
	}
	return &Supervisor{cli: cli, name: name}
}

func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.cli.ContainerStart(ctx, s.name, container.StartOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("container %q does not exist; create it before running the agent", s.name)
		}
		return fmt.Errorf("start container %q: %w", s.name, err)
	}
	return nil
}

func (s *Supervisor) Reload(ctx context.Context) error {
	if err := s.cli.ContainerKill(ctx, s.name, "SIGHUP"); err != nil {
		return fmt.Errorf("signal container %q: %w", s.name, err)
	}
	return nil
}

func (s *Supervisor) Running(ctx context.Context) bool {
	info, err := s.cli.ContainerInspect(ctx, s.name)
	if err != nil {
		return false
	}
	return info.State != nil && info.State.Running
}

func (s *Supervisor) Close() error {
	return s.cli.Close()
}
