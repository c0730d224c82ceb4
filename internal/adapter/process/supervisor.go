//go:build unix

// Package process supervises a Patroni started outside any service manager,
// addressed through its pid file.
package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"pgherd/internal/converge"

	"golang.org/x/sys/unix"
)

var _ converge.Supervisor = (*Supervisor)(nil)

// Supervisor signals an already running Patroni via its pid file and starts
// one when none is running. StartCmd is the command line used for cold
// starts, typically ["patroni", "/etc/pgherd/patroni.yml"].
type Supervisor struct {
	PidFile  string
	StartCmd []string
}

func (s *Supervisor) Start(ctx context.Context) error {
	if len(s.StartCmd) == 0 {
		return fmt.Errorf("no start command configured for pid file supervisor")
	}
	cmd := exec.CommandContext(ctx, s.StartCmd[0], s.StartCmd[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.StartCmd[0], err)
	}
	// The child owns its lifetime; the pid file is written by Patroni.
	go func() { _ = cmd.Wait() }()
	return nil
}

func (s *Supervisor) Reload(context.Context) error {
	pid, err := s.readPid()
	if err != nil {
		return err
	}
	if err := unix.Kill(pid, unix.SIGHUP); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

func (s *Supervisor) Running(context.Context) bool {
	pid, err := s.readPid()
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return unix.Kill(pid, 0) == nil
}

func (s *Supervisor) readPid() (int, error) {
	data, err := os.ReadFile(s.PidFile)
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s holds no valid pid: %q", s.PidFile, strings.TrimSpace(string(data)))
	}
	return pid, nil
}
