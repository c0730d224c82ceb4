//go:build !unix

package process

import (
	"context"
	"fmt"
)

// Supervisor is unsupported off unix; pid file signaling needs SIGHUP.
type Supervisor struct {
	PidFile  string
	StartCmd []string
}

func (s *Supervisor) Start(context.Context) error {
	return fmt.Errorf("pid file supervision is only supported on unix")
}

func (s *Supervisor) Reload(context.Context) error {
	return fmt.Errorf("pid file supervision is only supported on unix")
}

func (s *Supervisor) Running(context.Context) bool { return false }
