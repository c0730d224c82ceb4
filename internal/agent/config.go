// Package agent loads node configuration and assembles the convergence
// stack: peer source, supervisor, state store and health probes.
package agent

import (
	"fmt"
	"net/netip"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pgherd/internal/patroni"
)

// DefaultConfigPath is where agent install places the node configuration.
const DefaultConfigPath = "/etc/pgherd/config.yaml"

// PeersConfig selects the peer set resolver.
type PeersConfig struct {
	Source string   `yaml:"source"`         // "file" or "static"
	File   string   `yaml:"file,omitempty"` // membership file path
	Static []string `yaml:"static,omitempty"`
}

// CredentialsConfig points at secret material. Passwords are read from
// files; environment variables are the fallback for container deployments.
// The values themselves are opaque to the agent and never logged.
type CredentialsConfig struct {
	ReplicationUser         string `yaml:"replication-user,omitempty"`
	ReplicationPasswordFile string `yaml:"replication-password-file,omitempty"`
	SuperuserUser           string `yaml:"superuser-user,omitempty"`
	SuperuserPasswordFile   string `yaml:"superuser-password-file,omitempty"`
}

// Config is the on-disk agent configuration.
type Config struct {
	Scope           string `yaml:"scope"`
	MemberName      string `yaml:"member-name"`
	SelfIP          string `yaml:"self-ip,omitempty"`
	Interface       string `yaml:"interface,omitempty"` // used when self-ip is empty
	PlannedUnits    int    `yaml:"planned-units,omitempty"`
	PostgresVersion string `yaml:"postgres-version,omitempty"`
	DataRoot        string `yaml:"data-root,omitempty"`

	Peers       PeersConfig       `yaml:"peers"`
	Credentials CredentialsConfig `yaml:"credentials"`

	Supervisor      string   `yaml:"supervisor,omitempty"` // "systemd", "docker" or "process"
	DockerContainer string   `yaml:"docker-container,omitempty"`
	PidFile         string   `yaml:"pidfile,omitempty"`
	PatroniStartCmd []string `yaml:"patroni-start-cmd,omitempty"`
}

// LoadConfig reads and parses the agent configuration file.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read agent config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse agent config: %w", err)
	}
	return cfg, nil
}

// PatroniConfig converts the agent configuration into the synthesizer's
// node identity. resolveAddr supplies the address when only an interface
// name is configured.
func (c Config) PatroniConfig(resolveAddr func(iface string) (netip.Addr, error)) (patroni.Config, error) {
	out := patroni.Config{
		Scope:           c.Scope,
		MemberName:      c.MemberName,
		PlannedUnits:    c.PlannedUnits,
		PostgresVersion: c.PostgresVersion,
		DataRoot:        c.DataRoot,
	}

	switch {
	case c.SelfIP != "":
		ip, err := netip.ParseAddr(c.SelfIP)
		if err != nil {
			return patroni.Config{}, fmt.Errorf("parse self-ip %q: %w", c.SelfIP, err)
		}
		out.SelfIP = ip.Unmap()
	case c.Interface != "":
		ip, err := resolveAddr(c.Interface)
		if err != nil {
			return patroni.Config{}, err
		}
		out.SelfIP = ip
	default:
		return patroni.Config{}, fmt.Errorf("agent config needs self-ip or interface")
	}

	return patroni.NormalizeConfig(out)
}

// environment fallbacks for credential material
const (
	envReplicationPassword = "PGHERD_REPLICATION_PASSWORD"
	envSuperuserPassword   = "PGHERD_SUPERUSER_PASSWORD"

	defaultReplicationUser = "replicator"
	defaultSuperuserUser   = "postgres"
)

// ResolveCredentials reads secret material from the configured files, then
// the environment. Presence is validated by the synthesizer; this only
// gathers the values.
func (c Config) ResolveCredentials() (patroni.Credentials, error) {
	creds := patroni.Credentials{
		ReplicationUsername: c.Credentials.ReplicationUser,
		SuperuserUsername:   c.Credentials.SuperuserUser,
	}
	if creds.ReplicationUsername == "" {
		creds.ReplicationUsername = defaultReplicationUser
	}
	if creds.SuperuserUsername == "" {
		creds.SuperuserUsername = defaultSuperuserUser
	}

	var err error
	if creds.ReplicationPassword, err = readSecret(c.Credentials.ReplicationPasswordFile, envReplicationPassword); err != nil {
		return patroni.Credentials{}, err
	}
	if creds.SuperuserPassword, err = readSecret(c.Credentials.SuperuserPasswordFile, envSuperuserPassword); err != nil {
		return patroni.Credentials{}, err
	}
	return creds, nil
}

func readSecret(path, envKey string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return os.Getenv(envKey), nil
}
