package patroni

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"strings"
)

const (
	// RaftPort is the fixed listener port for the raft DCS on every node.
	RaftPort = 2222
	// APIPort is the fixed listener port for the Patroni REST API on every node.
	APIPort = 8008
	// PostgresPort is the fixed listener port for PostgreSQL on every node.
	PostgresPort = 5432
)

// Cluster-wide operational constants. These are part of the cluster SLA and
// are never derived from input: every node of every cluster renders the same
// values.
const (
	dcsTTL                  = 30
	dcsLoopWait             = 10
	dcsRetryTimeout         = 10
	dcsMaximumLagOnFailover = 1 << 20
)

const (
	defaultDataRoot        = "/var/lib/pgherd"
	defaultPostgresVersion = "16"
)

// Config identifies one node of one cluster. Scope and Namespace are
// immutable for the lifetime of the deployment; the node fields are immutable
// for the lifetime of the node (a node with a new IP is a new node).
type Config struct {
	Scope           string
	Namespace       string
	MemberName      string
	SelfIP          netip.Addr
	PostgresVersion string
	DataRoot        string

	// PlannedUnits is the number of nodes the deployment intends to run.
	// Synchronous replication is only worth its latency with at least one
	// standby.
	PlannedUnits int

	// Derived during normalization.
	RaftDir          string
	PostgresDataDir  string
	BinDir           string
	PgPassPath       string
	ConfigFile       string
	PostgresConfDir  string
	PostgresConfFile string
}

// NormalizeConfig validates the identity fields and fills in every derived
// path. It is idempotent: normalizing an already-normalized config is a
// no-op.
func NormalizeConfig(cfg Config) (Config, error) {
	cfg.Scope = strings.TrimSpace(cfg.Scope)
	if cfg.Scope == "" {
		return cfg, &ValidationError{Field: "scope", Message: "cluster scope is required"}
	}
	cfg.MemberName = strings.TrimSpace(cfg.MemberName)
	if cfg.MemberName == "" {
		return cfg, &ValidationError{Field: "name", Message: "member name is required"}
	}
	if !cfg.SelfIP.IsValid() {
		return cfg, &ValidationError{Field: "self_ip", Message: "node address is required"}
	}
	cfg.Namespace = strings.TrimSpace(cfg.Namespace)
	if cfg.Namespace == "" {
		cfg.Namespace = "/" + cfg.Scope + "/"
	}
	if cfg.PostgresVersion == "" {
		cfg.PostgresVersion = defaultPostgresVersion
	}
	if cfg.DataRoot == "" {
		cfg.DataRoot = defaultDataRoot
	}
	if cfg.PlannedUnits < 1 {
		cfg.PlannedUnits = 1
	}

	cfg.RaftDir = filepath.Join(cfg.DataRoot, "raft")
	cfg.PostgresDataDir = filepath.Join(cfg.DataRoot, "data")
	cfg.BinDir = fmt.Sprintf("/usr/lib/postgresql/%s/bin", cfg.PostgresVersion)
	cfg.PgPassPath = filepath.Join(cfg.DataRoot, "pgpass")
	cfg.ConfigFile = filepath.Join(cfg.DataRoot, "patroni.yml")
	cfg.PostgresConfDir = filepath.Join(cfg.DataRoot, "conf.d")
	cfg.PostgresConfFile = filepath.Join(cfg.PostgresConfDir, "pgherd.conf")
	return cfg, nil
}

// RaftAddr is this node's raft listener address.
func (c Config) RaftAddr() string {
	return netip.AddrPortFrom(c.SelfIP, RaftPort).String()
}

// APIAddr is this node's Patroni REST API listener address.
func (c Config) APIAddr() string {
	return netip.AddrPortFrom(c.SelfIP, APIPort).String()
}

// PostgresAddr is this node's PostgreSQL listener address.
func (c Config) PostgresAddr() string {
	return netip.AddrPortFrom(c.SelfIP, PostgresPort).String()
}
