package patroni

import (
	"fmt"
	"net/netip"

	"gopkg.in/yaml.v3"
)

// Credentials carries the cluster-wide authentication material. The values
// are opaque: synthesis copies them verbatim into the document and never logs
// them.
type Credentials struct {
	ReplicationUsername string
	ReplicationPassword string
	SuperuserUsername   string
	SuperuserPassword   string
}

// Validate reports the first unset credential field.
func (c Credentials) Validate() error {
	switch {
	case c.ReplicationUsername == "":
		return &CredentialError{Field: "replication username"}
	case c.ReplicationPassword == "":
		return &CredentialError{Field: "replication password"}
	case c.SuperuserUsername == "":
		return &CredentialError{Field: "superuser username"}
	case c.SuperuserPassword == "":
		return &CredentialError{Field: "superuser password"}
	}
	return nil
}

// The YAML document consumed by the Patroni supervisor. Field order follows
// the document sections, not Go conventions.
type document struct {
	Scope      string          `yaml:"scope"`
	Namespace  string          `yaml:"namespace"`
	Name       string          `yaml:"name"`
	Restapi    listenerSection `yaml:"restapi"`
	Raft       raftSection     `yaml:"raft"`
	Bootstrap  bootstrapBlock  `yaml:"bootstrap"`
	Postgresql postgresBlock   `yaml:"postgresql"`
}

type listenerSection struct {
	Listen         string `yaml:"listen"`
	ConnectAddress string `yaml:"connect_address"`
}

type raftSection struct {
	DataDir      string   `yaml:"data_dir"`
	SelfAddr     string   `yaml:"self_addr"`
	PartnerAddrs []string `yaml:"partner_addrs,omitempty"`
}

type bootstrapBlock struct {
	DCS    dcsSection `yaml:"dcs"`
	Initdb []any      `yaml:"initdb"`
	PgHBA  []string   `yaml:"pg_hba"`
}

type dcsSection struct {
	TTL                  int         `yaml:"ttl"`
	LoopWait             int         `yaml:"loop_wait"`
	RetryTimeout         int         `yaml:"retry_timeout"`
	MaximumLagOnFailover int         `yaml:"maximum_lag_on_failover"`
	Postgresql           dcsPostgres `yaml:"postgresql"`
}

type dcsPostgres struct {
	UsePgRewind bool `yaml:"use_pg_rewind"`
}

type postgresBlock struct {
	Listen         string      `yaml:"listen"`
	ConnectAddress string      `yaml:"connect_address"`
	DataDir        string      `yaml:"data_dir"`
	BinDir         string      `yaml:"bin_dir"`
	PgPass         string      `yaml:"pgpass"`
	PgHBA          []string    `yaml:"pg_hba"`
	Authentication authSection `yaml:"authentication"`
}

type authSection struct {
	Replication userAuth `yaml:"replication"`
	Superuser   userAuth `yaml:"superuser"`
}

type userAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Synthesize renders the complete node configuration document. It is a pure
// function of its inputs: identical inputs produce byte-identical output.
//
// cfg must already be normalized. peers is the node's view of the rest of
// the cluster; it must not contain the node's own address. An empty peer set
// is the single-node bootstrap case and omits partner_addrs entirely.
func Synthesize(cfg Config, peers []netip.Addr, creds Credentials) ([]byte, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	peers = normalizePeers(peers)
	self := cfg.SelfIP.Unmap()
	for _, p := range peers {
		if p == self {
			return nil, &TopologyError{Addr: self}
		}
	}

	var partners []string
	for _, p := range peers {
		partners = append(partners, netip.AddrPortFrom(p, RaftPort).String())
	}
	hba := accessRules(creds.ReplicationUsername, peers)

	doc := document{
		Scope:     cfg.Scope,
		Namespace: cfg.Namespace,
		Name:      cfg.MemberName,
		Restapi: listenerSection{
			Listen:         cfg.APIAddr(),
			ConnectAddress: cfg.APIAddr(),
		},
		Raft: raftSection{
			DataDir:      cfg.RaftDir,
			SelfAddr:     cfg.RaftAddr(),
			PartnerAddrs: partners,
		},
		Bootstrap: bootstrapBlock{
			DCS: dcsSection{
				TTL:                  dcsTTL,
				LoopWait:             dcsLoopWait,
				RetryTimeout:         dcsRetryTimeout,
				MaximumLagOnFailover: dcsMaximumLagOnFailover,
				Postgresql:           dcsPostgres{UsePgRewind: true},
			},
			Initdb: []any{
				map[string]string{"encoding": "UTF8"},
				"data-checksums",
			},
			PgHBA: hba,
		},
		Postgresql: postgresBlock{
			Listen:         cfg.PostgresAddr(),
			ConnectAddress: cfg.PostgresAddr(),
			DataDir:        cfg.PostgresDataDir,
			BinDir:         cfg.BinDir,
			PgPass:         cfg.PgPassPath,
			PgHBA:          hba,
			Authentication: authSection{
				Replication: userAuth{
					Username: creds.ReplicationUsername,
					Password: creds.ReplicationPassword,
				},
				Superuser: userAuth{
					Username: creds.SuperuserUsername,
					Password: creds.SuperuserPassword,
				},
			},
		},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal patroni config: %w", err)
	}
	return out, nil
}

// accessRules builds the host-based access rules in their required order:
// loopback replication first, the catch-all second, then one replication
// rule per peer. A peer without its rule would be refused replication.
func accessRules(replicationUser string, peers []netip.Addr) []string {
	rules := make([]string, 0, len(peers)+2)
	rules = append(rules,
		fmt.Sprintf("host replication %s 127.0.0.1/32 md5", replicationUser),
		"host all all 0.0.0.0/0 md5",
	)
	for _, p := range peers {
		rules = append(rules, fmt.Sprintf("host replication %s %s/32 md5", replicationUser, p))
	}
	return rules
}

// SynthesizePostgresConf renders the conf.d override loaded alongside the
// main document. Synchronous commit is only enabled when the deployment
// plans more than one node; a lone primary would otherwise block every
// commit waiting for a standby that does not exist.
func SynthesizePostgresConf(cfg Config) []byte {
	synchronousCommit := "off"
	if cfg.PlannedUnits > 1 {
		synchronousCommit = "on"
	}
	return fmt.Appendf(nil, `listen_addresses = '*'
synchronous_commit = %s
synchronous_standby_names = '*'
`, synchronousCommit)
}
