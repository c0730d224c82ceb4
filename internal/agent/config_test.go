package agent

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
scope: pg1
member-name: node-a
self-ip: 10.0.0.1
planned-units: 3
peers:
  source: file
  file: /etc/pgherd/members
credentials:
  replication-user: repl
supervisor: docker
docker-container: patroni-0
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scope != "pg1" || cfg.MemberName != "node-a" {
		t.Errorf("identity = %q/%q", cfg.Scope, cfg.MemberName)
	}
	if cfg.Peers.Source != "file" || cfg.Peers.File != "/etc/pgherd/members" {
		t.Errorf("peers = %+v", cfg.Peers)
	}
	if cfg.Supervisor != "docker" || cfg.DockerContainer != "patroni-0" {
		t.Errorf("supervisor = %q container = %q", cfg.Supervisor, cfg.DockerContainer)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestPatroniConfigFromExplicitIP(t *testing.T) {
	cfg := Config{Scope: "pg1", MemberName: "node-a", SelfIP: "10.0.0.1", PlannedUnits: 2}

	pcfg, err := cfg.PatroniConfig(nil)
	if err != nil {
		t.Fatalf("patroni config: %v", err)
	}
	if pcfg.SelfIP != netip.MustParseAddr("10.0.0.1") {
		t.Errorf("self ip = %v", pcfg.SelfIP)
	}
	if pcfg.ConfigFile == "" {
		t.Error("derived paths not filled in")
	}
}

func TestPatroniConfigFromInterface(t *testing.T) {
	cfg := Config{Scope: "pg1", MemberName: "node-a", Interface: "eth1"}

	var asked string
	pcfg, err := cfg.PatroniConfig(func(iface string) (netip.Addr, error) {
		asked = iface
		return netip.MustParseAddr("192.168.7.4"), nil
	})
	if err != nil {
		t.Fatalf("patroni config: %v", err)
	}
	if asked != "eth1" {
		t.Errorf("resolved interface %q, want eth1", asked)
	}
	if pcfg.SelfIP != netip.MustParseAddr("192.168.7.4") {
		t.Errorf("self ip = %v", pcfg.SelfIP)
	}
}

func TestPatroniConfigRequiresAddress(t *testing.T) {
	cfg := Config{Scope: "pg1", MemberName: "node-a"}
	if _, err := cfg.PatroniConfig(nil); err == nil {
		t.Fatal("expected error when neither self-ip nor interface is set")
	}
}

func TestResolveCredentialsFromFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write secret: %v", err)
		}
		return p
	}

	cfg := Config{Credentials: CredentialsConfig{
		SuperuserPasswordFile:   write("su", "su-secret\n"),
		ReplicationPasswordFile: write("repl", "repl-secret"),
	}}

	creds, err := cfg.ResolveCredentials()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.SuperuserPassword != "su-secret" {
		t.Error("superuser password not read or trailing newline kept")
	}
	if creds.ReplicationPassword != "repl-secret" {
		t.Error("replication password not resolved from file")
	}
	if creds.ReplicationUsername != "replicator" || creds.SuperuserUsername != "postgres" {
		t.Errorf("default usernames not applied: %q/%q", creds.ReplicationUsername, creds.SuperuserUsername)
	}
}

func TestResolveCredentialsFromEnv(t *testing.T) {
	t.Setenv("PGHERD_SUPERUSER_PASSWORD", "env-su")
	t.Setenv("PGHERD_REPLICATION_PASSWORD", "env-repl")

	creds, err := Config{}.ResolveCredentials()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.SuperuserPassword != "env-su" || creds.ReplicationPassword != "env-repl" {
		t.Errorf("env secrets not resolved")
	}
}

func TestBuildPeerSourceValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"file source", Config{Peers: PeersConfig{Source: "file", File: "/tmp/members"}}, false},
		{"file source without path", Config{Peers: PeersConfig{Source: "file"}}, true},
		{"static source", Config{Peers: PeersConfig{Source: "static", Static: []string{"10.0.0.2"}}}, false},
		{"static source empty", Config{Peers: PeersConfig{Source: "static"}}, true},
		{"unknown source", Config{Peers: PeersConfig{Source: "dns"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildPeerSource(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
