package patroni

import (
	"errors"
	"net/netip"
	"testing"
)

func TestNormalizeConfigDefaults(t *testing.T) {
	cfg, err := NormalizeConfig(Config{
		Scope:      "pg1",
		MemberName: "node-a",
		SelfIP:     netip.MustParseAddr("10.0.0.1"),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if cfg.Namespace != "/pg1/" {
		t.Errorf("Namespace = %q, want /pg1/", cfg.Namespace)
	}
	if cfg.DataRoot != "/var/lib/pgherd" {
		t.Errorf("DataRoot = %q", cfg.DataRoot)
	}
	if cfg.RaftDir != "/var/lib/pgherd/raft" {
		t.Errorf("RaftDir = %q", cfg.RaftDir)
	}
	if cfg.ConfigFile != "/var/lib/pgherd/patroni.yml" {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.BinDir != "/usr/lib/postgresql/16/bin" {
		t.Errorf("BinDir = %q", cfg.BinDir)
	}
	if cfg.PlannedUnits != 1 {
		t.Errorf("PlannedUnits = %d, want 1", cfg.PlannedUnits)
	}
}

func TestNormalizeConfigRejectsMissingIdentity(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing scope", Config{MemberName: "node-a", SelfIP: netip.MustParseAddr("10.0.0.1")}},
		{"missing member name", Config{Scope: "pg1", SelfIP: netip.MustParseAddr("10.0.0.1")}},
		{"missing self address", Config{Scope: "pg1", MemberName: "node-a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeConfig(tt.cfg)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestConfigListenerAddrs(t *testing.T) {
	cfg := testConfig(t)
	if cfg.RaftAddr() != "10.0.0.1:2222" {
		t.Errorf("RaftAddr = %q", cfg.RaftAddr())
	}
	if cfg.APIAddr() != "10.0.0.1:8008" {
		t.Errorf("APIAddr = %q", cfg.APIAddr())
	}
	if cfg.PostgresAddr() != "10.0.0.1:5432" {
		t.Errorf("PostgresAddr = %q", cfg.PostgresAddr())
	}
}
