package patroni

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func clusterHandler(members string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"members":[` + members + `]}`))
	}
}

func TestClientClusterMembers(t *testing.T) {
	srv := httptest.NewServer(clusterHandler(
		`{"name":"node-a","role":"leader","state":"running","host":"10.0.0.1"},
		 {"name":"node-b","role":"replica","state":"running","host":"10.0.0.2"}`))
	defer srv.Close()

	c := NewClientURL(srv.URL)
	members, err := c.ClusterMembers(context.Background())
	if err != nil {
		t.Fatalf("cluster members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if !members[0].Leader() || members[0].Name != "node-a" {
		t.Errorf("leader mismatch: %+v", members[0])
	}
	if !members[1].Running() {
		t.Errorf("replica should be running: %+v", members[1])
	}
}

func TestClientPrimary(t *testing.T) {
	tests := []struct {
		name     string
		members  string
		wantName string
		wantOK   bool
	}{
		{
			name:     "leader present",
			members:  `{"name":"node-b","role":"leader","state":"running"},{"name":"node-a","role":"replica","state":"running"}`,
			wantName: "node-b",
			wantOK:   true,
		},
		{
			name:    "replicas only after failed switchover",
			members: `{"name":"node-a","role":"replica","state":"running"}`,
			wantOK:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(clusterHandler(tt.members))
			defer srv.Close()

			primary, ok, err := NewClientURL(srv.URL).Primary(context.Background())
			if err != nil {
				t.Fatalf("primary: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && primary.Name != tt.wantName {
				t.Errorf("primary = %q, want %q", primary.Name, tt.wantName)
			}
		})
	}
}

func TestClientAllMembersReady(t *testing.T) {
	tests := []struct {
		name    string
		members string
		want    bool
	}{
		{
			name:    "all running with a leader",
			members: `{"name":"a","role":"leader","state":"running"},{"name":"b","role":"replica","state":"running"}`,
			want:    true,
		},
		{
			name:    "member still starting",
			members: `{"name":"a","role":"leader","state":"running"},{"name":"b","role":"replica","state":"starting"}`,
			want:    false,
		},
		{
			name:    "no leader",
			members: `{"name":"a","role":"replica","state":"running"}`,
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(clusterHandler(tt.members))
			defer srv.Close()

			got, err := NewClientURL(srv.URL).AllMembersReady(context.Background())
			if err != nil {
				t.Fatalf("all members ready: %v", err)
			}
			if got != tt.want {
				t.Errorf("AllMembersReady = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClientReloadIdempotent(t *testing.T) {
	var reloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/reload" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		reloads.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClientURL(srv.URL)
	for range 2 {
		if err := c.Reload(context.Background()); err != nil {
			t.Fatalf("reload: %v", err)
		}
	}
	if reloads.Load() != 2 {
		t.Errorf("server saw %d reloads, want 2", reloads.Load())
	}
}

func TestClientMemberState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"state":"running"}`))
	}))
	defer srv.Close()

	c := NewClientURL(srv.URL)
	state, err := c.MemberState(context.Background())
	if err != nil {
		t.Fatalf("member state: %v", err)
	}
	if state != "running" || !c.Started(context.Background()) {
		t.Errorf("state = %q", state)
	}
}

func TestClientRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClientURL(srv.URL)
	if _, err := c.ClusterMembers(context.Background()); err == nil {
		t.Error("expected error from 503 cluster response")
	}
	if err := c.Reload(context.Background()); err == nil {
		t.Error("expected error from 503 reload response")
	}
}
