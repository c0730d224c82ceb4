package patroni

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"
)

const (
	// switchoverVerifyAttempts is 10: matches the DCS retry budget; a
	// switchover that has not surfaced a new leader by then has failed.
	switchoverVerifyAttempts = 10
	// switchoverVerifyBaseDelay is 2s, doubled per attempt up to the cap.
	switchoverVerifyBaseDelay = 2 * time.Second
	switchoverVerifyMaxDelay  = 30 * time.Second
)

// Member is one row of the REST API's cluster view.
type Member struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	State    string `json:"state"`
	Host     string `json:"host"`
	APIURL   string `json:"api_url"`
	Timeline int    `json:"timeline"`
	Lag      any    `json:"lag,omitempty"`
}

// Running reports whether the member's database process is up.
func (m Member) Running() bool { return m.State == "running" }

// LagBytes returns replication lag in bytes, or -1 when the API reports it
// as unknown.
func (m Member) LagBytes() int64 {
	switch v := m.Lag.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return -1
	}
}

// Leader reports whether the member currently holds the leader lock.
func (m Member) Leader() bool { return m.Role == "leader" }

// Client talks to one node's Patroni REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the REST API listening on addr.
func NewClient(addr netip.Addr) *Client {
	return &Client{
		baseURL:    "http://" + netip.AddrPortFrom(addr.Unmap(), APIPort).String(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientURL builds a client for an explicit base URL. Tests use this.
func NewClientURL(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: http.DefaultClient}
}

type clusterResponse struct {
	Members []Member `json:"members"`
}

// ClusterMembers returns the cluster view as reported by this node.
func (c *Client) ClusterMembers(ctx context.Context) ([]Member, error) {
	var out clusterResponse
	if err := c.get(ctx, "/cluster", &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// Primary returns the current leader, if the cluster has one.
func (c *Client) Primary(ctx context.Context) (Member, bool, error) {
	members, err := c.ClusterMembers(ctx)
	if err != nil {
		return Member{}, false, err
	}
	for _, m := range members {
		if m.Leader() {
			return m, true, nil
		}
	}
	return Member{}, false, nil
}

// MemberState returns this node's own state from /health.
func (c *Client) MemberState(ctx context.Context) (string, error) {
	var out struct {
		State string `json:"state"`
	}
	if err := c.get(ctx, "/health", &out); err != nil {
		return "", err
	}
	return out.State, nil
}

// Started reports whether this node's Patroni and PostgreSQL are running.
func (c *Client) Started(ctx context.Context) bool {
	state, err := c.MemberState(ctx)
	return err == nil && state == "running"
}

// AllMembersReady reports whether every member is running and one of them
// holds the leader lock. After a failed switchover the cluster may briefly
// consist of replicas only.
func (c *Client) AllMembersReady(ctx context.Context) (bool, error) {
	members, err := c.ClusterMembers(ctx)
	if err != nil {
		return false, err
	}
	hasLeader := false
	for _, m := range members {
		if !m.Running() {
			return false, nil
		}
		if m.Leader() {
			hasLeader = true
		}
	}
	return hasLeader, nil
}

// Reload asks the supervisor to re-read its configuration. Reloading a node
// that already runs the latest configuration is a no-op on the Patroni side,
// so callers may signal freely.
func (c *Client) Reload(ctx context.Context) error {
	return c.post(ctx, "/reload", nil)
}

// Switchover hands leadership away from leader and waits until the REST API
// reports a different primary, with exponential backoff between checks.
func (c *Client) Switchover(ctx context.Context, leader string) error {
	body, err := json.Marshal(map[string]string{"leader": leader})
	if err != nil {
		return fmt.Errorf("marshal switchover request: %w", err)
	}
	if err := c.post(ctx, "/switchover", body); err != nil {
		return err
	}

	delay := switchoverVerifyBaseDelay
	for range switchoverVerifyAttempts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if primary, ok, err := c.Primary(ctx); err == nil && ok && primary.Name != leader {
			return nil
		}
		delay *= 2
		if delay > switchoverVerifyMaxDelay {
			delay = switchoverVerifyMaxDelay
		}
	}
	return fmt.Errorf("switchover from %q did not produce a new leader", leader)
}

// WaitStarted polls /health until this node reports running or ctx expires.
func (c *Client) WaitStarted(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	for {
		if c.Started(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("member did not reach running state: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
