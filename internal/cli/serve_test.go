package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vpcmap/internal/metrics"
	"github.com/matzehuels/vpcmap/pkg/pipeline"
	"github.com/matzehuels/vpcmap/pkg/provider/snapshot"
	"github.com/matzehuels/vpcmap/pkg/render"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

type failingProvider struct{}

func (failingProvider) ListNetworks(context.Context, topology.RegionScope) ([]topology.Network, error) {
	return nil, errors.New("throttled")
}

func (failingProvider) PeeringConnection(context.Context, topology.RegionScope, string) (topology.Peering, error) {
	return topology.Peering{}, errors.New("throttled")
}

func newTestServer(t *testing.T) (*server, *httptest.Server) {
	t.Helper()
	doc, err := snapshot.Load(fixture)
	if err != nil {
		t.Fatal(err)
	}
	sp := snapshot.New(doc)
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(sp, nil, nil, logger)
	opts := pipeline.Options{
		Accounts: sp.Accounts(),
		Regions:  []string{"us-east-1"},
		Formats:  []string{render.FormatDOT, render.FormatJSON},
	}
	srv := newServer(runner, opts, logger, metrics.New().Handler())
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestServeBeforeBuild(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/healthz status = %d, want 503", resp.StatusCode)
	}
	if !strings.Contains(body, `"unavailable"`) {
		t.Errorf("/healthz body = %s", body)
	}
	if resp, _ := get(t, ts.URL+"/graph.json"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/graph.json status = %d, want 503", resp.StatusCode)
	}
}

func TestServeGraph(t *testing.T) {
	srv, ts := newTestServer(t)
	if err := srv.rebuild(context.Background(), false); err != nil {
		t.Fatalf("rebuild error = %v", err)
	}

	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz status = %d", resp.StatusCode)
	}
	var health healthResponse
	if err := json.Unmarshal([]byte(body), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.Nodes == 0 || health.Edges == 0 || health.RunID == "" {
		t.Errorf("health = %+v", health)
	}

	resp, body = get(t, ts.URL+"/graph.json")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("/graph.json = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(body, "accepter:pcx-1") {
		t.Error("/graph.json should contain the peering endpoint")
	}
	if resp.Header.Get("X-Run-Id") != health.RunID {
		t.Error("X-Run-Id should match the health run id")
	}

	if _, body := get(t, ts.URL+"/graph.dot"); !strings.HasPrefix(body, "digraph G") {
		t.Errorf("/graph.dot body = %.40q", body)
	}
	if resp, _ := get(t, ts.URL+"/graph.png"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("/graph.png status = %d, want 404 for unserved format", resp.StatusCode)
	}
}

func TestServeRefresh(t *testing.T) {
	srv, ts := newTestServer(t)
	if err := srv.rebuild(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	first, _, _ := srv.current()

	resp, err := http.Post(ts.URL+"/refresh", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/refresh status = %d", resp.StatusCode)
	}
	second, _, _ := srv.current()
	if second.RunID == first.RunID {
		t.Error("refresh should produce a new run")
	}

	if resp, _ := get(t, ts.URL+"/refresh"); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /refresh status = %d, want 405", resp.StatusCode)
	}
}

func TestServeFailedRefreshKeepsResult(t *testing.T) {
	srv, ts := newTestServer(t)
	if err := srv.rebuild(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	srv.runner.Provider = failingProvider{}

	resp, err := http.Post(ts.URL+"/refresh", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("/refresh status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(string(body), "team_a") {
		t.Errorf("/refresh error should name the account: %s", body)
	}

	resp, hbody := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(hbody, `"degraded"`) {
		t.Errorf("/healthz after failed refresh = %d %s", resp.StatusCode, hbody)
	}
	if resp, _ := get(t, ts.URL+"/graph.json"); resp.StatusCode != http.StatusOK {
		t.Error("previous graph should still be served")
	}
}

func TestServeBusy(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.building.Lock()
	defer srv.building.Unlock()
	if err := srv.rebuild(context.Background(), false); !errors.Is(err, errBusy) {
		t.Errorf("rebuild error = %v, want errBusy", err)
	}
}

func TestServeMetrics(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "go_goroutines") {
		t.Errorf("/metrics = %d", resp.StatusCode)
	}
}
