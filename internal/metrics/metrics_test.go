package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/vpcmap/pkg/observability"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestBuildHooks(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.OnBuildStart(ctx, 4)
	m.OnProviderCall(ctx, "team-a", "us-east-1", 20*time.Millisecond, nil)
	m.OnProviderCall(ctx, "team-a", "eu-west-1", time.Millisecond, errors.New("throttled"))
	m.OnBuildComplete(ctx, 12, 9, 1, time.Second, nil)
	m.OnRenderComplete(ctx, "svg", 2048, time.Millisecond, nil)

	body := scrape(t, m)
	for _, want := range []string{
		"vpcmap_build_scopes 4",
		`vpcmap_provider_calls_total{account="team-a",region="us-east-1",result="ok"} 1`,
		`vpcmap_provider_calls_total{account="team-a",region="eu-west-1",result="error"} 1`,
		`vpcmap_builds_total{result="ok"} 1`,
		"vpcmap_model_nodes 12",
		"vpcmap_model_edges 9",
		"vpcmap_model_dangling_peerings 1",
		`vpcmap_render_bytes_total{format="svg"} 2048`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestFailedBuildKeepsModelGauges(t *testing.T) {
	m := New()
	ctx := context.Background()
	m.OnBuildComplete(ctx, 5, 3, 0, time.Second, nil)
	m.OnBuildComplete(ctx, 0, 0, 0, time.Second, errors.New("boom"))

	body := scrape(t, m)
	if !strings.Contains(body, "vpcmap_model_nodes 5") {
		t.Error("failed build should not reset model gauges")
	}
	if !strings.Contains(body, `vpcmap_builds_total{result="error"} 1`) {
		t.Error("failed build should be counted")
	}
}

func TestCacheHooks(t *testing.T) {
	m := New()
	ctx := context.Background()
	m.OnCacheMiss(ctx, "networks")
	m.OnCacheSet(ctx, "networks", 100)
	m.OnCacheHit(ctx, "networks")
	m.OnCacheHit(ctx, "networks")

	body := scrape(t, m)
	for _, want := range []string{
		`vpcmap_cache_operations_total{key_type="networks",op="hit"} 2`,
		`vpcmap_cache_operations_total{key_type="networks",op="miss"} 1`,
		`vpcmap_cache_written_bytes_total{key_type="networks"} 100`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestInstall(t *testing.T) {
	defer observability.Reset()
	m := New()
	m.Install()

	observability.Cache().OnCacheHit(context.Background(), "artifact")
	if !strings.Contains(scrape(t, m), `key_type="artifact",op="hit"} 1`) {
		t.Error("installed hooks should receive global events")
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.OnBuildStart(context.Background(), 2)

	path := filepath.Join(t.TempDir(), "vpcmap.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "vpcmap_build_scopes 2") {
		t.Error("textfile missing build_scopes")
	}
}
