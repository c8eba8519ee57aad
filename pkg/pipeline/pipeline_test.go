package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vpcmap/pkg/cache"
	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/provider/snapshot"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

var testAccounts = []topology.AccountScope{{Name: "team_a", ID: "111111111111"}}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode errs.Code
	}{
		{"Valid", Options{Accounts: testAccounts, Regions: []string{"us-east-1"}}, ""},
		{"NoAccounts", Options{Regions: []string{"us-east-1"}}, errs.ErrCodeInvalidInput},
		{"NoRegions", Options{Accounts: testAccounts}, errs.ErrCodeInvalidInput},
		{"BadRegion", Options{Accounts: testAccounts, Regions: []string{"mars-1"}}, errs.ErrCodeInvalidRegion},
		{"BadFormat", Options{Accounts: testAccounts, Regions: []string{"us-east-1"}, Formats: []string{"gif"}}, errs.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateAndSetDefaults() error = %v", err)
				}
				return
			}
			if !errs.Is(err, tt.wantCode) {
				t.Errorf("ValidateAndSetDefaults() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Accounts: testAccounts, Regions: []string{"us-east-1"}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(opts.Formats, []string{DefaultFormat}) {
		t.Errorf("Formats = %v, want [%s]", opts.Formats, DefaultFormat)
	}
	if opts.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", opts.Concurrency, DefaultConcurrency)
	}

	// Idempotent
	opts.Formats = []string{"json"}
	if err := opts.ValidateAndSetDefaults(); err != nil || opts.Formats[0] != "json" {
		t.Errorf("second call changed options: %v, %v", opts.Formats, err)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		terms  []string
		format string
		want   string
	}{
		{[]string{"prod"}, "svg", "VPC_prod.svg"},
		{[]string{"prod", "dev"}, "json", "VPC_prod_dev.json"},
		{[]string{"prod"}, "dot", "VPC_prod.gv"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.terms, tt.format); got != tt.want {
			t.Errorf("OutputName(%v, %q) = %q, want %q", tt.terms, tt.format, got, tt.want)
		}
	}
}

func fixtureRunner(t *testing.T, c cache.Cache) (*Runner, []topology.AccountScope, []string) {
	t.Helper()
	doc, err := snapshot.Load(filepath.Join("..", "provider", "snapshot", "testdata", "peered.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	p := snapshot.New(doc)
	return NewRunner(p, c, nil, log.New(io.Discard)), p.Accounts(), p.Regions()
}

func TestExecute(t *testing.T) {
	r, accounts, regions := fixtureRunner(t, nil)

	res, err := r.Execute(context.Background(), Options{
		Accounts: accounts,
		Regions:  regions,
		Formats:  []string{"dot", "json"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.RunID.String() == "" || res.ModelHash == "" {
		t.Error("RunID and ModelHash should be set")
	}
	if res.Stats.NodeCount != res.Model.NodeCount() || res.Stats.EdgeCount != 4 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.Stats.DanglingPeerings != 0 || res.Stats.PeeringEdges != 1 {
		t.Errorf("DanglingPeerings = %d, PeeringEdges = %d, want 0 and 1", res.Stats.DanglingPeerings, res.Stats.PeeringEdges)
	}
	if !strings.Contains(string(res.Artifacts["dot"]), `"requester:pcx-1" -> "accepter:pcx-1" [dir=both]`) {
		t.Errorf("dot artifact missing peering edge:\n%s", res.Artifacts["dot"])
	}
	if len(res.Artifacts["json"]) == 0 {
		t.Error("json artifact missing")
	}
}

func TestExecuteDanglingPeering(t *testing.T) {
	r, accounts, regions := fixtureRunner(t, nil)
	res, err := r.Execute(context.Background(), Options{
		Accounts: accounts[:1],
		Regions:  regions,
		Formats:  []string{"dot"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.DanglingPeerings != 1 || res.Stats.PeeringEdges != 0 {
		t.Errorf("DanglingPeerings = %d, PeeringEdges = %d, want 1 and 0", res.Stats.DanglingPeerings, res.Stats.PeeringEdges)
	}
}

func TestExecuteArtifactCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r, accounts, regions := fixtureRunner(t, fc)
	opts := Options{Accounts: accounts, Regions: regions, Formats: []string{"dot", "yaml"}}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.RenderHit {
		t.Error("first run should miss")
	}
	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.RenderHit {
		t.Error("second run should hit the artifact cache")
	}
	if first.ModelHash != second.ModelHash {
		t.Error("model hash should be stable across runs")
	}
	if string(first.Artifacts["dot"]) != string(second.Artifacts["dot"]) {
		t.Error("cached artifact differs")
	}

	opts.Refresh = true
	third, _ := r.Execute(context.Background(), opts)
	if third.CacheInfo.RenderHit {
		t.Error("refresh should bypass the artifact cache")
	}
}

func TestBuildOnly(t *testing.T) {
	r, accounts, regions := fixtureRunner(t, nil)
	m, err := r.Build(context.Background(), Options{Accounts: accounts, Regions: regions})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Error(err)
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteArtifacts(dir, []string{"prod"}, map[string][]byte{
		"json": []byte("{}"),
		"dot":  []byte("digraph G {}"),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "VPC_prod.gv"), filepath.Join(dir, "VPC_prod.json")}
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	data, err := os.ReadFile(want[0])
	if err != nil || string(data) != "digraph G {}" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
}
