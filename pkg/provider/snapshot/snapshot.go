// Package snapshot implements an offline [topology.Provider] backed by a
// recorded document.
//
// A snapshot is written by [Capture] (the `vpcmap snapshot` command) and read
// back with [Load]. Both YAML and JSON are accepted:
//
//	accounts:
//	  - name: team_a
//	    id: "111111111111"
//	    regions:
//	      - region: us-east-1
//	        networks:
//	          - id: vpc-1
//	            cidr_block: 10.0.0.0/16
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

// Supported document formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Document is a recorded set of listings.
type Document struct {
	CapturedAt time.Time    `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
	Accounts   []AccountDoc `json:"accounts" yaml:"accounts"`
}

// AccountDoc holds the regions recorded for one account.
type AccountDoc struct {
	Name    string      `json:"name" yaml:"name"`
	ID      string      `json:"id" yaml:"id"`
	Regions []RegionDoc `json:"regions" yaml:"regions"`
}

// RegionDoc holds the networks of one region.
type RegionDoc struct {
	Region   string             `json:"region" yaml:"region"`
	Networks []topology.Network `json:"networks" yaml:"networks"`
}

// FormatFromPath returns the document format implied by a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "unknown snapshot extension %q (want .yaml, .yml or .json)", filepath.Ext(path))
}

// Load reads a snapshot file, choosing the format from its extension.
func Load(path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Document{}, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Document{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "snapshot %s not found", path)
	}
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Decode(f, format)
}

// Decode reads a document in the given format.
func Decode(r io.Reader, format string) (Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&doc)
	default:
		return Document{}, errs.New(errs.ErrCodeInvalidFormat, "unknown snapshot format %q", format)
	}
	if err != nil && err != io.EOF {
		return Document{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode %s snapshot", format)
	}
	return doc, nil
}

// Encode writes doc in the given format.
func Encode(w io.Writer, format string, doc Document) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	return errs.New(errs.ErrCodeInvalidFormat, "unknown snapshot format %q", format)
}

// Save writes doc to path, choosing the format from its extension.
func Save(path string, doc Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, format, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Capture records every account × region listing of p into a document.
func Capture(ctx context.Context, p topology.Provider, accounts []topology.AccountScope, regions []string) (Document, error) {
	doc := Document{CapturedAt: time.Now().UTC()}
	for _, acc := range accounts {
		ad := AccountDoc{Name: acc.Name, ID: acc.ID}
		for _, region := range regions {
			nets, err := p.ListNetworks(ctx, topology.RegionScope{Account: acc, Region: region})
			if err != nil {
				return Document{}, errs.ProviderFailure(err, acc.Name, acc.ID, region)
			}
			ad.Regions = append(ad.Regions, RegionDoc{Region: region, Networks: nets})
		}
		doc.Accounts = append(doc.Accounts, ad)
	}
	return doc, nil
}

// =============================================================================
// Provider
// =============================================================================

// Provider serves listings from a [Document].
type Provider struct {
	doc      Document
	networks map[string][]topology.Network
	peerings map[string]topology.Peering
}

// New indexes doc for lookups.
func New(doc Document) *Provider {
	p := &Provider{
		doc:      doc,
		networks: make(map[string][]topology.Network),
		peerings: make(map[string]topology.Peering),
	}
	for _, acc := range doc.Accounts {
		for _, rd := range acc.Regions {
			key := acc.ID + "/" + rd.Region
			p.networks[key] = append(p.networks[key], rd.Networks...)
			for _, n := range rd.Networks {
				for _, pcx := range n.RequestedPeerings {
					p.peerings[pcx.ID] = pcx
				}
				for _, pcx := range n.AcceptedPeerings {
					p.peerings[pcx.ID] = pcx
				}
			}
		}
	}
	return p
}

// Accounts returns the recorded accounts in document order.
func (p *Provider) Accounts() []topology.AccountScope {
	out := make([]topology.AccountScope, 0, len(p.doc.Accounts))
	for _, acc := range p.doc.Accounts {
		out = append(out, topology.AccountScope{Name: acc.Name, ID: acc.ID})
	}
	return out
}

// Regions returns every recorded region name, first occurrence order.
func (p *Provider) Regions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, acc := range p.doc.Accounts {
		for _, rd := range acc.Regions {
			if !seen[rd.Region] {
				seen[rd.Region] = true
				out = append(out, rd.Region)
			}
		}
	}
	return out
}

// ListNetworks returns the recorded networks. Scopes that were not recorded
// have no networks.
func (p *Provider) ListNetworks(ctx context.Context, scope topology.RegionScope) ([]topology.Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.networks[scope.Account.ID+"/"+scope.Region], nil
}

// PeeringConnection returns a connection recorded in any network's peering
// lists.
func (p *Provider) PeeringConnection(ctx context.Context, _ topology.RegionScope, id string) (topology.Peering, error) {
	if pcx, ok := p.peerings[id]; ok {
		return pcx, nil
	}
	return topology.Peering{}, errs.New(errs.ErrCodeNotFound, "peering connection %s not in snapshot", id)
}

var _ topology.Provider = (*Provider)(nil)

// String describes the snapshot for log lines.
func (p *Provider) String() string {
	return fmt.Sprintf("snapshot(%d accounts)", len(p.doc.Accounts))
}
