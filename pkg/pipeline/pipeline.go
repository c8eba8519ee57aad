// Package pipeline runs the build → render sequence shared by the CLI
// commands and the HTTP server.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Build: list every account × region through a [topology.Provider] and
//     assemble the [topology.Model]
//  2. Render: produce each requested format (dot, svg, png, pdf, json, yaml)
//
// Rendered artifacts are cached by model hash, so an unchanged topology is
// not laid out twice. Provider listings are cached separately by wrapping
// the provider (see pkg/provider/cached).
//
// # Usage
//
//	runner := pipeline.NewRunner(provider, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Accounts: accounts,
//	    Regions:  []string{"us-east-1"},
//	    Formats:  []string{"svg", "json"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/vpcmap/pkg/cache"
	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/render"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultFormat is the output format when none is requested.
	DefaultFormat = render.FormatSVG

	// DefaultConcurrency is the number of listings fetched at once.
	DefaultConcurrency = topology.DefaultConcurrency

	// DefaultOutputDir is where the CLI writes artifacts.
	DefaultOutputDir = "out"

	// OutputPrefix starts every artifact file name.
	OutputPrefix = "VPC_"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
type Options struct {
	// Build options
	Accounts      []topology.AccountScope `json:"accounts"`
	Regions       []string                `json:"regions"`
	Concurrency   int                     `json:"concurrency,omitempty"`
	StrictTargets bool                    `json:"strict_targets,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`
	RankDir  string   `json:"rank_dir,omitempty"`
	Refresh  bool     `json:"refresh,omitempty"` // skip artifact cache reads

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in logs and server responses.
	RunID uuid.UUID

	// Model is the assembled topology.
	Model *topology.Model

	// ModelHash is the content hash of the model's JSON form.
	ModelHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount        int
	EdgeCount        int
	PeeringEdges     int
	DanglingPeerings int
	BuildTime        time.Duration
	RenderTime       time.Duration
}

// CacheInfo tracks cache hits for the render stage.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if err := render.ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForBuild checks the fields the build stage needs and defaults
// the concurrency.
func (o *Options) ValidateForBuild() error {
	if len(o.Accounts) == 0 {
		return errs.New(errs.ErrCodeInvalidInput, "at least one account is required")
	}
	if len(o.Regions) == 0 {
		return errs.New(errs.ErrCodeInvalidInput, "at least one region is required")
	}
	for _, r := range o.Regions {
		if err := errs.ValidateRegion(r); err != nil {
			return err
		}
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return nil
}

// RenderOptions returns the DOT options for this run.
func (o *Options) RenderOptions() render.Options {
	return render.Options{Detailed: o.Detailed, RankDir: o.RankDir}
}

// ArtifactKeyOpts returns the cache key options for one format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:        format,
		StrictTargets: o.StrictTargets,
		Detailed:      o.Detailed,
		RankDir:       o.RankDir,
	}
}

// OutputName returns the artifact file name for a run over the given
// account search terms: "VPC_<term>_<term>.<ext>".
func OutputName(terms []string, format string) string {
	return OutputPrefix + strings.Join(terms, "_") + "." + render.Extension(format)
}
