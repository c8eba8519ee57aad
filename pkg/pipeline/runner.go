package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/vpcmap/pkg/cache"
	"github.com/matzehuels/vpcmap/pkg/render"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the server use it to avoid duplicating build logic.
//
// The Runner is stateless except for the provider, cache and logger - it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Provider topology.Provider
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
}

// NewRunner creates a runner reading from p.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(p topology.Provider, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Provider: p,
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
	}
}

// Execute runs the complete build → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.logger(opts)

	result := &Result{
		RunID:     uuid.New(),
		Artifacts: make(map[string][]byte),
	}
	logger = logger.With("run", result.RunID.String()[:8])

	// Stage 1: Build
	buildStart := time.Now()
	m, rec, err := r.build(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	dangling := len(rec.Dangling())
	result.Model = m
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = m.NodeCount()
	result.Stats.EdgeCount = m.EdgeCount()
	result.Stats.DanglingPeerings = dangling
	result.Stats.PeeringEdges = rec.Edges()

	logger.Info("built topology",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"peerings", result.Stats.PeeringEdges,
		"dangling_peerings", dangling,
		"duration", result.Stats.BuildTime)

	// Stage 2: Render
	renderStart := time.Now()
	hash, artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, m, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.ModelHash = hash
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Build assembles the model without rendering.
func (r *Runner) Build(ctx context.Context, opts Options) (*topology.Model, error) {
	if err := opts.ValidateForBuild(); err != nil {
		return nil, err
	}
	m, _, err := r.build(ctx, opts, r.logger(opts))
	return m, err
}

func (r *Runner) build(ctx context.Context, opts Options, logger *log.Logger) (*topology.Model, *topology.Reconciler, error) {
	rec := topology.NewReconciler()
	b := topology.NewBuilder(r.Provider,
		topology.WithLogger(logger),
		topology.WithConcurrency(opts.Concurrency),
		topology.WithStrictTargets(opts.StrictTargets),
		topology.WithReconciler(rec),
	)
	m, err := b.Build(ctx, opts.Accounts, opts.Regions)
	if err != nil {
		return nil, nil, err
	}
	return m, rec, nil
}

// RenderWithCacheInfo renders every requested format of m, serving from the
// artifact cache when all formats are present. It returns the model hash
// used for the cache keys.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, m *topology.Model, opts Options) (string, map[string][]byte, bool, error) {
	var buf bytes.Buffer
	if err := render.WriteJSON(&buf, m); err != nil {
		return "", nil, false, fmt.Errorf("serialize model for cache key: %w", err)
	}
	hash := cache.Hash(buf.Bytes())

	// Try to get all formats from cache
	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return hash, artifacts, true, nil
		}
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := render.Render(ctx, m, format, opts.RenderOptions())
		if err != nil {
			return "", nil, false, err
		}
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
	}
	return hash, artifacts, false, nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
