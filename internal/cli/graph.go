package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/pipeline"
	"github.com/matzehuels/vpcmap/pkg/render"
)

// graphOpts holds the flags of the graph command.
type graphOpts struct {
	scope       scopeFlags
	formats     string
	outputDir   string
	detailed    bool
	rankDir     string
	metricsFile string
}

func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the VPC topology of the matching accounts",
		Long: `Graph lists every VPC, subnet, route table and peering connection of the
accounts whose profile names contain one of the search terms, in each of the
given regions, and writes the topology to <output-dir>/VPC_<terms>.<ext>.

Only profiles annotated as "[name] #<account-id>" in the credentials file
are considered.`,
		Example: `  vpcmap graph --accounts prod,shared --regions us-east-1,eu-west-1
  vpcmap graph -a prod -r us-east-1 --format svg,json --detailed
  vpcmap graph -a team --regions us-east-1 --snapshot snap.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), &opts)
		},
	}

	opts.scope.register(cmd, true)
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): "+strings.Join(render.ValidFormats, ", ")+" (comma-separated)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for the written files (default from config or \"out\")")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "add the resource kind to node labels")
	cmd.Flags().StringVar(&opts.rankDir, "rankdir", "", "graphviz rank direction: TB (default), LR, RL, BT")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics for this run to a textfile")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, opts *graphOpts) error {
	cfg := c.config()

	formats := parseFormats(opts.formats)
	if len(formats) == 0 {
		formats = cfg.Formats
	}
	if err := render.ValidateFormats(formats); err != nil {
		return err
	}
	if err := validateRankDir(opts.rankDir); err != nil {
		return err
	}
	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if opts.metricsFile != "" {
		c.metrics()
	}

	sess, err := c.openSession(ctx, &opts.scope)
	if err != nil {
		return err
	}
	defer sess.Close()

	printInfo("Graphing %d account(s) in %s", len(sess.accounts), strings.Join(sess.regions, ", "))
	for _, a := range sess.accounts {
		printDetail("%s", a.Label())
	}

	runner := sess.newRunner(c.Logger)
	popts := sess.pipelineOptions(&opts.scope, cfg, formats)
	popts.Detailed = opts.detailed
	popts.RankDir = opts.rankDir

	spinner := newSpinner(ctx, "Listing networks and rendering...")
	spinner.Start()
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		spinner.StopWithError("Graph failed")
		return err
	}
	spinner.Stop()

	paths, err := pipeline.WriteArtifacts(outputDir, opts.scope.accounts, result.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Topology written")
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats, result.CacheInfo.RenderHit)
	if result.Stats.DanglingPeerings > 0 {
		printWarning("%d peering connection(s) have only one side in the selected accounts", result.Stats.DanglingPeerings)
	}

	if opts.metricsFile != "" {
		if err := c.Metrics.WriteTextfile(opts.metricsFile); err != nil {
			return err
		}
		printDetail("Metrics: %s", opts.metricsFile)
	}
	return nil
}

var validRankDirs = []string{"", "LR", "TB", "RL", "BT"}

func validateRankDir(dir string) error {
	for _, d := range validRankDirs {
		if dir == d {
			return nil
		}
	}
	return errs.New(errs.ErrCodeInvalidInput, "invalid rankdir %q (must be LR, TB, RL or BT)", dir)
}
