package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/vpcmap/pkg/provider/snapshot"
)

func (c *CLI) snapshotCommand() *cobra.Command {
	var (
		scope  scopeFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record the live resources of the matching accounts to a file",
		Long: `Snapshot lists the same resources graph would and writes them to a YAML or
JSON document (chosen by the file extension). The document can be graphed
later with "graph --snapshot", without AWS credentials.`,
		Example: `  vpcmap snapshot -a prod -r us-east-1 -o prod.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := snapshot.FormatFromPath(output); err != nil {
				return err
			}

			sess, err := c.openSession(ctx, &scope)
			if err != nil {
				return err
			}
			defer sess.Close()

			prog := newProgress(loggerFromContext(ctx))
			spinner := newSpinner(ctx, "Capturing resources...")
			spinner.Start()
			doc, err := snapshot.Capture(ctx, sess.provider, sess.accounts, sess.regions)
			if err != nil {
				spinner.StopWithError("Capture failed")
				return err
			}
			spinner.Stop()
			prog.done("Captured networks")

			if err := snapshot.Save(output, doc); err != nil {
				return err
			}
			printSuccess("Snapshot of %d account(s) written", len(doc.Accounts))
			printFile(output)
			printNextStep("Graph it", appName+" graph --snapshot "+output+" --accounts <terms> --regions <regions>")
			return nil
		},
	}

	scope.register(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", "snapshot.yaml", "snapshot file (.yaml, .yml or .json)")
	return cmd
}
