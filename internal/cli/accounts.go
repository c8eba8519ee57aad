package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vpcmap/pkg/accounts"
	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

func (c *CLI) accountsCommand() *cobra.Command {
	var credentials string

	cmd := &cobra.Command{
		Use:   "accounts [search...]",
		Short: "List the annotated profiles of the credentials file",
		Long: `Accounts lists every profile whose section header carries an account id,
for example "[prod] #123456789012". With search terms, only profiles whose
names contain one of the terms are shown, exactly as graph would select them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := c.discover(credentials)
			if err != nil {
				return err
			}
			selected := all
			if len(args) > 0 {
				selected = accounts.Filter(all, args)
			}
			if len(selected) == 0 {
				printWarning("No matching accounts in %s", c.credentialsPath(credentials))
				return nil
			}
			fmt.Fprintln(out, accountsTable(selected, nil, -1))
			printDetail("%d of %d account(s)", len(selected), len(all))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&credentials, "credentials", "", "AWS shared credentials file")
	cmd.AddCommand(c.accountsPickCommand(&credentials))
	return cmd
}

func (c *CLI) accountsPickCommand(credentials *string) *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Select accounts interactively and print the graph command",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := c.discover(*credentials)
			if err != nil {
				return err
			}
			if len(all) == 0 {
				return errs.New(errs.ErrCodeNotFound, "no annotated profiles in %s", c.credentialsPath(*credentials))
			}

			final, err := tea.NewProgram(newPickerModel(all), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return fmt.Errorf("account picker: %w", err)
			}
			picked := final.(pickerModel).Picked()
			if len(picked) == 0 {
				printInfo("No accounts selected")
				return nil
			}

			if len(regions) == 0 {
				regions = c.config().Regions
			}
			printNextStep("Run", graphInvocation(picked, regions))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&regions, "regions", "r", nil, "regions to put in the printed command")
	return cmd
}

func (c *CLI) discover(credentials string) ([]topology.AccountScope, error) {
	return accounts.Discover(c.credentialsPath(credentials))
}

// graphInvocation returns the graph command line selecting exactly the
// picked profiles.
func graphInvocation(picked []topology.AccountScope, regions []string) string {
	names := make([]string, len(picked))
	for i, a := range picked {
		names[i] = a.Name
	}
	region := "<region>"
	if len(regions) > 0 {
		region = strings.Join(regions, ",")
	}
	return fmt.Sprintf("%s graph --accounts %s --regions %s", appName, strings.Join(names, ","), region)
}
