package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-storefront/internal/payment"
)

func methodsCmd(c *cli) *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List the payment methods enabled by the current configuration",
		Long: `List the payment methods enabled by the current configuration.

By default the catalog is flattened to the selectable leaves. With --tree
the menu levels are shown as users see them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := payment.Build(c.cfg.Payment, payment.Deps{SettlementCurrency: c.cfg.Quote.SettlementCurrency})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if tree {
				root, _ := catalog.Level("")
				printLevel(w, root, "")
				return nil
			}

			leaves := catalog.Leaves()
			if len(leaves) == 0 {
				fmt.Fprintln(w, "no payment methods enabled")
				return nil
			}
			fmt.Fprintln(w, "NAME\tKIND\tCHECKS\tBUDGET")
			for _, d := range leaves {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.Name, d.Kind, d.Attempts, payment.BudgetText(d.Budget()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "show menu levels instead of the flattened list")
	return cmd
}

func printLevel(w *tabwriter.Writer, level []*payment.Descriptor, indent string) {
	for _, d := range level {
		if d.IsGroup() {
			fmt.Fprintf(w, "%s%s/\t%d options\n", indent, d.Name, len(d.Children))
			printLevel(w, d.Children, indent+"  ")
			continue
		}
		fmt.Fprintf(w, "%s%s\t%s\n", indent, d.Name, d.Kind)
	}
}
