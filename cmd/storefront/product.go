package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-storefront/internal/payment"
	"github.com/tbourn/go-storefront/internal/services"
	"github.com/tbourn/go-storefront/internal/utils"
)

func productCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage the product catalog",
	}
	cmd.AddCommand(productAddCmd(c), productListCmd(c), productDeleteCmd(c))
	return cmd
}

func productAddCmd(c *cli) *cobra.Command {
	var (
		name        string
		price       int64
		description string
		file        string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Upload a product archive and register it",
		Long: `Upload a product archive and register it.

Examples:
  storefront product add --name Widget --price 1500 --file widget.zip
  storefront product add --name Widget --price 1500 --description "A widget" --file widget.zip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.products.Create(cmd.Context(), services.CreateProductInput{
				Name:        name,
				Price:       price,
				Description: description,
				Archive:     f,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added product %d: %s (%s)\n",
				p.ID, p.Name, payment.FormatPrice(p.Price, c.cfg.Quote.SettlementCurrency))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "unique product name")
	cmd.Flags().Int64Var(&price, "price", 0, "price in whole settlement units")
	cmd.Flags().StringVar(&description, "description", "", "description shown to buyers")
	cmd.Flags().StringVar(&file, "file", "", "path to the archive")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func productListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.entitlements.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tNAME\tPRICE")
			for _, p := range items {
				fmt.Fprintf(w, "%d\t%s\t%s\n", p.ID, p.Name, payment.FormatPrice(p.Price, c.cfg.Quote.SettlementCurrency))
			}
			return nil
		},
	}
}

func productDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a product, its ownership records and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := utils.ParseID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.products.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted product %d\n", id)
			return nil
		},
	}
}
