package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-ledger/internal/banking/mt940"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking/reconcile"
)

type invoiceFile struct {
	Invoices []reconcile.Invoice `yaml:"invoices"`
}

type transactionSuggestions struct {
	Statement   string                 `json:"statement" yaml:"statement"`
	Transaction mt940.Transaction      `json:"transaction" yaml:"transaction"`
	Suggestions []reconcile.Suggestion `json:"suggestions" yaml:"suggestions"`
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var (
		invoicesPath string
		output       string
		tolerance    string
	)
	cmd := &cobra.Command{
		Use:   "suggest FILE",
		Short: "Match statement lines against an invoice list offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, err := decimal.NewFromString(tolerance)
			if err != nil {
				return fmt.Errorf("tolerance: %w", err)
			}
			invoices, err := loadInvoices(invoicesPath)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var out []transactionSuggestions
			for _, st := range mt940.Parse(raw) {
				for _, tx := range st.Transactions {
					out = append(out, transactionSuggestions{
						Statement:   st.Reference,
						Transaction: tx,
						Suggestions: reconcile.SuggestMatches(tx, invoices, tol),
					})
				}
			}
			opts.logger.Debug("matched statement lines", "lines", len(out), "invoices", len(invoices))
			return writeOutput(cmd.OutOrStdout(), output, out)
		},
	}
	cmd.Flags().StringVar(&invoicesPath, "invoices", "", "YAML file with an invoices list")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format: json or yaml")
	cmd.Flags().StringVar(&tolerance, "tolerance", reconcile.DefaultTolerance.String(), "amount tolerance")
	_ = cmd.MarkFlagRequired("invoices")
	return cmd
}

func loadInvoices(path string) ([]reconcile.Invoice, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read invoices: %w", err)
	}
	var file invoiceFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode invoices: %w", err)
	}
	for i := range file.Invoices {
		if file.Invoices[i].Outstanding.IsZero() {
			file.Invoices[i].Outstanding = file.Invoices[i].Amount
		}
	}
	return file.Invoices, nil
}
