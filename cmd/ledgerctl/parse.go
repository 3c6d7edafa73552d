package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-ledger/internal/banking/mt940"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse an MT940 file without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			statements, grammarErr := mt940.ParseDetailed(raw)
			if grammarErr != nil {
				opts.logger.Warn("statement read by fallback scanner", slog.Any("reason", grammarErr))
			}
			opts.logger.Debug("parsed statement file",
				slog.Int("statements", len(statements)),
				slog.Int("transactions", mt940.TransactionCount(statements)))
			return writeOutput(cmd.OutOrStdout(), output, statements)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format: json or yaml")
	return cmd
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
