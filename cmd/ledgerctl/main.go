// Command ledgerctl is the operator CLI of the ledger: offline statement
// parsing and matching, chart bootstrap, and queued statement imports.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

type rootOptions struct {
	debug  bool
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the Odyssey general ledger",
		Long: `ledgerctl works with MT940 statements and tenant ledgers.

Example:
  ledgerctl parse statement.sta --output yaml
  ledgerctl suggest statement.sta --invoices open.yaml
  ledgerctl bootstrap --tenant 1
  ledgerctl import statement.sta --tenant 1`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.debug {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(newParseCmd(opts))
	root.AddCommand(newSuggestCmd(opts))
	root.AddCommand(newBootstrapCmd(opts))
	root.AddCommand(newImportCmd(opts))
	return root
}

// loadConfig reads the same environment as the server binaries.
func loadConfig() (*app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}
