package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

var errTenantFlag = errors.New("--tenant must be a positive id")

func newBootstrapCmd(opts *rootOptions) *cobra.Command {
	var (
		tenantID int64
		migrate  bool
	)
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the standard chart of accounts for a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant := shared.TenantID(tenantID)
			if !tenant.Valid() {
				return errTenantFlag
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.New(ctx, cfg.PGDSN, "ledgerctl")
			if err != nil {
				return err
			}
			defer pool.Close()
			if migrate || cfg.DBAutoMigrate {
				if err := db.Migrate(ctx, pool); err != nil {
					return err
				}
			}

			svc := accounts.NewService(accounts.NewRepository(pool), cfg.LedgerCurrency, opts.logger)
			ids, err := svc.EnsureStandardAccounts(ctx, tenant)
			if err != nil {
				return err
			}
			codes := make([]string, 0, len(ids))
			for code := range ids {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			for _, code := range codes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", code, ids[code])
			}
			opts.logger.Info("standard accounts ensured", slog.Int64("tenant_id", tenantID), slog.Int("accounts", len(ids)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "tenant id")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before bootstrapping")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

// statementQueue is the enqueue side of the worker client.
type statementQueue interface {
	EnqueueStatementImport(ctx context.Context, payload jobs.StatementImportPayload) error
	Close() error
}

var newStatementQueue = func(redisAddr string) (statementQueue, error) {
	opt, err := jobs.RedisOpt(redisAddr)
	if err != nil {
		return nil, err
	}
	return jobs.NewClient(opt)
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var tenantID int64
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Queue a statement file for import by the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant := shared.TenantID(tenantID)
			if !tenant.Valid() {
				return errTenantFlag
			}
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if len(raw) == 0 {
				return fmt.Errorf("%s is empty", args[0])
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if int64(len(raw)) > cfg.StatementMaxBytes {
				return fmt.Errorf("%s exceeds %d bytes", args[0], cfg.StatementMaxBytes)
			}
			queue, err := newStatementQueue(cfg.RedisAddr)
			if err != nil {
				return err
			}
			defer queue.Close()

			payload := jobs.StatementImportPayload{TenantID: tenantID, Filename: filepath.Base(args[0]), Content: raw}
			if err := queue.EnqueueStatementImport(cmd.Context(), payload); err != nil {
				return fmt.Errorf("enqueue import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s for tenant %d\n", payload.Filename, tenantID)
			opts.logger.Debug("statement import queued", slog.String("filename", payload.Filename), slog.Int("bytes", len(raw)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "tenant id")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
