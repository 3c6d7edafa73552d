package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL of every table the ledger services read or write. The
// statements are idempotent so Migrate can run on every boot.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id          BIGSERIAL PRIMARY KEY,
    tenant_id   BIGINT NOT NULL,
    code        VARCHAR(20) NOT NULL,
    name        VARCHAR(120) NOT NULL,
    kind        VARCHAR(12) NOT NULL CHECK (kind IN ('ASSET','LIABILITY','EQUITY','REVENUE','EXPENSE')),
    currency    CHAR(3) NOT NULL,
    balance     NUMERIC(20,2) NOT NULL DEFAULT 0,
    is_system   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_accounts_code UNIQUE (tenant_id, code)
);

CREATE TABLE IF NOT EXISTS journal_sequences (
    tenant_id   BIGINT PRIMARY KEY,
    last_value  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS journal_entries (
    id                 UUID PRIMARY KEY,
    tenant_id          BIGINT NOT NULL,
    sequence           BIGINT NOT NULL,
    number             VARCHAR(40) NOT NULL,
    entry_date         DATE NOT NULL,
    description        TEXT NOT NULL DEFAULT '',
    reference_type     VARCHAR(50),
    reference_id       VARCHAR(100),
    reference_display  VARCHAR(100),
    total_debit        NUMERIC(20,2) NOT NULL,
    total_credit       NUMERIC(20,2) NOT NULL,
    posted_by          BIGINT,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_journal_entries_sequence UNIQUE (tenant_id, sequence),
    CONSTRAINT uq_journal_entries_reference UNIQUE (tenant_id, reference_type, reference_id),
    CONSTRAINT ck_journal_entries_tolerance CHECK (ABS(total_debit - total_credit) <= 0.01)
);

ALTER TABLE journal_entries DROP CONSTRAINT IF EXISTS ck_journal_entries_balanced;

CREATE INDEX IF NOT EXISTS idx_journal_entries_date ON journal_entries (tenant_id, entry_date);

CREATE TABLE IF NOT EXISTS journal_lines (
    id           BIGSERIAL PRIMARY KEY,
    entry_id     UUID NOT NULL REFERENCES journal_entries (id),
    tenant_id    BIGINT NOT NULL,
    account_id   BIGINT NOT NULL REFERENCES accounts (id),
    debit        NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (debit >= 0),
    credit       NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (credit >= 0),
    description  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_journal_lines_account ON journal_lines (tenant_id, account_id);
CREATE INDEX IF NOT EXISTS idx_journal_lines_entry ON journal_lines (entry_id);

CREATE TABLE IF NOT EXISTS audit_logs (
    id           BIGSERIAL PRIMARY KEY,
    tenant_id    BIGINT NOT NULL,
    actor_id     BIGINT,
    action       VARCHAR(60) NOT NULL,
    entity       VARCHAR(60) NOT NULL,
    entity_id    VARCHAR(100) NOT NULL,
    meta         JSONB,
    occurred_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
    tenant_id   BIGINT NOT NULL,
    key         VARCHAR(120) NOT NULL,
    module      VARCHAR(40) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (tenant_id, module, key)
);

CREATE TABLE IF NOT EXISTS bank_imports (
    id             UUID PRIMARY KEY,
    tenant_id      BIGINT NOT NULL,
    filename       VARCHAR(255) NOT NULL,
    fingerprint    CHAR(64) NOT NULL,
    mode           VARCHAR(12) NOT NULL,
    skipped_lines  INT NOT NULL DEFAULT 0,
    imported_at    TIMESTAMPTZ NOT NULL,
    CONSTRAINT uq_bank_imports_fingerprint UNIQUE (tenant_id, fingerprint)
);

CREATE TABLE IF NOT EXISTS bank_statements (
    id               BIGSERIAL PRIMARY KEY,
    tenant_id        BIGINT NOT NULL,
    import_id        UUID NOT NULL REFERENCES bank_imports (id),
    reference        VARCHAR(35) NOT NULL DEFAULT '',
    account_number   VARCHAR(64) NOT NULL DEFAULT '',
    currency         CHAR(3) NOT NULL DEFAULT '',
    sequence_number  VARCHAR(20) NOT NULL DEFAULT '',
    opening_balance  NUMERIC(20,2) NOT NULL DEFAULT 0,
    closing_balance  NUMERIC(20,2) NOT NULL DEFAULT 0,
    statement_date   DATE
);

CREATE TABLE IF NOT EXISTS ar_invoices (
    id              BIGSERIAL PRIMARY KEY,
    tenant_id       BIGINT NOT NULL,
    number          VARCHAR(40) NOT NULL,
    display_number  VARCHAR(60) NOT NULL DEFAULT '',
    party_name      VARCHAR(160) NOT NULL DEFAULT '',
    currency        CHAR(3) NOT NULL,
    total           NUMERIC(20,2) NOT NULL CHECK (total >= 0),
    paid            NUMERIC(20,2) NOT NULL DEFAULT 0,
    status          VARCHAR(10) NOT NULL,
    issued_at       DATE NOT NULL,
    due_at          DATE NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_ar_invoices_number UNIQUE (tenant_id, number),
    CONSTRAINT ck_ar_invoices_paid CHECK (paid >= 0 AND paid <= total)
);

CREATE TABLE IF NOT EXISTS ar_payments (
    id          BIGSERIAL PRIMARY KEY,
    tenant_id   BIGINT NOT NULL,
    invoice_id  BIGINT NOT NULL REFERENCES ar_invoices (id),
    amount      NUMERIC(20,2) NOT NULL CHECK (amount > 0),
    paid_at     DATE NOT NULL,
    reference   VARCHAR(120),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bank_transactions (
    id                    BIGSERIAL PRIMARY KEY,
    tenant_id             BIGINT NOT NULL,
    statement_id          BIGINT NOT NULL REFERENCES bank_statements (id),
    booked_on             DATE NOT NULL,
    value_date            DATE,
    amount                NUMERIC(20,2) NOT NULL,
    description           TEXT NOT NULL DEFAULT '',
    counterparty_account  VARCHAR(64) NOT NULL DEFAULT '',
    counterparty_name     VARCHAR(160) NOT NULL DEFAULT '',
    reference             VARCHAR(64) NOT NULL DEFAULT '',
    bank_reference        VARCHAR(64) NOT NULL DEFAULT '',
    transaction_code      VARCHAR(8) NOT NULL DEFAULT '',
    raw_text              TEXT NOT NULL DEFAULT '',
    reconciled            BOOLEAN NOT NULL DEFAULT FALSE,
    invoice_id            BIGINT REFERENCES ar_invoices (id),
    reconciled_at         TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_bank_transactions_statement ON bank_transactions (tenant_id, statement_id);
`

// Migrate applies Schema in one transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("platform/db: migrate: %w", err)
	}
	return nil
}
