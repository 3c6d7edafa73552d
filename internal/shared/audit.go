package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one row of the ledger audit trail.
type AuditLog struct {
	TenantID TenantID
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) validate() error {
	if !l.TenantID.Valid() {
		return ErrTenantRequired
	}
	if l.Action == "" || l.Entity == "" || l.EntityID == "" {
		return errors.New("audit: action, entity and entity id are required")
	}
	return nil
}

// AuditLogger appends to audit_logs. Rows are never updated.
type AuditLogger struct {
	pool *pgxpool.Pool
}

func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists entry. A zero At is stamped by the database.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if err := entry.validate(); err != nil {
		return err
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	var actor, at any
	if entry.ActorID != 0 {
		actor = entry.ActorID
	}
	if !entry.At.IsZero() {
		at = entry.At.UTC()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (tenant_id, actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, NOW()))`,
		int64(entry.TenantID), actor, entry.Action, entry.Entity, entry.EntityID, meta, at)
	return err
}
