package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) validate() error {
	if l.Action == "" || l.Entity == "" || l.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	return nil
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if err := log.validate(); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.Actor, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

// SlogAuditor writes audit records to a structured logger. Used with the memory backend.
type SlogAuditor struct {
	Logger *slog.Logger
}

// Record emits the entry at info level.
func (a SlogAuditor) Record(ctx context.Context, log AuditLog) error {
	if err := log.validate(); err != nil {
		return err
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		slog.String("action", log.Action),
		slog.String("entity", log.Entity),
		slog.String("entity_id", log.EntityID),
	}
	if log.Actor != "" {
		attrs = append(attrs, slog.String("actor", log.Actor))
	}
	if len(log.Meta) > 0 {
		attrs = append(attrs, slog.Any("meta", log.Meta))
	}
	logger.InfoContext(ctx, "audit", attrs...)
	return nil
}
