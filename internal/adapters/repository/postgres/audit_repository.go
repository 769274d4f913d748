package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) ports.AuditRepository {
	return &auditRepository{
		db: db,
	}
}

func (r *auditRepository) Append(ctx context.Context, event domain.AuditEvent) error {
	query := `
		INSERT INTO audit_logs (occurred_at, user_id, action, details, ip_address)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, event.Timestamp, event.VoterID, string(event.Action), event.Detail, event.Origin)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// List returns the newest events first. A non-positive limit returns all.
func (r *auditRepository) List(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	query := `SELECT occurred_at, user_id, action, details, ip_address FROM audit_logs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0)
	for rows.Next() {
		var event domain.AuditEvent
		if err := rows.Scan(&event.Timestamp, &event.VoterID, &event.Action, &event.Detail, &event.Origin); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		event.Timestamp = event.Timestamp.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}
