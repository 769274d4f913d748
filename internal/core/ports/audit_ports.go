package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

// AuditSink accepts audit events on a best-effort basis. Delivery failures
// never reach the caller.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

type AuditRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) error
	List(ctx context.Context, limit int) ([]domain.AuditEvent, error)
}

type Clock interface {
	Now() time.Time
}
