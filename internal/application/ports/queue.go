package ports

import "context"

// TaskEnqueuer enqueues async tasks (webhook fan-out of audit events).
type TaskEnqueuer interface {
	EnqueueAuditEvent(ctx context.Context, event AuditEvent) error
}
