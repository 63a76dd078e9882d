package ports

import "context"

// AuditEvent is a single auth audit event for logging or webhooks.
type AuditEvent struct {
	Event   string `json:"event"` // user.login, auth.refresh, user.logout, ...
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	IP      string `json:"ip,omitempty"`
	Success bool   `json:"success"`
	Err     string `json:"error,omitempty"`
}

// WebhookEmitter delivers audit events to an external endpoint.
type WebhookEmitter interface {
	Emit(ctx context.Context, event AuditEvent) error
}
