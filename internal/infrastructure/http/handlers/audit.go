package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
)

// AuditLog logs auth events (user_id, email, IP).
func AuditLog(log zerolog.Logger, r *http.Request, event, userID, email string, success bool, errMsg string) {
	ev := log.Info()
	if !success {
		ev = log.Warn()
	}
	ev.
		Str("event", event).
		Str("user_id", userID).
		Str("email", email).
		Str("ip", getClientIP(r)).
		Str("request_id", middleware.GetReqID(r.Context())).
		Bool("success", success)
	if errMsg != "" {
		ev.Str("error", errMsg)
	}
	ev.Msg("auth_audit")
}

// AuditEmit logs the event and, if an enqueuer is configured, hands it to the
// task queue for webhook delivery.
func AuditEmit(log zerolog.Logger, r *http.Request, enqueuer ports.TaskEnqueuer, event, userID, email string, success bool, errMsg string) {
	AuditLog(log, r, event, userID, email, success, errMsg)
	if enqueuer != nil {
		_ = enqueuer.EnqueueAuditEvent(r.Context(), ports.AuditEvent{
			Event:   event,
			UserID:  userID,
			Email:   email,
			IP:      getClientIP(r),
			Success: success,
			Err:     errMsg,
		})
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return r.RemoteAddr
}
