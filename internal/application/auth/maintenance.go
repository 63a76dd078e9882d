package auth

import (
	"context"
	"time"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
)

// RunPurgeExpiredCredentials removes refresh credentials that expired and
// were never presented again. Call periodically (e.g. hourly); rotation and
// logout take care of the live ones.
func RunPurgeExpiredCredentials(ctx context.Context, store ports.RefreshCredentialStore) (int64, error) {
	return store.PurgeExpired(ctx, time.Now())
}
