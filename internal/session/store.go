package session

import (
	"context"

	id "voicedesk/pkg/domain"
)

// Store keeps the current session of each live call between runtime turns.
// Get returns sentinel.ErrNotFound for unknown or ended calls.
type Store interface {
	Get(ctx context.Context, callID id.CallID) (Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, callID id.CallID) error
}
