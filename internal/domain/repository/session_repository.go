package repository

import (
	"context"

	"github.com/mediconnect/platform-api/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionRepository persists the identity snapshot of an active session
// under a fixed key per user. Find returns (nil, nil) when no snapshot
// exists or the stored value cannot be decoded; a corrupt value is
// discarded rather than surfaced.
type SessionRepository interface {
	Save(ctx context.Context, snapshot *entity.SessionSnapshot) error
	Find(ctx context.Context, userID uuid.UUID) (*entity.SessionSnapshot, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}
