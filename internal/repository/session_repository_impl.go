package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mediconnect/platform-api/internal/domain/entity"
	domainRepo "github.com/mediconnect/platform-api/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const sessionKeyPrefix = "session:current:"

type sessionRepository struct {
	client *redis.Client
	log    *logrus.Logger
	ttl    time.Duration
}

// NewSessionRepository stores identity snapshots in Redis as JSON under
// a fixed key per user. The TTL should match the refresh token expiry
// so abandoned sessions age out on their own.
func NewSessionRepository(client *redis.Client, log *logrus.Logger, ttl time.Duration) domainRepo.SessionRepository {
	return &sessionRepository{client: client, log: log, ttl: ttl}
}

func sessionKey(userID uuid.UUID) string {
	return sessionKeyPrefix + userID.String()
}

func (r *sessionRepository) Save(ctx context.Context, snapshot *entity.SessionSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(snapshot.UserID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("store session snapshot: %w", err)
	}
	return nil
}

// Find restores a persisted snapshot. A missing key returns (nil, nil).
// An undecodable value is deleted and also reported as no session; the
// corruption is logged but never surfaced to the caller.
func (r *sessionRepository) Find(ctx context.Context, userID uuid.UUID) (*entity.SessionSnapshot, error) {
	payload, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session snapshot: %w", err)
	}

	var snapshot entity.SessionSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id": userID.String(),
			"error":   err.Error(),
		}).Warn("Discarding corrupt session snapshot")

		if delErr := r.client.Del(ctx, sessionKey(userID)).Err(); delErr != nil {
			r.log.Warnf("Failed to delete corrupt session snapshot: %+v", delErr)
		}
		return nil, nil
	}

	return &snapshot, nil
}

func (r *sessionRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}
