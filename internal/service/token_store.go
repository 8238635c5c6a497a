package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mediconnect/platform-api/pkg/jwt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key prefixes for issued tokens
const (
	accessTokenKeyPrefix  = "access_token:"
	refreshTokenKeyPrefix = "refresh_token:"
)

// TokenStore tracks which issued token IDs are still valid. A token
// missing from the store is treated as revoked.
type TokenStore interface {
	Store(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType, ttl time.Duration) error
	IsValid(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType) (bool, error)
	Revoke(ctx context.Context, tokenID string, tokenType jwt.TokenType) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type redisTokenStore struct {
	client *redis.Client
}

// NewTokenStore returns a Redis-backed TokenStore.
func NewTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client}
}

func tokenKey(tokenType jwt.TokenType, userID, tokenID string) string {
	prefix := accessTokenKeyPrefix
	if tokenType == jwt.RefreshToken {
		prefix = refreshTokenKeyPrefix
	}
	return fmt.Sprintf("%s%s:%s", prefix, userID, tokenID)
}

func (s *redisTokenStore) Store(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKey(tokenType, userID.String(), tokenID), "valid", ttl).Err()
}

func (s *redisTokenStore) IsValid(ctx context.Context, userID uuid.UUID, tokenID string, tokenType jwt.TokenType) (bool, error) {
	exists, err := s.client.Exists(ctx, tokenKey(tokenType, userID.String(), tokenID)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Revoke deletes a token by ID regardless of owner. The user ID part of
// the key is unknown at logout time, so this matches by pattern.
func (s *redisTokenStore) Revoke(ctx context.Context, tokenID string, tokenType jwt.TokenType) error {
	if tokenID == "" {
		return nil
	}
	return s.deleteMatching(ctx, tokenKey(tokenType, "*", tokenID))
}

// RevokeAll revokes every token for a user. Used when an account is
// deactivated or a password changes.
func (s *redisTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	for _, pattern := range []string{
		tokenKey(jwt.AccessToken, userID.String(), "*"),
		tokenKey(jwt.RefreshToken, userID.String(), "*"),
	} {
		if err := s.deleteMatching(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

// deleteMatching walks the keyspace with SCAN so revocation never
// blocks the server the way KEYS would.
func (s *redisTokenStore) deleteMatching(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
