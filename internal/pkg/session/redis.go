package session

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

type redisSessionStore struct {
	logger *logrus.Logger
	client redis.UniversalClient
}

// NewRedisSessionStore builds the redis-backed allow-list. Each jti lives
// under its own key with the credential's TTL; a per-account set indexes the
// active jtis so revoke-all can enumerate them.
func NewRedisSessionStore(logger *logrus.Logger, client redis.UniversalClient) Store {
	return &redisSessionStore{
		logger: logger,
		client: client,
	}
}

func sessionKey(jti string) string {
	return fmt.Sprintf("session:%s", jti)
}

func accountSessionsKey(accountID int64) string {
	return fmt.Sprintf("account:%d:sessions", accountID)
}

// Allow implements Store.
func (s *redisSessionStore) Allow(ctx context.Context, jti string, accountID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(jti), strconv.FormatInt(accountID, 10), ttl).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while registering the session")
	}

	indexKey := accountSessionsKey(accountID)
	if err := s.client.SAdd(ctx, indexKey, jti).Err(); err != nil {
		// fail closed: a session missing from the index could never be bulk
		// revoked, so drop the entry again and abort issuance
		s.client.Del(ctx, sessionKey(jti))
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while registering the session")
	}

	// keep the index alive at least as long as its longest-lived member; the
	// TTL may only ever grow, otherwise issuing a short-lived access token
	// would clamp the index below the refresh token's lifetime and leave that
	// session unreachable for bulk revocation
	applied, err := s.client.ExpireNX(ctx, indexKey, ttl).Result()
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
	}
	if err == nil && !applied {
		if err := s.client.ExpireGT(ctx, indexKey, ttl).Err(); err != nil {
			s.logger.WithContext(ctx).WithError(err).Error()
		}
	}

	return nil
}

// IsAllowed implements Store.
func (s *redisSessionStore) IsAllowed(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(jti)).Result()
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while checking the session")
	}

	return n > 0, nil
}

// Revoke implements Store.
func (s *redisSessionStore) Revoke(ctx context.Context, jti string, accountID int64) error {
	if err := s.client.Del(ctx, sessionKey(jti)).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while revoking the session")
	}

	if err := s.client.SRem(ctx, accountSessionsKey(accountID), jti).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
	}

	return nil
}

// RevokeAll implements Store. Enumerate-then-delete is best effort across
// entries; a failed member deletion is reported so the caller can retry.
func (s *redisSessionStore) RevokeAll(ctx context.Context, accountID int64) error {
	indexKey := accountSessionsKey(accountID)

	jtis, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while revoking the sessions")
	}

	var lastErr error
	for _, jti := range jtis {
		if err := s.client.Del(ctx, sessionKey(jti)).Err(); err != nil {
			s.logger.WithContext(ctx).WithError(err).Error()
			lastErr = err
		}
	}

	if lastErr != nil {
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while revoking the sessions")
	}

	// remove only the members that were enumerated; a jti allow-listed while
	// this ran keeps its index membership and stays revocable
	if len(jtis) > 0 {
		members := make([]interface{}, len(jtis))
		for i, jti := range jtis {
			members[i] = jti
		}

		if err := s.client.SRem(ctx, indexKey, members...).Err(); err != nil {
			s.logger.WithContext(ctx).WithError(err).Error()
		}
	}

	return nil
}
