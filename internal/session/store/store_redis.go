package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
)

const sessionKeyPrefix = "voicedesk:session:"

// RedisSessionStore shares live sessions between instances. Entries expire
// after the TTL so abandoned calls do not accumulate.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func key(callID id.CallID) string {
	return sessionKeyPrefix + callID.String()
}

func (s *RedisSessionStore) Get(ctx context.Context, callID id.CallID) (session.Session, error) {
	raw, err := s.client.Get(ctx, key(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Session{}, sentinel.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return session.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if err := sess.Validate(); err != nil {
		return session.Session{}, fmt.Errorf("load session %s: %w", callID, err)
	}
	return sess, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, sess session.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.CallID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, callID id.CallID) error {
	if err := s.client.Del(ctx, key(callID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
