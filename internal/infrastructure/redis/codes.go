package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matching-sms-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "otp:code:"

// CodeStore keeps one pending code per phone under otp:code:<phone>.
// Entries outlive their ExpiresAt by the retention window so an expired
// code can still be reported as expired rather than missing.
type CodeStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewCodeStore(client *redis.Client, retention time.Duration) *CodeStore {
	return &CodeStore{client: client, retention: retention}
}

// Put stores c, replacing any previous entry for the same phone.
func (s *CodeStore) Put(ctx context.Context, c *domain.PendingCode) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal pending code: %w", err)
	}
	ttl := time.Until(c.ExpiresAt) + s.retention
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.client.Set(ctx, codeKeyPrefix+c.Phone, b, ttl).Err()
}

func (s *CodeStore) Get(ctx context.Context, phone string) (*domain.PendingCode, error) {
	b, err := s.client.Get(ctx, codeKeyPrefix+phone).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("no pending code for %s: %w", phone, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var c domain.PendingCode
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal pending code: %w", err)
	}
	return &c, nil
}

func (s *CodeStore) Delete(ctx context.Context, phone string) error {
	return s.client.Del(ctx, codeKeyPrefix+phone).Err()
}

// Consume deletes the entry for phone only if it still carries codeHash and
// reports whether this call removed it. Of two concurrent consumers only one
// sees true, and a code re-issued after codeHash was read is left in place.
func (s *CodeStore) Consume(ctx context.Context, phone, codeHash string) (bool, error) {
	key := codeKeyPrefix + phone
	consumed := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var c domain.PendingCode
		if err := json.Unmarshal(b, &c); err != nil {
			return fmt.Errorf("unmarshal pending code: %w", err)
		}
		if c.CodeHash != codeHash {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		consumed = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return consumed, nil
}

// List returns every pending code currently stored.
func (s *CodeStore) List(ctx context.Context) ([]domain.PendingCode, error) {
	var out []domain.PendingCode
	iter := s.client.Scan(ctx, 0, codeKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		phone := strings.TrimPrefix(iter.Val(), codeKeyPrefix)
		c, err := s.Get(ctx, phone)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("skipping unreadable pending code", "phone", phone, "err", err)
			continue
		}
		out = append(out, *c)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
