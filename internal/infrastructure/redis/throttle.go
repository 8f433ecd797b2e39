package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/matching-sms-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const sendKeyPrefix = "otp:sends:"

// SendThrottle caps how many codes one phone can request per window.
type SendThrottle struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewSendThrottle(client *redis.Client, max int, window time.Duration) *SendThrottle {
	return &SendThrottle{client: client, max: max, window: window}
}

// sendCountScript increments the counter and gives it a TTL whenever it has
// none, so a key can never be left without an expiry.
var sendCountScript = redis.NewScript(`
	local n = redis.call('INCR', KEYS[1])
	if redis.call('PTTL', KEYS[1]) < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return n
`)

// Allow counts one send for phone and fails with domain.ErrRateLimited once the window is full.
func (t *SendThrottle) Allow(ctx context.Context, phone string) error {
	window := t.window.Milliseconds()
	if window <= 0 {
		window = 1
	}
	count, err := sendCountScript.Run(ctx, t.client, []string{sendKeyPrefix + phone}, window).Int64()
	if err != nil {
		return fmt.Errorf("count sends: %w", err)
	}
	if count > int64(t.max) {
		return fmt.Errorf("too many codes requested for %s: %w", phone, domain.ErrRateLimited)
	}
	return nil
}
