package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iho/orgledger/internal/usecase"
)

var _ usecase.Locker = (*Locker)(nil)

// unlockScript deletes the key only while it still holds the caller's
// token, so an expired lock re-acquired by someone else is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements usecase.Locker with SET NX PX.
type Locker struct {
	client *redis.Client
}

// NewLocker creates a new Locker.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// TryLock acquires key for ttl. ok is false when another holder has it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Unlock releases key if token still owns it.
func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, l.client, []string{key}, token).Err()
}
