package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "drafts:"
	// DefaultTTL is how long an untouched draft survives.
	DefaultTTL = 7 * 24 * time.Hour
	// MaxPayloadBytes caps a single draft.
	MaxPayloadBytes = 64 << 10
)

var (
	ErrDraftNotFound  = errors.New("Draft not found")
	ErrInvalidKey     = errors.New("Invalid draft key")
	ErrInvalidPayload = errors.New("Draft must be a JSON object")
	ErrPayloadTooBig  = errors.New("Draft is too large")
)

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Store persists partially completed join forms.
type Store interface {
	Save(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error
	Load(ctx context.Context, key string) (json.RawMessage, error)
	Clear(ctx context.Context, key string) error
}

// RedisStore keeps drafts under drafts:<key>.
type RedisStore struct {
	Rdb *redis.Client
}

func (s *RedisStore) Save(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	if !keyRe.MatchString(key) {
		return ErrInvalidKey
	}
	if len(payload) > MaxPayloadBytes {
		return ErrPayloadTooBig
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		return ErrInvalidPayload
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return s.Rdb.Set(ctx, keyPrefix+key, []byte(payload), ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, key string) (json.RawMessage, error) {
	if !keyRe.MatchString(key) {
		return nil, ErrInvalidKey
	}
	b, err := s.Rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if !keyRe.MatchString(key) {
		return ErrInvalidKey
	}
	return s.Rdb.Del(ctx, keyPrefix+key).Err()
}
