package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
)

// saveScript is a compare-and-set on the stored session version.
// KEYS[1] = session key
// ARGV[1] = expected version (0 = must not exist)
// ARGV[2] = new version
// ARGV[3] = snapshot JSON
// ARGV[4] = ttl in milliseconds (0 = no expiry)
// Returns 1 on success, 0 on version conflict, -1 when the key is gone.
var saveScript = redis.NewScript(`
local expected = tonumber(ARGV[1])
local current = redis.call("HGET", KEYS[1], "version")

if not current then
    if expected ~= 0 then
        return -1
    end
elseif tonumber(current) ~= expected then
    return 0
end

redis.call("HSET", KEYS[1], "version", ARGV[2], "data", ARGV[3])
local ttl = tonumber(ARGV[4])
if ttl > 0 then
    redis.call("PEXPIRE", KEYS[1], ttl)
end
return 1
`)

// RedisStore implements port.SessionStore on Redis so any replica can serve
// the verify-OTP call that follows an initiate.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ port.SessionStore = (*RedisStore)(nil)

// Options configures NewRedisClient.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a client for opts.
func NewRedisClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// NewRedisStore creates a store keyed as "<prefix>:<transactionID>".
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "bureau:session"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(transactionID string) string {
	return s.prefix + ":" + transactionID
}

// Save stores session if the stored version still equals expectedVersion.
func (s *RedisStore) Save(ctx context.Context, session model.BureauSession, expectedVersion int) error {
	snap := session.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	res, err := saveScript.Run(ctx, s.client,
		[]string{s.key(snap.TransactionID)},
		expectedVersion, snap.Version, data, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis session save: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("save %s: %w", snap.TransactionID, port.ErrSessionConflict)
	default:
		return fmt.Errorf("save %s: %w", snap.TransactionID, port.ErrSessionNotFound)
	}
}

// FindByTransactionID returns the stored session or port.ErrSessionNotFound.
func (s *RedisStore) FindByTransactionID(ctx context.Context, transactionID string) (model.BureauSession, error) {
	data, err := s.client.HGet(ctx, s.key(transactionID), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return model.BureauSession{}, port.ErrSessionNotFound
	}
	if err != nil {
		return model.BureauSession{}, fmt.Errorf("redis session find: %w", err)
	}
	var snap model.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.BureauSession{}, fmt.Errorf("decode session: %w", err)
	}
	return model.ReconstructBureauSession(snap)
}

// Ping checks connectivity for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
