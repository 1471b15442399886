package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lookupStatusMissing int64 = 0
	lookupStatusExpired int64 = 1
	lookupStatusFound   int64 = 2
)

const (
	rotateStatusMissing  int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
)

const sweepBatchSize = 500

// KEYS: token key, expiry zset. ARGV: now ms, user key prefix, token hash.
const lookupScript = `
local vals = redis.call("HMGET", KEYS[1], "uid", "exp")
local uid = vals[1]
if not uid then
  return {0}
end
local exp = tonumber(vals[2])
if not exp or exp <= tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", ARGV[2] .. uid, ARGV[3])
  redis.call("ZREM", KEYS[2], uid .. ":" .. ARGV[3])
  return {1}
end
return {2, uid, vals[2]}
`

var lookupLua = redis.NewScript(lookupScript)

// KEYS: old token key, new token key, expiry zset.
// ARGV: now ms, user key prefix, old hash, new hash, expected uid,
// new exp ms, new ttl ms.
const rotateScript = `
local vals = redis.call("HMGET", KEYS[1], "uid", "exp")
local uid = vals[1]
if not uid then
  return 0
end
local user_key = ARGV[2] .. uid
local exp = tonumber(vals[2])
if not exp or exp <= tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", user_key, ARGV[3])
  redis.call("ZREM", KEYS[3], uid .. ":" .. ARGV[3])
  return 1
end
if uid ~= ARGV[5] then
  return 2
end

redis.call("DEL", KEYS[1])
redis.call("SREM", user_key, ARGV[3])
redis.call("ZREM", KEYS[3], uid .. ":" .. ARGV[3])

redis.call("HSET", KEYS[2], "uid", uid, "exp", ARGV[6])
redis.call("PEXPIRE", KEYS[2], ARGV[7])
redis.call("SADD", user_key, ARGV[4])
redis.call("ZADD", KEYS[3], ARGV[6], uid .. ":" .. ARGV[4])
return 3
`

var rotateLua = redis.NewScript(rotateScript)

// KEYS: token key, expiry zset. ARGV: user key prefix, token hash.
const deleteScript = `
local uid = redis.call("HGET", KEYS[1], "uid")
if not uid then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. uid, ARGV[2])
redis.call("ZREM", KEYS[2], uid .. ":" .. ARGV[2])
return 1
`

var deleteLua = redis.NewScript(deleteScript)

// KEYS: user set, expiry zset. ARGV: token key prefix, uid.
const deleteUserScript = `
local hashes = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, h in ipairs(hashes) do
  n = n + redis.call("DEL", ARGV[1] .. h)
  redis.call("ZREM", KEYS[2], ARGV[2] .. ":" .. h)
end
redis.call("DEL", KEYS[1])
return n
`

var deleteUserLua = redis.NewScript(deleteUserScript)

// KEYS: expiry zset. ARGV: now ms, token key prefix, user key prefix, batch.
const sweepScript = `
local members = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", "0", ARGV[4])
for _, m in ipairs(members) do
  local sep = string.find(m, ":", 1, true)
  local uid = string.sub(m, 1, sep - 1)
  local h = string.sub(m, sep + 1)
  redis.call("DEL", ARGV[2] .. h)
  redis.call("SREM", ARGV[3] .. uid, h)
  redis.call("ZREM", KEYS[1], m)
end
return #members
`

var sweepLua = redis.NewScript(sweepScript)

// RedisStore keeps refresh records in Redis.
//
// Layout under prefix:
//
//	<prefix>:t:<hash>  hash {uid, exp(ms)} with a matching PEXPIRE
//	<prefix>:u:<uid>   set of record hashes owned by uid
//	<prefix>:exp       zset of "<uid>:<hash>" scored by exp(ms)
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	opts   Options
}

// NewRedisStore returns a [RedisStore] namespaced under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, opts Options) *RedisStore {
	if prefix == "" {
		prefix = "frt"
	}
	return &RedisStore{redis: client, prefix: prefix, opts: opts.withDefaults()}
}

func (s *RedisStore) tokenKeyPrefix() string { return s.prefix + ":t:" }
func (s *RedisStore) userKeyPrefix() string  { return s.prefix + ":u:" }
func (s *RedisStore) expiryKey() string      { return s.prefix + ":exp" }

func (s *RedisStore) tokenKey(hash string) string {
	return s.tokenKeyPrefix() + hash
}

func (s *RedisStore) userKey(userID int64) string {
	return s.userKeyPrefix() + strconv.FormatInt(userID, 10)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Create stores a new record for userID.
func (s *RedisStore) Create(ctx context.Context, userID int64, raw string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.opts.Now())
	if ttl <= 0 {
		return errors.New("refresh expiry must be in the future")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	hash := HashSecret(raw)
	uid := strconv.FormatInt(userID, 10)
	expMs := expiresAt.UnixMilli()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.tokenKey(hash), "uid", uid, "exp", expMs)
		pipe.PExpire(ctx, s.tokenKey(hash), ttl)
		pipe.SAdd(ctx, s.userKey(userID), hash)
		pipe.ZAdd(ctx, s.expiryKey(), redis.Z{Score: float64(expMs), Member: uid + ":" + hash})
		return nil
	})
	if err != nil {
		return unavailable(err)
	}

	return nil
}

// Lookup returns the live record for raw. An expired record is deleted and
// reported as [ErrNotFound].
func (s *RedisStore) Lookup(ctx context.Context, raw string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	hash := HashSecret(raw)
	res, err := lookupLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(hash), s.expiryKey()},
		s.opts.Now().UnixMilli(),
		s.userKeyPrefix(),
		hash,
	).Slice()
	if err != nil {
		return Record{}, unavailable(err)
	}
	if len(res) == 0 {
		return Record{}, unavailable(errors.New("empty lookup result"))
	}

	status, _ := res[0].(int64)
	switch status {
	case lookupStatusMissing, lookupStatusExpired:
		return Record{}, ErrNotFound
	case lookupStatusFound:
	default:
		return Record{}, unavailable(fmt.Errorf("unexpected lookup status %v", res[0]))
	}

	if len(res) < 3 {
		return Record{}, unavailable(errors.New("short lookup result"))
	}
	uidStr, _ := res[1].(string)
	expStr, _ := res[2].(string)
	userID, err := strconv.ParseInt(uidStr, 10, 64)
	if err != nil {
		return Record{}, unavailable(fmt.Errorf("corrupt uid: %v", err))
	}
	expMs, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return Record{}, unavailable(fmt.Errorf("corrupt exp: %v", err))
	}

	return Record{UserID: userID, ExpiresAt: time.UnixMilli(expMs)}, nil
}

// Rotate atomically replaces oldRaw with newRaw for userID.
func (s *RedisStore) Rotate(ctx context.Context, oldRaw, newRaw string, userID int64, newExpiresAt time.Time) error {
	now := s.opts.Now()
	ttl := newExpiresAt.Sub(now)
	if ttl <= 0 {
		return errors.New("refresh expiry must be in the future")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	oldHash := HashSecret(oldRaw)
	newHash := HashSecret(newRaw)

	status, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(oldHash), s.tokenKey(newHash), s.expiryKey()},
		now.UnixMilli(),
		s.userKeyPrefix(),
		oldHash,
		newHash,
		strconv.FormatInt(userID, 10),
		newExpiresAt.UnixMilli(),
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusMissing, rotateStatusExpired, rotateStatusMismatch:
		return ErrNotFound
	default:
		return unavailable(fmt.Errorf("unexpected rotate status %d", status))
	}
}

// Delete removes the record for raw. Deleting an unknown secret is not an
// error.
func (s *RedisStore) Delete(ctx context.Context, raw string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	hash := HashSecret(raw)
	err := deleteLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(hash), s.expiryKey()},
		s.userKeyPrefix(),
		hash,
	).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteAllForUser removes every record owned by userID and returns how many
// live records were removed.
func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	n, err := deleteUserLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID), s.expiryKey()},
		s.tokenKeyPrefix(),
		strconv.FormatInt(userID, 10),
	).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// SweepExpired removes records whose expiry has passed, in batches, and
// returns how many index entries were cleared.
func (s *RedisStore) SweepExpired(ctx context.Context) (int64, error) {
	var total int64
	nowMs := s.opts.Now().UnixMilli()

	for {
		n, err := s.sweepBatch(ctx, nowMs)
		if err != nil {
			return total, err
		}
		total += n
		if n < sweepBatchSize {
			return total, nil
		}
	}
}

func (s *RedisStore) sweepBatch(ctx context.Context, nowMs int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	n, err := sweepLua.Run(
		ctx,
		s.redis,
		[]string{s.expiryKey()},
		nowMs,
		s.tokenKeyPrefix(),
		s.userKeyPrefix(),
		sweepBatchSize,
	).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
