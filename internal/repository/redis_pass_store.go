package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/eventhub/internal/model"
)

// RedisPassStore keeps each pass in a hash <prefix>:pass:<id> and points
// <prefix>:live:<user>:<event> at the live pass of a pair.  Writes run as Lua
// scripts, which Redis executes without interleaving other commands.
type RedisPassStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisPassStore(rdb *redis.Client, prefix string) *RedisPassStore {
	if prefix == "" {
		prefix = "eventhub"
	}
	return &RedisPassStore{rdb: rdb, prefix: prefix}
}

// returns -1 for a reused pass id, 0 when the pair already has a live pass
var insertPassScript = redis.NewScript(`
    if redis.call('EXISTS', KEYS[1]) == 1 then
        return -1
    end
    if not redis.call('SET', KEYS[2], ARGV[1], 'NX') then
        return 0
    end
    redis.call('HSET', KEYS[1], 'user_id', ARGV[2], 'event_id', ARGV[3], 'valid', 1, 'issued_at', ARGV[4])
    return 1
`)

// returns {0} for unknown or used passes, {1, user_id, event_id} otherwise
var verifyPassScript = redis.NewScript(`
    local state = redis.call('HMGET', KEYS[1], 'valid', 'user_id', 'event_id')
    if state[1] ~= '1' then
        return { 0 }
    end
    redis.call('HSET', KEYS[1], 'valid', 0, 'used_at', ARGV[1])
    local live = ARGV[2] .. state[2] .. ':' .. state[3]
    if redis.call('GET', live) == ARGV[3] then
        redis.call('DEL', live)
    end
    return { 1, state[2], state[3] }
`)

func (s *RedisPassStore) passKey(passID string) string { return s.prefix + ":pass:" + passID }

func (s *RedisPassStore) livePrefix() string { return s.prefix + ":live:" }

func (s *RedisPassStore) liveKey(userID, eventID int64) string {
	return fmt.Sprintf("%s%d:%d", s.livePrefix(), userID, eventID)
}

func (s *RedisPassStore) Insert(ctx context.Context, passID string, userID, eventID int64) error {
	if err := checkPassID(passID); err != nil {
		return err
	}
	if err := checkOwner(userID, eventID); err != nil {
		return err
	}
	keys := []string{s.passKey(passID), s.liveKey(userID, eventID)}
	n, err := insertPassScript.Run(ctx, s.rdb, keys,
		passID, userID, eventID, time.Now().UTC().UnixMilli()).Int64()
	if err != nil {
		return fmt.Errorf("redis insert pass: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return ErrLivePassExists
	default:
		return ErrDuplicatePass
	}
}

func (s *RedisPassStore) Verify(ctx context.Context, passID string) (model.VerifyResult, error) {
	if strings.TrimSpace(passID) == "" {
		return model.VerifyResult{}, ErrInvalidInput
	}
	if len(passID) > MaxPassIDLen {
		return model.VerifyResult{Valid: false}, nil // never stored
	}
	vals, err := verifyPassScript.Run(ctx, s.rdb, []string{s.passKey(passID)},
		time.Now().UTC().UnixMilli(), s.livePrefix(), passID).Slice()
	if err != nil {
		return model.VerifyResult{}, fmt.Errorf("redis verify pass: %w", err)
	}
	if len(vals) == 0 || toInt64(vals[0]) != 1 {
		return model.VerifyResult{Valid: false}, nil
	}
	if len(vals) != 3 {
		return model.VerifyResult{}, fmt.Errorf("redis verify pass: unexpected reply %#v", vals)
	}
	return model.VerifyResult{Valid: true, UserID: toInt64(vals[1]), EventID: toInt64(vals[2])}, nil
}

func (s *RedisPassStore) FindLivePass(ctx context.Context, userID, eventID int64) (model.Pass, bool, error) {
	if err := checkOwner(userID, eventID); err != nil {
		return model.Pass{}, false, err
	}
	passID, err := s.rdb.Get(ctx, s.liveKey(userID, eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Pass{}, false, nil
	}
	if err != nil {
		return model.Pass{}, false, fmt.Errorf("redis live pointer: %w", err)
	}
	state, err := s.rdb.HMGet(ctx, s.passKey(passID), "valid", "issued_at").Result()
	if err != nil {
		return model.Pass{}, false, fmt.Errorf("redis load pass: %w", err)
	}
	if len(state) != 2 || fmt.Sprint(state[0]) != "1" {
		// pointer outlived its pass; treat the pair as having none
		return model.Pass{}, false, nil
	}
	return model.Pass{
		PassID:   passID,
		UserID:   userID,
		EventID:  eventID,
		Valid:    true,
		IssuedAt: time.UnixMilli(toInt64(state[1])).UTC(),
	}, true, nil
}

// Ping reports whether Redis is reachable.
func (s *RedisPassStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
