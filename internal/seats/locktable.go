package seats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"boleto/internal/shared/constants"
	"boleto/internal/shared/errs"
)

// LockTable holds per-seat locks in Redis. Every lock key carries the owning
// session ID as its value and the remaining hold time as its TTL, so an
// abandoned lock disappears on its own even if nothing ever sweeps it.
//
// Key layout:
//
//	seatlock:{event_id}:{row}-{column} -> session_id   (TTL = remaining hold)
//	seatlock:index:{event_id}          -> set of "row-column" members
//
// The index set lets a matrix read find the locked seats without scanning
// the whole keyspace. Members whose lock key already expired are pruned
// lazily during Snapshot.
type LockTable struct {
	redis *redis.Client
}

// NewLockTable creates a lock table backed by the given Redis client
func NewLockTable(redisClient *redis.Client) *LockTable {
	return &LockTable{redis: redisClient}
}

func seatLockKey(eventID string, ref SeatRef) string {
	return "seatlock:" + eventID + ":" + ref.Key()
}

func lockIndexKey(eventID string) string {
	return "seatlock:index:" + eventID
}

// Lua script for all-or-nothing lock acquisition. A seat already locked by
// the requesting session counts as free, so re-acquiring refreshes the TTL
// instead of failing.
const luaAcquireLocks = `
-- KEYS[1] = index key
-- KEYS[2..N] = seat lock keys
-- ARGV[1] = session_id
-- ARGV[2] = ttl_seconds
-- ARGV[3..N+1] = seat members, ARGV[i+1] pairs with KEYS[i]

local index_key = KEYS[1]
local session_id = ARGV[1]
local ttl = tonumber(ARGV[2])

-- First pass: every seat must be free or already ours
for i = 2, #KEYS do
    local owner = redis.call("GET", KEYS[i])
    if owner and owner ~= session_id then
        return {0, KEYS[i]}
    end
end

-- Second pass: take them all
for i = 2, #KEYS do
    redis.call("SET", KEYS[i], session_id, "EX", ttl)
    redis.call("SADD", index_key, ARGV[i + 1])
end

return {1, #KEYS - 1}
`

// Lua script for ownership-checked release. Seats locked by another session
// are left untouched.
const luaReleaseLocks = `
-- KEYS[1] = index key
-- KEYS[2..N] = seat lock keys
-- ARGV[1] = session_id
-- ARGV[2..N] = seat members, ARGV[i] pairs with KEYS[i]

local index_key = KEYS[1]
local session_id = ARGV[1]
local released = 0

for i = 2, #KEYS do
    if redis.call("GET", KEYS[i]) == session_id then
        redis.call("DEL", KEYS[i])
        redis.call("SREM", index_key, ARGV[i])
        released = released + 1
    end
end

return released
`

// Lua script for extending the TTL of locks the session still owns.
const luaRefreshLocks = `
-- KEYS[1..N] = seat lock keys
-- ARGV[1] = session_id
-- ARGV[2] = ttl_seconds

local session_id = ARGV[1]
local ttl = tonumber(ARGV[2])
local refreshed = 0

for i = 1, #KEYS do
    if redis.call("GET", KEYS[i]) == session_id then
        redis.call("EXPIRE", KEYS[i], ttl)
        refreshed = refreshed + 1
    end
end

return refreshed
`

// Lua script that checks the session still owns every seat. Used right
// before finalizing a purchase.
const luaVerifyLocks = `
-- KEYS[1..N] = seat lock keys
-- ARGV[1] = session_id

local session_id = ARGV[1]

for i = 1, #KEYS do
    if redis.call("GET", KEYS[i]) ~= session_id then
        return {0, KEYS[i]}
    end
end

return {1, #KEYS}
`

// Acquire locks every requested seat for the session, or none of them.
// A seat held by another session fails the whole batch with a Conflict
// error naming the contested seat.
func (lt *LockTable) Acquire(ctx context.Context, eventID, sessionID string, refs []SeatRef, ttl time.Duration) error {
	if lt.redis == nil {
		return errs.New(errs.KindInternal, "redis client not available")
	}
	if len(refs) == 0 {
		return errs.New(errs.KindValidation, "no seats to lock")
	}

	keys := make([]string, 0, len(refs)+1)
	keys = append(keys, lockIndexKey(eventID))
	args := []interface{}{sessionID, strconv.Itoa(int(ttl.Seconds()))}
	for _, ref := range refs {
		keys = append(keys, seatLockKey(eventID, ref))
		args = append(args, ref.Key())
	}

	result, err := lt.eval(ctx, luaAcquireLocks, keys, args...)
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "failed to acquire seat locks")
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return errs.New(errs.KindInternal, "unexpected result format from lock script")
	}

	success, _ := resultArray[0].(int64)
	if success == 0 {
		conflictKey, _ := resultArray[1].(string)
		seat := strings.TrimPrefix(conflictKey, "seatlock:"+eventID+":")
		return errs.New(errs.KindConflict, "seat %s is locked by another session", seat)
	}

	lt.invalidateMatrix(ctx, eventID)
	return nil
}

// invalidateMatrix drops the cached seat matrix snapshot after a lock
// mutation so the next read rebuilds it. Best effort, the snapshot TTL
// bounds staleness anyway.
func (lt *LockTable) invalidateMatrix(ctx context.Context, eventID string) {
	_ = lt.redis.Del(ctx, constants.SeatMatrixKey(eventID)).Err()
}

// Release drops the session's locks on the given seats. Locks owned by
// other sessions are skipped. Returns how many locks were actually removed.
func (lt *LockTable) Release(ctx context.Context, eventID, sessionID string, refs []SeatRef) (int, error) {
	if lt.redis == nil {
		return 0, errs.New(errs.KindInternal, "redis client not available")
	}
	if len(refs) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(refs)+1)
	keys = append(keys, lockIndexKey(eventID))
	args := []interface{}{sessionID}
	for _, ref := range refs {
		keys = append(keys, seatLockKey(eventID, ref))
		args = append(args, ref.Key())
	}

	result, err := lt.eval(ctx, luaReleaseLocks, keys, args...)
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, err, "failed to release seat locks")
	}

	released, ok := result.(int64)
	if !ok {
		return 0, errs.New(errs.KindInternal, "unexpected result format from release script")
	}

	if released > 0 {
		lt.invalidateMatrix(ctx, eventID)
	}
	return int(released), nil
}

// Refresh extends the TTL on every lock the session still owns.
// Returns how many locks were refreshed.
func (lt *LockTable) Refresh(ctx context.Context, eventID, sessionID string, refs []SeatRef, ttl time.Duration) (int, error) {
	if lt.redis == nil {
		return 0, errs.New(errs.KindInternal, "redis client not available")
	}
	if len(refs) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, seatLockKey(eventID, ref))
	}

	result, err := lt.eval(ctx, luaRefreshLocks, keys, sessionID, strconv.Itoa(int(ttl.Seconds())))
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, err, "failed to refresh seat locks")
	}

	refreshed, ok := result.(int64)
	if !ok {
		return 0, errs.New(errs.KindInternal, "unexpected result format from refresh script")
	}

	return int(refreshed), nil
}

// VerifyHeld checks the session still owns a lock on every seat.
// A missing or foreign lock fails with a Conflict error naming the seat.
func (lt *LockTable) VerifyHeld(ctx context.Context, eventID, sessionID string, refs []SeatRef) error {
	if lt.redis == nil {
		return errs.New(errs.KindInternal, "redis client not available")
	}
	if len(refs) == 0 {
		return errs.New(errs.KindValidation, "no seats to verify")
	}

	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, seatLockKey(eventID, ref))
	}

	result, err := lt.eval(ctx, luaVerifyLocks, keys, sessionID)
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "failed to verify seat locks")
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return errs.New(errs.KindInternal, "unexpected result format from verify script")
	}

	success, _ := resultArray[0].(int64)
	if success == 0 {
		lostKey, _ := resultArray[1].(string)
		seat := strings.TrimPrefix(lostKey, "seatlock:"+eventID+":")
		return errs.New(errs.KindConflict, "lock on seat %s is no longer held", seat)
	}

	return nil
}

// Snapshot returns the currently locked seats of an event as a map from
// "row-column" to owning session ID. Index members whose lock key already
// expired are pruned on the way.
func (lt *LockTable) Snapshot(ctx context.Context, eventID string) (map[string]string, error) {
	if lt.redis == nil {
		return nil, errs.New(errs.KindInternal, "redis client not available")
	}

	members, err := lt.redis.SMembers(ctx, lockIndexKey(eventID)).Result()
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to read lock index")
	}
	if len(members) == 0 {
		return map[string]string{}, nil
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		keys = append(keys, "seatlock:"+eventID+":"+member)
	}

	values, err := lt.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to read lock keys")
	}

	locked := make(map[string]string, len(members))
	var stale []interface{}
	for i, value := range values {
		if value == nil {
			stale = append(stale, members[i])
			continue
		}
		owner, ok := value.(string)
		if !ok {
			continue
		}
		locked[members[i]] = owner
	}

	if len(stale) > 0 {
		_ = lt.redis.SRem(ctx, lockIndexKey(eventID), stale...).Err()
	}

	return locked, nil
}

// PreloadScripts loads the Lua scripts into Redis for better performance
func (lt *LockTable) PreloadScripts(ctx context.Context) error {
	if lt.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	scripts := []string{luaAcquireLocks, luaReleaseLocks, luaRefreshLocks, luaVerifyLocks}
	for _, script := range scripts {
		if _, err := lt.redis.ScriptLoad(ctx, script).Result(); err != nil {
			return fmt.Errorf("failed to load lock script: %w", err)
		}
	}

	return nil
}

func (lt *LockTable) eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	result, err := lt.redis.EvalSha(ctx, script, keys, args...).Result()
	if err != nil {
		// Script not loaded yet, fall back to a plain eval
		result, err = lt.redis.Eval(ctx, script, keys, args...).Result()
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
