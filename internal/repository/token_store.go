package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore tracks the currently-valid refresh tokens in Redis.  Keys are
// SHA-256 hashes of the raw token, never the token itself.  A per-user set
// indexes the hashes so every session can be revoked at once on password
// reset.
//
// Layout:
//
//	rt:<hash>     -> user id, expires with the token TTL
//	rtu:<userid>  -> set of hashes belonging to the user
type TokenStore struct{ RDB *redis.Client }

func NewTokenStore(rdb *redis.Client) *TokenStore { return &TokenStore{RDB: rdb} }

func tokenKey(hash string) string  { return "rt:" + hash }
func userSetKey(uid uint64) string { return fmt.Sprintf("rtu:%d", uid) }

// rotateScript atomically checks that the old token is still live,
// revokes it and installs the new one.  Running it as a single script
// makes rotation compare-and-swap: of two concurrent refresh calls with
// the same token, exactly one wins and the other observes the token as
// already gone.
var rotateScript = redis.NewScript(`
	local old_key = KEYS[1]
	local new_key = KEYS[2]
	local user_set = KEYS[3]
	local old_hash = ARGV[1]
	local new_hash = ARGV[2]
	local user_id = ARGV[3]
	local ttl_sec = tonumber(ARGV[4])

	if redis.call('EXISTS', old_key) == 0 then
		return 0
	end
	redis.call('DEL', old_key)
	redis.call('SREM', user_set, old_hash)
	redis.call('SET', new_key, user_id, 'EX', ttl_sec)
	redis.call('SADD', user_set, new_hash)
	redis.call('EXPIRE', user_set, ttl_sec)
	return 1
`)

// Save records a freshly-issued refresh token hash for a user.
func (s *TokenStore) Save(ctx context.Context, hash string, userID uint64, ttl time.Duration) error {
	pipe := s.RDB.TxPipeline()
	pipe.Set(ctx, tokenKey(hash), userID, ttl)
	pipe.SAdd(ctx, userSetKey(userID), hash)
	pipe.Expire(ctx, userSetKey(userID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Exists reports whether the hash is a currently-valid refresh credential.
func (s *TokenStore) Exists(ctx context.Context, hash string) (bool, error) {
	n, err := s.RDB.Exists(ctx, tokenKey(hash)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke removes a single refresh token (logout).  Revoking an unknown
// hash is not an error; the session is gone either way.
func (s *TokenStore) Revoke(ctx context.Context, hash string, userID uint64) error {
	pipe := s.RDB.TxPipeline()
	pipe.Del(ctx, tokenKey(hash))
	pipe.SRem(ctx, userSetKey(userID), hash)
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAll drops every live refresh token of a user (password reset).
func (s *TokenStore) RevokeAll(ctx context.Context, userID uint64) error {
	hashes, err := s.RDB.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return err
	}
	pipe := s.RDB.TxPipeline()
	for _, h := range hashes {
		pipe.Del(ctx, tokenKey(h))
	}
	pipe.Del(ctx, userSetKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}

// Rotate revokes oldHash and installs newHash in one atomic step.  It
// returns ErrRefreshReuse when oldHash is not in the store — revoked,
// expired, or already rotated by a concurrent (possibly hostile) caller.
func (s *TokenStore) Rotate(ctx context.Context, oldHash, newHash string, userID uint64, ttl time.Duration) error {
	res, err := rotateScript.Run(ctx, s.RDB,
		[]string{tokenKey(oldHash), tokenKey(newHash), userSetKey(userID)},
		oldHash, newHash, userID, int64(ttl/time.Second)).Int()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrRefreshReuse
	}
	return nil
}
