// file: service/throttle.go

package service

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"vh-recruit-api/logger"

	"github.com/redis/go-redis/v9"
)

// IThrottleStore defines the subset of Redis commands the login throttle
// needs. The abstraction decouples the throttle from a concrete Redis
// client, enabling easier testing.
type IThrottleStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// LoginThrottle counts failed logins per email in Redis with a sliding-off
// TTL window. Redis being down fails open: the throttle protects against
// brute force, it must never take authentication down with it.
type LoginThrottle struct {
	store       IThrottleStore
	maxAttempts int
	window      time.Duration
}

func NewLoginThrottle(store IThrottleStore, maxAttempts int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func throttleKey(email string) string {
	return fmt.Sprintf("login_attempts:%s", email)
}

// Allow reports whether another login attempt for this email may proceed.
func (t *LoginThrottle) Allow(ctx context.Context, email string) (bool, error) {
	val, err := t.store.Get(ctx, throttleKey(email)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		logger.Log.WithError(err).Warn("Login throttle unavailable, failing open")
		return true, nil
	}

	attempts, err := strconv.Atoi(val)
	if err != nil {
		return true, nil
	}
	return attempts < t.maxAttempts, nil
}

// RecordFailure bumps the counter and arms the window on the first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, email string) error {
	key := throttleKey(email)
	attempts, err := t.store.Incr(ctx, key).Result()
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to record login failure")
		return nil
	}
	if attempts == 1 {
		t.store.Expire(ctx, key, t.window)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	if err := t.store.Del(ctx, throttleKey(email)).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to reset login throttle")
	}
	return nil
}
