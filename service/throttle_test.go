// file: service/throttle_test.go

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockThrottleStore struct{ mock.Mock }

func (m *mockThrottleStore) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(key)
	return args.Get(0).(*redis.StringCmd)
}
func (m *mockThrottleStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	args := m.Called(key)
	return args.Get(0).(*redis.IntCmd)
}
func (m *mockThrottleStore) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(key, expiration)
	return args.Get(0).(*redis.BoolCmd)
}
func (m *mockThrottleStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(keys)
	return args.Get(0).(*redis.IntCmd)
}

func TestLoginThrottle_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("no recorded failures", func(t *testing.T) {
		store := new(mockThrottleStore)
		store.On("Get", "login_attempts:a@x.com").Return(redis.NewStringResult("", redis.Nil)).Once()

		throttle := NewLoginThrottle(store, 10, 15*time.Minute)
		allowed, err := throttle.Allow(ctx, "a@x.com")
		assert.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("under the limit", func(t *testing.T) {
		store := new(mockThrottleStore)
		store.On("Get", "login_attempts:a@x.com").Return(redis.NewStringResult("9", nil)).Once()

		throttle := NewLoginThrottle(store, 10, 15*time.Minute)
		allowed, _ := throttle.Allow(ctx, "a@x.com")
		assert.True(t, allowed)
	})

	t.Run("at the limit", func(t *testing.T) {
		store := new(mockThrottleStore)
		store.On("Get", "login_attempts:a@x.com").Return(redis.NewStringResult("10", nil)).Once()

		throttle := NewLoginThrottle(store, 10, 15*time.Minute)
		allowed, _ := throttle.Allow(ctx, "a@x.com")
		assert.False(t, allowed)
	})

	t.Run("redis unavailable fails open", func(t *testing.T) {
		store := new(mockThrottleStore)
		store.On("Get", "login_attempts:a@x.com").
			Return(redis.NewStringResult("", errors.New("connection refused"))).Once()

		throttle := NewLoginThrottle(store, 10, 15*time.Minute)
		allowed, err := throttle.Allow(ctx, "a@x.com")
		assert.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestLoginThrottle_RecordFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("first failure arms the window", func(t *testing.T) {
		store := new(mockThrottleStore)
		store.On("Incr", "login_attempts:a@x.com").Return(redis.NewIntResult(1, nil)).Once()
		store.On("Expire", "login_attempts:a@x.com", 15*time.Minute).Return(redis.NewBoolResult(true, nil)).Once()

		throttle := NewLoginThrottle(store, 10, 15*time.Minute)
		assert.NoError(t, throttle.RecordFailure(ctx, "a@x.com"))
		store.AssertExpectations(t)
	})

	t.Run("later failures only increment", func(t *testing.T) {
		store := new(mockThrottleStore)
		store.On("Incr", "login_attempts:a@x.com").Return(redis.NewIntResult(4, nil)).Once()

		throttle := NewLoginThrottle(store, 10, 15*time.Minute)
		assert.NoError(t, throttle.RecordFailure(ctx, "a@x.com"))
		store.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything)
	})
}

func TestLoginThrottle_Reset(t *testing.T) {
	store := new(mockThrottleStore)
	store.On("Del", []string{"login_attempts:a@x.com"}).Return(redis.NewIntResult(1, nil)).Once()

	throttle := NewLoginThrottle(store, 10, 15*time.Minute)
	assert.NoError(t, throttle.Reset(context.Background(), "a@x.com"))
	store.AssertExpectations(t)
}
