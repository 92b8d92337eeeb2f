package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, ceiling int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, ceiling), mr
}

func TestEnforceUnderCeiling(t *testing.T) {
	l, _ := newLimiter(t, 20)
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Enforce(context.Background(), "1234567890"))
	}
}

func TestEnforceCeilingPlusOne(t *testing.T) {
	l, _ := newLimiter(t, 20)
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Enforce(context.Background(), "1234567890"))
	}
	err := l.Enforce(context.Background(), "1234567890")
	require.ErrorIs(t, err, ErrRateLimitExceeded)
}

func TestEnforcePerRecipientBuckets(t *testing.T) {
	l, _ := newLimiter(t, 1)
	require.NoError(t, l.Enforce(context.Background(), "111"))
	require.NoError(t, l.Enforce(context.Background(), "222"))
	require.ErrorIs(t, l.Enforce(context.Background(), "111"), ErrRateLimitExceeded)
}

func TestBucketAlwaysHasTTL(t *testing.T) {
	l, mr := newLimiter(t, 20)
	require.NoError(t, l.Enforce(context.Background(), "1234567890"))

	key := bucketKey("1234567890", time.Now().UTC())
	require.True(t, mr.Exists(key))
	require.Greater(t, mr.TTL(key), time.Duration(0))

	// A second increment must not reset the expiry window.
	mr.FastForward(30 * time.Second)
	require.NoError(t, l.Enforce(context.Background(), "1234567890"))
	require.LessOrEqual(t, mr.TTL(key), 30*time.Second)
}

func TestBucketResetsAfterExpiry(t *testing.T) {
	l, mr := newLimiter(t, 1)
	key := bucketKey("555", time.Now().UTC())
	require.NoError(t, l.Enforce(context.Background(), "555"))
	require.ErrorIs(t, l.Enforce(context.Background(), "555"), ErrRateLimitExceeded)

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists(key))
}
