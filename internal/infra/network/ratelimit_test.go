package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstThenRefill(t *testing.T) {
	b := NewTokenBucket(2, 1)
	now := b.last
	assert.True(t, b.Allow(now))
	assert.True(t, b.Allow(now))
	assert.False(t, b.Allow(now))
	assert.True(t, b.Allow(now.Add(time.Second)))
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	b := NewTokenBucket(1, 0.001)
	require.NoError(t, b.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Wait(ctx), context.DeadlineExceeded)
}

func TestTokenBucketWaitSleepsForRefill(t *testing.T) {
	b := NewTokenBucket(1, 50)
	require.NoError(t, b.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, b.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
