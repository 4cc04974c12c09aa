package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonathan/career-predictor/internal/prediction"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, ttl time.Duration) (*PredictionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, ttl), mr
}

func TestPredictionCache_Miss(t *testing.T) {
	c, _ := setupCache(t, time.Minute)

	results, ok, err := c.Get(context.Background(), "v1:abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, results)
}

func TestPredictionCache_RoundTrip(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	want := []prediction.Result{
		{Role: "Data Analyst", MatchPercentage: 81.5, MissingSkills: []string{"pandas", "sql"}},
	}
	require.NoError(t, c.Set(ctx, "v1:abc", want))
	assert.True(t, mr.Exists(keyPrefix+"v1:abc"))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"v1:abc"))

	got, ok, err := c.Get(ctx, "v1:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestPredictionCache_Expires(t *testing.T) {
	c, mr := setupCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []prediction.Result{{Role: "x", MatchPercentage: 1}}))
	mr.FastForward(2 * time.Second)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPredictionCache_CorruptEntry(t *testing.T) {
	c, mr := setupCache(t, time.Minute)
	require.NoError(t, mr.Set(keyPrefix+"bad", "not-json"))

	_, ok, err := c.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNew_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Config{Address: addr})
	assert.Error(t, err)
}

func TestNew_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), Config{Address: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
