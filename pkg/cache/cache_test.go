package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 50*time.Millisecond))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	time.Sleep(80 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := NewRedisCache(client, "walkabout")

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "rates", []byte(`{"NZD":1.67}`), time.Minute))

	got, err := c.Get(ctx, "rates")
	require.NoError(t, err)
	assert.JSONEq(t, `{"NZD":1.67}`, string(got))

	require.NoError(t, c.Delete(ctx, "rates"))
	_, err = c.Get(ctx, "rates")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManagerJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager(NewMemoryCache())

	type payload struct {
		Route string  `json:"route"`
		Price float64 `json:"price"`
	}

	require.NoError(t, m.SetJSON(ctx, "p", payload{Route: "AKL-NRT", Price: 899}, time.Minute))

	var got payload
	require.NoError(t, m.GetJSON(ctx, "p", &got))
	assert.Equal(t, "AKL-NRT", got.Route)
	assert.Equal(t, 899.0, got.Price)
}

func TestPromptKeyStable(t *testing.T) {
	t.Parallel()

	k1 := PromptKey("analyze AKL-NRT", "you are a travel analyst")
	k2 := PromptKey("analyze AKL-NRT", "you are a travel analyst")
	k3 := PromptKey("analyze AKL-SYD", "you are a travel analyst")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
