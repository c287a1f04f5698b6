package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	defer m.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.SetBytes(ctx, "dominance", []byte("54.2"), 300*time.Second))

	b, ok, err := m.GetBytes(ctx, "dominance")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "54.2", string(b))

	now = now.Add(300 * time.Second)
	_, ok, err = m.GetBytes(ctx, "dominance")
	require.NoError(t, err)
	assert.False(t, ok)

	m.cleanup()
	assert.Zero(t, m.Len())
}

func TestMemory_NoTTLKeeps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	require.NoError(t, m.SetBytes(ctx, "k", []byte("v"), 0))
	m.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	_, ok, err := m.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	type quote struct {
		Price float64 `json:"price"`
	}
	require.NoError(t, SetJSON(ctx, m, "q", quote{Price: 42000.5}, time.Minute))

	var got quote
	ok, err := GetJSON(ctx, m, "q", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42000.5, got.Price)

	ok, err = GetJSON(ctx, m, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	r := NewRedis(RedisConfig{Addr: addr, Prefix: "monitor-test:"})
	defer r.Close()
	require.NoError(t, r.Ping(ctx))

	require.NoError(t, r.SetBytes(ctx, "k", []byte("v"), time.Minute))
	b, ok, err := r.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(b))

	_, ok, err = r.GetBytes(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}
