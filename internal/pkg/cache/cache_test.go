package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubtip/tubtip/internal/pkg/config"
)

func testConfig(t *testing.T) (config.CacheConfig, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return config.CacheConfig{Host: mr.Host(), Port: mr.Port()}, mr
}

func TestNewClientPing(t *testing.T) {
	cfg, _ := testConfig(t)
	client := NewClient(cfg)
	defer client.Close()

	require.NoError(t, Ping(context.Background(), client))
}

func TestPingFailure(t *testing.T) {
	cfg, mr := testConfig(t)
	client := NewClient(cfg)
	defer client.Close()
	mr.Close()

	assert.Error(t, Ping(context.Background(), client))
}

func TestStorageUsesSeparateDatabase(t *testing.T) {
	cfg, mr := testConfig(t)
	store := NewStorage(cfg, LimiterDB)
	defer store.Close()

	require.NoError(t, store.Set("hits", []byte("1"), time.Minute))
	got, err := store.Get("hits")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	mr.Select(LimiterDB)
	assert.True(t, mr.Exists("hits"))
	mr.Select(0)
	assert.False(t, mr.Exists("hits"))
}
