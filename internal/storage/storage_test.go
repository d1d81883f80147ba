package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centennial-infotech/portal/internal/errors"
)

// exerciseKV runs the shared contract against any backend.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should not contain token")

	require.NoError(t, kv.Set(ctx, "token", "abc"))
	v, ok, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	require.NoError(t, kv.Set(ctx, "token", "def"))
	v, _, _ = kv.Get(ctx, "token")
	assert.Equal(t, "def", v)

	require.NoError(t, kv.Set(ctx, "isAdmin", ""))
	v, ok, err = kv.Get(ctx, "isAdmin")
	require.NoError(t, err)
	assert.True(t, ok, "empty value is still present")
	assert.Equal(t, "", v)

	require.NoError(t, kv.Delete(ctx, "token"))
	_, ok, err = kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Delete(ctx, "token"), "deleting an absent key is not an error")
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "session"))
	require.NoError(t, err)
	exerciseKV(t, kv)
}

func TestFileKV_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "userId", "u-42"))

	second, err := NewFileKV(dir)
	require.NoError(t, err)
	v, ok, err := second.Get(ctx, "userId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u-42", v)
}

func TestFileKV_RejectsPathKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	err = kv.Set(context.Background(), "../escape", "x")
	assert.Error(t, err)
}

func TestFileKV_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), "token", "secret"))

	info, err := os.Stat(filepath.Join(dir, "token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileKV_EmptyPath(t *testing.T) {
	_, err := NewFileKV("")
	assert.Error(t, err)
}

func TestMemoryKV_Concurrent(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = kv.Set(ctx, "token", "t")
			_, _, _ = kv.Get(ctx, "token")
			_ = kv.Delete(ctx, "isNewUser")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, kv.Len())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		kv, err := Open(ctx, Config{Backend: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &MemoryKV{}, kv)
	})

	t.Run("file default", func(t *testing.T) {
		kv, err := Open(ctx, Config{Path: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &FileKV{}, kv)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(ctx, Config{Backend: "s3"})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
	})

	t.Run("redis without address", func(t *testing.T) {
		_, err := Open(ctx, Config{Backend: "redis"})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeStorageUnavailable))
	})
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("PORTAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PORTAL_TEST_REDIS_ADDR not set")
	}

	kv, err := NewRedisKV(context.Background(), RedisConfig{Addr: addr}, "test-"+t.Name())
	require.NoError(t, err)
	defer kv.Close()

	exerciseKV(t, kv)
}
