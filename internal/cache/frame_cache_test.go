package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCacheFreshDirectoryInit(t *testing.T) {
	// A fresh directory has no index, so init takes the rebuild path; it must
	// come back promptly with an empty cache
	done := make(chan error, 1)
	var c *FrameCache
	go func() {
		var err error
		c, err = NewFrameCache(filepath.Join(t.TempDir(), "frames"), 10, 30)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cache init did not return")
	}

	entries, size, _ := c.Stats()
	assert.Zero(t, entries)
	assert.Zero(t, size)
}

func TestFrameCacheSetGet(t *testing.T) {
	c, err := NewFrameCache(t.TempDir(), 10, 30)
	require.NoError(t, err)

	data := []byte("png-bytes")
	require.NoError(t, c.Set("landsat", "abc123", "2021-07", data))

	got, ok := c.Get("landsat", "abc123", "2021-07")
	require.True(t, ok)
	assert.Equal(t, data, got)

	_, ok = c.Get("landsat", "abc123", "2021-08")
	assert.False(t, ok)

	entries, size, _ := c.Stats()
	assert.Equal(t, 1, entries)
	assert.Equal(t, int64(len(data)), size)
}

func TestFrameCacheLayout(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFrameCache(dir, 10, 30)
	require.NoError(t, err)

	require.NoError(t, c.Set("sentinel2", "deadbeef", "2020-Q3", []byte("x")))

	path, ok := c.FramePath("sentinel2", "deadbeef", "2020-Q3")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "sentinel2", "deadbeef", "2020-Q3.png"), path)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFrameCacheRebuildFromDisk(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFrameCache(dir, 10, 30)
	require.NoError(t, err)
	require.NoError(t, first.Set("goes", "cafe01", "2021-10-24", []byte("frame")))

	// Drop the index so the next open has to rescan the tree
	require.NoError(t, os.Remove(filepath.Join(dir, "cache_index.json")))

	second, err := NewFrameCache(dir, 10, 30)
	require.NoError(t, err)

	got, ok := second.Get("goes", "cafe01", "2021-10-24")
	require.True(t, ok)
	assert.Equal(t, []byte("frame"), got)
}

func TestFrameCacheClear(t *testing.T) {
	c, err := NewFrameCache(t.TempDir(), 10, 30)
	require.NoError(t, err)

	require.NoError(t, c.Set("landsat", "abc", "2020", []byte("a")))
	require.NoError(t, c.Set("landsat", "abc", "2021", []byte("b")))

	require.NoError(t, c.Clear())

	entries, size, _ := c.Stats()
	assert.Zero(t, entries)
	assert.Zero(t, size)

	_, ok := c.Get("landsat", "abc", "2020")
	assert.False(t, ok)
}

func TestFrameCacheSizeEvictionReturns(t *testing.T) {
	// Zero size budget puts every entry over the limit
	c, err := NewFrameCache(t.TempDir(), 0, 30)
	require.NoError(t, err)

	require.NoError(t, c.Set("landsat", "abc", "2020", []byte("aaaa")))
	require.NoError(t, c.Set("landsat", "abc", "2021", []byte("bbbb")))

	done := make(chan struct{})
	go func() {
		c.evictOldFrames()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("size eviction did not return")
	}

	entries, size, _ := c.Stats()
	assert.Zero(t, entries)
	assert.Zero(t, size)
}

func TestFrameCacheTTLSweepReturns(t *testing.T) {
	c, err := NewFrameCache(t.TempDir(), 10, 1)
	require.NoError(t, err)

	require.NoError(t, c.Set("modis", "aa11", "2019-06", []byte("stale")))

	c.mu.Lock()
	for _, meta := range c.metadata {
		meta.CreateTime = time.Now().Add(-48 * time.Hour)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.evictExpiredFrames()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("TTL sweep did not return")
	}

	entries, _, _ := c.Stats()
	assert.Zero(t, entries)
}

func TestFrameCacheMissingFileEvictsEntry(t *testing.T) {
	c, err := NewFrameCache(t.TempDir(), 10, 30)
	require.NoError(t, err)

	require.NoError(t, c.Set("naip", "ff00", "2019", []byte("gone")))
	path, ok := c.FramePath("naip", "ff00", "2019")
	require.True(t, ok)
	require.NoError(t, os.Remove(path))

	_, ok = c.Get("naip", "ff00", "2019")
	assert.False(t, ok)

	entries, _, _ := c.Stats()
	assert.Zero(t, entries)
}
