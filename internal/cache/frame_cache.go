package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// FrameCache provides disk-based caching of rendered composite frames.
// Frames are expensive to render server-side, so they persist across app
// restarts keyed by provider, series hash, and window label.
type FrameCache struct {
	baseDir   string
	maxSize   int64 // Maximum cache size in bytes
	currSize  int64 // Current cache size (atomic)
	ttl       time.Duration
	mu        sync.RWMutex
	metadata  map[string]*FrameMetadata // Persistent metadata index
	evictChan chan struct{}
}

// FrameMetadata stores information about a cached frame
type FrameMetadata struct {
	Key        string    `json:"key"`
	Provider   string    `json:"provider"`
	SeriesHash string    `json:"seriesHash"` // Hash of region + composite parameters
	Label      string    `json:"label"`      // Date-window label
	Size       int64     `json:"size"`
	AccessTime time.Time `json:"accessTime"`
	CreateTime time.Time `json:"createTime"`
}

// NewFrameCache creates a new persistent frame cache
// Cache structure: baseDir/{provider}/{seriesHash}/{label}.png
// Metadata index: baseDir/cache_index.json
func NewFrameCache(baseDir string, maxSizeMB int, ttlDays int) (*FrameCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &FrameCache{
		baseDir:   baseDir,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
		metadata:  make(map[string]*FrameMetadata),
		evictChan: make(chan struct{}, 1),
	}

	// Load metadata index from disk
	if err := cache.loadMetadata(); err != nil {
		// If metadata can't be loaded, rebuild it from disk
		if err := cache.rebuildMetadata(); err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	// Start background maintenance
	go cache.maintenanceWorker()

	return cache, nil
}

// Get retrieves a frame from cache
func (c *FrameCache) Get(provider, seriesHash, label string) ([]byte, bool) {
	key := c.buildKey(provider, seriesHash, label)

	c.mu.RLock()
	meta, exists := c.metadata[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	// Check if frame has expired
	if c.ttl > 0 && time.Since(meta.CreateTime) > c.ttl {
		c.evictFrame(key, meta)
		return nil, false
	}

	filePath := c.buildFilePath(meta)

	data, err := os.ReadFile(filePath)
	if err != nil {
		// File missing - remove from metadata
		c.evictFrame(key, meta)
		return nil, false
	}

	// Update access time
	c.mu.Lock()
	meta.AccessTime = time.Now()
	c.mu.Unlock()

	// Persist metadata update (async)
	go c.saveMetadata()

	return data, true
}

// Set stores a rendered frame in cache
func (c *FrameCache) Set(provider, seriesHash, label string, data []byte) error {
	key := c.buildKey(provider, seriesHash, label)
	size := int64(len(data))

	now := time.Now()
	meta := &FrameMetadata{
		Key:        key,
		Provider:   provider,
		SeriesHash: seriesHash,
		Label:      label,
		Size:       size,
		AccessTime: now,
		CreateTime: now,
	}

	filePath := c.buildFilePath(meta)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	// Update metadata
	c.mu.Lock()
	oldMeta, exists := c.metadata[key]
	if exists {
		atomic.AddInt64(&c.currSize, -oldMeta.Size)
	}
	c.metadata[key] = meta
	c.mu.Unlock()

	atomic.AddInt64(&c.currSize, size)

	// Trigger eviction if needed
	if atomic.LoadInt64(&c.currSize) > c.maxSize {
		select {
		case c.evictChan <- struct{}{}:
		default:
		}
	}

	// Save metadata (async)
	go c.saveMetadata()

	return nil
}

// FramePath returns the on-disk path of a cached frame, for serving directly
// from the preview server
func (c *FrameCache) FramePath(provider, seriesHash, label string) (string, bool) {
	key := c.buildKey(provider, seriesHash, label)

	c.mu.RLock()
	meta, exists := c.metadata[key]
	c.mu.RUnlock()

	if !exists {
		return "", false
	}
	return c.buildFilePath(meta), true
}

// buildKey creates a cache key for a frame
func (c *FrameCache) buildKey(provider, seriesHash, label string) string {
	return fmt.Sprintf("%s:%s:%s", provider, seriesHash, label)
}

// buildFilePath creates the file path for a frame
// Structure: {baseDir}/{provider}/{seriesHash}/{label}.png
func (c *FrameCache) buildFilePath(meta *FrameMetadata) string {
	// Labels are dates and quarter names; sanitize anyway
	label := strings.ReplaceAll(meta.Label, "/", "-")
	label = strings.ReplaceAll(label, ":", "-")
	return filepath.Join(c.baseDir, meta.Provider, meta.SeriesHash, label+".png")
}

// evictFrame removes a frame from cache
func (c *FrameCache) evictFrame(key string, meta *FrameMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filePath := c.buildFilePath(meta)
	os.Remove(filePath)
	delete(c.metadata, key)
	atomic.AddInt64(&c.currSize, -meta.Size)
}

// maintenanceWorker runs periodic cache maintenance
func (c *FrameCache) maintenanceWorker() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.evictChan:
			c.evictOldFrames()
		case <-ticker.C:
			c.evictExpiredFrames()
		}
	}
}

// evictOldFrames removes least recently used frames when cache is full
func (c *FrameCache) evictOldFrames() {
	c.mu.Lock()
	defer c.mu.Unlock()

	currSize := atomic.LoadInt64(&c.currSize)
	if currSize <= c.maxSize {
		return
	}

	// Target size: 80% of max to avoid thrashing
	targetSize := c.maxSize * 8 / 10

	type sortEntry struct {
		key        string
		accessTime time.Time
		size       int64
		meta       *FrameMetadata
	}

	entries := make([]sortEntry, 0, len(c.metadata))
	for key, meta := range c.metadata {
		entries = append(entries, sortEntry{
			key:        key,
			accessTime: meta.AccessTime,
			size:       meta.Size,
			meta:       meta,
		})
	}

	// Sort by access time (oldest first)
	for i := 0; i < len(entries)-1; i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[i].accessTime.After(entries[j].accessTime) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	// Evict oldest until under target size
	for _, e := range entries {
		if currSize <= targetSize {
			break
		}

		filePath := c.buildFilePath(e.meta)
		os.Remove(filePath)
		delete(c.metadata, e.key)
		atomic.AddInt64(&c.currSize, -e.size)
		currSize -= e.size
	}

	c.saveMetadataLocked()
}

// evictExpiredFrames removes frames that exceed TTL
func (c *FrameCache) evictExpiredFrames() {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	toEvict := []string{}

	for key, meta := range c.metadata {
		if now.Sub(meta.CreateTime) > c.ttl {
			toEvict = append(toEvict, key)
		}
	}

	for _, key := range toEvict {
		meta := c.metadata[key]
		filePath := c.buildFilePath(meta)
		os.Remove(filePath)
		delete(c.metadata, key)
		atomic.AddInt64(&c.currSize, -meta.Size)
	}

	if len(toEvict) > 0 {
		c.saveMetadataLocked()
	}
}

// loadMetadata loads the metadata index from disk
func (c *FrameCache) loadMetadata() error {
	metaPath := filepath.Join(c.baseDir, "cache_index.json")

	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("metadata file not found")
		}
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata map[string]*FrameMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}

	c.metadata = metadata

	var totalSize int64
	for _, meta := range metadata {
		totalSize += meta.Size
	}
	atomic.StoreInt64(&c.currSize, totalSize)

	return nil
}

// saveMetadata snapshots the index under the read lock and writes it to disk.
// Callers must not hold c.mu; use saveMetadataLocked from inside the lock.
func (c *FrameCache) saveMetadata() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	c.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return c.writeIndex(data)
}

// saveMetadataLocked writes the index for callers already holding c.mu
func (c *FrameCache) saveMetadataLocked() error {
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return c.writeIndex(data)
}

// writeIndex atomically replaces cache_index.json via temp file and rename
func (c *FrameCache) writeIndex(data []byte) error {
	metaPath := filepath.Join(c.baseDir, "cache_index.json")

	tempPath := metaPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := os.Rename(tempPath, metaPath); err != nil {
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}

	return nil
}

// rebuildMetadata rebuilds the metadata index by scanning the cache directory
func (c *FrameCache) rebuildMetadata() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metadata = make(map[string]*FrameMetadata)
	var totalSize int64

	// Walk the cache directory: {provider}/{seriesHash}/{label}.png
	err := filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".png" {
			return nil
		}

		relPath, _ := filepath.Rel(c.baseDir, path)
		parts := strings.Split(relPath, string(os.PathSeparator))

		if len(parts) != 3 {
			return nil // Invalid path structure
		}

		provider := parts[0]
		seriesHash := parts[1]
		label := strings.TrimSuffix(parts[2], ".png")

		key := c.buildKey(provider, seriesHash, label)
		meta := &FrameMetadata{
			Key:        key,
			Provider:   provider,
			SeriesHash: seriesHash,
			Label:      label,
			Size:       info.Size(),
			AccessTime: info.ModTime(),
			CreateTime: info.ModTime(),
		}

		c.metadata[key] = meta
		totalSize += info.Size()

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to scan cache directory: %w", err)
	}

	atomic.StoreInt64(&c.currSize, totalSize)

	// Save rebuilt metadata
	return c.saveMetadataLocked()
}

// Stats returns cache statistics
func (c *FrameCache) Stats() (entries int, sizeBytes int64, maxBytes int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metadata), atomic.LoadInt64(&c.currSize), c.maxSize
}

// Clear removes all cached frames
func (c *FrameCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, meta := range c.metadata {
		filePath := c.buildFilePath(meta)
		os.Remove(filePath)
	}

	c.metadata = make(map[string]*FrameMetadata)
	atomic.StoreInt64(&c.currSize, 0)

	return c.saveMetadataLocked()
}

// GetCachePath returns the base directory of the cache
func (c *FrameCache) GetCachePath() string {
	return c.baseDir
}
