package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
)

// DedupCache is a bounded recency cache of message fingerprints used to
// reject redelivered messages. Entries expire after the retention
// window; when the cache is full the oldest entry is evicted first.
// Expired entries are purged lazily on insertion and by a periodic
// sweep started via StartSweeper.
type DedupCache struct {
	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List // newest at front
	capacity  int
	retention time.Duration
	logger    zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	now func() time.Time
}

// dedupEntry pairs a fingerprint with the time it was first seen
type dedupEntry struct {
	fingerprint string
	seenAt      time.Time
}

// NewDedupCache creates a new DedupCache instance
func NewDedupCache(capacity int, retention time.Duration, logger zerolog.Logger) *DedupCache {
	if capacity <= 0 {
		capacity = 10000 // Default
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &DedupCache{
		entries:   make(map[string]*list.Element),
		order:     list.New(),
		capacity:  capacity,
		retention: retention,
		logger:    logger.With().Str("component", "dedup_cache").Logger(),
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// MarkSeen records the fingerprint and returns true if this is its first
// sighting within the retention window. A repeat returns false without
// mutating state.
func (c *DedupCache) MarkSeen(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.purgeExpiredLocked(now)

	if _, exists := c.entries[fingerprint]; exists {
		return false
	}

	// Evict oldest when at capacity
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*dedupEntry)
		delete(c.entries, entry.fingerprint)
		c.order.Remove(oldest)
	}

	elem := c.order.PushFront(&dedupEntry{fingerprint: fingerprint, seenAt: now})
	c.entries[fingerprint] = elem
	return true
}

// Len returns the current number of cached fingerprints
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// StartSweeper starts a background goroutine that purges expired
// entries on the given interval until Close is called
func (c *DedupCache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				c.mu.Lock()
				before := c.order.Len()
				c.purgeExpiredLocked(c.now())
				purged := before - c.order.Len()
				c.mu.Unlock()
				if purged > 0 {
					c.logger.Debug().
						Int("purged", purged).
						Msg("swept expired fingerprints")
				}
			}
		}
	}()
}

// Close stops the sweeper goroutine
func (c *DedupCache) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

// purgeExpiredLocked removes entries older than the retention window.
// Caller must hold c.mu. Entries are time-ordered, so scanning stops at
// the first unexpired one.
func (c *DedupCache) purgeExpiredLocked(now time.Time) {
	cutoff := now.Add(-c.retention)
	for {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		entry := oldest.Value.(*dedupEntry)
		if entry.seenAt.After(cutoff) {
			return
		}
		delete(c.entries, entry.fingerprint)
		c.order.Remove(oldest)
	}
}

// Fingerprint derives a redelivery-stable identifier for a physical
// message: channel ID plus message ID when the platform supplied one,
// otherwise a hash over the message content
func Fingerprint(channelID string, messageID int, text string, media []domain.MediaItem) string {
	if messageID > 0 {
		return fmt.Sprintf("%s:%d", channelID, messageID)
	}

	h := sha256.New()
	h.Write([]byte(channelID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	for _, m := range media {
		h.Write([]byte{0})
		h.Write([]byte(m.Ref))
	}
	return hex.EncodeToString(h.Sum(nil))
}
