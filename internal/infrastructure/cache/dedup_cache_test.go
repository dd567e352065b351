package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
)

func newTestCache(capacity int, retention time.Duration) *DedupCache {
	return NewDedupCache(capacity, retention, zerolog.Nop())
}

func TestMarkSeen_FirstThenRepeat(t *testing.T) {
	c := newTestCache(100, time.Hour)

	if !c.MarkSeen("42:1001") {
		t.Error("expected true on first sighting")
	}
	if c.MarkSeen("42:1001") {
		t.Error("expected false on immediate repeat")
	}
}

func TestMarkSeen_DistinctFingerprints(t *testing.T) {
	c := newTestCache(100, time.Hour)

	if !c.MarkSeen("42:1001") {
		t.Error("expected true for first fingerprint")
	}
	if !c.MarkSeen("42:1002") {
		t.Error("expected true for second fingerprint")
	}
	if !c.MarkSeen("43:1001") {
		t.Error("expected true for same message ID on another channel")
	}
}

func TestMarkSeen_CapacityEviction(t *testing.T) {
	c := newTestCache(3, time.Hour)

	c.MarkSeen("a")
	c.MarkSeen("b")
	c.MarkSeen("c")
	c.MarkSeen("d") // evicts "a"

	if c.Len() != 3 {
		t.Fatalf("expected length 3 after eviction, got %d", c.Len())
	}
	if !c.MarkSeen("a") {
		t.Error("expected evicted fingerprint to count as new again")
	}
}

func TestMarkSeen_RetentionExpiry(t *testing.T) {
	c := newTestCache(100, time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	if !c.MarkSeen("42:1001") {
		t.Fatal("expected true on first sighting")
	}
	if c.MarkSeen("42:1001") {
		t.Fatal("expected false within retention window")
	}

	// Advance past the retention window
	current = current.Add(2 * time.Minute)

	if !c.MarkSeen("42:1001") {
		t.Error("expected expired fingerprint to count as new again")
	}
}

func TestMarkSeen_Concurrent(t *testing.T) {
	c := newTestCache(10000, time.Hour)

	var wg sync.WaitGroup
	firsts := make([]int, 10)
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if c.MarkSeen(fmt.Sprintf("42:%d", i)) {
					firsts[g]++
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, n := range firsts {
		total += n
	}
	if total != 100 {
		t.Errorf("expected exactly 100 first sightings across goroutines, got %d", total)
	}
}

func TestSweeper_PurgesExpired(t *testing.T) {
	c := newTestCache(100, 30*time.Millisecond)
	c.StartSweeper(10 * time.Millisecond)
	defer c.Close()

	c.MarkSeen("42:1001")
	c.MarkSeen("42:1002")

	time.Sleep(80 * time.Millisecond)

	if got := c.Len(); got != 0 {
		t.Errorf("expected sweeper to purge all entries, %d left", got)
	}
}

func TestFingerprint_MessageID(t *testing.T) {
	fp := Fingerprint("@cars", 555, "some text", nil)
	if fp != "@cars:555" {
		t.Errorf("unexpected fingerprint: %s", fp)
	}
}

func TestFingerprint_ContentHash(t *testing.T) {
	media := []domain.MediaItem{{Kind: domain.MediaKindPhoto, Ref: "file123"}}

	a := Fingerprint("@cars", 0, "same text", media)
	b := Fingerprint("@cars", 0, "same text", media)
	if a != b {
		t.Error("expected identical content to produce identical fingerprints")
	}

	other := Fingerprint("@cars", 0, "other text", media)
	if a == other {
		t.Error("expected different content to produce different fingerprints")
	}

	otherChan := Fingerprint("@bikes", 0, "same text", media)
	if a == otherChan {
		t.Error("expected different channel to produce different fingerprints")
	}
}
