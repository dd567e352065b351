package aggregator

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
)

// collector gathers emitted posts for assertions
type collector struct {
	mu    sync.Mutex
	posts []*domain.CandidatePost
}

func (c *collector) emit(post *domain.CandidatePost) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append(c.posts, post)
}

func (c *collector) all() []*domain.CandidatePost {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.CandidatePost, len(c.posts))
	copy(out, c.posts)
	return out
}

func newTestAggregator(idle time.Duration) (*Aggregator, *collector) {
	c := &collector{}
	a := New(idle, c.emit, zerolog.Nop(), metrics.GetDefaultMetrics())
	return a, c
}

func member(channelID string, groupedID int64, msgID int, text string, mediaRefs ...string) *domain.ProcessedMessage {
	media := make([]domain.MediaItem, 0, len(mediaRefs))
	for _, ref := range mediaRefs {
		media = append(media, domain.MediaItem{Kind: domain.MediaKindPhoto, Ref: ref})
	}
	return &domain.ProcessedMessage{
		ChannelID: channelID,
		GroupedID: groupedID,
		MessageID: msgID,
		Text:      text,
		Media:     media,
		Date:      time.Now(),
	}
}

func TestAppend_SingleEmitAfterIdleWindow(t *testing.T) {
	a, c := newTestAggregator(80 * time.Millisecond)

	a.Append(member("42", 555, 1, "Selling car, great condition"))
	a.Append(member("42", 555, 2, "", "photoA"))
	a.Append(member("42", 555, 3, "", "photoB"))

	// Must not flush before the idle window elapses
	time.Sleep(40 * time.Millisecond)
	if got := len(c.all()); got != 0 {
		t.Fatalf("expected no flush before idle window, got %d posts", got)
	}

	time.Sleep(120 * time.Millisecond)

	posts := c.all()
	if len(posts) != 1 {
		t.Fatalf("expected exactly one post, got %d", len(posts))
	}

	post := posts[0]
	if post.Text != "Selling car, great condition" {
		t.Errorf("unexpected text: %q", post.Text)
	}
	if len(post.MessageIDs) != 3 {
		t.Errorf("expected 3 member IDs, got %v", post.MessageIDs)
	}
	if len(post.Media) != 2 {
		t.Errorf("expected 2 media items, got %d", len(post.Media))
	}
	if a.OpenBuffers() != 0 {
		t.Errorf("expected buffer removed after flush, %d open", a.OpenBuffers())
	}
}

func TestAppend_ArrivalOrderPreserved(t *testing.T) {
	a, c := newTestAggregator(50 * time.Millisecond)

	// Platform order 1,2,3 but arrival order 3,1,2
	a.Append(member("42", 7, 3, "", "c"))
	a.Append(member("42", 7, 1, "caption", "a"))
	a.Append(member("42", 7, 2, "", "b"))

	time.Sleep(120 * time.Millisecond)

	posts := c.all()
	if len(posts) != 1 {
		t.Fatalf("expected one post, got %d", len(posts))
	}

	wantIDs := []int{3, 1, 2}
	for i, id := range wantIDs {
		if posts[0].MessageIDs[i] != id {
			t.Errorf("member %d: expected message ID %d, got %d", i, id, posts[0].MessageIDs[i])
		}
	}
	wantRefs := []string{"c", "a", "b"}
	for i, ref := range wantRefs {
		if posts[0].Media[i].Ref != ref {
			t.Errorf("media %d: expected ref %q, got %q", i, ref, posts[0].Media[i].Ref)
		}
	}

	// Link must point at the first physical message (lowest ID)
	if posts[0].Link != "https://t.me/c/42/1" {
		t.Errorf("unexpected link: %s", posts[0].Link)
	}
}

func TestAppend_OrderPermutationsEmitOnePost(t *testing.T) {
	for trial := 0; trial < 5; trial++ {
		a, c := newTestAggregator(40 * time.Millisecond)

		ids := []int{1, 2, 3, 4}
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

		for _, id := range ids {
			text := ""
			if id == 1 {
				text = "the caption"
			}
			a.Append(member("42", 9, id, text, "m"))
		}

		time.Sleep(100 * time.Millisecond)

		posts := c.all()
		if len(posts) != 1 {
			t.Fatalf("trial %d: expected one post, got %d", trial, len(posts))
		}
		if posts[0].Text != "the caption" {
			t.Errorf("trial %d: caption lost in permutation %v", trial, ids)
		}
		if len(posts[0].MessageIDs) != 4 {
			t.Errorf("trial %d: expected 4 members, got %v", trial, posts[0].MessageIDs)
		}
	}
}

func TestAppend_TimerResetOnEachMember(t *testing.T) {
	a, c := newTestAggregator(60 * time.Millisecond)

	a.Append(member("42", 5, 1, "text"))
	// Keep appending within the window; the timer must keep resetting
	for i := 2; i <= 4; i++ {
		time.Sleep(40 * time.Millisecond)
		a.Append(member("42", 5, i, "", "m"))
	}

	// Three appends 40ms apart with a 60ms window: nothing flushed yet
	if got := len(c.all()); got != 0 {
		t.Fatalf("expected no flush while members keep arriving, got %d", got)
	}

	time.Sleep(130 * time.Millisecond)

	posts := c.all()
	if len(posts) != 1 {
		t.Fatalf("expected one post after quiet period, got %d", len(posts))
	}
	if len(posts[0].MessageIDs) != 4 {
		t.Errorf("expected 4 members, got %v", posts[0].MessageIDs)
	}
}

func TestAppend_CountHintFlushesImmediately(t *testing.T) {
	a, c := newTestAggregator(time.Minute)

	m1 := member("42", 11, 1, "album", "a")
	m1.GroupSize = 2
	a.Append(m1)

	if got := len(c.all()); got != 0 {
		t.Fatalf("expected no flush before hint satisfied, got %d", got)
	}

	m2 := member("42", 11, 2, "", "b")
	m2.GroupSize = 2
	a.Append(m2)

	posts := c.all()
	if len(posts) != 1 {
		t.Fatalf("expected immediate flush on count hint, got %d posts", len(posts))
	}
	if len(posts[0].Media) != 2 {
		t.Errorf("expected 2 media items, got %d", len(posts[0].Media))
	}
}

func TestClose_ExplicitSignalFlushes(t *testing.T) {
	a, c := newTestAggregator(time.Minute)

	a.Append(member("42", 13, 1, "caption", "a"))
	a.Close("42", 13)

	if got := len(c.all()); got != 1 {
		t.Fatalf("expected explicit close to flush, got %d posts", got)
	}

	// Second close for the same group is a no-op
	a.Close("42", 13)
	if got := len(c.all()); got != 1 {
		t.Errorf("expected no double emission, got %d posts", got)
	}
}

func TestAppend_AfterFlushOpensNewBuffer(t *testing.T) {
	a, c := newTestAggregator(time.Minute)

	a.Append(member("42", 17, 1, "first", "a"))
	a.Close("42", 17)

	// Late member for the same group id after the old buffer committed
	a.Append(member("42", 17, 2, "", "b"))
	a.Close("42", 17)

	posts := c.all()
	if len(posts) != 2 {
		t.Fatalf("expected late append to start a new buffer, got %d posts", len(posts))
	}
	if len(posts[0].MessageIDs) != 1 || len(posts[1].MessageIDs) != 1 {
		t.Errorf("unexpected membership: %v / %v", posts[0].MessageIDs, posts[1].MessageIDs)
	}
}

func TestAppend_SingleMemberGroupFlushesLikeStandalone(t *testing.T) {
	a, c := newTestAggregator(40 * time.Millisecond)

	a.Append(member("42", 19, 1, "single photo post", "a"))

	time.Sleep(100 * time.Millisecond)

	posts := c.all()
	if len(posts) != 1 {
		t.Fatalf("expected single-member group to flush normally, got %d", len(posts))
	}
	if len(posts[0].MessageIDs) != 1 {
		t.Errorf("expected 1 member, got %v", posts[0].MessageIDs)
	}
}

func TestFlushAll_EmitsEveryOpenBuffer(t *testing.T) {
	a, c := newTestAggregator(time.Minute)

	a.Append(member("42", 21, 1, "one member", "a"))
	a.Append(member("42", 23, 2, "three members", "b"))
	a.Append(member("42", 23, 3, "", "c"))
	a.Append(member("42", 23, 4, "", "d"))

	a.FlushAll()

	posts := c.all()
	if len(posts) != 2 {
		t.Fatalf("expected exactly two posts on shutdown flush, got %d", len(posts))
	}
	if a.OpenBuffers() != 0 {
		t.Errorf("expected no open buffers after FlushAll, %d left", a.OpenBuffers())
	}

	sizes := map[int]bool{}
	for _, p := range posts {
		sizes[len(p.MessageIDs)] = true
	}
	if !sizes[1] || !sizes[3] {
		t.Errorf("expected posts with 1 and 3 members, got %v", posts)
	}
}

func TestAppend_ConcurrentGroupsNoDoubleEmit(t *testing.T) {
	a, c := newTestAggregator(30 * time.Millisecond)

	var wg sync.WaitGroup
	for g := int64(1); g <= 10; g++ {
		wg.Add(1)
		go func(g int64) {
			defer wg.Done()
			for i := 1; i <= 5; i++ {
				a.Append(member("42", g, i, "caption", "m"))
				time.Sleep(time.Millisecond)
			}
		}(g)
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)

	posts := c.all()
	if len(posts) != 10 {
		t.Fatalf("expected one post per group, got %d", len(posts))
	}
	for _, p := range posts {
		if len(p.MessageIDs) != 5 {
			t.Errorf("group emitted with %d members, want 5", len(p.MessageIDs))
		}
	}
}
