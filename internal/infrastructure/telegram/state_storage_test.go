package telegram

import (
	"context"
	"testing"

	"github.com/gotd/td/telegram/updates"
)

func newTestStateStorage(t *testing.T) *FileStateStorage {
	t.Helper()
	storage, err := NewFileStateStorage(t.TempDir(), "79991234567")
	if err != nil {
		t.Fatalf("failed to create state storage: %v", err)
	}
	return storage
}

func TestFileStateStorage_StateRoundTrip(t *testing.T) {
	storage := newTestStateStorage(t)
	ctx := context.Background()

	_, found, err := storage.GetState(ctx, 1)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if found {
		t.Fatal("expected no state in a fresh storage")
	}

	want := updates.State{Pts: 100, Qts: 5, Date: 1700000000, Seq: 3}
	if err := storage.SetState(ctx, 1, want); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	got, found, err := storage.GetState(ctx, 1)
	if err != nil || !found {
		t.Fatalf("GetState after set: found=%v err=%v", found, err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestFileStateStorage_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStateStorage(dir, "79991234567")
	if err != nil {
		t.Fatalf("failed to create state storage: %v", err)
	}
	if err := first.SetPts(ctx, 1, 42); err != nil {
		t.Fatalf("SetPts failed: %v", err)
	}
	if err := first.SetChannelPts(ctx, 1, 1234, 7); err != nil {
		t.Fatalf("SetChannelPts failed: %v", err)
	}

	second, err := NewFileStateStorage(dir, "79991234567")
	if err != nil {
		t.Fatalf("failed to reopen state storage: %v", err)
	}

	state, found, err := second.GetState(ctx, 1)
	if err != nil || !found {
		t.Fatalf("GetState after reopen: found=%v err=%v", found, err)
	}
	if state.Pts != 42 {
		t.Errorf("expected pts 42, got %d", state.Pts)
	}

	pts, found, err := second.GetChannelPts(ctx, 1, 1234)
	if err != nil || !found {
		t.Fatalf("GetChannelPts after reopen: found=%v err=%v", found, err)
	}
	if pts != 7 {
		t.Errorf("expected channel pts 7, got %d", pts)
	}
}

func TestFileStateStorage_ForEachChannels(t *testing.T) {
	storage := newTestStateStorage(t)
	ctx := context.Background()

	storage.SetChannelPts(ctx, 1, 100, 10)
	storage.SetChannelPts(ctx, 1, 200, 20)

	seen := make(map[int64]int)
	err := storage.ForEachChannels(ctx, 1, func(ctx context.Context, channelID int64, pts int) error {
		seen[channelID] = pts
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachChannels failed: %v", err)
	}
	if len(seen) != 2 || seen[100] != 10 || seen[200] != 20 {
		t.Errorf("unexpected channels: %v", seen)
	}
}

func TestFileStateStorage_PartialSetters(t *testing.T) {
	storage := newTestStateStorage(t)
	ctx := context.Background()

	storage.SetState(ctx, 1, updates.State{Pts: 1, Qts: 2, Date: 3, Seq: 4})
	storage.SetPts(ctx, 1, 10)
	storage.SetDateSeq(ctx, 1, 30, 40)

	state, _, _ := storage.GetState(ctx, 1)
	if state.Pts != 10 || state.Qts != 2 || state.Date != 30 || state.Seq != 40 {
		t.Errorf("unexpected state after partial updates: %+v", state)
	}
}
