package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
)

func testPost() *domain.CandidatePost {
	return domain.NewCandidatePost(
		"@cars",
		"Cars Channel",
		[]int{100, 101},
		"Selling car, great condition",
		[]domain.MediaItem{{Kind: domain.MediaKindPhoto, Ref: "file_id_abc"}},
		"https://t.me/cars/100",
	)
}

func mockCandidateProducer(t *testing.T) (*CandidateProducer, *mocks.AsyncProducer) {
	t.Helper()
	mockProducer := mocks.NewAsyncProducer(t, nil)
	cp := &CandidateProducer{
		producer: mockProducer,
		topic:    "posts.candidates",
		logger:   zerolog.Nop(),
		errors:   make([]error, 0),
	}
	return cp, mockProducer
}

func TestNewCandidateProducer_EmptyBrokers(t *testing.T) {
	_, err := NewCandidateProducer(ProducerConfig{
		Brokers: []string{},
		Topic:   "posts.candidates",
		Logger:  zerolog.Nop(),
	})
	if err == nil {
		t.Error("expected error for empty brokers, got nil")
	}
}

func TestNewCandidateProducer_EmptyTopic(t *testing.T) {
	_, err := NewCandidateProducer(ProducerConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "",
		Logger:  zerolog.Nop(),
	})
	if err == nil {
		t.Error("expected error for empty topic, got nil")
	}
}

func TestSubmitCandidate(t *testing.T) {
	cp, mockProducer := mockCandidateProducer(t)
	mockProducer.ExpectInputAndSucceed()

	if err := cp.SubmitCandidate(context.Background(), testPost()); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Errorf("mock producer close failed: %v", err)
	}
}

func TestSubmitCandidate_NilPost(t *testing.T) {
	cp, mockProducer := mockCandidateProducer(t)
	defer mockProducer.Close()

	if err := cp.SubmitCandidate(context.Background(), nil); err == nil {
		t.Error("expected error for nil post, got nil")
	}
}

func TestSubmitCandidate_Validation(t *testing.T) {
	cp, mockProducer := mockCandidateProducer(t)
	defer mockProducer.Close()

	tests := []struct {
		name string
		post *domain.CandidatePost
	}{
		{
			name: "missing channel",
			post: &domain.CandidatePost{MessageIDs: []int{1}, Text: "hi"},
		},
		{
			name: "no message IDs",
			post: &domain.CandidatePost{ChannelID: "@cars", Text: "hi"},
		},
		{
			name: "no text and no media",
			post: &domain.CandidatePost{ChannelID: "@cars", MessageIDs: []int{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cp.SubmitCandidate(context.Background(), tt.post); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSubmitCandidate_PayloadShape(t *testing.T) {
	post := testPost()

	value, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(value, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, field := range []string{"id", "channel_id", "channel_name", "message_ids", "text", "media", "link", "discovered_at"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("payload missing field %q", field)
		}
	}
}

func TestClose_Idempotent(t *testing.T) {
	cp, mockProducer := mockCandidateProducer(t)
	_ = mockProducer

	if err := cp.CloseWithTimeout(2 * time.Second); err != nil {
		t.Errorf("first close failed: %v", err)
	}
	if err := cp.CloseWithTimeout(2 * time.Second); err != nil {
		t.Errorf("second close failed: %v", err)
	}
	if cp.IsHealthy() {
		t.Error("closed producer must not report healthy")
	}
}

func TestSubmitCandidate_AfterClose(t *testing.T) {
	cp, _ := mockCandidateProducer(t)

	if err := cp.CloseWithTimeout(2 * time.Second); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := cp.SubmitCandidate(context.Background(), testPost()); err == nil {
		t.Error("expected error when submitting after close")
	}
}
