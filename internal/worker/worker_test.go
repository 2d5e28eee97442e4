package worker

import (
	"context"
	"testing"

	"photogram/internal/queue"
)

// mockCountCache records applied deltas so tests can assert on the exact
// counter movement an event causes.
type mockCountCache struct {
	deltas map[string]int64
	setFn  func(ctx context.Context, photoID string, count int64) error
}

func newMockCountCache() *mockCountCache {
	return &mockCountCache{deltas: map[string]int64{}}
}

func (m *mockCountCache) ApplyDelta(ctx context.Context, photoID string, delta int64) error {
	m.deltas[photoID] += delta
	return nil
}

func (m *mockCountCache) SetCount(ctx context.Context, photoID string, count int64) error {
	if m.setFn != nil {
		return m.setFn(ctx, photoID, count)
	}
	return nil
}

func (m *mockCountCache) GetCount(ctx context.Context, photoID string) (int64, bool, error) {
	count, ok := m.deltas[photoID]
	return count, ok, nil
}

func (m *mockCountCache) Invalidate(ctx context.Context, photoID string) error {
	delete(m.deltas, photoID)
	return nil
}

func TestHandler_AddedAndDeletedMoveTheCount(t *testing.T) {
	cache := newMockCountCache()
	h := NewHandler(cache)
	ctx := context.Background()

	if err := h.HandleEvent(ctx, queue.NewCommentAddedEvent("photo-1", "c1", "u1")); err != nil {
		t.Fatalf("added event failed: %v", err)
	}
	if err := h.HandleEvent(ctx, queue.NewCommentAddedEvent("photo-1", "c2", "u2")); err != nil {
		t.Fatalf("added event failed: %v", err)
	}
	// c1 cascades away with two replies
	if err := h.HandleEvent(ctx, queue.NewCommentDeletedEvent("photo-1", "c1", "u1", 3)); err != nil {
		t.Fatalf("deleted event failed: %v", err)
	}

	if got := cache.deltas["photo-1"]; got != -1 {
		t.Errorf("net delta = %d, want -1 (two adds, one cascade of three)", got)
	}
}

func TestHandler_LikeEventsLeaveTheCountAlone(t *testing.T) {
	cache := newMockCountCache()
	h := NewHandler(cache)
	ctx := context.Background()

	if err := h.HandleEvent(ctx, queue.NewLikeToggledEvent("photo-1", "c1", "u1", true)); err != nil {
		t.Fatalf("like event failed: %v", err)
	}
	if err := h.HandleEvent(ctx, queue.NewLikeToggledEvent("photo-1", "c1", "u1", false)); err != nil {
		t.Fatalf("unlike event failed: %v", err)
	}

	if len(cache.deltas) != 0 {
		t.Errorf("deltas = %v, want none for like toggles", cache.deltas)
	}
}

func TestHandler_UnknownEventType(t *testing.T) {
	h := NewHandler(newMockCountCache())

	err := h.HandleEvent(context.Background(), queue.CommentEvent{Type: "mystery"})
	if err == nil {
		t.Error("expected an error for an unknown event type")
	}
}
