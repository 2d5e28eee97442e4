package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"photogram/internal/cache"
	"photogram/internal/queue"
)

// Handler applies comment events from the stream to the cached per-photo
// comment counts, so screens holding the denormalized counter stay current
// without re-fetching the photo row.
type Handler struct {
	countCache cache.CountCache
}

// NewHandler creates a new event handler.
func NewHandler(countCache cache.CountCache) *Handler {
	return &Handler{countCache: countCache}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.CommentEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventCommentAdded, queue.EventCommentDeleted:
		err = h.handleCountDelta(ctx, event)
	case queue.EventCommentLiked, queue.EventCommentUnliked:
		// Like toggles don't move the photo's comment count
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	return nil
}

// handleCountDelta applies the signed comment-count change to the cache.
func (h *Handler) handleCountDelta(ctx context.Context, event queue.CommentEvent) error {
	if event.CountDelta == 0 {
		return nil
	}

	log.Printf("[Worker] CountDelta: photo=%s delta=%d", event.PhotoID, event.CountDelta)

	if err := h.countCache.ApplyDelta(ctx, event.PhotoID, event.CountDelta); err != nil {
		return fmt.Errorf("apply count delta: %w", err)
	}
	return nil
}
