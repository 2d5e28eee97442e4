package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the comment stream
const (
	EventCommentAdded   = "comment_added"
	EventCommentDeleted = "comment_deleted"
	EventCommentLiked   = "comment_liked"
	EventCommentUnliked = "comment_unliked"
)

// Stream names
const (
	StreamComments = "stream:comments"
)

// Consumer group name for comment workers
const (
	ConsumerGroupComments = "comment_workers"
)

// CommentEvent is published after every committed comment mutation.
// CountDelta carries the signed change to the photo's comment count so
// screens holding the denormalized counter can update without re-fetching;
// like events carry a zero delta.
type CommentEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	PhotoID   string `json:"photo_id"`
	CommentID string `json:"comment_id"`
	ActorID   string `json:"actor_id"`

	// Signed change to the photo's comment_count (create: +1, delete: -k)
	CountDelta int64 `json:"count_delta,omitempty"`
}

// NewCommentAddedEvent creates an event for a freshly persisted comment.
func NewCommentAddedEvent(photoID, commentID, actorID string) CommentEvent {
	return CommentEvent{
		Type:       EventCommentAdded,
		Timestamp:  time.Now().Unix(),
		PhotoID:    photoID,
		CommentID:  commentID,
		ActorID:    actorID,
		CountDelta: 1,
	}
}

// NewCommentDeletedEvent creates an event for a delete. deletedCount is the
// number of rows removed (1 for a reply, 1+replies for a cascade).
func NewCommentDeletedEvent(photoID, commentID, actorID string, deletedCount int64) CommentEvent {
	return CommentEvent{
		Type:       EventCommentDeleted,
		Timestamp:  time.Now().Unix(),
		PhotoID:    photoID,
		CommentID:  commentID,
		ActorID:    actorID,
		CountDelta: -deletedCount,
	}
}

// NewLikeToggledEvent creates an event for a like toggle.
func NewLikeToggledEvent(photoID, commentID, actorID string, liked bool) CommentEvent {
	eventType := EventCommentUnliked
	if liked {
		eventType = EventCommentLiked
	}
	return CommentEvent{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		PhotoID:   photoID,
		CommentID: commentID,
		ActorID:   actorID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e CommentEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseCommentEvent parses a CommentEvent from Redis stream message values.
func ParseCommentEvent(values map[string]interface{}) (CommentEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return CommentEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event CommentEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return CommentEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
