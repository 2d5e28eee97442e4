package queue

import "testing"

func TestCommentEvent_RoundTrip(t *testing.T) {
	event := NewCommentDeletedEvent("photo-1", "c1", "user-1", 3)

	values, err := event.ToMap()
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}
	if values["type"] != EventCommentDeleted {
		t.Errorf("type field = %v, want %s", values["type"], EventCommentDeleted)
	}

	parsed, err := ParseCommentEvent(values)
	if err != nil {
		t.Fatalf("ParseCommentEvent failed: %v", err)
	}
	if parsed.Type != EventCommentDeleted || parsed.PhotoID != "photo-1" ||
		parsed.CommentID != "c1" || parsed.ActorID != "user-1" {
		t.Errorf("parsed = %+v, lost fields in the round trip", parsed)
	}
	if parsed.CountDelta != -3 {
		t.Errorf("count delta = %d, want -3", parsed.CountDelta)
	}
}

func TestCommentEvent_Deltas(t *testing.T) {
	if e := NewCommentAddedEvent("p", "c", "u"); e.CountDelta != 1 {
		t.Errorf("added delta = %d, want 1", e.CountDelta)
	}
	if e := NewCommentDeletedEvent("p", "c", "u", 1); e.CountDelta != -1 {
		t.Errorf("deleted delta = %d, want -1", e.CountDelta)
	}
	if e := NewLikeToggledEvent("p", "c", "u", true); e.CountDelta != 0 || e.Type != EventCommentLiked {
		t.Errorf("like event = %+v, want zero delta and %s", e, EventCommentLiked)
	}
	if e := NewLikeToggledEvent("p", "c", "u", false); e.Type != EventCommentUnliked {
		t.Errorf("unlike event type = %s, want %s", e.Type, EventCommentUnliked)
	}
}

func TestParseCommentEvent_MissingData(t *testing.T) {
	if _, err := ParseCommentEvent(map[string]interface{}{"type": "comment_added"}); err == nil {
		t.Error("expected an error for a message without a data field")
	}
}
