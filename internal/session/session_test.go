package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"photogram/internal/model"
)

// =============================================================================
// MOCKS
// =============================================================================

type mockGateway struct {
	addFn    func(ctx context.Context, photoID, userID string, req model.CreateCommentRequest) (*model.Comment, error)
	deleteFn func(ctx context.Context, photoID, commentID, requesterID string) error
	toggleFn func(ctx context.Context, photoID, commentID, userID string) (*model.LikeToggleResponse, error)
	checkFn  func(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error)

	addReqs []model.CreateCommentRequest
}

func (m *mockGateway) AddComment(ctx context.Context, photoID, userID string, req model.CreateCommentRequest) (*model.Comment, error) {
	m.addReqs = append(m.addReqs, req)
	if m.addFn != nil {
		return m.addFn(ctx, photoID, userID, req)
	}
	echo := model.Comment{PhotoID: photoID, UserID: userID, Text: req.Text}
	if req.PredictedID != nil {
		echo.ID = *req.PredictedID
	}
	return &echo, nil
}

func (m *mockGateway) DeleteComment(ctx context.Context, photoID, commentID, requesterID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, photoID, commentID, requesterID)
	}
	return nil
}

func (m *mockGateway) ToggleLike(ctx context.Context, photoID, commentID, userID string) (*model.LikeToggleResponse, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, photoID, commentID, userID)
	}
	return &model.LikeToggleResponse{Liked: true}, nil
}

func (m *mockGateway) CheckLikes(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, userID, commentIDs)
	}
	return map[string]bool{}, nil
}

type fakeSubscription struct {
	snapshots chan []model.Comment
	errs      chan error
	unsubs    int32
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		snapshots: make(chan []model.Comment, 4),
		errs:      make(chan error, 1),
	}
}

func (f *fakeSubscription) Snapshots() <-chan []model.Comment { return f.snapshots }
func (f *fakeSubscription) Err() <-chan error                 { return f.errs }
func (f *fakeSubscription) Unsubscribe()                      { atomic.AddInt32(&f.unsubs, 1) }

// =============================================================================
// HELPERS
// =============================================================================

func strPtr(s string) *string { return &s }

func topLevel(id string) model.Comment {
	return model.Comment{ID: id, PhotoID: "photo-1", UserID: "someone", Text: "text " + id}
}

func reply(id, parentID string) model.Comment {
	c := topLevel(id)
	c.ParentID = strPtr(parentID)
	c.MentionedCommentID = strPtr(parentID)
	return c
}

func newLiveSession(t *testing.T, gw *mockGateway) (*Session, *fakeSubscription) {
	t.Helper()
	sub := newFakeSubscription()
	s := New(Config{
		PhotoID: "photo-1",
		UserID:  "viewer",
		Gateway: gw,
		Subscribe: func(ctx context.Context, photoID string) (Subscription, error) {
			return sub, nil
		},
		NewFlagTTL:   20 * time.Millisecond,
		HighlightTTL: 30 * time.Millisecond,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s, sub
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func commentIDs(comments []model.Comment) []string {
	ids := make([]string, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	return ids
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestSession_NoPhotoStaysIdle(t *testing.T) {
	s := New(Config{
		UserID:  "viewer",
		Gateway: &mockGateway{},
		Subscribe: func(ctx context.Context, photoID string) (Subscription, error) {
			t.Fatal("no subscription should be opened without a photo")
			return nil, nil
		},
	})
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	if s.Loading() {
		t.Error("session without a photo must not be loading")
	}
	if len(s.Comments()) != 0 {
		t.Error("expected an empty comment list")
	}
	if _, err := s.AddComment(context.Background(), "hi", nil, nil); err == nil {
		t.Error("adding a comment without a photo should fail")
	}
}

func TestSession_SnapshotGoesLiveAndDerivesLikes(t *testing.T) {
	gw := &mockGateway{
		checkFn: func(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
			return map[string]bool{"c1": true}, nil
		},
	}
	s, sub := newLiveSession(t, gw)

	if s.State() != StateSubscribing {
		t.Errorf("state before first snapshot = %v, want subscribing", s.State())
	}
	if !s.Loading() {
		t.Error("expected loading before first snapshot")
	}

	sub.snapshots <- []model.Comment{topLevel("c1"), topLevel("c2")}

	waitFor(t, "live state", func() bool { return s.State() == StateLive })
	if s.Loading() {
		t.Error("loading should clear on the first snapshot")
	}
	if !s.IsLiked("c1") || s.IsLiked("c2") {
		t.Error("like state should be re-derived from the snapshot's comments")
	}
	comments := s.Comments()
	if len(comments) != 2 || !comments[0].IsLiked || comments[1].IsLiked {
		t.Errorf("comments = %+v, want c1 liked and c2 not", comments)
	}
}

func TestSession_SnapshotReplacesWholesale(t *testing.T) {
	s, sub := newLiveSession(t, &mockGateway{})

	sub.snapshots <- []model.Comment{topLevel("c1")}
	waitFor(t, "first snapshot", func() bool { return len(s.Comments()) == 1 })

	sub.snapshots <- []model.Comment{topLevel("c2"), topLevel("c3")}
	waitFor(t, "second snapshot", func() bool {
		ids := commentIDs(s.Comments())
		return len(ids) == 2 && ids[0] == "c2" && ids[1] == "c3"
	})
}

func TestSession_FeedErrorMovesToErrored(t *testing.T) {
	s, sub := newLiveSession(t, &mockGateway{})

	sub.snapshots <- []model.Comment{topLevel("c1")}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	boom := errors.New("feed broke")
	sub.errs <- boom

	waitFor(t, "errored state", func() bool { return s.State() == StateErrored })
	if len(s.Comments()) != 0 {
		t.Error("comments should clear when the feed fails")
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err() = %v, want the feed error", s.Err())
	}
}

func TestSession_SubscribeFailure(t *testing.T) {
	boom := errors.New("cannot subscribe")
	s := New(Config{
		PhotoID: "photo-1",
		UserID:  "viewer",
		Gateway: &mockGateway{},
		Subscribe: func(ctx context.Context, photoID string) (Subscription, error) {
			return nil, boom
		},
	})
	defer s.Close()

	if err := s.Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Start err = %v, want the subscribe error", err)
	}
	if s.State() != StateErrored {
		t.Errorf("state = %v, want errored", s.State())
	}
}

// =============================================================================
// OPTIMISTIC MUTATION TESTS
// =============================================================================

func TestSession_AddComment_OptimisticWithPredictedID(t *testing.T) {
	gw := &mockGateway{}
	s, sub := newLiveSession(t, gw)

	sub.snapshots <- []model.Comment{topLevel("c1")}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	id, err := s.AddComment(context.Background(), "mine", nil, nil)
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a predicted comment ID")
	}

	// The prediction travels to the gateway so the echoed copy matches
	if len(gw.addReqs) != 1 || gw.addReqs[0].PredictedID == nil || *gw.addReqs[0].PredictedID != id {
		t.Errorf("gateway request = %+v, want predicted ID %s", gw.addReqs, id)
	}

	ids := commentIDs(s.Comments())
	if len(ids) != 2 || ids[1] != id {
		t.Errorf("comments = %v, want the optimistic comment appended", ids)
	}
	if !s.IsNew(id) {
		t.Error("a fresh comment should carry the new flag")
	}
	waitFor(t, "new flag to clear", func() bool { return !s.IsNew(id) })
}

func TestSession_AddComment_FailureReverts(t *testing.T) {
	gw := &mockGateway{
		addFn: func(ctx context.Context, photoID, userID string, req model.CreateCommentRequest) (*model.Comment, error) {
			return nil, errors.New("rejected")
		},
	}
	s, sub := newLiveSession(t, gw)

	sub.snapshots <- []model.Comment{topLevel("c1")}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	if _, err := s.AddComment(context.Background(), "doomed", nil, nil); err == nil {
		t.Fatal("expected the gateway rejection to surface")
	}

	ids := commentIDs(s.Comments())
	if len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("comments = %v, want the pre-mutation list restored", ids)
	}
}

func TestSession_ReplyToReplyFlattensLocally(t *testing.T) {
	gw := &mockGateway{}
	s, sub := newLiveSession(t, gw)

	r1 := reply("r1", "c1")
	r1.Author = &model.UserSummary{ID: "u2", Username: "bob"}
	sub.snapshots <- []model.Comment{topLevel("c1"), r1}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	s.ReplyTo(r1)
	target, mention := s.Replying()
	if target == nil || target.ID != "r1" {
		t.Fatalf("reply target = %+v, want r1", target)
	}
	if mention != "@bob " {
		t.Errorf("mention prefix = %q, want %q", mention, "@bob ")
	}

	id, err := s.AddComment(context.Background(), "answering bob", nil, nil)
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	// The gateway gets the raw target; the local optimistic copy is
	// already flattened onto the thread root.
	if gw.addReqs[0].TargetID == nil || *gw.addReqs[0].TargetID != "r1" {
		t.Errorf("gateway target = %v, want r1", gw.addReqs[0].TargetID)
	}
	comments := s.Comments()
	added := comments[len(comments)-1]
	if added.ID != id || added.ParentID == nil || *added.ParentID != "c1" {
		t.Errorf("optimistic parent = %v, want thread root c1", added.ParentID)
	}
	if added.MentionedCommentID == nil || *added.MentionedCommentID != "r1" {
		t.Errorf("optimistic mention = %v, want r1", added.MentionedCommentID)
	}

	// Success clears reply composition
	if target, _ := s.Replying(); target != nil {
		t.Error("reply state should clear after a successful add")
	}
}

func TestSession_CancelReply(t *testing.T) {
	s, sub := newLiveSession(t, &mockGateway{})
	sub.snapshots <- []model.Comment{topLevel("c1")}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	s.ReplyTo(topLevel("c1"))
	s.CancelReply()
	if target, mention := s.Replying(); target != nil || mention != "" {
		t.Error("cancel should drop the reply target and mention prefix")
	}
}

func TestSession_DeleteComment_LocalCascade(t *testing.T) {
	s, sub := newLiveSession(t, &mockGateway{})

	sub.snapshots <- []model.Comment{topLevel("c1"), reply("r1", "c1"), topLevel("c2")}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	if err := s.DeleteComment(context.Background(), "c1"); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}

	ids := commentIDs(s.Comments())
	if len(ids) != 1 || ids[0] != "c2" {
		t.Errorf("comments = %v, want the thread removed and c2 kept", ids)
	}
}

func TestSession_DeleteComment_FailureReverts(t *testing.T) {
	gw := &mockGateway{
		deleteFn: func(ctx context.Context, photoID, commentID, requesterID string) error {
			return errors.New("not allowed")
		},
	}
	s, sub := newLiveSession(t, gw)

	sub.snapshots <- []model.Comment{topLevel("c1"), reply("r1", "c1")}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	if err := s.DeleteComment(context.Background(), "c1"); err == nil {
		t.Fatal("expected the gateway rejection to surface")
	}

	ids := commentIDs(s.Comments())
	if len(ids) != 2 {
		t.Errorf("comments = %v, want the thread restored", ids)
	}
}

func TestSession_ToggleLike_OptimisticAndRevert(t *testing.T) {
	gw := &mockGateway{}
	s, sub := newLiveSession(t, gw)

	c1 := topLevel("c1")
	c1.LikeCount = 1
	sub.snapshots <- []model.Comment{c1}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	if err := s.ToggleLike(context.Background(), "c1"); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if !s.IsLiked("c1") {
		t.Error("toggle should like an unliked comment")
	}
	if got := s.Comments()[0].LikeCount; got != 2 {
		t.Errorf("like count = %d, want 2", got)
	}

	// Second toggle fails at the gateway: the optimistic flip reverts
	gw.toggleFn = func(ctx context.Context, photoID, commentID, userID string) (*model.LikeToggleResponse, error) {
		return nil, errors.New("gateway down")
	}
	if err := s.ToggleLike(context.Background(), "c1"); err == nil {
		t.Fatal("expected the gateway failure to surface")
	}
	if !s.IsLiked("c1") {
		t.Error("failed toggle should restore the liked state")
	}
	if got := s.Comments()[0].LikeCount; got != 2 {
		t.Errorf("like count after revert = %d, want 2", got)
	}
}

// =============================================================================
// HIGHLIGHT AND TEARDOWN TESTS
// =============================================================================

func TestSession_HighlightAutoClears(t *testing.T) {
	s, sub := newLiveSession(t, &mockGateway{})
	sub.snapshots <- []model.Comment{topLevel("c1")}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	s.Highlight("c1")
	if s.HighlightedID() != "c1" {
		t.Fatalf("highlighted = %q, want c1", s.HighlightedID())
	}
	waitFor(t, "highlight to clear", func() bool { return s.HighlightedID() == "" })
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s, sub := newLiveSession(t, &mockGateway{})
	sub.snapshots <- []model.Comment{topLevel("c1")}
	waitFor(t, "live state", func() bool { return s.State() == StateLive })

	s.Close()
	s.Close()

	if n := atomic.LoadInt32(&sub.unsubs); n != 1 {
		t.Errorf("Unsubscribe calls = %d, want exactly 1", n)
	}

	if _, err := s.AddComment(context.Background(), "late", nil, nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("AddComment after close = %v, want ErrSessionClosed", err)
	}
	if err := s.ToggleLike(context.Background(), "c1"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("ToggleLike after close = %v, want ErrSessionClosed", err)
	}

	// A snapshot arriving after teardown must not resurrect state
	sub.snapshots <- []model.Comment{topLevel("c9")}
	time.Sleep(30 * time.Millisecond)
	ids := commentIDs(s.Comments())
	if len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("comments after close = %v, want unchanged", ids)
	}
}

func TestSession_CloseBeforeFirstSnapshot(t *testing.T) {
	sub := newFakeSubscription()
	s := New(Config{
		PhotoID: "photo-1",
		UserID:  "viewer",
		Gateway: &mockGateway{},
		Subscribe: func(ctx context.Context, photoID string) (Subscription, error) {
			return sub, nil
		},
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.Close()

	if n := atomic.LoadInt32(&sub.unsubs); n != 1 {
		t.Errorf("Unsubscribe calls = %d, want 1", n)
	}
}
