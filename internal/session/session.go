package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"photogram/internal/model"
)

// State is the lifecycle phase of a comment session.
type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateLive
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Gateway is the slice of the persistence gateway a session drives.
type Gateway interface {
	AddComment(ctx context.Context, photoID, userID string, req model.CreateCommentRequest) (*model.Comment, error)
	DeleteComment(ctx context.Context, photoID, commentID, requesterID string) error
	ToggleLike(ctx context.Context, photoID, commentID, userID string) (*model.LikeToggleResponse, error)
	CheckLikes(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error)
}

// Subscription is the live feed handle a session consumes.
// *live.Subscription satisfies it.
type Subscription interface {
	Snapshots() <-chan []model.Comment
	Err() <-chan error
	Unsubscribe()
}

// SubscribeFunc opens a live subscription for a photo.
type SubscribeFunc func(ctx context.Context, photoID string) (Subscription, error)

// Ephemeral UI timing defaults
const (
	DefaultNewFlagTTL   = 450 * time.Millisecond
	DefaultHighlightTTL = 2 * time.Second
)

// ErrSessionClosed is returned by operations on a torn-down session.
var ErrSessionClosed = errors.New("comment session closed")

// Config configures a comment session.
type Config struct {
	PhotoID   string // empty means no photo: the session stays idle
	UserID    string // the viewing user; drives like-state and authorship
	Gateway   Gateway
	Subscribe SubscribeFunc

	NewFlagTTL   time.Duration // how long a fresh comment keeps its "new" flag
	HighlightTTL time.Duration // how long a highlight lingers
}

// Session owns the comment state for one viewer looking at one photo.
//
// It subscribes to the live comment feed and replaces its list wholesale on
// every snapshot, re-deriving the viewer's like-state each time. Mutations
// apply optimistically and revert to the state captured at call time if the
// gateway rejects them, so an interleaved snapshot is never clobbered.
//
// A photo change is a new session: tear this one down with Close and build
// another. All methods are safe for concurrent use; after Close every
// operation is a no-op or returns ErrSessionClosed.
type Session struct {
	photoID      string
	userID       string
	gateway      Gateway
	subscribe    SubscribeFunc
	newFlagTTL   time.Duration
	highlightTTL time.Duration

	mu             sync.Mutex
	state          State
	loading        bool
	comments       []model.Comment
	liked          map[string]bool
	newIDs         map[string]struct{}
	highlightedID  string
	replyingTo     *model.Comment
	initialMention string
	lastErr        error
	closed         bool
	sub            Subscription
	cancel         context.CancelFunc
	timers         map[*time.Timer]struct{}
	updates        chan struct{}
}

// New builds a session in the Idle state. Call Start to go live.
func New(cfg Config) *Session {
	if cfg.NewFlagTTL <= 0 {
		cfg.NewFlagTTL = DefaultNewFlagTTL
	}
	if cfg.HighlightTTL <= 0 {
		cfg.HighlightTTL = DefaultHighlightTTL
	}
	return &Session{
		photoID:      cfg.PhotoID,
		userID:       cfg.UserID,
		gateway:      cfg.Gateway,
		subscribe:    cfg.Subscribe,
		newFlagTTL:   cfg.NewFlagTTL,
		highlightTTL: cfg.HighlightTTL,
		state:        StateIdle,
		comments:     []model.Comment{},
		liked:        map[string]bool{},
		newIDs:       map[string]struct{}{},
		timers:       map[*time.Timer]struct{}{},
		updates:      make(chan struct{}, 1),
	}
}

// Start opens the live subscription. Without a photo ID the session stays
// Idle with an empty list and loading=false; no subscription is opened.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.photoID == "" {
		s.loading = false
		s.mu.Unlock()
		s.signal()
		return nil
	}
	s.state = StateSubscribing
	s.loading = true
	s.mu.Unlock()
	s.signal()

	runCtx, cancel := context.WithCancel(ctx)
	sub, err := s.subscribe(runCtx, s.photoID)
	if err != nil {
		cancel()
		s.feedFailed(err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		sub.Unsubscribe()
		return ErrSessionClosed
	}
	s.sub = sub
	s.cancel = cancel
	s.mu.Unlock()

	go s.consume(runCtx, sub)
	return nil
}

func (s *Session) consume(ctx context.Context, sub Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			s.feedFailed(err)
			return
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			s.applySnapshot(ctx, snapshot)
		}
	}
}

// applySnapshot replaces the comment list wholesale and re-derives the
// viewer's like-state for exactly the comments present.
func (s *Session) applySnapshot(ctx context.Context, snapshot []model.Comment) {
	ids := make([]string, len(snapshot))
	for i := range snapshot {
		ids[i] = snapshot[i].ID
	}
	liked, err := s.gateway.CheckLikes(ctx, s.userID, ids)
	if err != nil {
		log.Printf("[Session] Like lookup failed for photo %s: %v", s.photoID, err)
		liked = map[string]bool{}
	}
	for i := range snapshot {
		snapshot[i].IsLiked = liked[snapshot[i].ID]
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateLive
	s.loading = false
	s.comments = snapshot
	s.liked = liked
	s.lastErr = nil
	s.mu.Unlock()
	s.signal()
}

// feedFailed moves the session to Errored: the list is cleared and the
// error surfaced. Reconnection is the caller's business, not the session's.
func (s *Session) feedFailed(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateErrored
	s.loading = false
	s.comments = []model.Comment{}
	s.liked = map[string]bool{}
	s.lastErr = err
	s.mu.Unlock()
	s.signal()
}

// captured is the exact pre-mutation state a failed call restores. It must
// be the captured copy, never a recomputation, so mutations that landed in
// the interim are not clobbered.
type captured struct {
	comments       []model.Comment
	liked          map[string]bool
	newIDs         map[string]struct{}
	highlightedID  string
	replyingTo     *model.Comment
	initialMention string
}

func (s *Session) captureLocked() captured {
	c := captured{
		comments:       make([]model.Comment, len(s.comments)),
		liked:          make(map[string]bool, len(s.liked)),
		newIDs:         make(map[string]struct{}, len(s.newIDs)),
		highlightedID:  s.highlightedID,
		replyingTo:     s.replyingTo,
		initialMention: s.initialMention,
	}
	copy(c.comments, s.comments)
	for k, v := range s.liked {
		c.liked[k] = v
	}
	for k := range s.newIDs {
		c.newIDs[k] = struct{}{}
	}
	return c
}

func (s *Session) restoreLocked(c captured) {
	s.comments = c.comments
	s.liked = c.liked
	s.newIDs = c.newIDs
	s.highlightedID = c.highlightedID
	s.replyingTo = c.replyingTo
	s.initialMention = c.initialMention
}

// AddComment posts a comment (or a reply, if reply composition is active).
// The comment ID is predicted before the write so the optimistic copy and
// the snapshot-echoed copy share an identity and render once. Returns the
// comment ID.
func (s *Session) AddComment(ctx context.Context, text string, mediaURL, mediaType *string) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if s.photoID == "" {
		s.mu.Unlock()
		return "", model.ErrPhotoNotFound
	}

	prev := s.captureLocked()
	predicted := uuid.NewString()

	// Flatten locally the same way the gateway will, so the optimistic
	// copy lands in the right thread immediately.
	var targetID, parentID, mentionedID *string
	if target := s.replyingTo; target != nil {
		id := target.ID
		targetID = &id
		mentionedID = &id
		if target.IsTopLevel() {
			parentID = &id
		} else {
			parentID = target.ParentID
		}
	}

	optimistic := model.Comment{
		ID:                 predicted,
		PhotoID:            s.photoID,
		UserID:             s.userID,
		Text:               text,
		MediaURL:           mediaURL,
		MediaType:          mediaType,
		ParentID:           parentID,
		MentionedCommentID: mentionedID,
		CreatedAt:          time.Now(),
	}
	s.comments = append(s.comments, optimistic)
	s.newIDs[predicted] = struct{}{}

	req := model.CreateCommentRequest{
		Text:        text,
		MediaURL:    mediaURL,
		MediaType:   mediaType,
		TargetID:    targetID,
		PredictedID: &predicted,
	}
	photoID, userID := s.photoID, s.userID
	s.mu.Unlock()
	s.signal()

	_, err := s.gateway.AddComment(ctx, photoID, userID, req)

	s.mu.Lock()
	if s.closed {
		// Resolved after teardown: nothing left to update.
		s.mu.Unlock()
		return predicted, err
	}
	if err != nil {
		s.restoreLocked(prev)
		s.mu.Unlock()
		s.signal()
		return "", err
	}
	s.clearReplyLocked()
	s.scheduleNewFlagClearLocked(predicted)
	s.mu.Unlock()
	s.signal()
	return predicted, nil
}

// DeleteComment removes a comment optimistically, cascading locally over
// its replies when it is top-level, then confirms with the gateway.
func (s *Session) DeleteComment(ctx context.Context, commentID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	prev := s.captureLocked()

	topLevel := false
	for i := range s.comments {
		if s.comments[i].ID == commentID {
			topLevel = s.comments[i].IsTopLevel()
			break
		}
	}
	kept := make([]model.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		if c.ID == commentID {
			continue
		}
		if topLevel && c.ParentID != nil && *c.ParentID == commentID {
			continue
		}
		kept = append(kept, c)
	}
	s.comments = kept
	delete(s.liked, commentID)
	delete(s.newIDs, commentID)
	if s.highlightedID == commentID {
		s.highlightedID = ""
	}
	if s.replyingTo != nil && s.replyingTo.ID == commentID {
		s.clearReplyLocked()
	}

	photoID, userID := s.photoID, s.userID
	s.mu.Unlock()
	s.signal()

	err := s.gateway.DeleteComment(ctx, photoID, commentID, userID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.restoreLocked(prev)
		s.mu.Unlock()
		s.signal()
		return err
	}
	s.mu.Unlock()
	return nil
}

// ToggleLike flips the viewer's like on a comment optimistically, adjusting
// the local like count, then confirms with the gateway.
func (s *Session) ToggleLike(ctx context.Context, commentID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	prev := s.captureLocked()

	wasLiked := s.liked[commentID]
	s.liked[commentID] = !wasLiked
	for i := range s.comments {
		if s.comments[i].ID == commentID {
			if wasLiked {
				s.comments[i].LikeCount--
			} else {
				s.comments[i].LikeCount++
			}
			s.comments[i].IsLiked = !wasLiked
			break
		}
	}

	photoID, userID := s.photoID, s.userID
	s.mu.Unlock()
	s.signal()

	_, err := s.gateway.ToggleLike(ctx, photoID, commentID, userID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.restoreLocked(prev)
		s.mu.Unlock()
		s.signal()
		return err
	}
	s.mu.Unlock()
	return nil
}

// ReplyTo starts reply composition against a comment. The derived mention
// prefix seeds the input field. Reply state is sticky across snapshots and
// clears on a successful add or an explicit CancelReply.
func (s *Session) ReplyTo(comment model.Comment) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	c := comment
	s.replyingTo = &c
	s.initialMention = ""
	if c.Author != nil {
		s.initialMention = "@" + c.Author.Username + " "
	}
	s.mu.Unlock()
	s.signal()
}

// CancelReply abandons reply composition.
func (s *Session) CancelReply() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.clearReplyLocked()
	s.mu.Unlock()
	s.signal()
}

func (s *Session) clearReplyLocked() {
	s.replyingTo = nil
	s.initialMention = ""
}

// Highlight flashes a comment (e.g. the target of a tapped mention) and
// auto-clears after the highlight TTL.
func (s *Session) Highlight(commentID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.highlightedID = commentID
	var t *time.Timer
	t = time.AfterFunc(s.highlightTTL, func() {
		s.mu.Lock()
		delete(s.timers, t)
		if s.closed {
			s.mu.Unlock()
			return
		}
		if s.highlightedID == commentID {
			s.highlightedID = ""
		}
		s.mu.Unlock()
		s.signal()
	})
	s.timers[t] = struct{}{}
	s.mu.Unlock()
	s.signal()
}

func (s *Session) scheduleNewFlagClearLocked(commentID string) {
	var t *time.Timer
	t = time.AfterFunc(s.newFlagTTL, func() {
		s.mu.Lock()
		delete(s.timers, t)
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.newIDs, commentID)
		s.mu.Unlock()
		s.signal()
	})
	s.timers[t] = struct{}{}
}

// Close tears the session down: the subscription is released, owned timers
// are cancelled, and every in-flight or later call becomes a no-op.
// Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	cancel := s.cancel
	for t := range s.timers {
		t.Stop()
	}
	s.timers = map[*time.Timer]struct{}{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Updates signals state changes, coalesced: the UI drains it and re-reads
// the accessors.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether the first snapshot is still pending.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Comments returns a copy of the current flat comment list.
func (s *Session) Comments() []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Comment, len(s.comments))
	copy(out, s.comments)
	return out
}

// IsLiked reports whether the viewer likes the comment.
func (s *Session) IsLiked(commentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked[commentID]
}

// IsNew reports whether the comment still awaits its entrance animation.
func (s *Session) IsNew(commentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.newIDs[commentID]
	return ok
}

// HighlightedID returns the currently highlighted comment ID, or "".
func (s *Session) HighlightedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlightedID
}

// Replying returns the reply target (nil when not composing a reply) and
// the derived mention prefix.
func (s *Session) Replying() (*model.Comment, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replyingTo == nil {
		return nil, ""
	}
	c := *s.replyingTo
	return &c, s.initialMention
}

// Err returns the terminal feed error, if the session is Errored.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
