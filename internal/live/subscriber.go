package live

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"photogram/internal/model"
)

const (
	// ChannelPrefix is the pub/sub channel prefix for per-photo comment changes
	ChannelPrefix = "comments:photo:"
)

func channelFor(photoID string) string {
	return ChannelPrefix + photoID
}

// Notifier publishes a change touch for a photo's comment set. The gateway
// calls it after every committed mutation; payload content is irrelevant,
// subscribers re-fetch the snapshot on any touch.
type Notifier struct {
	client *redis.Client
}

// NewNotifier creates a Notifier backed by Redis pub/sub.
func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

// Notify signals that the photo's comment set changed.
func (n *Notifier) Notify(ctx context.Context, photoID string) error {
	if err := n.client.Publish(ctx, channelFor(photoID), "touch").Err(); err != nil {
		return fmt.Errorf("publish comment touch: %w", err)
	}
	return nil
}

// Lister fetches the current author-joined comment set for a photo. The
// gateway's list operation satisfies this.
type Lister interface {
	ListComments(ctx context.Context, photoID string) ([]model.Comment, error)
}

// Feed hands out live comment subscriptions. Each subscription listens on
// the photo's pub/sub channel and re-fetches the full comment list on every
// touch, so every delivered snapshot is internally consistent.
type Feed struct {
	client *redis.Client
	lister Lister
}

// NewFeed creates a Feed.
func NewFeed(client *redis.Client, lister Lister) *Feed {
	return &Feed{client: client, lister: lister}
}

// Subscribe opens a live subscription for one photo. The initial snapshot is
// delivered without waiting for a change. The returned handle owns the
// pub/sub connection; Unsubscribe is safe to call any number of times.
func (f *Feed) Subscribe(ctx context.Context, photoID string) (*Subscription, error) {
	pubsub := f.client.Subscribe(ctx, channelFor(photoID))

	// Confirm the subscription before the initial fetch so no touch can
	// slip between snapshot and listen loop.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to comment channel: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		photoID:   photoID,
		lister:    f.lister,
		pubsub:    pubsub,
		snapshots: make(chan []model.Comment, 1),
		errs:      make(chan error, 1),
		cancel:    cancel,
	}
	go s.run(runCtx)

	log.Printf("[Live] Subscribed: photo=%s", photoID)
	return s, nil
}

// Subscription is a handle on one photo's live comment feed. Snapshots are
// delivered in order with latest-wins coalescing; a terminal failure is
// reported once on Err and closes the snapshot channel.
type Subscription struct {
	photoID   string
	lister    Lister
	pubsub    *redis.PubSub
	snapshots chan []model.Comment
	errs      chan error
	cancel    context.CancelFunc
	once      sync.Once
}

// Snapshots returns the ordered snapshot channel. It closes when the
// subscription ends, whether by Unsubscribe or by failure.
func (s *Subscription) Snapshots() <-chan []model.Comment {
	return s.snapshots
}

// Err returns the terminal error channel. At most one error is ever sent.
func (s *Subscription) Err() <-chan error {
	return s.errs
}

// Unsubscribe tears the subscription down. Idempotent: extra calls do
// nothing and no further snapshots or errors are delivered.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.pubsub.Close()
		log.Printf("[Live] Unsubscribed: photo=%s", s.photoID)
	})
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.snapshots)

	if !s.deliver(ctx) {
		return
	}

	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				if ctx.Err() == nil {
					s.fail(errors.New("comment feed connection closed"))
				}
				return
			}
			if !s.deliver(ctx) {
				return
			}
		}
	}
}

// deliver re-fetches the snapshot and pushes it, dropping a stale
// undelivered one first. Returns false when the subscription is over.
func (s *Subscription) deliver(ctx context.Context) bool {
	comments, err := s.lister.ListComments(ctx, s.photoID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.fail(err)
		return false
	}

	select {
	case <-s.snapshots:
	default:
	}
	select {
	case s.snapshots <- comments:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Subscription) fail(err error) {
	log.Printf("[Live] Feed failed: photo=%s err=%v", s.photoID, err)
	select {
	case s.errs <- err:
	default:
	}
}
