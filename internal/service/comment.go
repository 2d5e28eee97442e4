package service

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"photogram/internal/model"
	"photogram/internal/queue"
	"photogram/internal/repository"
)

// ChangeNotifier signals live subscribers that a photo's comment set
// changed. Implemented by live.Notifier.
type ChangeNotifier interface {
	Notify(ctx context.Context, photoID string) error
}

// CommentService is the persistence gateway for the comment lifecycle:
// create (with thread flattening), cascade delete, like toggling, listing,
// and preview selection. Each mutation commits the comment write and the
// photo's denormalized counter in one transaction.
type CommentService struct {
	commentRepo repository.CommentRepository
	photoRepo   repository.PhotoRepository
	likeRepo    repository.LikeRepository
	users       *UserService
	tx          repository.TxRunner
	publisher   queue.Publisher
	notifier    ChangeNotifier
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	photoRepo repository.PhotoRepository,
	likeRepo repository.LikeRepository,
	users *UserService,
	tx repository.TxRunner,
	publisher queue.Publisher,
	notifier ChangeNotifier,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		photoRepo:   photoRepo,
		likeRepo:    likeRepo,
		users:       users,
		tx:          tx,
		publisher:   publisher,
		notifier:    notifier,
	}
}

// resolveThread maps a reply target onto the flat thread structure.
// Replying to a top-level comment attaches to it directly; replying to a
// reply flattens to the original thread root while recording which reply
// was addressed.
func (s *CommentService) resolveThread(ctx context.Context, photoID, targetID string) (parentID, mentionedID *string, err error) {
	target, err := s.commentRepo.GetByID(ctx, targetID)
	if err == model.ErrCommentNotFound {
		return nil, nil, model.ErrTargetNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if target.PhotoID != photoID {
		return nil, nil, model.ErrTargetNotFound
	}

	if target.IsTopLevel() {
		return &target.ID, &target.ID, nil
	}
	return target.ParentID, &target.ID, nil
}

// validateContent enforces the create-time content rules, in contract
// order: content presence, text length, media well-formedness.
func validateContent(req model.CreateCommentRequest) error {
	if len(req.Text) == 0 && req.MediaURL == nil {
		return model.ErrEmptyContent
	}
	if len(req.Text) > model.MaxCommentTextLength {
		return model.ErrTextTooLong
	}
	if req.MediaURL == nil {
		if req.MediaType != nil {
			return model.ErrInvalidMedia
		}
		return nil
	}

	// MediaURL and MediaType travel as a pair
	parsed, err := url.ParseRequestURI(*req.MediaURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return model.ErrInvalidMedia
	}
	if req.MediaType == nil || !model.IsAllowedCommentMediaType(*req.MediaType) {
		return model.ErrInvalidMedia
	}
	return nil
}

// AddComment validates, flattens the reply target, and persists the
// comment, incrementing the photo's comment_count in the same transaction.
// A client-predicted ID is honored so the optimistic copy and the echoed
// snapshot copy share an identity.
func (s *CommentService) AddComment(ctx context.Context, photoID, userID string, req model.CreateCommentRequest) (*model.Comment, error) {
	exists, err := s.photoRepo.Exists(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("check photo exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPhotoNotFound
	}

	if err := validateContent(req); err != nil {
		return nil, err
	}

	var parentID, mentionedID *string
	if req.TargetID != nil {
		parentID, mentionedID, err = s.resolveThread(ctx, photoID, *req.TargetID)
		if err != nil {
			return nil, err
		}
	}

	comment := &model.Comment{
		ID:                 uuid.NewString(),
		PhotoID:            photoID,
		UserID:             userID,
		Text:               req.Text,
		MediaURL:           req.MediaURL,
		MediaType:          req.MediaType,
		ParentID:           parentID,
		MentionedCommentID: mentionedID,
	}
	if req.PredictedID != nil {
		comment.ID = *req.PredictedID
	}

	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.commentRepo.Create(ctx, tx, comment); err != nil {
			return err
		}
		return s.photoRepo.IncrementCommentCount(ctx, tx, photoID, 1)
	})
	if err != nil {
		return nil, err
	}

	comment.Author = s.users.Resolve(ctx, userID)

	log.Printf("[CommentService] User %s commented on photo %s (comment=%s)", userID, photoID, comment.ID)

	s.publishAndNotify(ctx, photoID, queue.NewCommentAddedEvent(photoID, comment.ID, userID))

	return comment, nil
}

// DeleteComment removes a comment. Deleting a top-level comment cascades to
// its replies; the counter decrements by exactly the number of removed
// rows, in the same transaction. Allowed only for the comment author or the
// photo owner; an unauthorized request leaves everything untouched.
func (s *CommentService) DeleteComment(ctx context.Context, photoID, commentID, requesterID string) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.PhotoID != photoID {
		return model.ErrCommentNotFound
	}

	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return err
	}

	if requesterID != comment.UserID && requesterID != photo.OwnerID {
		return model.ErrNotAllowedToDelete
	}

	var deleted int64
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if comment.IsTopLevel() {
			var err error
			deleted, err = s.commentRepo.DeleteThread(ctx, tx, commentID)
			if err != nil {
				return err
			}
		} else {
			if err := s.commentRepo.DeleteByID(ctx, tx, commentID); err != nil {
				return err
			}
			deleted = 1
		}
		return s.photoRepo.IncrementCommentCount(ctx, tx, photoID, -int(deleted))
	})
	if err != nil {
		return err
	}

	log.Printf("[CommentService] User %s deleted comment %s from photo %s (removed=%d)",
		requesterID, commentID, photoID, deleted)

	s.publishAndNotify(ctx, photoID, queue.NewCommentDeletedEvent(photoID, commentID, requesterID, deleted))

	return nil
}

// ToggleLike flips the (photo, comment, user) like record and adjusts the
// comment's like_count by one in the same transaction. Toggling twice is a
// net no-op.
func (s *CommentService) ToggleLike(ctx context.Context, photoID, commentID, userID string) (*model.LikeToggleResponse, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PhotoID != photoID {
		return nil, model.ErrCommentNotFound
	}

	liked, err := s.likeRepo.Exists(ctx, photoID, commentID, userID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if liked {
			if err := s.likeRepo.Delete(ctx, tx, photoID, commentID, userID); err != nil {
				return err
			}
			return s.commentRepo.IncrementLikeCount(ctx, tx, commentID, -1)
		}
		if err := s.likeRepo.Create(ctx, tx, photoID, commentID, userID); err != nil {
			return err
		}
		return s.commentRepo.IncrementLikeCount(ctx, tx, commentID, 1)
	})
	if err != nil {
		return nil, err
	}

	nowLiked := !liked
	s.publishAndNotify(ctx, photoID, queue.NewLikeToggledEvent(photoID, commentID, userID, nowLiked))

	return &model.LikeToggleResponse{Liked: nowLiked}, nil
}

// ListComments returns the full author-joined flat comment set for a photo,
// oldest first. This is the snapshot shape the live feed delivers.
func (s *CommentService) ListComments(ctx context.Context, photoID string) ([]model.Comment, error) {
	comments, err := s.commentRepo.GetByPhotoID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	s.joinAuthors(ctx, comments)
	return comments, nil
}

// PreviewComments selects up to two top-level comments for compact display.
// A comment by the photo owner acts as a pinned caption and always comes
// first, followed by the most recent other comment; otherwise the two most
// recent top-level comments are returned, newest first.
func (s *CommentService) PreviewComments(ctx context.Context, photoID string) ([]model.Comment, error) {
	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}

	recent, err := s.commentRepo.GetTopLevelRecent(ctx, photoID, 10)
	if err != nil {
		return nil, err
	}

	var ownerComment *model.Comment
	for i := range recent {
		if recent[i].UserID == photo.OwnerID {
			ownerComment = &recent[i]
			break
		}
	}

	preview := make([]model.Comment, 0, 2)
	if ownerComment != nil {
		preview = append(preview, *ownerComment)
		for i := range recent {
			if recent[i].ID != ownerComment.ID {
				preview = append(preview, recent[i])
				break
			}
		}
	} else {
		for i := range recent {
			if len(preview) == 2 {
				break
			}
			preview = append(preview, recent[i])
		}
	}

	s.joinAuthors(ctx, preview)
	return preview, nil
}

// CheckLikes reports which of the given comments the user has liked. The
// client sync engine re-derives this per snapshot.
func (s *CommentService) CheckLikes(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	return s.likeRepo.CheckLikes(ctx, userID, commentIDs)
}

func (s *CommentService) joinAuthors(ctx context.Context, comments []model.Comment) {
	if len(comments) == 0 {
		return
	}
	ids := make([]string, len(comments))
	for i := range comments {
		ids[i] = comments[i].UserID
	}
	authors := s.users.ResolveAuthors(ctx, ids)
	for i := range comments {
		author := authors[comments[i].UserID]
		comments[i].Author = &author
	}
}

// publishAndNotify runs after commit, best-effort: a failed event or touch
// never fails the mutation that already happened.
func (s *CommentService) publishAndNotify(ctx context.Context, photoID string, event queue.CommentEvent) {
	if s.publisher != nil {
		if _, err := s.publisher.Publish(ctx, queue.StreamComments, event); err != nil {
			log.Printf("[CommentService] Failed to publish %s event: %v", event.Type, err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, photoID); err != nil {
			log.Printf("[CommentService] Failed to notify live feed: photo=%s err=%v", photoID, err)
		}
	}
}
