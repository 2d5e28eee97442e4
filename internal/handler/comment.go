package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"photogram/internal/httputil"
	"photogram/internal/live"
	"photogram/internal/model"
	"photogram/internal/service"
	"photogram/internal/session"
	"photogram/internal/transport/http/middleware"
)

type CommentHandler struct {
	commentService *service.CommentService
	feed           *live.Feed
}

func NewCommentHandler(commentService *service.CommentService, feed *live.Feed) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		feed:           feed,
	}
}

// Create handles POST /photos/{id}/comments
// Creates a comment (or reply) on a photo for the authenticated user.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	photoID := chi.URLParam(r, "id")

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(r.Context(), photoID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPhotoNotFound):
			httputil.WriteNotFound(w, "Photo not found")
		case errors.Is(err, model.ErrTargetNotFound):
			httputil.WriteNotFound(w, "Reply target not found")
		case errors.Is(err, model.ErrEmptyContent):
			httputil.WriteBadRequest(w, "Comment needs text or media")
		case errors.Is(err, model.ErrTextTooLong):
			httputil.WriteBadRequest(w, "Comment text too long")
		case errors.Is(err, model.ErrInvalidMedia):
			httputil.WriteBadRequest(w, "Invalid comment media")
		default:
			log.Printf("[ERROR] Create comment handler: user=%s photo=%s err=%v", userID, photoID, err)
			httputil.WriteInternalError(w, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles DELETE /photos/{id}/comments/{commentId}
// Deletes a comment; a top-level delete cascades to its replies. Allowed
// for the comment author or the photo owner.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	photoID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")

	err := h.commentService.DeleteComment(r.Context(), photoID, commentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrPhotoNotFound):
			httputil.WriteNotFound(w, "Photo not found")
		case errors.Is(err, model.ErrNotAllowedToDelete):
			httputil.WriteForbidden(w, "Only the comment author or the photo owner can delete this comment")
		default:
			log.Printf("[ERROR] Delete comment handler: user=%s comment=%s err=%v", userID, commentID, err)
			httputil.WriteInternalError(w, "Failed to delete comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Comment deleted successfully",
	})
}

// ToggleLike handles POST /photos/{id}/comments/{commentId}/like
// Flips the authenticated user's like on the comment.
func (h *CommentHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	photoID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")

	resp, err := h.commentService.ToggleLike(r.Context(), photoID, commentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		default:
			log.Printf("[ERROR] Toggle like handler: user=%s comment=%s err=%v", userID, commentID, err)
			httputil.WriteInternalError(w, "Failed to toggle like")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// List handles GET /photos/{id}/comments
// Returns the full flat comment set, oldest first. With ?view=threaded the
// flat list is grouped into top-level comments carrying their replies.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "id")

	comments, err := h.commentService.ListComments(r.Context(), photoID)
	if err != nil {
		log.Printf("[ERROR] List comments handler: photo=%s err=%v", photoID, err)
		httputil.WriteInternalError(w, "Failed to get comments")
		return
	}

	if r.URL.Query().Get("view") == "threaded" {
		httputil.WriteJSON(w, http.StatusOK, session.BuildThreads(comments))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

// Preview handles GET /photos/{id}/comments/preview
// Returns up to two top-level comments for compact display under the photo.
func (h *CommentHandler) Preview(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "id")

	preview, err := h.commentService.PreviewComments(r.Context(), photoID)
	if err != nil {
		if errors.Is(err, model.ErrPhotoNotFound) {
			httputil.WriteNotFound(w, "Photo not found")
			return
		}
		log.Printf("[ERROR] Preview comments handler: photo=%s err=%v", photoID, err)
		httputil.WriteInternalError(w, "Failed to get comment preview")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, preview)
}

// CheckLikes handles GET /photos/{id}/comments/likes?ids=a,b,c
// Reports which of the given comments the authenticated user has liked.
func (h *CommentHandler) CheckLikes(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var ids []string
	if raw := r.URL.Query().Get("ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	liked, err := h.commentService.CheckLikes(r.Context(), userID, ids)
	if err != nil {
		log.Printf("[ERROR] Check likes handler: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to check likes")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, liked)
}

// Live handles GET /photos/{id}/comments/live
// Streams full comment snapshots over SSE: one event immediately, then one
// whenever the photo's comment set changes. The subscription is released
// when the client disconnects.
func (h *CommentHandler) Live(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteInternalError(w, "Streaming unsupported")
		return
	}

	sub, err := h.feed.Subscribe(r.Context(), photoID)
	if err != nil {
		log.Printf("[ERROR] Live comments handler: photo=%s err=%v", photoID, err)
		httputil.WriteInternalError(w, "Failed to subscribe to comments")
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case err := <-sub.Err():
			writeSSE(w, flusher, "error", map[string]string{"message": err.Error()})
			return
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			writeSSE(w, flusher, "snapshot", snapshot)
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	if _, err := w.Write([]byte("event: " + event + "\ndata: " + string(payload) + "\n\n")); err != nil {
		return
	}
	flusher.Flush()
}
