package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"photogram/internal/handler"
	"photogram/internal/httputil"
	authmw "photogram/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	CommentHandler *handler.CommentHandler
	MediaHandler   *handler.MediaHandler
	JWTSecret      string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public read endpoints
	r.Get("/photos/{id}/comments", cfg.CommentHandler.List)
	r.Get("/photos/{id}/comments/preview", cfg.CommentHandler.Preview)
	r.Get("/photos/{id}/comments/live", cfg.CommentHandler.Live)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/photos/{id}/comments", cfg.CommentHandler.Create)
		r.Delete("/photos/{id}/comments/{commentId}", cfg.CommentHandler.Delete)
		r.Post("/photos/{id}/comments/{commentId}/like", cfg.CommentHandler.ToggleLike)
		r.Get("/photos/{id}/comments/likes", cfg.CommentHandler.CheckLikes)

		r.Post("/media/comments", cfg.MediaHandler.UploadCommentMedia)
	})

	return r
}
