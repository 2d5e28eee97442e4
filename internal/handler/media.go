package handler

import (
	"errors"
	"log"
	"net/http"

	"photogram/internal/httputil"
	"photogram/internal/model"
	"photogram/internal/service"
	"photogram/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadCommentMedia handles POST /media/comments
// Accepts a multipart upload, bounds it server-side, stores it in R2 and
// returns the public URL the client passes as media_url when commenting.
func (h *MediaHandler) UploadCommentMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, model.MaxCommentMediaSizeBytes+1<<20)
	if err := r.ParseMultipartForm(model.MaxCommentMediaSizeBytes); err != nil {
		httputil.WriteBadRequest(w, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	res, err := h.mediaService.UploadCommentMedia(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequest(w, "Media exceeds 10MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequest(w, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			log.Printf("[ERROR] Upload comment media handler: user=%s err=%v", userID, err)
			httputil.WriteInternalError(w, "Failed to upload media")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
