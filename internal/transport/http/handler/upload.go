package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/matching-sms-api/internal/application/photo"
)

// multipart overhead allowed on top of the photo itself
const formSlack = 1 << 20

// UploadHandler handles profile photo uploads.
type UploadHandler struct {
	svc photo.Service
}

func NewUploadHandler(svc photo.Service) *UploadHandler { return &UploadHandler{svc: svc} }

func (h *UploadHandler) Photo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, photo.MaxSize+formSlack)
	if err := r.ParseMultipartForm(photo.MaxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "photo exceeds 5MB limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no photo file provided")
		return
	}
	defer file.Close()

	userID := strings.TrimSpace(r.FormValue("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	url, err := h.svc.Upload(r.Context(), photo.UploadInput{Reader: file, UserID: userID})
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PhotoEnvelope{Success: true, Message: "Photo uploaded successfully!", PhotoURL: url})
}
