package handler

import (
	"context"
	"net/http"

	"github.com/matching-sms-api/internal/domain"
)

type ProfileCompleter interface {
	CompleteProfile(ctx context.Context, req domain.CreateProfileRequest) (string, error)
}

// ProfileHandler handles profile creation.
type ProfileHandler struct {
	profiles ProfileCompleter
}

func NewProfileHandler(profiles ProfileCompleter) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProfileRequest
	if !decodeValid(w, r, &req, "user ID and questionnaire data are required") {
		return
	}
	userID, err := h.profiles.CompleteProfile(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{Success: true, Message: "Profile created successfully!", UserID: userID})
}
