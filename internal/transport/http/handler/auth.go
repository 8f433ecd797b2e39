package handler

import (
	"errors"
	"net/http"

	"github.com/matching-sms-api/internal/application/auth"
	"github.com/matching-sms-api/internal/domain"
	"github.com/matching-sms-api/internal/pkg/validate"
)

// AuthHandler handles phone verification endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req auth.SendCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "phone number is required")
		return
	}
	phone, err := h.svc.SendCode(r.Context(), req.PhoneNumber)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SendCodeEnvelope{
		Success: true,
		Phone:   phone,
		Message: "Verification code sent successfully!",
	})
}

func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "phone number and verification code are required")
		return
	}
	sess, err := h.svc.VerifyCode(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		// every code-level failure is a client error on this endpoint
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "no verification code found, please request a new code")
			return
		}
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{
		Success:      true,
		Message:      "Phone verified successfully!",
		SessionToken: sess.Token,
		User:         sess.User,
	})
}

// PendingCodes lists unexpired codes without their values. Mounted only outside production.
func (h *AuthHandler) PendingCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.svc.PendingCodes(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	if codes == nil {
		codes = []domain.PendingCodeView{}
	}
	writeJSON(w, http.StatusOK, CodesEnvelope{Success: true, Codes: codes})
}
