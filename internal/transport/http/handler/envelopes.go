package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/matching-sms-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper. Every response carries Success.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendCodeEnvelope wraps send-code responses.
type SendCodeEnvelope struct {
	Success bool   `json:"success"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SessionEnvelope wraps verify-code responses.
type SessionEnvelope struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message,omitempty"`
	SessionToken string             `json:"sessionToken"`
	User         domain.SessionUser `json:"user"`
}

// DispatchEnvelope wraps notification dispatch responses.
type DispatchEnvelope struct {
	Success    bool                      `json:"success"`
	MessageSid string                    `json:"messageSid,omitempty"`
	Status     domain.NotificationStatus `json:"status"`
	Message    string                    `json:"message,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

type ProfileEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	UserID  string `json:"userId"`
}

type PhotoEnvelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	PhotoURL string `json:"photoUrl"`
}

type PreferencesEnvelope struct {
	Success     bool                            `json:"success"`
	Preferences *domain.NotificationPreferences `json:"preferences"`
}

type HistoryEnvelope struct {
	Success       bool                          `json:"success"`
	Notifications []domain.NotificationLogEntry `json:"notifications"`
}

type CodesEnvelope struct {
	Success bool                     `json:"success"`
	Codes   []domain.PendingCodeView `json:"codes"`
}

type HealthEnvelope struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Success: false, Error: msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// httpError writes err with its mapped status. Server-side failures are
// logged in full and reported with a generic message.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		writeError(w, status, err.Error())
		return
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	switch {
	case errors.Is(err, domain.ErrTransport):
		writeError(w, status, "failed to send SMS")
	case errors.Is(err, domain.ErrPersistence):
		writeError(w, status, "storage unavailable")
	default:
		writeError(w, status, "internal server error")
	}
}
