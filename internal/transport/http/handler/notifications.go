package handler

import (
	"net/http"
	"strconv"

	"github.com/matching-sms-api/internal/application/notification"
	"github.com/matching-sms-api/internal/application/preference"
	"github.com/matching-sms-api/internal/domain"
	"github.com/matching-sms-api/internal/transport/http/middleware"
)

// NotificationHandler handles application events, preferences and history.
type NotificationHandler struct {
	notify notification.Service
	prefs  preference.Service
}

func NewNotificationHandler(notify notification.Service, prefs preference.Service) *NotificationHandler {
	return &NotificationHandler{notify: notify, prefs: prefs}
}

func (h *NotificationHandler) Event(w http.ResponseWriter, r *http.Request) {
	var ev domain.NotificationEvent
	if !decodeValid(w, r, &ev, "userId and type are required") {
		return
	}
	res, err := h.notify.Process(r.Context(), ev)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeDispatch(w, res, "Notification sent successfully!")
}

func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.prefs.Get(r.Context(), claims.IdentityID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreferencesEnvelope{Success: true, Preferences: p})
}

func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdatePreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.prefs.Update(r.Context(), claims.IdentityID, req) {
		writeError(w, http.StatusBadRequest, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Preferences updated"})
}

func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.notify.History(r.Context(), claims.IdentityID, limit)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryEnvelope{Success: true, Notifications: entries})
}
