package handler

import (
	"context"
	"net/http"

	"github.com/matching-sms-api/internal/application/notification"
	"github.com/matching-sms-api/internal/domain"
	"github.com/matching-sms-api/internal/pkg/validate"
)

type RecipientFinder interface {
	RecipientForPhone(ctx context.Context, rawPhone, userID string) (domain.Recipient, error)
}

type MatchSMSRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required_unless=UserID demo-user"`
	MatchName   string `json:"matchName" validate:"required"`
	UserID      string `json:"userId"`
}

type ProfileViewSMSRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required_unless=UserID demo-user"`
	ViewerName  string `json:"viewerName" validate:"required"`
	UserID      string `json:"userId"`
}

type MessageSMSRequest struct {
	PhoneNumber    string `json:"phoneNumber" validate:"required_unless=UserID demo-user"`
	SenderName     string `json:"senderName" validate:"required"`
	MessagePreview string `json:"messagePreview"`
	UserID         string `json:"userId"`
}

type ReminderSMSRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required_unless=UserID demo-user"`
	UserID      string `json:"userId"`
}

// SMSHandler sends the direct notification endpoints addressed by phone number.
type SMSHandler struct {
	recipients RecipientFinder
	notify     notification.Service
}

func NewSMSHandler(recipients RecipientFinder, notify notification.Service) *SMSHandler {
	return &SMSHandler{recipients: recipients, notify: notify}
}

func (h *SMSHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchSMSRequest
	if !decodeValid(w, r, &req, "phone number and match name are required") {
		return
	}
	h.send(w, r, req.PhoneNumber, req.UserID, domain.KindMatchFound,
		domain.EventData{Name: req.MatchName}, "Match notification sent successfully!")
}

func (h *SMSHandler) ProfileView(w http.ResponseWriter, r *http.Request) {
	var req ProfileViewSMSRequest
	if !decodeValid(w, r, &req, "phone number and viewer name are required") {
		return
	}
	h.send(w, r, req.PhoneNumber, req.UserID, domain.KindProfileViewed,
		domain.EventData{Name: req.ViewerName}, "Profile view notification sent successfully!")
}

func (h *SMSHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageSMSRequest
	if !decodeValid(w, r, &req, "phone number and sender name are required") {
		return
	}
	h.send(w, r, req.PhoneNumber, req.UserID, domain.KindMessageReceived,
		domain.EventData{Name: req.SenderName, MessagePreview: req.MessagePreview}, "Message notification sent successfully!")
}

func (h *SMSHandler) Reminder(w http.ResponseWriter, r *http.Request) {
	var req ReminderSMSRequest
	if !decodeValid(w, r, &req, "phone number is required") {
		return
	}
	h.send(w, r, req.PhoneNumber, req.UserID, domain.KindReminder, domain.EventData{}, "Reminder sent successfully!")
}

func (h *SMSHandler) send(w http.ResponseWriter, r *http.Request, phone, userID string, kind domain.NotificationKind, data domain.EventData, okMsg string) {
	recipient, err := h.recipients.RecipientForPhone(r.Context(), phone, userID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	res, err := h.notify.Dispatch(r.Context(), recipient, kind, data)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeDispatch(w, res, okMsg)
}

// writeDispatch reports a completed dispatch. A gated-out notification is
// not an HTTP error.
func writeDispatch(w http.ResponseWriter, res *domain.DispatchResult, okMsg string) {
	if !res.Sent {
		writeJSON(w, http.StatusOK, DispatchEnvelope{Success: false, Status: res.Status, Error: res.Reason})
		return
	}
	writeJSON(w, http.StatusOK, DispatchEnvelope{Success: true, MessageSid: res.MessageID, Status: res.Status, Message: okMsg})
}

// decodeValid decodes and validates the body, writing a 400 with msg on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, v interface{}, msg string) bool {
	if err := decodeJSON(r, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}
