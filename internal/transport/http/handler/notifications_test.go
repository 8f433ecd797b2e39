package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matching-sms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEvent_Validation(t *testing.T) {
	notify := &mockNotifySvc{}
	rr := httptest.NewRecorder()
	NewNotificationHandler(notify, &mockPrefSvc{}).Event(rr, jsonReq(t, http.MethodPost, "/api/notifications/events", map[string]string{"type": "match_found"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	notify.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestEvent_Processed(t *testing.T) {
	notify := &mockNotifySvc{}
	ev := domain.NotificationEvent{UserID: "u1", Type: domain.KindMessageReceived, Data: domain.EventData{Name: "Alex", MessagePreview: "hey"}}
	notify.On("Process", mock.Anything, ev).Return(&domain.DispatchResult{Sent: true, Status: domain.StatusSent, MessageID: "m1"}, nil)

	rr := httptest.NewRecorder()
	NewNotificationHandler(notify, &mockPrefSvc{}).Event(rr, jsonReq(t, http.MethodPost, "/api/notifications/events", ev))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "m1", decodeBody(t, rr)["messageSid"])
	notify.AssertExpectations(t)
}

func TestEvent_UnknownUser(t *testing.T) {
	notify := &mockNotifySvc{}
	notify.On("Process", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	rr := httptest.NewRecorder()
	NewNotificationHandler(notify, &mockPrefSvc{}).Event(rr, jsonReq(t, http.MethodPost, "/api/notifications/events",
		domain.NotificationEvent{UserID: "ghost", Type: domain.KindReminder}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetPreferences_MissingClaims(t *testing.T) {
	rr := httptest.NewRecorder()
	NewNotificationHandler(&mockNotifySvc{}, &mockPrefSvc{}).GetPreferences(rr, httptest.NewRequest(http.MethodGet, "/api/notifications/preferences", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetPreferences_UsesTokenIdentity(t *testing.T) {
	p := newTestJWTProvider(t)
	prefs := &mockPrefSvc{}
	start, end := "22:00", "08:00"
	prefs.On("Get", mock.Anything, "u1").Return(&domain.NotificationPreferences{
		UserID: "u1", SMSEnabled: true, QuietHoursStart: &start, QuietHoursEnd: &end, Timezone: "America/Los_Angeles",
	}, nil)
	h := NewNotificationHandler(&mockNotifySvc{}, prefs)

	rr := httptest.NewRecorder()
	serveAuthed(p, h.GetPreferences, rr, bearerReq(t, p, http.MethodGet, "/api/notifications/preferences", "u1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp PreferencesEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "22:00", *resp.Preferences.QuietHoursStart)
	prefs.AssertExpectations(t)
}

func TestUpdatePreferences_RejectedUpdateIsBadRequest(t *testing.T) {
	p := newTestJWTProvider(t)
	prefs := &mockPrefSvc{}
	prefs.On("Update", mock.Anything, "u1", mock.Anything).Return(false)
	h := NewNotificationHandler(&mockNotifySvc{}, prefs)

	rr := httptest.NewRecorder()
	serveAuthed(p, h.UpdatePreferences, rr, bearerReq(t, p, http.MethodPatch, "/api/notifications/preferences", "u1",
		[]byte(`{"quiet_hours_start":"25:99"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdatePreferences_Applied(t *testing.T) {
	p := newTestJWTProvider(t)
	prefs := &mockPrefSvc{}
	prefs.On("Update", mock.Anything, "u1", mock.MatchedBy(func(req domain.UpdatePreferencesRequest) bool {
		return req.SMSEnabled != nil && !*req.SMSEnabled && req.Messages == nil
	})).Return(true)
	h := NewNotificationHandler(&mockNotifySvc{}, prefs)

	rr := httptest.NewRecorder()
	serveAuthed(p, h.UpdatePreferences, rr, bearerReq(t, p, http.MethodPatch, "/api/notifications/preferences", "u1",
		[]byte(`{"sms_enabled":false}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody(t, rr)["success"])
	prefs.AssertExpectations(t)
}

func TestHistory_PassesLimit(t *testing.T) {
	p := newTestJWTProvider(t)
	notify := &mockNotifySvc{}
	notify.On("History", mock.Anything, "u1", 10).Return([]domain.NotificationLogEntry{
		{EntryID: "e2", Type: domain.KindMatchFound, Status: domain.StatusSent},
		{EntryID: "e1", Type: domain.KindReminder, Status: domain.StatusSkipped},
	}, nil)
	h := NewNotificationHandler(notify, &mockPrefSvc{})

	rr := httptest.NewRecorder()
	serveAuthed(p, h.History, rr, bearerReq(t, p, http.MethodGet, "/api/notifications/history?limit=10", "u1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp HistoryEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Notifications, 2)
	assert.Equal(t, "e2", resp.Notifications[0].EntryID)
}
