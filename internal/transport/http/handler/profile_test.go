package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matching-sms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestProfileCreate_MissingQuestionnaire(t *testing.T) {
	ids := &mockIdentities{}
	rr := httptest.NewRecorder()
	NewProfileHandler(ids).Create(rr, jsonReq(t, http.MethodPost, "/api/profile/create", map[string]string{"userId": "u1"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	ids.AssertNotCalled(t, "CompleteProfile", mock.Anything, mock.Anything)
}

func TestProfileCreate_ReturnsEffectiveID(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("CompleteProfile", mock.Anything, mock.MatchedBy(func(req domain.CreateProfileRequest) bool {
		return req.UserID == "client-id" && req.QuestionnaireData["age"] == float64(29)
	})).Return("owner-id", nil)

	rr := httptest.NewRecorder()
	NewProfileHandler(ids).Create(rr, jsonReq(t, http.MethodPost, "/api/profile/create", map[string]interface{}{
		"userId":            "client-id",
		"phoneNumber":       "+15551234567",
		"questionnaireData": map[string]interface{}{"age": 29},
	}))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "owner-id", body["userId"])
}

func TestProfileCreate_Conflict(t *testing.T) {
	ids := &mockIdentities{}
	ids.On("CompleteProfile", mock.Anything, mock.Anything).Return("", domain.ErrConflict)

	rr := httptest.NewRecorder()
	NewProfileHandler(ids).Create(rr, jsonReq(t, http.MethodPost, "/api/profile/create", map[string]interface{}{
		"userId": "u1", "questionnaireData": map[string]interface{}{},
	}))
	assert.Equal(t, http.StatusConflict, rr.Code)
}
