package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matching-sms-api/internal/application/photo"
	"github.com/matching-sms-api/internal/application/preference"
	"github.com/matching-sms-api/internal/config"
	"github.com/matching-sms-api/internal/domain"
	jwtinfra "github.com/matching-sms-api/internal/infrastructure/jwt"
	"github.com/matching-sms-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) SendCode(ctx context.Context, rawPhone string) (string, error) {
	args := m.Called(ctx, rawPhone)
	return args.String(0), args.Error(1)
}
func (m *mockAuthSvc) VerifyCode(ctx context.Context, rawPhone, code string) (*domain.Session, error) {
	args := m.Called(ctx, rawPhone, code)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthSvc) PendingCodes(ctx context.Context) ([]domain.PendingCodeView, error) {
	args := m.Called(ctx)
	codes, _ := args.Get(0).([]domain.PendingCodeView)
	return codes, args.Error(1)
}

type mockNotifySvc struct{ mock.Mock }

func (m *mockNotifySvc) result(args mock.Arguments) (*domain.DispatchResult, error) {
	if r, _ := args.Get(0).(*domain.DispatchResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotifySvc) Dispatch(ctx context.Context, r domain.Recipient, kind domain.NotificationKind, data domain.EventData) (*domain.DispatchResult, error) {
	return m.result(m.Called(ctx, r, kind, data))
}
func (m *mockNotifySvc) SendMatchFound(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error) {
	return m.Dispatch(ctx, r, domain.KindMatchFound, data)
}
func (m *mockNotifySvc) SendProfileViewed(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error) {
	return m.Dispatch(ctx, r, domain.KindProfileViewed, data)
}
func (m *mockNotifySvc) SendMessageReceived(ctx context.Context, r domain.Recipient, data domain.EventData) (*domain.DispatchResult, error) {
	return m.Dispatch(ctx, r, domain.KindMessageReceived, data)
}
func (m *mockNotifySvc) SendReminder(ctx context.Context, r domain.Recipient) (*domain.DispatchResult, error) {
	return m.Dispatch(ctx, r, domain.KindReminder, domain.EventData{})
}
func (m *mockNotifySvc) Process(ctx context.Context, ev domain.NotificationEvent) (*domain.DispatchResult, error) {
	return m.result(m.Called(ctx, ev))
}
func (m *mockNotifySvc) History(ctx context.Context, userID string, limit int) ([]domain.NotificationLogEntry, error) {
	args := m.Called(ctx, userID, limit)
	entries, _ := args.Get(0).([]domain.NotificationLogEntry)
	return entries, args.Error(1)
}

type mockPrefSvc struct{ mock.Mock }

func (m *mockPrefSvc) Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.NotificationPreferences); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPrefSvc) Update(ctx context.Context, userID string, req domain.UpdatePreferencesRequest) bool {
	return m.Called(ctx, userID, req).Bool(0)
}
func (m *mockPrefSvc) Evaluate(ctx context.Context, r domain.Recipient, kind domain.NotificationKind) preference.Decision {
	return m.Called(ctx, r, kind).Get(0).(preference.Decision)
}
func (m *mockPrefSvc) ShouldSend(ctx context.Context, r domain.Recipient, kind domain.NotificationKind) bool {
	return m.Called(ctx, r, kind).Bool(0)
}

type mockIdentities struct{ mock.Mock }

func (m *mockIdentities) RecipientForPhone(ctx context.Context, rawPhone, userID string) (domain.Recipient, error) {
	args := m.Called(ctx, rawPhone, userID)
	r, _ := args.Get(0).(domain.Recipient)
	return r, args.Error(1)
}
func (m *mockIdentities) CompleteProfile(ctx context.Context, req domain.CreateProfileRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockPhotoSvc struct{ mock.Mock }

func (m *mockPhotoSvc) Upload(ctx context.Context, in photo.UploadInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given identity.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID string, body []byte) *http.Request {
	t.Helper()
	st, err := p.Sign(userID, "+15551234567")
	require.NoError(t, err)
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+st.Token)
	return r
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.HandlerFunc, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

func jsonReq(t *testing.T, method, target string, v interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(body))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}
