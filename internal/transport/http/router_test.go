package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matching-sms-api/internal/config"
	"github.com/matching-sms-api/internal/domain"
	jwtinfra "github.com/matching-sms-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
)

type stubAuth struct{}

func (stubAuth) SendCode(context.Context, string) (string, error) { return "", nil }
func (stubAuth) VerifyCode(context.Context, string, string) (*domain.Session, error) {
	return nil, domain.ErrNotFound
}
func (stubAuth) PendingCodes(context.Context) ([]domain.PendingCodeView, error) { return nil, nil }

type rejectAll struct{}

func (rejectAll) Verify(string) (*jwtinfra.Claims, error) { return nil, errors.New("invalid") }

func newTestRouter(t *testing.T, env string) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := &config.Config{AppEnv: env, AllowedOrigins: []string{"*"}}
	return NewRouter(ctx, cfg, &Services{Auth: stubAuth{}, Tokens: rejectAll{}})
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestRouter_Health(t *testing.T) {
	rr := serve(newTestRouter(t, "development"), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":true`)
}

func TestRouter_UnknownRouteIsJSON404(t *testing.T) {
	rr := serve(newTestRouter(t, "development"), http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestRouter_PreferencesRequireBearer(t *testing.T) {
	r := newTestRouter(t, "development")
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/notifications/preferences").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPatch, "/api/notifications/preferences").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/notifications/history").Code)
}

func TestRouter_DebugCodesOnlyOutsideProduction(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(newTestRouter(t, "development"), http.MethodGet, "/api/debug/codes").Code)
	assert.Equal(t, http.StatusNotFound, serve(newTestRouter(t, "production"), http.MethodGet, "/api/debug/codes").Code)
}

func TestRouter_Metrics(t *testing.T) {
	rr := serve(newTestRouter(t, "development"), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
}
