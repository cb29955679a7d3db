package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "github.com/restoplan/planner-backend/internal/api/http"
	"github.com/restoplan/planner-backend/internal/dataservice"
	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/session"
	"github.com/restoplan/planner-backend/internal/storage/local"
)

type idleClock struct{}

func (idleClock) Now() time.Time                       { return time.Now() }
func (idleClock) NewTicker(time.Duration) local.Ticker { return idleTicker{} }

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	SetGinMode("test")

	kv, err := local.NewFileKV(t.TempDir())
	require.NoError(t, err)
	data := dataservice.New(local.NewStore(kv, local.WithClock(idleClock{})), "test-app")
	sessions := session.NewManager(identity.NewOfflineProvider(), data)
	t.Cleanup(func() { sessions.Stop(context.Background()) })

	return BuildRouter(RouterDeps{
		ServiceName: "planner-test",
		Version:     "0.0.1",
		CORSOrigins: []string{"http://localhost:3000"},
		Sessions:    sessions,
		Checks: map[string]httpapi.Check{
			"local": func(ctx context.Context) error {
				_, err := kv.Keys(ctx, "health")
				return err
			},
		},
	})
}

func TestBuildRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	var health httpapi.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "up", health.Checks["local"])

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "planner_sessions_active")
}

func TestBuildRouter_SignInThenUseSession(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/anonymous", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var signIn struct {
		Auth struct {
			User identity.User `json:"user"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &signIn))
	uid := signIn.Auth.User.UID
	require.NotEmpty(t, uid)
	assert.True(t, signIn.Auth.User.IsAnonymous)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("X-User-Id", uid)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), uid)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/save", nil)
	req.Header.Set("X-User-Id", uid)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("X-User-Id", uid)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBuildRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/state", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), "PATCH"))
}
