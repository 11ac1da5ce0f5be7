package testutil

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/api"
	"github.com/charlesng35/grantstore/internal/app"
	iauth "github.com/charlesng35/grantstore/internal/auth"
	"github.com/charlesng35/grantstore/internal/database"
	sharedtestutil "github.com/charlesng35/grantstore/internal/database/testutil"
	"github.com/charlesng35/grantstore/internal/models"
	"github.com/charlesng35/grantstore/pkg/response"
)

// Env is a fully wired router over a seeded in-memory database.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Config *app.Config
}

// EnvOption customises the configuration before the router is built.
type EnvOption func(cfg *app.Config)

// NewEnv builds an Env. The default config allows the full permission range
// and serves metrics at /metrics.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Authorization: app.AuthorizationConfig{
			PermissionMin:   models.PermissionNoneStart,
			PermissionMax:   models.PermissionMax,
			DefaultPageSize: 20,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Config: cfg,
	}
}

// CreateUser inserts an active user holding the given seeded roles.
func (e *Env) CreateUser(roleIDs ...string) *models.User {
	e.T.Helper()

	user := &models.User{
		Username: "user-" + uuid.NewString(),
		IsActive: true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)

	if len(roleIDs) == 0 {
		return user
	}

	var roles []models.Role
	require.NoError(e.T, e.DB.Where("id IN ?", roleIDs).Find(&roles).Error)
	require.Len(e.T, roles, len(roleIDs))
	require.NoError(e.T, e.DB.Model(user).Association("Roles").Append(roles))
	return user
}

// CreateAdmin inserts a user holding the seeded administrator role.
func (e *Env) CreateAdmin() *models.User {
	e.T.Helper()
	return e.CreateUser(database.RoleAdmin)
}

// Token issues an access token for the user.
func (e *Env) Token(user *models.User) string {
	e.T.Helper()
	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:   user.ID,
		Username: user.Username,
	})
	require.NoError(e.T, err)
	return token
}

// APIResponse is the JSON envelope with the payload left undecoded.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the envelope written to w.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals an envelope payload into dest.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	require.NotNil(t, dest)
	require.NoError(t, json.Unmarshal(raw, dest), string(raw))
}

// Request sends a JSON request through the router, authenticated when token is set.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.RequestWithHeaders(method, path, body, token, nil)
}

// RequestWithHeaders is Request with extra headers.
func (e *Env) RequestWithHeaders(method, path string, body any, token string, headers map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(e.T, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
