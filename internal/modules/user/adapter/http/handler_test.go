package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	userhttp "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/user/adapter/http"
	userdb "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/user/repository/db"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/user/usecase"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

func init() {
	logger.Init(logger.Config{Level: "error", Format: "console"})
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLogger().LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, userdb.Migrate(db))

	uc := usecase.NewUserUseCase(userdb.NewUserRepository(db), usecase.Options{
		JWTSecret:     "test-secret",
		TokenDuration: time.Hour,
		BcryptCost:    bcrypt.MinCost,
	})

	r := gin.New()
	userhttp.NewHandler(uc).RegisterRoutes(r.Group("/api/users"))

	private := r.Group("/api/me", userhttp.AuthMiddleware(uc))
	private.GET("", func(c *gin.Context) {
		id, ok := userhttp.PlayerIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"player_id": userhttp.PlayerID(c), "from_ctx": id, "ok": ok})
	})
	return r
}

func do(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginAndAuthorize(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/users/register", "", gin.H{"username": "alice", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/api/users/register", "", gin.H{"username": "alice", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/users/login", "", gin.H{"username": "alice", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/users/login", "", gin.H{"username": "alice", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		UserID int64  `json:"user_id"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = do(r, http.MethodGet, "/api/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		PlayerID int64 `json:"player_id"`
		FromCtx  int64 `json:"from_ctx"`
		OK       bool  `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, login.UserID, me.PlayerID)
	assert.Equal(t, login.UserID, me.FromCtx)
	assert.True(t, me.OK)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := newRouter(t)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/me", "garbage", nil).Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", userhttp.BearerToken(req))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", userhttp.BearerToken(req))
}
