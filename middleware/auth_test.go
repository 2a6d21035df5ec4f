package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func gatedRouter(perms ...string) *gin.Engine {
	r := gin.New()
	r.GET("/guarded", AuthRequired(perms...), func(ctx *gin.Context) {
		userID, permission, ok := CallerIdentity(ctx)
		if !ok {
			utils.Error(ctx, http.StatusInternalServerError, "identity missing")
			return
		}
		utils.Success(ctx, gin.H{"user_id": userID, "permission": permission})
	})
	return r
}

func get(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, userID uint, permission string, ttl time.Duration) string {
	t.Helper()
	token, _, err := utils.GenerateToken(userID, permission, ttl)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthRequiredHeaderChecks(t *testing.T) {
	r := gatedRouter()

	t.Run("missing header", func(t *testing.T) {
		w := get(r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
	t.Run("wrong scheme", func(t *testing.T) {
		w := get(r, "Basic abc123")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
	t.Run("empty token", func(t *testing.T) {
		w := get(r, "Bearer ")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
	t.Run("garbage token", func(t *testing.T) {
		w := get(r, "Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid token")
	})
	t.Run("expired token", func(t *testing.T) {
		w := get(r, bearer(t, 1, models.PermissionEditor, -time.Minute))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "token expired")
	})
}

func TestAuthRequiredPermissionSet(t *testing.T) {
	r := gatedRouter(models.PermissionEditor)

	t.Run("listed permission passes", func(t *testing.T) {
		w := get(r, bearer(t, 7, models.PermissionEditor, time.Minute))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":7`)
	})
	t.Run("unlisted permission is forbidden", func(t *testing.T) {
		w := get(r, bearer(t, 8, models.PermissionViewer, time.Minute))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
	t.Run("manager always passes", func(t *testing.T) {
		w := get(r, bearer(t, 9, models.PermissionManager, time.Minute))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthRequiredEmptySetMeansAnyAuthenticated(t *testing.T) {
	r := gatedRouter()
	w := get(r, bearer(t, 3, models.PermissionViewer, time.Minute))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"permission":"viewer"`)
}
