package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkpay-platform/internal/config"
	"linkpay-platform/internal/model"
	auth "linkpay-platform/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAndAdmin(t *testing.T) {
	jm := auth.NewManager("secret", "linkpay", 1)
	r := gin.New()
	api := r.Group("/api", AuthMiddleware(jm))
	api.GET("/me", func(c *gin.Context) {
		id, ok := UserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	api.GET("/admin", AdminMiddleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	userToken, err := jm.GenerateToken(7, "alice", model.RoleUser)
	require.NoError(t, err)
	adminToken, err := jm.GenerateToken(1, "root", model.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"无令牌", "/api/me", "", http.StatusUnauthorized},
		{"格式错误", "/api/me", "Token " + userToken, http.StatusUnauthorized},
		{"无效令牌", "/api/me", "Bearer garbage", http.StatusUnauthorized},
		{"普通用户", "/api/me", "Bearer " + userToken, http.StatusOK},
		{"普通用户访问管理接口", "/api/admin", "Bearer " + userToken, http.StatusForbidden},
		{"管理员", "/api/admin", "Bearer " + adminToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, serve(r, req).Code)
		})
	}
}

func TestRateLimit_Memory(t *testing.T) {
	cfg := &config.Limit{Enabled: true, Requests: 60, Burst: 2, SkipPaths: []string{"/health"}}
	r := gin.New()
	r.Use(RateLimit(nil, cfg, zap.NewNop().Sugar()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(path, ip string) int {
		rq := httptest.NewRequest(http.MethodGet, path, nil)
		rq.RemoteAddr = ip + ":1234"
		return serve(r, rq).Code
	}

	assert.Equal(t, http.StatusOK, req("/x", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, req("/x", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, req("/x", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, req("/x", "10.0.0.2"), "不同客户端互不影响")
	assert.Equal(t, http.StatusOK, req("/health", "10.0.0.1"))
}

func TestRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Limit{Enabled: true, Requests: 2, Burst: 0}
	r := gin.New()
	r.Use(RateLimit(rdb, cfg, zap.NewNop().Sugar()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, &config.Limit{}, zap.NewNop().Sugar()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}
}

func TestBotGuard(t *testing.T) {
	r := gin.New()
	r.Use(BotGuard())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tc := range []struct {
		ua   string
		want int
	}{
		{"", http.StatusForbidden},
		{"curl/8.4.0", http.StatusForbidden},
		{"Mozilla/5.0 (compatible; Googlebot/2.1)", http.StatusForbidden},
		{"python-requests/2.31", http.StatusForbidden},
		{"Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0", http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("User-Agent", tc.ua)
		assert.Equal(t, tc.want, serve(r, req).Code, tc.ua)
	}
}

func TestGinZapRecovery(t *testing.T) {
	r := gin.New()
	r.Use(GinZapLogger(zap.NewNop()), GinZapRecovery(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}
