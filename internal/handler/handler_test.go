package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"linkpay-platform/internal/fraud"
	"linkpay-platform/internal/funnel"
	"linkpay-platform/internal/ledger"
	"linkpay-platform/internal/metrics"
	"linkpay-platform/internal/middleware"
	"linkpay-platform/internal/model"
	"linkpay-platform/internal/registry"
	"linkpay-platform/internal/shortcode"
	"linkpay-platform/internal/testutil"
	"linkpay-platform/internal/withdrawal"
	auth "linkpay-platform/pkg/jwt"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 Safari/605.1.15"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	clock  *clock
	tokens *auth.TokenManager
}

// setupTest 为集成测试初始化一个干净的环境
func setupTest(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	log := zap.NewNop().Sugar()
	m := metrics.New()
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	links := registry.New(db, nil, shortcode.NewGenerator(db, log), log)
	f := funnel.New(links, funnel.NewGormStore(db), fraud.New(links, fraud.Options{}, log),
		funnel.Policy{MinDwell: 25 * time.Second, TTL: 10 * time.Minute}, log,
		funnel.WithClock(clk.Now), funnel.WithMetrics(m))

	schedule, err := ledger.NewSchedule("2024-01", "USD", []ledger.Tier{
		{Threshold: 0, Rate: decimal.NewFromInt(10)},
		{Threshold: 5000, Rate: decimal.RequireFromString("9.8")},
	})
	require.NoError(t, err)
	store := withdrawal.NewStore(db)
	earnings := ledger.New(schedule, links, store)
	withdrawals := withdrawal.NewLedger(store, earnings, 0, m, log)

	tokens := auth.NewManager("test-secret", "linkpay", 1)
	router := gin.New()
	router.Use(middleware.GinZapRecovery(zap.NewNop()))
	RegisterRoutes(router, Handlers{
		Links:       NewShortLinkHandler(links, "https://lp.test"),
		Funnel:      NewFunnelHandler(f, "click_session", false),
		Withdrawals: NewWithdrawalHandler(withdrawals),
		Wallet:      NewWalletHandler(earnings, withdrawals, 25),
		Admin:       NewAdminHandler(db, links, earnings, withdrawals),
		Auth:        NewAuthHandler(db, tokens),
	}, middleware.AuthMiddleware(tokens), middleware.AdminMiddleware(), middleware.BotGuard())

	return &testServer{router: router, db: db, clock: clk, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func (s *testServer) register(t *testing.T, name string) string {
	t.Helper()
	var resp AuthResponse
	w := s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Username: name, Email: name + "@example.com", Password: "password123"}, &resp)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return resp.Token
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	created, err := EnsureAdmin(s.db, "admin", "admin-pass")
	require.NoError(t, err)
	require.True(t, created)

	var resp AuthResponse
	w := s.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "admin", Password: "admin-pass"}, &resp)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return resp.Token
}

func (s *testServer) click(t *testing.T, code, fingerprint string, dwell time.Duration) funnel.ClickResult {
	t.Helper()
	var begin BeginResponse
	w := s.do(t, http.MethodGet, "/funnel/begin/"+code, "", nil, &begin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.clock.Advance(dwell)

	var res funnel.ClickResult
	w = s.do(t, http.MethodPost, "/funnel/complete", "", CompleteRequest{Token: begin.Token, Fingerprint: fingerprint}, &res)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return res
}

// TestEndToEnd_ClicksEarningsWithdrawal 点击、收益、提现的完整流程
func TestEndToEnd_ClicksEarningsWithdrawal(t *testing.T) {
	s := setupTest(t)
	owner := s.register(t, "alice")
	admin := s.adminToken(t)

	var created CreateShortLinkResponse
	w := s.do(t, http.MethodPost, "/api/links", owner, CreateShortLinkRequest{DestinationURL: "https://example.com/article"}, &created)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "https://lp.test/"+created.Code, created.ShortURL)

	for _, fp := range []string{"A", "B", "C"} {
		res := s.click(t, created.Code, fp, 30*time.Second)
		assert.True(t, res.Accepted, fp)
		assert.Equal(t, "https://example.com/article", res.RedirectURL)
	}

	res := s.click(t, created.Code, "A", 30*time.Second)
	assert.False(t, res.Accepted)
	assert.Equal(t, fraud.ReasonDuplicateDevice, res.Reason)

	var links []LinkView
	s.do(t, http.MethodGet, "/api/links", owner, nil, &links)
	require.Len(t, links, 1)
	assert.Equal(t, int64(3), links[0].Clicks)

	var wallet map[string]interface{}
	s.do(t, http.MethodGet, "/api/wallet", owner, nil, &wallet)
	assert.Equal(t, "0.03", wallet["grossEarnings"])
	assert.Equal(t, "0.03", wallet["balance"])
	assert.Equal(t, "USD", wallet["currency"])

	var wd WithdrawalView
	w = s.do(t, http.MethodPost, "/api/withdrawals", owner, map[string]interface{}{"amount": 0.01, "note": "paypal"}, &wd)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, model.WithdrawalPending, wd.Status)

	// 普通用户不能审核
	w = s.do(t, http.MethodPost, "/api/withdrawals/"+wd.ID+"/approve", owner, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	for i := 0; i < 2; i++ {
		var approved WithdrawalView
		w = s.do(t, http.MethodPost, "/api/withdrawals/"+wd.ID+"/approve", admin, nil, &approved)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, model.WithdrawalPaid, approved.Status)
	}

	s.do(t, http.MethodGet, "/api/wallet", owner, nil, &wallet)
	assert.Equal(t, "0.01", wallet["paidTotal"])
	assert.Equal(t, "0.02", wallet["balance"])

	var stats StatsResponse
	s.do(t, http.MethodGet, "/api/admin/stats", admin, nil, &stats)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.TotalClicks)
	assert.Equal(t, ledger.Amount(3), stats.GrossEarnings)
	assert.Equal(t, ledger.Amount(1), stats.PaidTotal)
	assert.Zero(t, stats.PendingWithdrawals)

	var mine []WithdrawalView
	s.do(t, http.MethodGet, "/api/withdrawals/mine", owner, nil, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, ledger.Amount(1), mine[0].Amount)
}

func TestFunnel_RejectionsAreResults(t *testing.T) {
	s := setupTest(t)
	owner := s.register(t, "bob")

	var created CreateShortLinkResponse
	s.do(t, http.MethodPost, "/api/links", owner, CreateShortLinkRequest{DestinationURL: "https://example.com"}, &created)

	res := s.click(t, created.Code, "A", 5*time.Second)
	assert.False(t, res.Accepted)
	assert.Equal(t, funnel.ReasonTooFast, res.Reason)

	res = s.click(t, created.Code, "", 30*time.Second)
	assert.Equal(t, funnel.ReasonFingerprintMissing, res.Reason)

	var got funnel.ClickResult
	w := s.do(t, http.MethodPost, "/funnel/complete", "", CompleteRequest{Token: "unknown", Fingerprint: "A"}, &got)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, funnel.ReasonSessionNotFound, got.Reason)

	w = s.do(t, http.MethodGet, "/funnel/begin/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/funnel/complete", "", CompleteRequest{Fingerprint: "A"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFunnel_CookieFallback(t *testing.T) {
	s := setupTest(t)
	owner := s.register(t, "carol")

	var created CreateShortLinkResponse
	s.do(t, http.MethodPost, "/api/links", owner, CreateShortLinkRequest{DestinationURL: "https://example.com"}, &created)

	// 短链接本身就是漏斗入口
	w := s.do(t, http.MethodGet, "/"+created.Code, "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "click_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	s.clock.Advance(30 * time.Second)
	var res funnel.ClickResult
	w = s.do(t, http.MethodPost, "/funnel/complete", "", CompleteRequest{Fingerprint: "device"}, &res, cookies[0])
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, res.Accepted)
}

func TestFunnel_BotGuard(t *testing.T) {
	s := setupTest(t)
	req := httptest.NewRequest(http.MethodGet, "/funnel/begin/abc", nil)
	req.Header.Set("User-Agent", "curl/8.4.0")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "bot access blocked")
}

func TestWithdrawal_Errors(t *testing.T) {
	s := setupTest(t)
	owner := s.register(t, "dave")
	admin := s.adminToken(t)

	var e ErrorResponse
	w := s.do(t, http.MethodPost, "/api/withdrawals", owner, map[string]interface{}{"amount": "0"}, &e)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, e.Code)

	w = s.do(t, http.MethodPost, "/api/withdrawals", owner, map[string]interface{}{"amount": "1.00"}, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, CodeInsufficientBalance, e.Code)

	w = s.do(t, http.MethodPost, "/api/withdrawals/does-not-exist/approve", admin, nil, &e)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, e.Code)
}

func TestLinks_DeleteAndAdmin(t *testing.T) {
	s := setupTest(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bobby")
	admin := s.adminToken(t)

	var created CreateShortLinkResponse
	s.do(t, http.MethodPost, "/api/links", alice, CreateShortLinkRequest{DestinationURL: "https://example.com/a"}, &created)

	var e ErrorResponse
	w := s.do(t, http.MethodPost, "/api/links", alice, CreateShortLinkRequest{DestinationURL: "ftp://example.com"}, &e)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, e.Code)

	w = s.do(t, http.MethodDelete, "/api/links/"+created.Code, bob, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var all []LinkView
	s.do(t, http.MethodGet, "/api/admin/links", admin, nil, &all)
	assert.Len(t, all, 1)

	w = s.do(t, http.MethodDelete, "/api/links/"+created.Code, alice, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/funnel/begin/"+created.Code, "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsAndMe(t *testing.T) {
	s := setupTest(t)
	token := s.register(t, "erin")

	var settings SettingsResponse
	w := s.do(t, http.MethodGet, "/api/settings", token, nil, &settings)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USD", settings.Currency)
	assert.Len(t, settings.Tiers, 2)
	assert.Equal(t, 25, settings.MinDwellSeconds)

	var me model.User
	s.do(t, http.MethodGet, "/api/me", token, nil, &me)
	assert.Equal(t, "erin", me.Username)
	assert.Equal(t, model.RoleUser, me.Role)

	w = s.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Username: "erin", Email: "other@example.com", Password: "password123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "erin", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	created, err := EnsureAdmin(db, "root", "pw")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = EnsureAdmin(db, "root", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	var n int64
	require.NoError(t, db.WithContext(context.Background()).Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
