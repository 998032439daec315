package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"game-economy-ledger/config"
	"game-economy-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "memory"},
		JWT:      config.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "economy-ledger"},
		Economy: config.EconomyConfig{
			InitialBalance:            decimal.NewFromInt(100),
			MaxTransactionAmount:      decimal.NewFromInt(10000),
			MinTransactionAmount:      decimal.RequireFromString("0.01"),
			MinPrice:                  decimal.RequireFromString("0.01"),
			MarketTaxRate:             decimal.RequireFromString("0.05"),
			SuspiciousAmountThreshold: decimal.NewFromInt(5000),
			MaxDailyTransactions:      100,
			AutoCreateAccounts:        true,
			DailyResetCron:            "0 0 * * *",
			Timezone:                  "UTC",
			IdempotencyTTL:            time.Hour,
			DiscountTiers:             map[string]decimal.Decimal{"vip": decimal.RequireFromString("0.25")},
		},
	}
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func data(resp map[string]interface{}) map[string]interface{} {
	d, _ := resp["data"].(map[string]interface{})
	return d
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, *client) {
	t.Helper()
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	token, _, err := a.Tokens.Generate("shop-module")
	require.NoError(t, err)
	return a, &client{t: t, router: a.Router(nil), token: token}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = ""
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Database.Driver = "sqlite"
	_, err = New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown database driver")

	cfg = testConfig()
	cfg.Economy.DailyResetCron = "not a cron"
	_, err = New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestApp_HTTPFlow(t *testing.T) {
	a, c := newTestApp(t, testConfig())
	a.Memory.RegisterPlayer("Alex", "sess-1", 2)

	code, resp := c.do(http.MethodGet, "/api/v1/accounts/1/balance", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "100.00", data(resp)["balance"])

	code, resp = c.do(http.MethodPost, "/api/v1/accounts/1/debit", map[string]string{"amount": "30", "reason": "sword"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "70.00", data(resp)["new_balance"])

	code, resp = c.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
		"from_account_id": 1, "to_account_id": 2, "amount": "20", "idempotency_key": "gift-1",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "50.00", data(resp)["from_new_balance"])
	assert.Equal(t, "120.00", data(resp)["to_new_balance"])

	// Same key again is a replay, not a second transfer.
	code, resp = c.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
		"from_account_id": 1, "to_account_id": 2, "amount": "20", "idempotency_key": "gift-1",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, data(resp)["replayed"])

	code, resp = c.do(http.MethodGet, "/api/v1/players/alex/balance", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "120.00", data(resp)["balance"])

	code, resp = c.do(http.MethodPost, "/api/v1/accounts/1/debit", map[string]string{"amount": "500"})
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "LED_002", resp["error_code"])

	code, resp = c.do(http.MethodGet, "/api/v1/accounts/1/transactions?limit=10", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), data(resp)["count"])

	code, _ = c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	c.token = ""
	code, _ = c.do(http.MethodGet, "/api/v1/accounts/1/balance", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestApp_MetricsExposed(t *testing.T) {
	_, c := newTestApp(t, testConfig())

	code, _ := c.do(http.MethodPost, "/api/v1/accounts/5/credit", map[string]string{"amount": "1"})
	require.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ledger_transactions_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestApp_AsyncLedger(t *testing.T) {
	a, _ := newTestApp(t, testConfig())
	ctx := context.Background()

	res, err := a.Async.CreditAsync(ctx, 9, decimal.NewFromInt(15), "quest").Await(ctx)
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(decimal.NewFromInt(115)))

	// Now cached: resolves without a worker.
	f := a.Async.GetBalanceAsync(ctx, 9)
	bal, ok, err := f.Poll()
	require.True(t, ok)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(115)))

	stored, found := a.Memory.Balance(domain.AccountID(9))
	require.True(t, found)
	assert.True(t, stored.Equal(decimal.NewFromInt(115)))
}

func TestApp_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port}
	cfg.Economy.MaxDailyTransactions = 2

	_, c := newTestApp(t, cfg)

	for i := 0; i < 2; i++ {
		code, _ := c.do(http.MethodPost, "/api/v1/accounts/3/credit", map[string]string{"amount": "1"})
		require.Equal(t, http.StatusOK, code)
	}
	code, resp := c.do(http.MethodPost, "/api/v1/accounts/3/credit", map[string]string{"amount": "1"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "LED_003", resp["error_code"])

	code, _ = c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}
