package front

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/config"
	"github.com/router-for-me/HireLedger/internal/db"
	"github.com/router-for-me/HireLedger/internal/gateway"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/router-for-me/HireLedger/internal/payment"
	"github.com/router-for-me/HireLedger/internal/ratelimit"
	"github.com/router-for-me/HireLedger/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	jwtSecret     = "front-test-secret"
	gatewaySecret = "SECRET123"
)

type frontServer struct {
	router  *gin.Engine
	conn    *gorm.DB
	orders  *payment.Orchestrator
	company models.Company
	basic   models.Plan
	pro     models.Plan
	token   string
}

func newFrontServer(t *testing.T, limit int) *frontServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "front.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	company := models.Company{Name: "Acme", IsActive: true}
	require.NoError(t, conn.Create(&company).Error)
	basic := models.Plan{Name: "Basic", Price: 100000, DurationDays: 30, JobLimit: 2, CreditAmount: 50, SortOrder: 1}
	require.NoError(t, conn.Create(&basic).Error)
	pro := models.Plan{Name: "Pro", Price: 250000, DurationDays: 30, JobLimit: 10, CreditAmount: 100, SortOrder: 2}
	require.NoError(t, conn.Create(&pro).Error)
	hidden := models.Plan{Name: "Legacy", Price: 50000, DurationDays: 30, IsHidden: true}
	require.NoError(t, conn.Create(&hidden).Error)

	client := gateway.NewClient(gateway.Config{
		TmnCode:    "TESTTMN1",
		HashSecret: gatewaySecret,
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://ledger.example/v0/payment/vnpay/return",
	})
	engine := billing.NewEngine(conn)
	catalog := billing.NewCatalog(conn)
	orders := payment.NewOrchestrator(conn, client, engine, catalog, 0)

	fixed := time.Unix(1700000000, 0)
	limiter := ratelimit.NewManager(ratelimit.StaticSettings(ratelimit.SettingsConfig{Limit: limit}), func() time.Time { return fixed }, nil)

	r := gin.New()
	RegisterFrontRoutes(r, conn, config.JWTConfig{Secret: jwtSecret, Expiry: time.Hour}, Services{
		Catalog: catalog,
		Guard:   billing.NewGuard(conn),
		Ledger:  billing.NewLedger(conn),
		Orders:  orders,
		Limiter: limiter,
	})

	token, err := security.IssueCompanyToken(jwtSecret, company.ID, time.Hour)
	require.NoError(t, err)
	return &frontServer{router: r, conn: conn, orders: orders, company: company, basic: basic, pro: pro, token: token}
}

func (s *frontServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// pay delivers a signed successful callback for the order.
func (s *frontServer) pay(t *testing.T, orderID uint64, amount int64) {
	t.Helper()
	fields := map[string]string{
		gateway.ParamTxnRef:            strconv.FormatUint(orderID, 10),
		gateway.ParamAmount:            strconv.FormatInt(amount*100, 10),
		gateway.ParamResponseCode:      "00",
		gateway.ParamTransactionStatus: "00",
		gateway.ParamTransactionNo:     "14012345",
	}
	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set(gateway.ParamSecureHash, gateway.Sign(gatewaySecret, gateway.Canonicalize(fields)))
	res, err := s.orders.ProcessCallback(context.Background(), values)
	require.NoError(t, err)
	require.Equal(t, models.PaymentOrderStatusPaid, res.Status)
}

func TestFrontAuth(t *testing.T) {
	srv := newFrontServer(t, 0)
	token := srv.token

	srv.token = ""
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/v0/front/plans", nil).Code)

	srv.token = "not-a-jwt"
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/v0/front/plans", nil).Code)

	adminToken, err := security.IssueAdminToken(jwtSecret, 1, "root", time.Hour)
	require.NoError(t, err)
	srv.token = adminToken
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/v0/front/plans", nil).Code)

	ghost, err := security.IssueCompanyToken(jwtSecret, 999, time.Hour)
	require.NoError(t, err)
	srv.token = ghost
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/v0/front/plans", nil).Code)

	require.NoError(t, srv.conn.Model(&models.Company{}).Where("id = ?", srv.company.ID).Update("is_active", false).Error)
	srv.token = token
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/v0/front/plans", nil).Code)
}

func TestFrontCatalogBeforePurchase(t *testing.T) {
	srv := newFrontServer(t, 0)

	rec := srv.do(t, http.MethodGet, "/v0/front/plans", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plans struct {
		Plans []struct {
			Name string `json:"name"`
		} `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	require.Len(t, plans.Plans, 2)
	assert.Equal(t, "Basic", plans.Plans[0].Name)
	assert.Equal(t, "Pro", plans.Plans[1].Name)

	rec = srv.do(t, http.MethodGet, "/v0/front/subscription", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscription":null}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/v0/front/quota/jobs/consume", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "no usable plan")
}

func TestFrontOrderLifecycle(t *testing.T) {
	srv := newFrontServer(t, 0)

	rec := srv.do(t, http.MethodPost, "/v0/front/orders", gin.H{"plan_id": srv.basic.ID, "locale": "fr"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = srv.do(t, http.MethodPost, "/v0/front/orders", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = srv.do(t, http.MethodPost, "/v0/front/orders", gin.H{"plan_id": 999})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/v0/front/orders", gin.H{"plan_id": srv.basic.ID, "bank_code": "NCB", "locale": "EN"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		OrderID    uint64 `json:"order_id"`
		PaymentURL string `json:"payment_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.OrderID)
	assert.True(t, strings.HasPrefix(created.PaymentURL, "https://sandbox.vnpayment.vn/"))

	orderPath := "/v0/front/orders/" + strconv.FormatUint(created.OrderID, 10)
	rec = srv.do(t, http.MethodGet, orderPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = srv.do(t, http.MethodPost, "/v0/front/orders", gin.H{"plan_id": srv.pro.ID})
	assert.Equal(t, http.StatusConflict, rec.Code, "one pending order at a time")

	other := models.Company{Name: "Globex", IsActive: true}
	require.NoError(t, srv.conn.Create(&other).Error)
	otherToken, err := security.IssueCompanyToken(jwtSecret, other.ID, time.Hour)
	require.NoError(t, err)
	ownToken := srv.token
	srv.token = otherToken
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, orderPath, nil).Code)
	srv.token = ownToken

	srv.pay(t, created.OrderID, srv.basic.Price)

	rec = srv.do(t, http.MethodGet, orderPath, nil)
	assert.Contains(t, rec.Body.String(), `"status":"paid"`)

	rec = srv.do(t, http.MethodGet, "/v0/front/subscription", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Basic"`)

	rec = srv.do(t, http.MethodGet, "/v0/front/subscription/upgrade-options", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var options struct {
		Options []struct {
			Name   string `json:"name"`
			CanBuy bool   `json:"can_buy"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))
	require.Len(t, options.Options, 2)
	for _, opt := range options.Options {
		assert.Equal(t, opt.Name == "Pro", opt.CanBuy, opt.Name)
	}

	rec = srv.do(t, http.MethodPost, "/v0/front/orders", gin.H{"plan_id": srv.basic.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code, "same-price plan is not an upgrade")
}

func TestFrontQuotaConsumption(t *testing.T) {
	srv := newFrontServer(t, 0)
	_, err := billing.NewEngine(srv.conn).Activate(context.Background(), srv.company.ID, srv.basic.ID, nil)
	require.NoError(t, err)

	rec := srv.do(t, http.MethodPost, "/v0/front/quota/jobs/consume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"remaining":1}`, rec.Body.String())
	rec = srv.do(t, http.MethodPost, "/v0/front/quota/jobs/consume", nil)
	assert.JSONEq(t, `{"success":true,"remaining":0}`, rec.Body.String())
	rec = srv.do(t, http.MethodPost, "/v0/front/quota/jobs/consume", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPost, "/v0/front/quota/credits/consume", gin.H{"amount": 30, "job_id": 7})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	rec = srv.do(t, http.MethodPost, "/v0/front/quota/credits/consume", gin.H{"amount": 30})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = srv.do(t, http.MethodPost, "/v0/front/quota/credits/consume", gin.H{"amount": 0})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v0/front/credits/transactions?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var txs struct {
		Transactions []struct {
			Amount int64   `json:"amount"`
			JobID  *uint64 `json:"job_id"`
		} `json:"transactions"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Equal(t, int64(2), txs.Total)
	var sum int64
	for _, tx := range txs.Transactions {
		sum += tx.Amount
	}
	assert.Equal(t, int64(20), sum)

	rec = srv.do(t, http.MethodGet, "/v0/front/subscription/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())
}

func TestFrontQuotaRateLimited(t *testing.T) {
	srv := newFrontServer(t, 2)
	_, err := billing.NewEngine(srv.conn).Activate(context.Background(), srv.company.ID, srv.pro.ID, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodPost, "/v0/front/quota/jobs/consume", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get(ratelimit.HeaderLimit))
	}
	rec := srv.do(t, http.MethodPost, "/v0/front/quota/jobs/consume", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v0/front/subscription", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "read routes are not rate limited")
}
