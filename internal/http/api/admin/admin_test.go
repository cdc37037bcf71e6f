package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/config"
	"github.com/router-for-me/HireLedger/internal/db"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/router-for-me/HireLedger/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "admin-test-secret"

type adminServer struct {
	router *gin.Engine
	conn   *gorm.DB
	token  string
}

func newAdminServer(t *testing.T) *adminServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	hash, err := security.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, conn.Create(&models.Admin{Username: "root", Password: hash, Active: true}).Error)

	jwtCfg := config.JWTConfig{Secret: testSecret, Expiry: time.Hour}
	r := gin.New()
	RegisterAdminRoutes(r, conn, jwtCfg, Services{
		Engine:  billing.NewEngine(conn),
		Catalog: billing.NewCatalog(conn),
		Ledger:  billing.NewLedger(conn),
	})

	srv := &adminServer{router: r, conn: conn}
	rec := srv.do(t, http.MethodPost, "/v0/admin/login", gin.H{"username": "root", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, int64(3600), login.ExpiresIn)
	srv.token = login.Token
	return srv
}

func (s *adminServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLogin_Rejections(t *testing.T) {
	srv := newAdminServer(t)
	token := srv.token
	srv.token = ""

	rec := srv.do(t, http.MethodPost, "/v0/admin/login", gin.H{"username": "root", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/v0/admin/login", gin.H{"username": "nobody", "password": "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/v0/admin/login", gin.H{"username": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v0/admin/plans", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	companyToken, err := security.IssueCompanyToken(testSecret, 1, time.Hour)
	require.NoError(t, err)
	srv.token = companyToken
	rec = srv.do(t, http.MethodGet, "/v0/admin/plans", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "company tokens must not open the admin API")

	require.NoError(t, srv.conn.Model(&models.Admin{}).Where("username = ?", "root").Update("active", false).Error)
	srv.token = token
	rec = srv.do(t, http.MethodGet, "/v0/admin/plans", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newAdminServer(t)
	rec := srv.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type planBody struct {
	ID       uint64   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	JobLimit int64    `json:"job_limit"`
	Features []string `json:"features"`
	IsHidden bool     `json:"is_hidden"`
}

func TestPlanCRUD(t *testing.T) {
	srv := newAdminServer(t)

	rec := srv.do(t, http.MethodPost, "/v0/admin/plans", gin.H{
		"name":          " Pro ",
		"price":         250000,
		"duration_days": 30,
		"job_limit":     10,
		"credit_amount": 100,
		"features":      []string{"Priority listing", "  "},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[planBody](t, rec)
	assert.Equal(t, "Pro", created.Name)
	assert.Equal(t, []string{"Priority listing"}, created.Features)

	rec = srv.do(t, http.MethodPost, "/v0/admin/plans", gin.H{"name": "Bad", "price": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := "/v0/admin/plans/" + strconv.FormatUint(created.ID, 10)
	rec = srv.do(t, http.MethodPut, path, gin.H{"price": 300000, "job_limit": 12})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[planBody](t, rec)
	assert.Equal(t, int64(300000), updated.Price)
	assert.Equal(t, int64(12), updated.JobLimit)

	rec = srv.do(t, http.MethodPost, path+"/hide", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodGet, "/v0/admin/plans?is_hidden=true", nil)
	listed := decode[struct {
		Plans []planBody `json:"plans"`
	}](t, rec)
	require.Len(t, listed.Plans, 1)
	assert.True(t, listed.Plans[0].IsHidden)

	rec = srv.do(t, http.MethodPost, path+"/unhide", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodGet, "/v0/admin/plans?is_hidden=true", nil)
	listed = decode[struct {
		Plans []planBody `json:"plans"`
	}](t, rec)
	assert.Empty(t, listed.Plans)

	rec = srv.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodPost, path+"/hide", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanDelete_ReferencedPlanConflicts(t *testing.T) {
	srv := newAdminServer(t)

	company := models.Company{Name: "Acme", IsActive: true}
	require.NoError(t, srv.conn.Create(&company).Error)
	plan := models.Plan{Name: "Basic", Price: 100000, DurationDays: 30, JobLimit: 5}
	require.NoError(t, srv.conn.Create(&plan).Error)
	_, err := billing.NewEngine(srv.conn).Activate(t.Context(), company.ID, plan.ID, nil)
	require.NoError(t, err)

	rec := srv.do(t, http.MethodDelete, "/v0/admin/plans/"+strconv.FormatUint(plan.ID, 10), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPlanUpdate_ReferencedPlanFreezesTerms(t *testing.T) {
	srv := newAdminServer(t)

	company := models.Company{Name: "Acme", IsActive: true}
	require.NoError(t, srv.conn.Create(&company).Error)
	plan := models.Plan{Name: "Pro", Price: 250000, DurationDays: 30, JobLimit: 10, CreditAmount: 100}
	require.NoError(t, srv.conn.Create(&plan).Error)
	order := models.PaymentOrder{
		CompanyID: company.ID,
		PlanID:    plan.ID,
		Amount:    plan.Price,
		Status:    models.PaymentOrderStatusPending,
		ExpiredAt: time.Now().UTC().Add(15 * time.Minute),
	}
	require.NoError(t, srv.conn.Create(&order).Error)
	path := "/v0/admin/plans/" + strconv.FormatUint(plan.ID, 10)

	for _, body := range []gin.H{
		{"price": 100},
		{"job_limit": 500},
		{"credit_amount": 9999},
		{"duration_days": 365},
	} {
		rec := srv.do(t, http.MethodPut, path, body)
		assert.Equal(t, http.StatusConflict, rec.Code, "%v", body)
	}

	rec := srv.do(t, http.MethodPut, path, gin.H{"name": "Pro 2026", "price": 250000, "is_hidden": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored models.Plan
	require.NoError(t, srv.conn.First(&stored, plan.ID).Error)
	assert.Equal(t, "Pro 2026", stored.Name)
	assert.True(t, stored.IsHidden)
	assert.Equal(t, int64(250000), stored.Price)
	assert.Equal(t, int64(10), stored.JobLimit)
	assert.Equal(t, int64(100), stored.CreditAmount)
	assert.Equal(t, 30, stored.DurationDays)

	fresh := models.Plan{Name: "Draft", Price: 50000, DurationDays: 30}
	require.NoError(t, srv.conn.Create(&fresh).Error)
	rec = srv.do(t, http.MethodPut, "/v0/admin/plans/"+strconv.FormatUint(fresh.ID, 10), gin.H{"price": 75000, "job_limit": 3})
	assert.Equal(t, http.StatusOK, rec.Code)
}

type companyBody struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

func TestCompanies(t *testing.T) {
	srv := newAdminServer(t)

	for _, name := range []string{"Acme Recruiting", "Globex", "acme labs"} {
		rec := srv.do(t, http.MethodPost, "/v0/admin/companies", gin.H{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := srv.do(t, http.MethodPost, "/v0/admin/companies", gin.H{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v0/admin/companies?search=ACME", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[struct {
		Companies []companyBody `json:"companies"`
		Total     int64         `json:"total"`
	}](t, rec)
	assert.Equal(t, int64(2), listed.Total)
	assert.Len(t, listed.Companies, 2)

	rec = srv.do(t, http.MethodGet, "/v0/admin/companies?limit=1", nil)
	listed = decode[struct {
		Companies []companyBody `json:"companies"`
		Total     int64         `json:"total"`
	}](t, rec)
	assert.Equal(t, int64(3), listed.Total)
	assert.Len(t, listed.Companies, 1)

	var globex models.Company
	require.NoError(t, srv.conn.Where("name = ?", "Globex").Take(&globex).Error)
	path := "/v0/admin/companies/" + strconv.FormatUint(globex.ID, 10)

	rec = srv.do(t, http.MethodPost, path+"/token", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	issued := decode[struct {
		Token string `json:"token"`
	}](t, rec)
	claims, err := security.ParseCompanyToken(testSecret, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, globex.ID, claims.CompanyID)

	rec = srv.do(t, http.MethodPost, path+"/disable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodGet, path, nil)
	assert.False(t, decode[companyBody](t, rec).IsActive)
	rec = srv.do(t, http.MethodPost, path+"/token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPost, path+"/enable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodGet, path, nil)
	assert.True(t, decode[companyBody](t, rec).IsActive)

	rec = srv.do(t, http.MethodGet, "/v0/admin/companies/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodGet, "/v0/admin/companies/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantAndLedgerViews(t *testing.T) {
	srv := newAdminServer(t)

	company := models.Company{Name: "Acme", IsActive: true}
	require.NoError(t, srv.conn.Create(&company).Error)
	basic := models.Plan{Name: "Basic", Price: 100000, DurationDays: 30, JobLimit: 5, CreditAmount: 50}
	require.NoError(t, srv.conn.Create(&basic).Error)
	pro := models.Plan{Name: "Pro", Price: 250000, DurationDays: 30, JobLimit: 10, CreditAmount: 100}
	require.NoError(t, srv.conn.Create(&pro).Error)

	base := "/v0/admin/companies/" + strconv.FormatUint(company.ID, 10)

	rec := srv.do(t, http.MethodGet, base+"/subscription", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscription":null,"ledger_balance":0}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, base+"/grant", gin.H{"plan_id": pro.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	granted := decode[struct {
		Subscription struct {
			PlanID      uint64  `json:"plan_id"`
			JobsLeft    int64   `json:"jobs_left"`
			CreditsLeft int64   `json:"credits_left"`
			OrderID     *uint64 `json:"order_id"`
		} `json:"subscription"`
	}](t, rec)
	assert.Equal(t, pro.ID, granted.Subscription.PlanID)
	assert.Equal(t, int64(10), granted.Subscription.JobsLeft)
	assert.Equal(t, int64(100), granted.Subscription.CreditsLeft)
	assert.Nil(t, granted.Subscription.OrderID)

	rec = srv.do(t, http.MethodPost, base+"/grant", gin.H{"plan_id": basic.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code, "downgrade must be rejected")

	rec = srv.do(t, http.MethodPost, base+"/grant", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/v0/admin/companies/999/grant", gin.H{"plan_id": pro.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, base+"/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decode[struct {
		Transactions []struct {
			Amount int64  `json:"amount"`
			Type   string `json:"type"`
		} `json:"transactions"`
		Total int64 `json:"total"`
	}](t, rec)
	require.Equal(t, int64(1), txs.Total)
	assert.Equal(t, int64(100), txs.Transactions[0].Amount)
	assert.Equal(t, "grant", txs.Transactions[0].Type)

	rec = srv.do(t, http.MethodGet, base+"/subscription", nil)
	view := decode[struct {
		Subscription  map[string]any `json:"subscription"`
		LedgerBalance int64          `json:"ledger_balance"`
	}](t, rec)
	assert.NotNil(t, view.Subscription)
	assert.Equal(t, int64(100), view.LedgerBalance)

	rec = srv.do(t, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())
}

func TestOrdersList(t *testing.T) {
	srv := newAdminServer(t)

	expires := time.Now().UTC().Add(15 * time.Minute)
	for i, status := range []models.PaymentOrderStatus{
		models.PaymentOrderStatusPending,
		models.PaymentOrderStatusPaid,
		models.PaymentOrderStatusPaid,
		models.PaymentOrderStatusFailed,
	} {
		ref := "ref-" + strconv.Itoa(i)
		order := models.PaymentOrder{
			CompanyID:     uint64(i%2 + 1),
			PlanID:        1,
			Amount:        100000,
			Status:        status,
			GatewayTxnRef: &ref,
			ExpiredAt:     expires,
		}
		require.NoError(t, srv.conn.Create(&order).Error)
	}

	type orderList struct {
		Orders []struct {
			ID        uint64 `json:"id"`
			CompanyID uint64 `json:"company_id"`
			Status    string `json:"status"`
		} `json:"orders"`
		Total int64 `json:"total"`
	}

	rec := srv.do(t, http.MethodGet, "/v0/admin/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), decode[orderList](t, rec).Total)

	rec = srv.do(t, http.MethodGet, "/v0/admin/orders?status=paid", nil)
	paid := decode[orderList](t, rec)
	assert.Equal(t, int64(2), paid.Total)
	for _, o := range paid.Orders {
		assert.Equal(t, "paid", o.Status)
	}

	rec = srv.do(t, http.MethodGet, "/v0/admin/orders?status=paid&company_id=2", nil)
	filtered := decode[orderList](t, rec)
	require.Equal(t, int64(1), filtered.Total)
	assert.Equal(t, uint64(2), filtered.Orders[0].CompanyID)

	rec = srv.do(t, http.MethodGet, "/v0/admin/orders?status=refunded", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v0/admin/orders/"+strconv.FormatUint(filtered.Orders[0].ID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, "ref-1", detail["gateway_txn_ref"])
}
