package billing

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/router-for-me/HireLedger/internal/db"
	"github.com/router-for-me/HireLedger/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "billing.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return conn
}

func seedCompany(t *testing.T, conn *gorm.DB, name string) models.Company {
	t.Helper()
	company := models.Company{Name: name, IsActive: true}
	require.NoError(t, conn.Create(&company).Error)
	return company
}

func seedPlan(t *testing.T, conn *gorm.DB, name string, price, jobs, credits int64) models.Plan {
	t.Helper()
	plan := models.Plan{
		Name:         name,
		Price:        price,
		DurationDays: 30,
		JobLimit:     jobs,
		CreditAmount: credits,
	}
	require.NoError(t, conn.Create(&plan).Error)
	return plan
}

// seedSubscription writes a subscription row directly, bypassing activation.
func seedSubscription(t *testing.T, conn *gorm.DB, sub models.Subscription) models.Subscription {
	t.Helper()
	if sub.Status == "" {
		sub.Status = models.SubscriptionStatusActive
	}
	if sub.StartDate.IsZero() {
		sub.StartDate = time.Now().UTC().Add(-24 * time.Hour)
	}
	require.NoError(t, conn.Create(&sub).Error)
	return sub
}

func reloadSubscription(t *testing.T, conn *gorm.DB, companyID uint64) models.Subscription {
	t.Helper()
	var sub models.Subscription
	require.NoError(t, conn.Where("company_id = ?", companyID).Take(&sub).Error)
	return sub
}

func countRows(t *testing.T, conn *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(model).Where(query, args...).Count(&count).Error)
	return count
}

func u64(v uint64) *uint64 { return &v }
