package db

import (
	"fmt"

	"github.com/router-for-me/HireLedger/internal/models"
	"gorm.io/gorm"
)

// ledgerModels lists every table managed by the service.
func ledgerModels() []any {
	return []any{
		&models.Admin{},
		&models.Company{},
		&models.Plan{},
		&models.Subscription{},
		&models.SubscriptionHistory{},
		&models.CreditTransaction{},
		&models.PaymentOrder{},
	}
}

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and constraints.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(ledgerModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_subscriptions_balances'
			) THEN
				ALTER TABLE subscriptions
				ADD CONSTRAINT chk_subscriptions_balances
				CHECK (
					jobs_left >= 0 AND jobs_left <= job_limit_snapshot
					AND credits_left >= 0 AND credits_left <= credit_amount_snapshot
				);
			END IF;
		END $$;
	`).Error; errCheck != nil {
		return fmt.Errorf("db: add subscription balance check: %w", errCheck)
	}

	if errCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_payment_orders_status'
			) THEN
				ALTER TABLE payment_orders
				ADD CONSTRAINT chk_payment_orders_status
				CHECK (status IN ('pending', 'paid', 'failed', 'expired'));
			END IF;
		END $$;
	`).Error; errCheck != nil {
		return fmt.Errorf("db: add payment order status check: %w", errCheck)
	}

	return ensureSharedIndexes(conn)
}

// migrateSQLite applies the SQLite schema.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(ledgerModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return ensureSharedIndexes(conn)
}

// ensureSharedIndexes creates indexes both dialects support but AutoMigrate cannot express.
func ensureSharedIndexes(conn *gorm.DB) error {
	if errIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payment_orders_pending_expiry
		ON payment_orders (expired_at)
		WHERE status = 'pending'
	`).Error; errIdx != nil {
		return fmt.Errorf("db: create pending expiry index: %w", errIdx)
	}
	if errIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_subscription_histories_company_created
		ON subscription_histories (company_id, created_at)
	`).Error; errIdx != nil {
		return fmt.Errorf("db: create history index: %w", errIdx)
	}
	return nil
}
