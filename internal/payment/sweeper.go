package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/HireLedger/internal/models"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultSweepSchedule = "@every 5m"
	defaultSweepGrace    = 15 * time.Minute
)

// Sweeper expires pending orders nobody paid for.
type Sweeper struct {
	db       *gorm.DB
	schedule string
	grace    time.Duration
	now      func() time.Time
}

// NewSweeper constructs an order sweeper. A zero grace keeps the default so a
// late successful notification can still activate the order.
func NewSweeper(db *gorm.DB, schedule string, grace time.Duration) *Sweeper {
	if db == nil {
		return nil
	}
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = defaultSweepSchedule
	}
	if grace <= 0 {
		grace = defaultSweepGrace
	}
	return &Sweeper{
		db:       db,
		schedule: schedule,
		grace:    grace,
		now:      time.Now,
	}
}

// Start schedules the sweep and stops it when ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c := cron.New()
	if _, errAdd := c.AddFunc(s.schedule, func() {
		if _, errSweep := s.SweepOnce(ctx); errSweep != nil {
			log.WithError(errSweep).Warn("order sweeper: sweep failed")
		}
	}); errAdd != nil {
		return fmt.Errorf("order sweeper: schedule %q: %w", s.schedule, errAdd)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	log.Infof("order sweeper started (schedule=%s, grace=%s)", s.schedule, s.grace)
	return nil
}

// SweepOnce marks stale pending orders expired and returns how many moved.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("order sweeper: nil db")
	}
	clock := s.now
	if clock == nil {
		clock = time.Now
	}
	now := clock().UTC()
	cutoff := now.Add(-s.grace)

	res := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("status = ? AND expired_at < ?", models.PaymentOrderStatusPending, cutoff).
		Updates(map[string]any{
			"status":     models.PaymentOrderStatusExpired,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("order sweeper: expire orders: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.WithField("count", res.RowsAffected).Info("order sweeper: expired stale orders")
	}
	return res.RowsAffected, nil
}
