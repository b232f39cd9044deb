// Package store persists subscriptions, budget settings and the alert ledger
// in SQLite or Postgres.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/theirongolddev/subburn/internal/model"
)

var (
	// ErrNotFound is returned when a subscription row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrAlertExists is returned by RecordAlert when the user already has an
	// alert of that type for the same UTC day.
	ErrAlertExists = errors.New("store: alert already recorded for day")
)

// Store is the persistence contract shared by the SQLite and Postgres backends.
type Store interface {
	SaveSubscription(ctx context.Context, s model.Subscription) error
	GetSubscription(ctx context.Context, id string) (model.Subscription, error)
	ListSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error)
	CancelSubscription(ctx context.Context, id string) error
	UpdateNextBillingDate(ctx context.Context, id string, next time.Time) error

	GetBudgetSetting(ctx context.Context, userID string) (model.BudgetSetting, error)
	SaveBudgetSetting(ctx context.Context, b model.BudgetSetting) error

	HasAlert(ctx context.Context, userID, alertType string, from, to time.Time) (bool, error)
	RecordAlert(ctx context.Context, rec model.AlertRecord) error
	DeleteAlert(ctx context.Context, id string) error
	ListAlerts(ctx context.Context, userID string, limit int) ([]model.AlertRecord, error)

	ListUserIDs(ctx context.Context) ([]string, error)
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)

// Open selects a backend from the DSN: postgres:// and postgresql:// URLs use
// Postgres, anything else is treated as a SQLite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if IsPostgresDSN(dsn) {
		pg, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(dsn)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// IsPostgresDSN reports whether dsn names a Postgres server.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// defaultBudgetSetting is returned for users with no stored setting.
func defaultBudgetSetting(userID string) model.BudgetSetting {
	return model.BudgetSetting{
		UserID:        userID,
		BudgetLimit:   model.DefaultBudgetLimit,
		AlertsEnabled: true,
	}
}

// prepareAlert fills in the ID and day of a ledger record.
func prepareAlert(rec model.AlertRecord, newID func() string) model.AlertRecord {
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.Day == "" {
		rec.Day = rec.CreatedAt.Format("2006-01-02")
	}
	return rec
}
