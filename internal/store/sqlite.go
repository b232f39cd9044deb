package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// timeLayout is fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLite is the embedded single-file backend.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at the given path.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return billing.FormatDate(t.UTC())
}

// SaveSubscription inserts or replaces a subscription. CreatedAt is kept
// from the first insert.
func (s *SQLite) SaveSubscription(ctx context.Context, sub model.Subscription) error {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO subscriptions
		(id, user_id, name, price, currency, billing_cycle, next_billing_date,
		 status, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 user_id = excluded.user_id, name = excluded.name, price = excluded.price,
		 currency = excluded.currency, billing_cycle = excluded.billing_cycle,
		 next_billing_date = excluded.next_billing_date, status = excluded.status,
		 category = excluded.category, updated_at = excluded.updated_at`,
		sub.ID, sub.UserID, sub.Name, sub.Price.String(), sub.Currency, string(sub.BillingCycle),
		formatDay(sub.NextBillingDate), string(sub.Status), sub.Category,
		formatTime(sub.CreatedAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("saving subscription %s: %w", sub.ID, err)
	}
	return nil
}

const subscriptionColumns = `id, user_id, name, price, currency, billing_cycle,
	next_billing_date, status, category, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(r rowScanner) (model.Subscription, error) {
	var sub model.Subscription
	var price, cycle, next, status, created, updated string
	if err := r.Scan(&sub.ID, &sub.UserID, &sub.Name, &price, &sub.Currency, &cycle,
		&next, &status, &sub.Category, &created, &updated); err != nil {
		return sub, err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return sub, fmt.Errorf("subscription %s: bad price %q: %w", sub.ID, price, err)
	}
	sub.Price = p
	sub.BillingCycle = model.BillingCycle(cycle)
	sub.Status = model.Status(status)
	if next != "" {
		// A malformed stored date is left zero; date arithmetic reports it.
		sub.NextBillingDate, _ = billing.ParseDate(next)
	}
	sub.CreatedAt = parseTime(created)
	sub.UpdatedAt = parseTime(updated)
	return sub, nil
}

// GetSubscription returns one subscription by ID.
func (s *SQLite) GetSubscription(ctx context.Context, id string) (model.Subscription, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, ErrNotFound
	}
	return sub, err
}

// ListSubscriptions returns all subscriptions of a user, by name.
func (s *SQLite) ListSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+subscriptionColumns+
		" FROM subscriptions WHERE user_id = ? ORDER BY name COLLATE NOCASE, id", userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// CancelSubscription marks a subscription cancelled. The row is kept.
func (s *SQLite) CancelSubscription(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?",
		string(model.StatusCancelled), formatTime(time.Now()), id)
	return requireOneRow(res, err)
}

// UpdateNextBillingDate persists a repaired billing date.
func (s *SQLite) UpdateNextBillingDate(ctx context.Context, id string, next time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE subscriptions SET next_billing_date = ?, updated_at = ? WHERE id = ?",
		formatDay(next), formatTime(time.Now()), id)
	return requireOneRow(res, err)
}

func requireOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBudgetSetting returns the user's setting, or the defaults when none is stored.
func (s *SQLite) GetBudgetSetting(ctx context.Context, userID string) (model.BudgetSetting, error) {
	var limit, updated string
	var enabled int
	err := s.db.QueryRowContext(ctx,
		"SELECT budget_limit, alerts_enabled, updated_at FROM budget_settings WHERE user_id = ?", userID,
	).Scan(&limit, &enabled, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultBudgetSetting(userID), nil
	}
	if err != nil {
		return model.BudgetSetting{}, err
	}

	l, err := decimal.NewFromString(limit)
	if err != nil {
		return model.BudgetSetting{}, fmt.Errorf("budget setting %s: bad limit %q: %w", userID, limit, err)
	}
	return model.BudgetSetting{
		UserID:        userID,
		BudgetLimit:   l,
		AlertsEnabled: enabled != 0,
		UpdatedAt:     parseTime(updated),
	}, nil
}

// SaveBudgetSetting inserts or replaces a user's budget setting.
func (s *SQLite) SaveBudgetSetting(ctx context.Context, b model.BudgetSetting) error {
	enabled := 0
	if b.AlertsEnabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO budget_settings
		(user_id, budget_limit, alerts_enabled, updated_at) VALUES (?, ?, ?, ?)`,
		b.UserID, b.BudgetLimit.String(), enabled, formatTime(time.Now()))
	return err
}

// HasAlert reports whether an alert of the given type was recorded in [from, to).
func (s *SQLite) HasAlert(ctx context.Context, userID, alertType string, from, to time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alert_log
		WHERE user_id = ? AND type = ? AND created_at >= ? AND created_at < ?`,
		userID, alertType, formatTime(from), formatTime(to)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordAlert appends to the ledger. A second alert of the same type for
// the same user and UTC day returns ErrAlertExists.
func (s *SQLite) RecordAlert(ctx context.Context, rec model.AlertRecord) error {
	rec = prepareAlert(rec, uuid.NewString)
	res, err := s.db.ExecContext(ctx, `INSERT INTO alert_log (id, user_id, type, day, created_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(user_id, type, day) DO NOTHING`,
		rec.ID, rec.UserID, rec.Type, rec.Day, formatTime(rec.CreatedAt))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlertExists
	}
	return nil
}

// DeleteAlert removes a ledger entry.
func (s *SQLite) DeleteAlert(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM alert_log WHERE id = ?", id)
	return err
}

// ListAlerts returns a user's most recent alerts, newest first.
func (s *SQLite) ListAlerts(ctx context.Context, userID string, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, type, day, created_at FROM alert_log
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.AlertRecord
	for rows.Next() {
		var rec model.AlertRecord
		var created string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Day, &created); err != nil {
			return nil, err
		}
		rec.CreatedAt = parseTime(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListUserIDs returns every user with subscriptions or a budget setting.
func (s *SQLite) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM subscriptions
		UNION SELECT user_id FROM budget_settings ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
