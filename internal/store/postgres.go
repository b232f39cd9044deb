package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/model"
)

// Postgres is the multi-user server backend.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the schema if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// serializable runs fn in a SERIALIZABLE transaction.
func (p *Postgres) serializable(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveSubscription inserts or updates a subscription.
func (p *Postgres) SaveSubscription(ctx context.Context, sub model.Subscription) error {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	const q = `
        INSERT INTO subscriptions
            (id, user_id, name, price, currency, billing_cycle, next_billing_date,
             status, category, created_at, updated_at)
        VALUES ($1, $2, $3, $4::text::numeric, $5, $6, NULLIF($7, '')::date, $8, $9, $10, $11)
        ON CONFLICT (id) DO UPDATE SET
            user_id = EXCLUDED.user_id, name = EXCLUDED.name, price = EXCLUDED.price,
            currency = EXCLUDED.currency, billing_cycle = EXCLUDED.billing_cycle,
            next_billing_date = EXCLUDED.next_billing_date, status = EXCLUDED.status,
            category = EXCLUDED.category, updated_at = EXCLUDED.updated_at
    `
	_, err := p.pool.Exec(ctx, q,
		sub.ID, sub.UserID, sub.Name, sub.Price.String(), sub.Currency, string(sub.BillingCycle),
		formatDay(sub.NextBillingDate), string(sub.Status), sub.Category, sub.CreatedAt.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("saving subscription %s: %w", sub.ID, err)
	}
	return nil
}

const pgSubscriptionColumns = `id, user_id, name, price::text, currency, billing_cycle,
    COALESCE(to_char(next_billing_date, 'YYYY-MM-DD'), ''), status, category, created_at, updated_at`

func scanPgSubscription(r pgx.Row) (model.Subscription, error) {
	var sub model.Subscription
	var price, cycle, next, status string
	if err := r.Scan(&sub.ID, &sub.UserID, &sub.Name, &price, &sub.Currency, &cycle,
		&next, &status, &sub.Category, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return sub, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return sub, fmt.Errorf("subscription %s: bad price %q: %w", sub.ID, price, err)
	}
	sub.Price = d
	sub.BillingCycle = model.BillingCycle(cycle)
	sub.Status = model.Status(status)
	if next != "" {
		sub.NextBillingDate, _ = billing.ParseDate(next)
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	return sub, nil
}

// GetSubscription returns one subscription by ID.
func (p *Postgres) GetSubscription(ctx context.Context, id string) (model.Subscription, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+pgSubscriptionColumns+" FROM subscriptions WHERE id = $1", id)
	sub, err := scanPgSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return sub, ErrNotFound
	}
	return sub, err
}

// ListSubscriptions returns all subscriptions of a user, by name.
func (p *Postgres) ListSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error) {
	rows, err := p.pool.Query(ctx, "SELECT "+pgSubscriptionColumns+
		" FROM subscriptions WHERE user_id = $1 ORDER BY lower(name), id", userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanPgSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// CancelSubscription marks a subscription cancelled.
func (p *Postgres) CancelSubscription(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE id = $2",
		string(model.StatusCancelled), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNextBillingDate persists a repaired billing date.
func (p *Postgres) UpdateNextBillingDate(ctx context.Context, id string, next time.Time) error {
	tag, err := p.pool.Exec(ctx,
		"UPDATE subscriptions SET next_billing_date = NULLIF($1, '')::date, updated_at = NOW() WHERE id = $2",
		formatDay(next), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBudgetSetting returns the user's setting, or the defaults when none is stored.
func (p *Postgres) GetBudgetSetting(ctx context.Context, userID string) (model.BudgetSetting, error) {
	var limit string
	b := model.BudgetSetting{UserID: userID}
	err := p.pool.QueryRow(ctx,
		"SELECT budget_limit::text, alerts_enabled, updated_at FROM budget_settings WHERE user_id = $1", userID,
	).Scan(&limit, &b.AlertsEnabled, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultBudgetSetting(userID), nil
	}
	if err != nil {
		return model.BudgetSetting{}, fmt.Errorf("fetch budget setting for user %s: %w", userID, err)
	}
	if b.BudgetLimit, err = decimal.NewFromString(limit); err != nil {
		return model.BudgetSetting{}, fmt.Errorf("budget setting %s: bad limit %q: %w", userID, limit, err)
	}
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

// SaveBudgetSetting inserts or replaces a user's budget setting.
func (p *Postgres) SaveBudgetSetting(ctx context.Context, b model.BudgetSetting) error {
	const q = `
        INSERT INTO budget_settings (user_id, budget_limit, alerts_enabled, updated_at)
        VALUES ($1, $2::text::numeric, $3, NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            budget_limit = EXCLUDED.budget_limit,
            alerts_enabled = EXCLUDED.alerts_enabled,
            updated_at = EXCLUDED.updated_at
    `
	_, err := p.pool.Exec(ctx, q, b.UserID, b.BudgetLimit.String(), b.AlertsEnabled)
	return err
}

// HasAlert reports whether an alert of the given type was recorded in [from, to).
func (p *Postgres) HasAlert(ctx context.Context, userID, alertType string, from, to time.Time) (bool, error) {
	var found bool
	err := p.serializable(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT 1 FROM alert_log
                WHERE user_id = $1 AND type = $2 AND created_at >= $3 AND created_at < $4
            )`, userID, alertType, from.UTC(), to.UTC()).Scan(&found)
	})
	return found, err
}

// RecordAlert appends to the ledger. A second alert of the same type for
// the same user and UTC day returns ErrAlertExists.
func (p *Postgres) RecordAlert(ctx context.Context, rec model.AlertRecord) error {
	rec = prepareAlert(rec, uuid.NewString)
	return p.serializable(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            INSERT INTO alert_log (id, user_id, type, day, created_at)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (user_id, type, day) DO NOTHING`,
			rec.ID, rec.UserID, rec.Type, rec.Day, rec.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAlertExists
		}
		return nil
	})
}

// DeleteAlert removes a ledger entry.
func (p *Postgres) DeleteAlert(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM alert_log WHERE id = $1", id)
	return err
}

// ListAlerts returns a user's most recent alerts, newest first.
func (p *Postgres) ListAlerts(ctx context.Context, userID string, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
        SELECT id, user_id, type, day, created_at FROM alert_log
        WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AlertRecord
	for rows.Next() {
		var rec model.AlertRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Day, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListUserIDs returns every user with subscriptions or a budget setting.
func (p *Postgres) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
        SELECT user_id FROM subscriptions
        UNION SELECT user_id FROM budget_settings
        ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
