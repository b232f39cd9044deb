// Package alert decides when a user's budget alert should go out and
// records each delivery in a per-day ledger so it is sent at most once.
package alert

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/logger"
	"github.com/theirongolddev/subburn/internal/model"
	"github.com/theirongolddev/subburn/internal/pipeline"
	"github.com/theirongolddev/subburn/internal/store"
)

// ErrLedgerUnavailable wraps any failure to read or write the alert ledger.
// The gate never dispatches when it sees one.
var ErrLedgerUnavailable = errors.New("alert ledger unavailable")

// Store is the subset of store.Store the gate needs.
type Store interface {
	ListSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error)
	GetBudgetSetting(ctx context.Context, userID string) (model.BudgetSetting, error)
	HasAlert(ctx context.Context, userID, alertType string, from, to time.Time) (bool, error)
	RecordAlert(ctx context.Context, rec model.AlertRecord) error
	DeleteAlert(ctx context.Context, id string) error
}

// Reason explains a Decision.
type Reason string

const (
	ReasonDisabled     Reason = "alerts_disabled"
	ReasonWithinBudget Reason = "within_budget"
	ReasonAlreadySent  Reason = "already_sent"
	ReasonOverBudget   Reason = "over_budget"
	ReasonSent         Reason = "sent"
)

// Payload is handed to a Dispatcher.
type Payload struct {
	UserID         string          `json:"user_id"`
	Day            string          `json:"day"`
	MonthlyTotal   decimal.Decimal `json:"monthly_total"`
	BudgetLimit    decimal.Decimal `json:"budget_limit"`
	Excess         decimal.Decimal `json:"excess"`
	PercentageOver decimal.Decimal `json:"percentage_over"` // uncapped share of the limit used
}

// Decision is the outcome of a gate check. After Dispatch, Dispatch is true
// only when the alert was actually delivered.
type Decision struct {
	Dispatch bool    `json:"dispatch"`
	Reason   Reason  `json:"reason"`
	Payload  Payload `json:"payload"`
}

// Gate implements the per-user, per-day alert state machine.
type Gate struct {
	store Store
	log   zerolog.Logger
}

// NewGate returns a gate backed by st.
func NewGate(st Store, log zerolog.Logger) *Gate {
	return &Gate{store: st, log: logger.Component(log, "alert")}
}

func dayBounds(today time.Time) (time.Time, time.Time) {
	start := billing.Today(today)
	return start, start.Add(24 * time.Hour)
}

// ShouldDispatch reports whether userID should receive a budget alert today.
// It performs no writes.
func (g *Gate) ShouldDispatch(ctx context.Context, userID string, today time.Time) (Decision, error) {
	setting, err := g.store.GetBudgetSetting(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("loading budget setting for %s: %w", userID, err)
	}
	if !setting.AlertsEnabled {
		return Decision{Reason: ReasonDisabled}, nil
	}

	subs, err := g.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("loading subscriptions for %s: %w", userID, err)
	}

	ev := pipeline.EvaluateBudget(subs, setting.EffectiveLimit())
	from, to := dayBounds(today)
	payload := Payload{
		UserID:         userID,
		Day:            billing.FormatDate(from),
		MonthlyTotal:   ev.MonthlyTotal.Round(2),
		BudgetLimit:    ev.BudgetLimit,
		Excess:         ev.Excess.Round(2),
		PercentageOver: ev.RawPercentage.Round(2),
	}
	if !ev.IsOverBudget {
		return Decision{Reason: ReasonWithinBudget, Payload: payload}, nil
	}

	sent, err := g.store.HasAlert(ctx, userID, model.AlertTypeBudget, from, to)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	if sent {
		return Decision{Reason: ReasonAlreadySent, Payload: payload}, nil
	}
	return Decision{Dispatch: true, Reason: ReasonOverBudget, Payload: payload}, nil
}

// Dispatch runs ShouldDispatch and, when it says yes, claims today's ledger
// slot before calling d. A lost claim race reports ReasonAlreadySent. A failed
// send releases the claim so a later run can retry.
func (g *Gate) Dispatch(ctx context.Context, userID string, today time.Time, d Dispatcher) (Decision, error) {
	dec, err := g.ShouldDispatch(ctx, userID, today)
	if err != nil || !dec.Dispatch {
		return dec, err
	}

	rec := model.AlertRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      model.AlertTypeBudget,
		Day:       dec.Payload.Day,
		CreatedAt: today.UTC(),
	}
	if err := g.store.RecordAlert(ctx, rec); err != nil {
		dec.Dispatch = false
		if errors.Is(err, store.ErrAlertExists) {
			dec.Reason = ReasonAlreadySent
			return dec, nil
		}
		return dec, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}

	if err := d.Send(ctx, dec.Payload); err != nil {
		dec.Dispatch = false
		if relErr := g.store.DeleteAlert(ctx, rec.ID); relErr != nil {
			g.log.Error().Err(relErr).Str("user_id", userID).Str("alert_id", rec.ID).
				Msg("releasing alert claim failed; alert suppressed for today")
		}
		return dec, fmt.Errorf("sending alert to %s: %w", userID, err)
	}

	dec.Reason = ReasonSent
	g.log.Info().
		Str("user_id", userID).
		Str("day", dec.Payload.Day).
		Str("monthly_total", dec.Payload.MonthlyTotal.String()).
		Str("budget_limit", dec.Payload.BudgetLimit.String()).
		Msg("budget alert sent")
	return dec, nil
}

// Outcome is one user's result from CheckAll.
type Outcome struct {
	UserID   string
	Decision Decision
	Err      error
}

// CheckAll runs Dispatch for every user in parallel. Users are independent:
// one failure does not affect the others.
func (g *Gate) CheckAll(ctx context.Context, userIDs []string, today time.Time, d Dispatcher) []Outcome {
	out := make([]Outcome, len(userIDs))
	if len(userIDs) == 0 {
		return out
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(userIDs) {
		numWorkers = len(userIDs)
	}

	work := make(chan int, len(userIDs))
	for i := range userIDs {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				id := userIDs[idx]
				dec, err := g.Dispatch(ctx, id, today, d)
				if err != nil {
					g.log.Warn().Err(err).Str("user_id", id).Msg("alert check failed")
				}
				out[idx] = Outcome{UserID: id, Decision: dec, Err: err}
			}
		}()
	}
	wg.Wait()
	return out
}
