package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/model"
)

// DateUpdater persists a rolled-forward billing date.
type DateUpdater interface {
	UpdateNextBillingDate(ctx context.Context, subscriptionID string, next time.Time) error
}

// RepairState is the result of repairing one subscription.
type RepairState string

const (
	RepairCurrent  RepairState = "current"
	RepairRepaired RepairState = "repaired"
	RepairFailed   RepairState = "failed"
)

// RepairOutcome records what happened to one subscription.
type RepairOutcome struct {
	SubscriptionID string      `json:"subscription_id"`
	State          RepairState `json:"state"`
	From           time.Time   `json:"from"`
	To             time.Time   `json:"to,omitempty"`
	Steps          int         `json:"steps"`
	Err            error       `json:"-"`
}

// RepairReport aggregates per-subscription outcomes for a batch.
type RepairReport struct {
	Outcomes []RepairOutcome
	Repaired int
	Current  int
	Failed   int
}

// RollForward advances next by whole billing periods until it is on or after
// today. It gives up after ceil(daysStale/minPeriod)+1 steps.
func RollForward(next time.Time, cycle model.BillingCycle, today time.Time) (time.Time, int, error) {
	if next.IsZero() {
		return time.Time{}, 0, &billing.InvalidDateError{}
	}
	t := billing.Today(today)
	cur := billing.Today(next)
	if !cur.Before(t) {
		return cur, 0, nil
	}

	daysStale := t.Sub(cur).Hours() / 24
	maxSteps := int(math.Ceil(daysStale/float64(billing.MinPeriodDays(cycle)))) + 1

	steps := 0
	for cur.Before(t) {
		if steps >= maxSteps {
			return time.Time{}, steps, fmt.Errorf("rolling %s forward: exceeded %d steps", billing.FormatDate(next), maxSteps)
		}
		var err error
		cur, err = billing.NextBillingDate(cur, cycle)
		if err != nil {
			return time.Time{}, steps, err
		}
		steps++
	}
	return cur, steps, nil
}

// RepairStale rolls every stale active subscription forward to today or
// later and persists the new date. Each subscription is repaired
// independently: an invalid date or a failed write is recorded on that
// subscription's outcome and the rest of the batch continues.
func RepairStale(ctx context.Context, subs []model.Subscription, today time.Time, updater DateUpdater) RepairReport {
	var candidates []model.Subscription
	for _, s := range subs {
		if s.IsActive() {
			candidates = append(candidates, s)
		}
	}

	report := RepairReport{Outcomes: make([]RepairOutcome, len(candidates))}
	if len(candidates) == 0 {
		return report
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(candidates) {
		numWorkers = len(candidates)
	}

	work := make(chan int, len(candidates))
	for i := range candidates {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				report.Outcomes[idx] = repairOne(ctx, candidates[idx], today, updater)
			}
		}()
	}
	wg.Wait()

	for _, o := range report.Outcomes {
		switch o.State {
		case RepairRepaired:
			report.Repaired++
		case RepairCurrent:
			report.Current++
		case RepairFailed:
			report.Failed++
		}
	}
	return report
}

func repairOne(ctx context.Context, s model.Subscription, today time.Time, updater DateUpdater) RepairOutcome {
	out := RepairOutcome{SubscriptionID: s.ID, From: s.NextBillingDate}

	if err := ctx.Err(); err != nil {
		out.State = RepairFailed
		out.Err = err
		return out
	}

	next, steps, err := RollForward(s.NextBillingDate, s.BillingCycle, today)
	if err != nil {
		out.State = RepairFailed
		out.Err = err
		return out
	}
	if steps == 0 {
		out.State = RepairCurrent
		out.To = next
		return out
	}

	if err := updater.UpdateNextBillingDate(ctx, s.ID, next); err != nil {
		out.State = RepairFailed
		out.Steps = steps
		out.Err = fmt.Errorf("persisting %s: %w", s.ID, err)
		return out
	}

	out.State = RepairRepaired
	out.To = next
	out.Steps = steps
	return out
}
