package source

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/model"
)

// Record is one line of a subscription export file.
type Record struct {
	ID              string      `json:"id,omitempty" validate:"omitempty,max=64"`
	Name            string      `json:"name" validate:"required,max=200"`
	Price           json.Number `json:"price" validate:"required,money"`
	Currency        string      `json:"currency,omitempty" validate:"omitempty,currency"`
	BillingCycle    string      `json:"billing_cycle,omitempty"`
	NextBillingDate string      `json:"next_billing_date" validate:"required"`
	Status          string      `json:"status,omitempty" validate:"omitempty,oneof=active trial expired cancelled"`
	Category        string      `json:"category,omitempty" validate:"omitempty,max=100"`
}

// DiscoveredFile is an export file found by ScanDir.
type DiscoveredFile struct {
	Path string
	Name string // file name without extension
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the money and currency rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
			return err == nil && !d.IsNegative()
		})
		_ = validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return validCurrency(fl.Field().String())
		})
	})
	return validate
}

// validCurrency accepts a three-letter code like EUR or a short symbol
// label like €, $ or US$.
func validCurrency(s string) bool {
	n, letters := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
		n++
	}
	if n == 0 {
		return false
	}
	if letters == n {
		return n == 3
	}
	return n <= 4
}

// Validate checks a record's fields.
func (r Record) Validate() error {
	return Validator().Struct(r)
}

// Subscription validates r and converts it to a subscription owned by
// userID. Records without an ID get one derived from the user, name and
// cycle so that importing the same file twice updates rather than duplicates.
func (r Record) Subscription(userID string, now time.Time) (model.Subscription, error) {
	if err := r.Validate(); err != nil {
		return model.Subscription{}, err
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.Price.String()))
	if err != nil {
		return model.Subscription{}, fmt.Errorf("price %q: %w", r.Price, err)
	}
	next, err := billing.ParseDate(r.NextBillingDate)
	if err != nil {
		return model.Subscription{}, err
	}

	cycle := model.BillingCycle(strings.ToLower(strings.TrimSpace(r.BillingCycle))).Normalize()
	status := model.Status(r.Status)
	if status == "" {
		status = model.StatusActive
	}
	id := r.ID
	if id == "" {
		id = DeriveID(userID, r.Name, cycle)
	}

	return model.Subscription{
		ID:              id,
		UserID:          userID,
		Name:            strings.TrimSpace(r.Name),
		Price:           price,
		Currency:        strings.ToUpper(r.Currency),
		BillingCycle:    cycle,
		NextBillingDate: next,
		Status:          status,
		Category:        strings.TrimSpace(r.Category),
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}, nil
}

// DeriveID returns a stable subscription ID for a user, name and cycle.
func DeriveID(userID, name string, cycle model.BillingCycle) string {
	key := userID + "\x00" + strings.ToLower(strings.TrimSpace(name)) + "\x00" + string(cycle)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
