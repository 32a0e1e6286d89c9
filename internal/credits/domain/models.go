package domain

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	FeatureAICredits          = "ai_credits"
	FeatureAICreditsPurchased = "ai_credits_purchased"
)

// UsageCounter is a credit pool row. Monthly rows carry period bounds;
// purchased rows have none and survive across months. The composite
// unique index holds the one-monthly-row-per-user-per-period invariant
// under concurrent lazy provisioning; purchased rows pass through it
// because their period_start is NULL.
type UsageCounter struct {
	ID          int64      `json:"id,string" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"type:uuid;index;uniqueIndex:idx_user_usage_user_feature_period"`
	Feature     string     `json:"feature" gorm:"uniqueIndex:idx_user_usage_user_feature_period"`
	Balance     int        `json:"balance"`
	PeriodStart *time.Time `json:"period_start,omitempty" gorm:"uniqueIndex:idx_user_usage_user_feature_period"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (UsageCounter) TableName() string {
	return "user_usage"
}

// SiteSetting is a keyed JSON configuration row. The "credits" key
// overrides the file-based pricing defaults.
type SiteSetting struct {
	ID        int64             `json:"id,string" gorm:"primaryKey"`
	Key       string            `json:"key" gorm:"uniqueIndex"`
	Value     datatypes.JSONMap `json:"value" gorm:"type:jsonb"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (SiteSetting) TableName() string {
	return "site_settings"
}

// SettingsKeyCredits is the site_settings key holding pricing overrides.
const SettingsKeyCredits = "credits"

// CreditTransaction is an append-only ledger entry written alongside
// every balance mutation.
type CreditTransaction struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:uuid;index"`
	CounterID int64     `json:"counter_id"`
	Feature   string    `json:"feature"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// InsufficientCreditsError is returned when the combined pools cannot
// cover the requested cost.
type InsufficientCreditsError struct {
	Balance  int
	Required int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance %d, required %d", e.Balance, e.Required)
}

type BalanceResponse struct {
	Monthly   int `json:"monthly"`
	Purchased int `json:"purchased"`
	Total     int `json:"total"`
}

// DeductionResult reports how a charge was split across pools.
type DeductionResult struct {
	FromMonthly   int
	FromPurchased int
}

type Service interface {
	Balance(ctx context.Context, userID string) (BalanceResponse, error)

	// RoteiroCost resolves the configured cost of one script
	// generation, site_settings overrides winning over file defaults.
	RoteiroCost(ctx context.Context) int

	// Deduct atomically verifies and charges cost credits, draining
	// the monthly pool before purchased rows in ascending id order.
	// Fails with *InsufficientCreditsError without mutating anything
	// when the combined balance cannot cover the cost.
	Deduct(ctx context.Context, userID string, cost int, reason string) (*DeductionResult, error)

	// Refund returns credits to the current monthly pool after a run
	// failed post-charge.
	Refund(ctx context.Context, userID string, amount int, reason string) error
}
