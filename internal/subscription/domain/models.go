package domain

import "time"

type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is the primary billing record for a user. PlanID is the
// current plan identifier; PlanType carries the legacy tier naming kept
// for rows created before plan ids existed.
type Subscription struct {
	ID        int64              `json:"id,string" gorm:"primaryKey"`
	UserID    string             `json:"user_id" gorm:"type:uuid;index"`
	PlanID    *string            `json:"plan_id,omitempty"`
	PlanType  *string            `json:"plan_type,omitempty"`
	Status    SubscriptionStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ServiceSubscription is a plan sold through the managed-services
// checkout. Recognized tiers grant the same monthly credits as the
// equivalent direct subscription.
type ServiceSubscription struct {
	ID        int64              `json:"id,string" gorm:"primaryKey"`
	UserID    string             `json:"user_id" gorm:"type:uuid;index"`
	PlanID    string             `json:"plan_id"`
	Status    SubscriptionStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (ServiceSubscription) TableName() string {
	return "service_subscriptions"
}

// Legacy plan_type values mapped to current plan ids.
const (
	LegacyPlanPremium   = "premium"
	LegacyPlanEssential = "essential"

	PlanGoghPro       = "gogh_pro"
	PlanGoghEssencial = "gogh_essencial"
)
