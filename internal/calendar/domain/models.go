package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

var (
	ErrItemNotFound      = errors.New("calendar_item_not_found")
	ErrRegenerationLimit = errors.New("regeneration_limit_reached")
	ErrInvalidItem       = errors.New("invalid_calendar_item")
)

// MaxRegenerations caps how many times a single item may be regenerated.
const MaxRegenerations = 2

type ItemStatus string

const (
	StatusScheduled ItemStatus = "scheduled"
	StatusGenerated ItemStatus = "generated"
)

// CalendarItem is one scheduled content slot. Generation fills the
// content columns and merges extra fields into Meta.
type CalendarItem struct {
	ID              int64             `json:"id,string" gorm:"primaryKey"`
	UserID          string            `json:"user_id" gorm:"type:uuid;index"`
	Topic           string            `json:"topic"`
	Platform        string            `json:"platform"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	Status          ItemStatus        `json:"status"`
	Script          string            `json:"script"`
	Caption         string            `json:"caption"`
	Hashtags        string            `json:"hashtags"`
	CoverPrompt     *string           `json:"cover_prompt,omitempty"`
	Slug            string            `json:"slug"`
	RegenerateCount int               `json:"regenerate_count"`
	Meta            datatypes.JSONMap `json:"meta" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (CalendarItem) TableName() string {
	return "content_calendar_items"
}

type CreateItemRequest struct {
	Topic    string         `json:"topic"`
	Platform string         `json:"platform"`
	Date     string         `json:"date"`
	Time     string         `json:"time,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// ApplyGenerationRequest carries everything persisted after a
// successful generation run.
type ApplyGenerationRequest struct {
	ItemID      int64
	UserID      string
	Topic       string
	Script      string
	Caption     string
	Hashtags    string
	CoverPrompt *string
	// RecommendedTime is written into the time column when it matches
	// the H(H):MM shape.
	RecommendedTime string
	// MetaPatch is merged over the item's existing meta keys.
	MetaPatch map[string]any
}

type Service interface {
	GetForUser(ctx context.Context, itemID int64, userID string) (*CalendarItem, error)
	ListForUser(ctx context.Context, userID string) ([]CalendarItem, error)
	Create(ctx context.Context, userID string, req CreateItemRequest) (*CalendarItem, error)

	// ClaimRegeneration atomically consumes one regeneration slot,
	// failing with ErrRegenerationLimit once the cap is reached.
	ClaimRegeneration(ctx context.Context, itemID int64, userID string) error
	// ReleaseRegeneration gives a claimed slot back after a failed run.
	ReleaseRegeneration(ctx context.Context, itemID int64, userID string) error

	ApplyGeneration(ctx context.Context, req ApplyGenerationRequest) (*CalendarItem, error)
}
