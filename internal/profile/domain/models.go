package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

var ErrNoProfile = errors.New("no_profile")

// ContentProfile captures how a user wants their content produced:
// business identity, audience, tone and posting habits. One row per
// user; generation refuses to run without it.
type ContentProfile struct {
	ID             int64  `json:"id,string" gorm:"primaryKey"`
	UserID         string `json:"user_id" gorm:"type:uuid;uniqueIndex"`
	BusinessName   string `json:"business_name"`
	Niche          string `json:"niche"`
	TargetAudience string `json:"target_audience"`
	Tone           string `json:"tone"`
	// Goals is pipe-separated, e.g. "vendas|seguidores".
	Goals         string `json:"goals"`
	Platforms     string `json:"platforms"`
	PostFrequency string `json:"post_frequency"`
	// ExtraPreferences holds optional keys such as idade_minima,
	// idade_maxima and estrategia_roteiro.
	ExtraPreferences datatypes.JSONMap `json:"extra_preferences" gorm:"type:jsonb"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (ContentProfile) TableName() string {
	return "content_profiles"
}

type UpsertProfileRequest struct {
	BusinessName     string         `json:"business_name"`
	Niche            string         `json:"niche"`
	TargetAudience   string         `json:"target_audience"`
	Tone             string         `json:"tone"`
	Goals            string         `json:"goals"`
	Platforms        string         `json:"platforms"`
	PostFrequency    string         `json:"post_frequency"`
	ExtraPreferences map[string]any `json:"extra_preferences,omitempty"`
}

type Service interface {
	GetByUserID(ctx context.Context, userID string) (*ContentProfile, error)
	Upsert(ctx context.Context, userID string, req UpsertProfileRequest) (*ContentProfile, error)
}
