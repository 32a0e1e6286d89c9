package domain

import (
	"context"
	"errors"

	calendardomain "github.com/goghstudio/gogh-backend/internal/calendar/domain"
)

var (
	// ErrMissingItemID means the request had no calendar item id.
	ErrMissingItemID = errors.New("missing_calendar_item_id")
	// ErrServiceUnavailable means the generation credential is absent.
	ErrServiceUnavailable = errors.New("generation_service_unavailable")
	// ErrServiceFailure means the upstream returned an empty or
	// unparseable completion.
	ErrServiceFailure = errors.New("generation_service_failure")
)

const (
	ModeGenerate   = "generate"
	ModeRegenerate = "regenerate"
)

type GenerateRequest struct {
	CalendarItemID        string  `json:"calendarItemId"`
	OverrideTopic         *string `json:"overrideTopic,omitempty"`
	Mode                  string  `json:"mode,omitempty"`
	RegenerateInstruction *string `json:"regenerateInstruction,omitempty"`
	ScriptStrategyKey     *string `json:"scriptStrategyKey,omitempty"`
}

// IsRegenerate reports whether the request asks for a regeneration.
func (r GenerateRequest) IsRegenerate() bool {
	return r.Mode == ModeRegenerate
}

type AdCopy struct {
	Headline *string `json:"headline"`
	Body     *string `json:"body"`
	CTA      *string `json:"cta"`
}

// GeneratedContent is the transient result of one run, written into the
// calendar item and echoed back to the caller.
type GeneratedContent struct {
	Topic                 string   `json:"topic"`
	Script                string   `json:"script"`
	Caption               string   `json:"caption"`
	Hashtags              string   `json:"hashtags"`
	RecommendedTime       *string  `json:"recommended_time"`
	RecommendedTimeReason *string  `json:"recommended_time_reason"`
	CoverTextOptions      []string `json:"cover_text_options"`
	AdCopy                AdCopy   `json:"ad_copy"`
}

type GenerateResponse struct {
	OK        bool                         `json:"ok"`
	Item      *calendardomain.CalendarItem `json:"item"`
	Generated *GeneratedContent            `json:"generated"`
}

type Service interface {
	Generate(ctx context.Context, userID string, req GenerateRequest) (*GenerateResponse, error)
}
