package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	calendardomain "github.com/goghstudio/gogh-backend/internal/calendar/domain"
	creditsdomain "github.com/goghstudio/gogh-backend/internal/credits/domain"
	generationdomain "github.com/goghstudio/gogh-backend/internal/generation/domain"
	"github.com/goghstudio/gogh-backend/internal/generation/prompt"
	"github.com/goghstudio/gogh-backend/internal/llm"
	obslogger "github.com/goghstudio/gogh-backend/internal/observability/logger"
	obsmetrics "github.com/goghstudio/gogh-backend/internal/observability/metrics"
	profiledomain "github.com/goghstudio/gogh-backend/internal/profile/domain"
	"github.com/goghstudio/gogh-backend/internal/strategy"
	"github.com/goghstudio/gogh-backend/pkg/textfmt"
)

type ServiceParam struct {
	fx.In

	Log         *zap.Logger
	LLM         llm.Client
	ProfileSvc  profiledomain.Service
	CalendarSvc calendardomain.Service
	CreditsSvc  creditsdomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	llm         llm.Client
	profileSvc  profiledomain.Service
	calendarSvc calendardomain.Service
	creditsSvc  creditsdomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p ServiceParam) generationdomain.Service {
	return &Service{
		log:         p.Log.Named("generation.service"),
		llm:         p.LLM,
		profileSvc:  p.ProfileSvc,
		calendarSvc: p.CalendarSvc,
		creditsSvc:  p.CreditsSvc,
		obsMetrics:  p.ObsMetrics,
	}
}

// Generate runs the full request flow: profile and item lookups, the
// regeneration guard, credit charge, the external call, post-processing
// and persistence. Credits charged for a run that later fails are
// refunded, and a claimed regeneration slot is released.
func (s *Service) Generate(ctx context.Context, userID string, req generationdomain.GenerateRequest) (*generationdomain.GenerateResponse, error) {
	start := time.Now()
	log := obslogger.FromContext(ctx).Named("generation.service")

	mode := generationdomain.ModeGenerate
	if req.IsRegenerate() {
		mode = generationdomain.ModeRegenerate
	}

	resp, err := s.generate(ctx, log, userID, req, mode)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordGenerationRun(ctx, mode, outcome)
		s.obsMetrics.RecordGenerationDuration(ctx, mode, time.Since(start))
	}
	return resp, err
}

func (s *Service) generate(ctx context.Context, log *zap.Logger, userID string, req generationdomain.GenerateRequest, mode string) (*generationdomain.GenerateResponse, error) {
	// Fail fast when the credential is absent; nothing below can work.
	if !s.llm.Configured() {
		return nil, generationdomain.ErrServiceUnavailable
	}

	itemID, err := parseItemID(req.CalendarItemID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileSvc.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.calendarSvc.GetForUser(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}

	// The cap is enforced before any charge so a rejected regeneration
	// never costs credits.
	claimed := false
	if mode == generationdomain.ModeRegenerate {
		if err := s.calendarSvc.ClaimRegeneration(ctx, itemID, userID); err != nil {
			return nil, err
		}
		claimed = true
	}

	cost := s.creditsSvc.RoteiroCost(ctx)
	if _, err := s.creditsSvc.Deduct(ctx, userID, cost, "generation:"+mode); err != nil {
		s.compensate(ctx, log, userID, itemID, 0, claimed)
		return nil, err
	}

	content, updated, err := s.run(ctx, log, userID, profile, item, req, mode)
	if err != nil {
		s.compensate(ctx, log, userID, itemID, cost, claimed)
		return nil, err
	}

	log.Info("content generated",
		zap.Int64("item_id", itemID),
		zap.String("mode", mode),
		zap.String("strategy", pickStrategy(req, profile).Key),
	)

	return &generationdomain.GenerateResponse{
		OK:        true,
		Item:      updated,
		Generated: content,
	}, nil
}

// run performs the unrefundable middle of the flow: prompt, external
// call, parsing, formatting and persistence.
func (s *Service) run(
	ctx context.Context,
	log *zap.Logger,
	userID string,
	profile *profiledomain.ContentProfile,
	item *calendardomain.CalendarItem,
	req generationdomain.GenerateRequest,
	mode string,
) (*generationdomain.GeneratedContent, *calendardomain.CalendarItem, error) {

	strat := pickStrategy(req, profile)

	topic := item.Topic
	if req.OverrideTopic != nil && strings.TrimSpace(*req.OverrideTopic) != "" {
		topic = strings.TrimSpace(*req.OverrideTopic)
	}

	in := prompt.Input{
		Profile:  profile,
		Topic:    topic,
		Platform: item.Platform,
		Date:     item.Date,
		Strategy: strat,
	}
	if req.RegenerateInstruction != nil {
		in.RegenerateInstruction = strings.TrimSpace(*req.RegenerateInstruction)
	}

	raw, err := s.llm.Complete(ctx, prompt.BuildSystemPrompt(in), prompt.BuildUserPrompt(in))
	if s.obsMetrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.obsMetrics.RecordLLMRequest(ctx, s.llm.Model(), outcome)
	}
	if err != nil {
		log.Error("completion call failed", zap.Error(err))
		return nil, nil, generationdomain.ErrServiceFailure
	}

	content, err := parseGeneratedContent(raw)
	if err != nil {
		// Raw output stays server-side for diagnosis.
		log.Error("unparseable completion", zap.String("raw", raw))
		return nil, nil, err
	}

	if content.Topic == "" {
		content.Topic = topic
	}
	content.Script = textfmt.FormatScriptForReadability(content.Script)
	content.Hashtags = textfmt.NormalizeHashtags(content.Hashtags + " " + content.Caption)
	content.Caption = textfmt.FormatCaptionForReadability(content.Caption)

	var coverPrompt *string
	if len(content.CoverTextOptions) > 0 {
		joined := strings.Join(content.CoverTextOptions, " | ")
		coverPrompt = &joined
	}

	goals := prompt.SplitGoals(profile.Goals)
	primaryGoal := ""
	if len(goals) > 0 {
		primaryGoal = goals[0]
	}

	metaPatch := map[string]any{
		"primary_goal":    primaryGoal,
		"cta_focus":       prompt.MapGoalToCTA(primaryGoal),
		"script_strategy": strat.Key,
	}
	if content.RecommendedTime != nil {
		metaPatch["recommended_time"] = *content.RecommendedTime
	}
	if content.RecommendedTimeReason != nil {
		metaPatch["recommended_time_reason"] = *content.RecommendedTimeReason
	}
	if len(content.CoverTextOptions) > 0 {
		metaPatch["cover_text_options"] = content.CoverTextOptions
	}
	if content.AdCopy.Headline != nil || content.AdCopy.Body != nil || content.AdCopy.CTA != nil {
		metaPatch["ad_copy"] = map[string]any{
			"headline": content.AdCopy.Headline,
			"body":     content.AdCopy.Body,
			"cta":      content.AdCopy.CTA,
		}
	}

	recommendedTime := ""
	if content.RecommendedTime != nil {
		recommendedTime = *content.RecommendedTime
	}

	updated, err := s.calendarSvc.ApplyGeneration(ctx, calendardomain.ApplyGenerationRequest{
		ItemID:          item.ID,
		UserID:          userID,
		Topic:           content.Topic,
		Script:          content.Script,
		Caption:         content.Caption,
		Hashtags:        content.Hashtags,
		CoverPrompt:     coverPrompt,
		RecommendedTime: recommendedTime,
		MetaPatch:       metaPatch,
	})
	if err != nil {
		return nil, nil, err
	}

	return content, updated, nil
}

// compensate undoes side effects after a failed run: refunds any
// charged credits and releases a claimed regeneration slot. The failure
// that got us here is often a canceled or expired request context, so
// compensation runs detached from it with its own deadline.
func (s *Service) compensate(ctx context.Context, log *zap.Logger, userID string, itemID int64, refund int, claimed bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	if refund > 0 {
		if err := s.creditsSvc.Refund(ctx, userID, refund, "refund:generation_failed"); err != nil {
			log.Error("credit refund failed",
				zap.String("user_id", userID),
				zap.Int("amount", refund),
				zap.Error(err),
			)
		}
	}
	if claimed {
		if err := s.calendarSvc.ReleaseRegeneration(ctx, itemID, userID); err != nil {
			log.Error("regeneration release failed",
				zap.Int64("item_id", itemID),
				zap.Error(err),
			)
		}
	}
}

func pickStrategy(req generationdomain.GenerateRequest, profile *profiledomain.ContentProfile) strategy.Strategy {
	requestKey := ""
	if req.ScriptStrategyKey != nil {
		requestKey = *req.ScriptStrategyKey
	}
	profileKey := ""
	if profile != nil && profile.ExtraPreferences != nil {
		if v, ok := profile.ExtraPreferences["estrategia_roteiro"].(string); ok {
			profileKey = v
		}
	}
	return strategy.Pick(requestKey, profileKey)
}

func parseItemID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, generationdomain.ErrMissingItemID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, generationdomain.ErrMissingItemID
	}
	return id, nil
}
