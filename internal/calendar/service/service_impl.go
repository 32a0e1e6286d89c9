package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	calendardomain "github.com/goghstudio/gogh-backend/internal/calendar/domain"
	"github.com/goghstudio/gogh-backend/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	repo repository.Repository[calendardomain.CalendarItem]
}

func NewService(p ServiceParam) calendardomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("calendar.service"),
		genID: p.GenID,

		repo: repository.ProvideStore[calendardomain.CalendarItem](p.DB),
	}
}

// GetForUser scopes the lookup by owner; items of other users come back
// as not found.
func (s *Service) GetForUser(ctx context.Context, itemID int64, userID string) (*calendardomain.CalendarItem, error) {
	item, err := s.repo.FindOne(ctx, &calendardomain.CalendarItem{ID: itemID, UserID: userID})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, calendardomain.ErrItemNotFound
	}
	return item, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]calendardomain.CalendarItem, error) {
	rows, err := s.repo.Find(ctx, &calendardomain.CalendarItem{UserID: userID},
		repository.WithOrder("date ASC, id ASC"))
	if err != nil {
		return nil, err
	}
	items := make([]calendardomain.CalendarItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, *row)
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, userID string, req calendardomain.CreateItemRequest) (*calendardomain.CalendarItem, error) {
	if req.Topic == "" || req.Date == "" {
		return nil, calendardomain.ErrInvalidItem
	}

	item := &calendardomain.CalendarItem{
		ID:       s.genID.Generate().Int64(),
		UserID:   userID,
		Topic:    req.Topic,
		Platform: req.Platform,
		Date:     req.Date,
		Time:     req.Time,
		Status:   calendardomain.StatusScheduled,
		Slug:     slug.Make(req.Topic),
		Meta:     datatypes.JSONMap(req.Meta),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ClaimRegeneration consumes a regeneration slot with a single
// conditional update; the affected-row count decides the outcome, so
// concurrent claims cannot both pass the cap.
func (s *Service) ClaimRegeneration(ctx context.Context, itemID int64, userID string) error {
	res := s.db.WithContext(ctx).
		Model(&calendardomain.CalendarItem{}).
		Where("id = ? AND user_id = ? AND regenerate_count < ?", itemID, userID, calendardomain.MaxRegenerations).
		UpdateColumn("regenerate_count", gorm.Expr("regenerate_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing item from an exhausted cap.
		item, err := s.repo.FindOne(ctx, &calendardomain.CalendarItem{ID: itemID, UserID: userID})
		if err != nil {
			return err
		}
		if item == nil {
			return calendardomain.ErrItemNotFound
		}
		return calendardomain.ErrRegenerationLimit
	}
	return nil
}

func (s *Service) ReleaseRegeneration(ctx context.Context, itemID int64, userID string) error {
	return s.db.WithContext(ctx).
		Model(&calendardomain.CalendarItem{}).
		Where("id = ? AND user_id = ? AND regenerate_count > 0", itemID, userID).
		UpdateColumn("regenerate_count", gorm.Expr("regenerate_count - 1")).Error
}

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// normalizeClockTime turns "9:30" into "09:30", rejecting values that
// are not a valid H(H):MM wall-clock time.
func normalizeClockTime(raw string) (string, bool) {
	m := clockPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return "", false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func (s *Service) ApplyGeneration(ctx context.Context, req calendardomain.ApplyGenerationRequest) (*calendardomain.CalendarItem, error) {
	item, err := s.GetForUser(ctx, req.ItemID, req.UserID)
	if err != nil {
		return nil, err
	}

	meta := datatypes.JSONMap{}
	for k, v := range item.Meta {
		meta[k] = v
	}
	for k, v := range req.MetaPatch {
		meta[k] = v
	}
	meta["regenerate_count"] = item.RegenerateCount

	updates := map[string]any{
		"status":   calendardomain.StatusGenerated,
		"topic":    req.Topic,
		"script":   req.Script,
		"caption":  req.Caption,
		"hashtags": req.Hashtags,
		"slug":     slug.Make(req.Topic),
		"meta":     meta,
	}
	if req.CoverPrompt != nil {
		updates["cover_prompt"] = *req.CoverPrompt
	}
	if normalized, ok := normalizeClockTime(req.RecommendedTime); ok {
		updates["time"] = normalized
	}

	res := s.db.WithContext(ctx).
		Model(&calendardomain.CalendarItem{}).
		Where("id = ? AND user_id = ?", req.ItemID, req.UserID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, calendardomain.ErrItemNotFound
	}

	return s.GetForUser(ctx, req.ItemID, req.UserID)
}
