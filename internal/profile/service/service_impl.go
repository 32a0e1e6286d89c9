package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	profiledomain "github.com/goghstudio/gogh-backend/internal/profile/domain"
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

	repo repository.Repository[profiledomain.ContentProfile]
}

func NewService(p ServiceParam) profiledomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("profile.service"),
		genID: p.GenID,

		repo: repository.ProvideStore[profiledomain.ContentProfile](p.DB),
	}
}

func (s *Service) GetByUserID(ctx context.Context, userID string) (*profiledomain.ContentProfile, error) {
	profile, err := s.repo.FindOne(ctx, &profiledomain.ContentProfile{UserID: userID})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, profiledomain.ErrNoProfile
	}
	return profile, nil
}

func (s *Service) Upsert(ctx context.Context, userID string, req profiledomain.UpsertProfileRequest) (*profiledomain.ContentProfile, error) {
	existing, err := s.repo.FindOne(ctx, &profiledomain.ContentProfile{UserID: userID})
	if err != nil {
		return nil, err
	}

	if existing == nil {
		profile := &profiledomain.ContentProfile{
			ID:               s.genID.Generate().Int64(),
			UserID:           userID,
			BusinessName:     req.BusinessName,
			Niche:            req.Niche,
			TargetAudience:   req.TargetAudience,
			Tone:             req.Tone,
			Goals:            req.Goals,
			Platforms:        req.Platforms,
			PostFrequency:    req.PostFrequency,
			ExtraPreferences: datatypes.JSONMap(req.ExtraPreferences),
		}
		if err := s.repo.Create(ctx, profile); err != nil {
			return nil, err
		}
		return profile, nil
	}

	existing.BusinessName = req.BusinessName
	existing.Niche = req.Niche
	existing.TargetAudience = req.TargetAudience
	existing.Tone = req.Tone
	existing.Goals = req.Goals
	existing.Platforms = req.Platforms
	existing.PostFrequency = req.PostFrequency
	if req.ExtraPreferences != nil {
		merged := datatypes.JSONMap{}
		for k, v := range existing.ExtraPreferences {
			merged[k] = v
		}
		for k, v := range req.ExtraPreferences {
			merged[k] = v
		}
		existing.ExtraPreferences = merged
	}

	if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}
