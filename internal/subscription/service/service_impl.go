package service

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	subscriptiondomain "github.com/goghstudio/gogh-backend/internal/subscription/domain"
	"github.com/goghstudio/gogh-backend/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	subrepo     repository.Repository[subscriptiondomain.Subscription]
	servicerepo repository.Repository[subscriptiondomain.ServiceSubscription]

	resolvers []planResolver
}

// planResolver returns the resolved plan id, or ok=false to fall
// through to the next resolver.
type planResolver func(ctx context.Context, userID string) (planID string, ok bool, err error)

func NewService(p ServiceParam) subscriptiondomain.Service {
	s := &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		subrepo:     repository.ProvideStore[subscriptiondomain.Subscription](p.DB),
		servicerepo: repository.ProvideStore[subscriptiondomain.ServiceSubscription](p.DB),
	}
	// Precedence: current plan id, then the legacy tier naming, then
	// plans sold through the managed-services checkout.
	s.resolvers = []planResolver{
		s.resolveFromPlanID,
		s.resolveFromLegacyPlanType,
		s.resolveFromServiceSubscription,
	}
	return s
}

func (s *Service) ResolvePlanID(ctx context.Context, userID string) (string, error) {
	for _, resolve := range s.resolvers {
		planID, ok, err := resolve(ctx, userID)
		if err != nil {
			return "", err
		}
		if ok {
			return planID, nil
		}
	}
	return "", subscriptiondomain.ErrNoPlan
}

func (s *Service) activeSubscription(ctx context.Context, userID string) (*subscriptiondomain.Subscription, error) {
	return s.subrepo.FindOne(ctx, &subscriptiondomain.Subscription{
		UserID: userID,
		Status: subscriptiondomain.StatusActive,
	})
}

func (s *Service) resolveFromPlanID(ctx context.Context, userID string) (string, bool, error) {
	sub, err := s.activeSubscription(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if sub == nil || sub.PlanID == nil {
		return "", false, nil
	}
	planID := strings.TrimSpace(*sub.PlanID)
	if planID == "" {
		return "", false, nil
	}
	return planID, true, nil
}

func (s *Service) resolveFromLegacyPlanType(ctx context.Context, userID string) (string, bool, error) {
	sub, err := s.activeSubscription(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if sub == nil || sub.PlanType == nil {
		return "", false, nil
	}
	switch strings.ToLower(strings.TrimSpace(*sub.PlanType)) {
	case subscriptiondomain.LegacyPlanPremium:
		return subscriptiondomain.PlanGoghPro, true, nil
	case subscriptiondomain.LegacyPlanEssential:
		return subscriptiondomain.PlanGoghEssencial, true, nil
	}
	return "", false, nil
}

func (s *Service) resolveFromServiceSubscription(ctx context.Context, userID string) (string, bool, error) {
	var subs []subscriptiondomain.ServiceSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []subscriptiondomain.SubscriptionStatus{
			subscriptiondomain.StatusActive,
			subscriptiondomain.StatusTrialing,
		}).
		Order("id ASC").
		Find(&subs).Error
	if err != nil {
		return "", false, err
	}
	for _, sub := range subs {
		switch sub.PlanID {
		case subscriptiondomain.PlanGoghPro, subscriptiondomain.PlanGoghEssencial:
			return sub.PlanID, true, nil
		}
	}
	return "", false, nil
}
