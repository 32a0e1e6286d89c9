package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/goghstudio/gogh-backend/internal/config"
	creditsdomain "github.com/goghstudio/gogh-backend/internal/credits/domain"
	obsmetrics "github.com/goghstudio/gogh-backend/internal/observability/metrics"
	subscriptiondomain "github.com/goghstudio/gogh-backend/internal/subscription/domain"
	"github.com/goghstudio/gogh-backend/pkg/db"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Pricing    *config.CreditsPricingHolder
	SubSvc     subscriptiondomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	pricing    *config.CreditsPricingHolder
	subSvc     subscriptiondomain.Service
	obsMetrics *obsmetrics.Metrics

	now func() time.Time
}

func NewService(p ServiceParam) creditsdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("credits.service"),
		genID:      p.GenID,
		pricing:    p.Pricing,
		subSvc:     p.SubSvc,
		obsMetrics: p.ObsMetrics,

		now: time.Now,
	}
}

// monthBounds returns the current calendar-month period in UTC.
func monthBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// effectivePricing merges site_settings overrides over the file-based
// defaults.
func (s *Service) effectivePricing(ctx context.Context) config.CreditsPricing {
	pricing := s.pricing.Get()

	var setting creditsdomain.SiteSetting
	err := s.db.WithContext(ctx).
		Where("key = ?", creditsdomain.SettingsKeyCredits).
		First(&setting).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("loading credits settings", zap.Error(err))
		}
		return pricing
	}

	if raw, ok := setting.Value["roteiro_cost"].(float64); ok && raw > 0 {
		pricing.RoteiroCost = int(raw)
	}
	if raw, ok := setting.Value["plan_allotments"].(map[string]any); ok {
		allotments := make(map[string]int, len(raw))
		for plan, v := range raw {
			if n, ok := v.(float64); ok && n >= 0 {
				allotments[plan] = int(n)
			}
		}
		if len(allotments) > 0 {
			pricing.PlanAllotments = allotments
		}
	}
	return pricing
}

func (s *Service) RoteiroCost(ctx context.Context) int {
	return s.effectivePricing(ctx).RoteiroCost
}

func (s *Service) Balance(ctx context.Context, userID string) (creditsdomain.BalanceResponse, error) {
	var resp creditsdomain.BalanceResponse

	periodStart, periodEnd := monthBounds(s.now())

	var monthly creditsdomain.UsageCounter
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND feature = ? AND period_start = ? AND period_end = ?",
			userID, creditsdomain.FeatureAICredits, periodStart, periodEnd).
		First(&monthly).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return resp, err
	}
	resp.Monthly = monthly.Balance

	var purchased []creditsdomain.UsageCounter
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND feature = ?", userID, creditsdomain.FeatureAICreditsPurchased).
		Order("id ASC").
		Find(&purchased).Error; err != nil {
		return resp, err
	}
	for _, row := range purchased {
		resp.Purchased += row.Balance
	}

	resp.Total = resp.Monthly + resp.Purchased
	return resp, nil
}

func (s *Service) Deduct(ctx context.Context, userID string, cost int, reason string) (*creditsdomain.DeductionResult, error) {
	if cost <= 0 {
		return &creditsdomain.DeductionResult{}, nil
	}

	pricing := s.effectivePricing(ctx)
	periodStart, periodEnd := monthBounds(s.now())

	var result creditsdomain.DeductionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		monthly, err := s.lockMonthlyCounter(ctx, tx, userID, periodStart, periodEnd, pricing)
		if err != nil {
			return err
		}

		purchased, err := s.lockPurchasedCounters(ctx, tx, userID)
		if err != nil {
			return err
		}

		total := monthly.Balance
		for _, row := range purchased {
			total += row.Balance
		}
		if total < cost {
			return &creditsdomain.InsufficientCreditsError{Balance: total, Required: cost}
		}

		remaining := cost

		// Monthly pool drains first.
		if monthly.Balance > 0 {
			take := min(monthly.Balance, remaining)
			if err := s.applyDeduction(ctx, tx, monthly, take, reason); err != nil {
				return err
			}
			result.FromMonthly = take
			remaining -= take
		}

		// Then purchased rows, oldest first.
		for i := range purchased {
			if remaining == 0 {
				break
			}
			row := &purchased[i]
			if row.Balance == 0 {
				continue
			}
			take := min(row.Balance, remaining)
			if err := s.applyDeduction(ctx, tx, row, take, reason); err != nil {
				return err
			}
			result.FromPurchased += take
			remaining -= take
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordCreditsDeducted(ctx, "monthly", result.FromMonthly)
		s.obsMetrics.RecordCreditsDeducted(ctx, "purchased", result.FromPurchased)
	}
	s.log.Info("credits deducted",
		zap.String("user_id", userID),
		zap.Int("from_monthly", result.FromMonthly),
		zap.Int("from_purchased", result.FromPurchased),
	)
	return &result, nil
}

// lockMonthlyCounter fetches the user's monthly row for the current
// period, creating it lazily from the resolved plan allotment.
func (s *Service) lockMonthlyCounter(ctx context.Context, tx *gorm.DB, userID string, periodStart, periodEnd time.Time, pricing config.CreditsPricing) (*creditsdomain.UsageCounter, error) {
	var monthly creditsdomain.UsageCounter
	q := tx.WithContext(ctx).
		Where("user_id = ? AND feature = ? AND period_start = ? AND period_end = ?",
			userID, creditsdomain.FeatureAICredits, periodStart, periodEnd)
	if supportsRowLocks(tx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.First(&monthly).Error
	if err == nil {
		return &monthly, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	allotment := 0
	planID, err := s.subSvc.ResolvePlanID(ctx, userID)
	if err != nil && !errors.Is(err, subscriptiondomain.ErrNoPlan) {
		return nil, err
	}
	if err == nil {
		allotment = pricing.MonthlyAllotment(planID)
	}

	monthly = creditsdomain.UsageCounter{
		ID:          s.genID.Generate().Int64(),
		UserID:      userID,
		Feature:     creditsdomain.FeatureAICredits,
		Balance:     allotment,
		PeriodStart: &periodStart,
		PeriodEnd:   &periodEnd,
	}
	// SELECT FOR UPDATE on zero rows locks nothing, so two first-of-period
	// requests can both reach this insert. The unique index on
	// (user_id, feature, period_start) arbitrates; the loser reloads the
	// winner's row instead of provisioning a second allotment.
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&monthly)
	if res.Error != nil && !db.IsDuplicateKeyErr(res.Error) {
		return nil, res.Error
	}
	if res.Error != nil || res.RowsAffected == 0 {
		q := tx.WithContext(ctx).
			Where("user_id = ? AND feature = ? AND period_start = ? AND period_end = ?",
				userID, creditsdomain.FeatureAICredits, periodStart, periodEnd)
		if supportsRowLocks(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&monthly).Error; err != nil {
			return nil, err
		}
		return &monthly, nil
	}
	s.log.Info("monthly credits provisioned",
		zap.String("user_id", userID),
		zap.String("plan_id", planID),
		zap.Int("allotment", allotment),
	)
	return &monthly, nil
}

func (s *Service) lockPurchasedCounters(ctx context.Context, tx *gorm.DB, userID string) ([]creditsdomain.UsageCounter, error) {
	var purchased []creditsdomain.UsageCounter
	q := tx.WithContext(ctx).
		Where("user_id = ? AND feature = ?", userID, creditsdomain.FeatureAICreditsPurchased).
		Order("id ASC")
	if supportsRowLocks(tx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Find(&purchased).Error; err != nil {
		return nil, err
	}
	return purchased, nil
}

func (s *Service) applyDeduction(ctx context.Context, tx *gorm.DB, counter *creditsdomain.UsageCounter, amount int, reason string) error {
	res := tx.WithContext(ctx).
		Model(&creditsdomain.UsageCounter{}).
		Where("id = ? AND balance >= ?", counter.ID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrInvalidData
	}
	counter.Balance -= amount

	entry := creditsdomain.CreditTransaction{
		ID:        ulid.Make().String(),
		UserID:    counter.UserID,
		CounterID: counter.ID,
		Feature:   counter.Feature,
		Amount:    -amount,
		Reason:    reason,
	}
	return tx.WithContext(ctx).Create(&entry).Error
}

func (s *Service) Refund(ctx context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}

	periodStart, periodEnd := monthBounds(s.now())
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var monthly creditsdomain.UsageCounter
		err := tx.WithContext(ctx).
			Where("user_id = ? AND feature = ? AND period_start = ? AND period_end = ?",
				userID, creditsdomain.FeatureAICredits, periodStart, periodEnd).
			First(&monthly).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			monthly = creditsdomain.UsageCounter{
				ID:          s.genID.Generate().Int64(),
				UserID:      userID,
				Feature:     creditsdomain.FeatureAICredits,
				Balance:     amount,
				PeriodStart: &periodStart,
				PeriodEnd:   &periodEnd,
			}
			res := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&monthly)
			if res.Error != nil && !db.IsDuplicateKeyErr(res.Error) {
				return res.Error
			}
			if res.Error != nil || res.RowsAffected == 0 {
				// A concurrent request provisioned the row first; credit it.
				if err := tx.WithContext(ctx).
					Where("user_id = ? AND feature = ? AND period_start = ? AND period_end = ?",
						userID, creditsdomain.FeatureAICredits, periodStart, periodEnd).
					First(&monthly).Error; err != nil {
					return err
				}
				if err := tx.WithContext(ctx).
					Model(&creditsdomain.UsageCounter{}).
					Where("id = ?", monthly.ID).
					UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
					return err
				}
			}
		} else if err != nil {
			return err
		} else {
			if err := tx.WithContext(ctx).
				Model(&creditsdomain.UsageCounter{}).
				Where("id = ?", monthly.ID).
				UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
				return err
			}
		}

		entry := creditsdomain.CreditTransaction{
			ID:        ulid.Make().String(),
			UserID:    userID,
			CounterID: monthly.ID,
			Feature:   creditsdomain.FeatureAICredits,
			Amount:    amount,
			Reason:    reason,
		}
		return tx.WithContext(ctx).Create(&entry).Error
	})
}

// sqlite has no SELECT ... FOR UPDATE; its single-writer model covers us
// in tests.
func supportsRowLocks(tx *gorm.DB) bool {
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
		return true
	}
	return false
}
