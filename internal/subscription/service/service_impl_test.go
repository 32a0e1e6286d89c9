package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	subscriptiondomain "github.com/goghstudio/gogh-backend/internal/subscription/domain"
)

func setupSubscriptionService(t *testing.T) (subscriptiondomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.Exec(`CREATE TABLE subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		plan_id TEXT,
		plan_type TEXT,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("create subscriptions: %v", err)
	}
	if err := db.Exec(`CREATE TABLE service_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("create service_subscriptions: %v", err)
	}

	return NewService(ServiceParam{DB: db, Log: zap.NewNop()}), db
}

func TestResolvePlanIDPrefersPlanID(t *testing.T) {
	svc, db := setupSubscriptionService(t)
	userID := uuid.NewString()

	planID := "gogh_pro"
	planType := "essential"
	if err := db.Create(&subscriptiondomain.Subscription{
		UserID:   userID,
		PlanID:   &planID,
		PlanType: &planType,
		Status:   subscriptiondomain.StatusActive,
	}).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	got, err := svc.ResolvePlanID(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "gogh_pro" {
		t.Fatalf("expected plan_id to win, got %q", got)
	}
}

func TestResolvePlanIDFallsBackToLegacyPlanType(t *testing.T) {
	svc, db := setupSubscriptionService(t)
	userID := uuid.NewString()

	planType := "premium"
	if err := db.Create(&subscriptiondomain.Subscription{
		UserID:   userID,
		PlanType: &planType,
		Status:   subscriptiondomain.StatusActive,
	}).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	got, err := svc.ResolvePlanID(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "gogh_pro" {
		t.Fatalf("expected premium to map to gogh_pro, got %q", got)
	}
}

func TestResolvePlanIDUsesServiceSubscription(t *testing.T) {
	svc, db := setupSubscriptionService(t)
	userID := uuid.NewString()

	if err := db.Create(&subscriptiondomain.ServiceSubscription{
		UserID: userID,
		PlanID: "gogh_essencial",
		Status: subscriptiondomain.StatusTrialing,
	}).Error; err != nil {
		t.Fatalf("seed service subscription: %v", err)
	}

	got, err := svc.ResolvePlanID(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "gogh_essencial" {
		t.Fatalf("expected service subscription tier, got %q", got)
	}
}

func TestResolvePlanIDIgnoresUnrecognizedServiceTiers(t *testing.T) {
	svc, db := setupSubscriptionService(t)
	userID := uuid.NewString()

	if err := db.Create(&subscriptiondomain.ServiceSubscription{
		UserID: userID,
		PlanID: "design_pack",
		Status: subscriptiondomain.StatusActive,
	}).Error; err != nil {
		t.Fatalf("seed service subscription: %v", err)
	}

	_, err := svc.ResolvePlanID(context.Background(), userID)
	if !errors.Is(err, subscriptiondomain.ErrNoPlan) {
		t.Fatalf("expected ErrNoPlan, got %v", err)
	}
}

func TestResolvePlanIDNoSubscription(t *testing.T) {
	svc, _ := setupSubscriptionService(t)

	_, err := svc.ResolvePlanID(context.Background(), uuid.NewString())
	if !errors.Is(err, subscriptiondomain.ErrNoPlan) {
		t.Fatalf("expected ErrNoPlan, got %v", err)
	}
}

func TestResolvePlanIDIgnoresCanceledSubscription(t *testing.T) {
	svc, db := setupSubscriptionService(t)
	userID := uuid.NewString()

	planID := "gogh_pro"
	if err := db.Create(&subscriptiondomain.Subscription{
		UserID: userID,
		PlanID: &planID,
		Status: subscriptiondomain.StatusCanceled,
	}).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	_, err := svc.ResolvePlanID(context.Background(), userID)
	if !errors.Is(err, subscriptiondomain.ErrNoPlan) {
		t.Fatalf("expected ErrNoPlan, got %v", err)
	}
}
