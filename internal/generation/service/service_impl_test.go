package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	calendardomain "github.com/goghstudio/gogh-backend/internal/calendar/domain"
	creditsdomain "github.com/goghstudio/gogh-backend/internal/credits/domain"
	generationdomain "github.com/goghstudio/gogh-backend/internal/generation/domain"
	profiledomain "github.com/goghstudio/gogh-backend/internal/profile/domain"
)

const validCompletion = `{
	"topic": "Bolo de pote para vender mais",
	"script": "Gancho: pergunta forte\nDesenvolvimento: explica o problema\nCTA: chama para ação",
	"caption": "Confira nossa #promo hoje. Vem com a gente!",
	"hashtags": "#Vendas #vendas #PROMO",
	"recommended_time": "19:30",
	"recommended_time_reason": "maior engajamento à noite",
	"cover_text_options": ["Opção A", "Opção B", "Opção C", "Opção D"],
	"ad_copy": {"headline": "Bolos artesanais", "body": "Peça hoje", "cta": "Chama no direct"}
}`

type llmStub struct {
	configured bool
	response   string
	err        error
	calls      int
	cancel     context.CancelFunc
}

func (l *llmStub) Complete(ctx context.Context, system, user string) (string, error) {
	l.calls++
	if l.cancel != nil {
		// Simulates the caller disconnecting mid-call.
		l.cancel()
		return "", context.Canceled
	}
	if l.err != nil {
		return "", l.err
	}
	return l.response, nil
}

func (l *llmStub) Configured() bool { return l.configured }
func (l *llmStub) Model() string    { return "gpt-4o-mini" }

type profileStub struct {
	profile *profiledomain.ContentProfile
	err     error
}

func (p *profileStub) GetByUserID(ctx context.Context, userID string) (*profiledomain.ContentProfile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.profile, nil
}

func (p *profileStub) Upsert(ctx context.Context, userID string, req profiledomain.UpsertProfileRequest) (*profiledomain.ContentProfile, error) {
	return nil, errors.New("not implemented")
}

type calendarStub struct {
	items map[int64]*calendardomain.CalendarItem

	claimErr    error
	applyErr    error
	claims      int
	releases    int
	lastApplied *calendardomain.ApplyGenerationRequest
}

func (c *calendarStub) GetForUser(ctx context.Context, itemID int64, userID string) (*calendardomain.CalendarItem, error) {
	item, ok := c.items[itemID]
	if !ok || item.UserID != userID {
		return nil, calendardomain.ErrItemNotFound
	}
	copy := *item
	return &copy, nil
}

func (c *calendarStub) ListForUser(ctx context.Context, userID string) ([]calendardomain.CalendarItem, error) {
	return nil, nil
}

func (c *calendarStub) Create(ctx context.Context, userID string, req calendardomain.CreateItemRequest) (*calendardomain.CalendarItem, error) {
	return nil, errors.New("not implemented")
}

func (c *calendarStub) ClaimRegeneration(ctx context.Context, itemID int64, userID string) error {
	if c.claimErr != nil {
		return c.claimErr
	}
	item, ok := c.items[itemID]
	if !ok || item.UserID != userID {
		return calendardomain.ErrItemNotFound
	}
	if item.RegenerateCount >= calendardomain.MaxRegenerations {
		return calendardomain.ErrRegenerationLimit
	}
	item.RegenerateCount++
	c.claims++
	return nil
}

func (c *calendarStub) ReleaseRegeneration(ctx context.Context, itemID int64, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item, ok := c.items[itemID]; ok && item.RegenerateCount > 0 {
		item.RegenerateCount--
	}
	c.releases++
	return nil
}

func (c *calendarStub) ApplyGeneration(ctx context.Context, req calendardomain.ApplyGenerationRequest) (*calendardomain.CalendarItem, error) {
	if c.applyErr != nil {
		return nil, c.applyErr
	}
	item, ok := c.items[req.ItemID]
	if !ok || item.UserID != req.UserID {
		return nil, calendardomain.ErrItemNotFound
	}
	c.lastApplied = &req
	item.Status = calendardomain.StatusGenerated
	item.Topic = req.Topic
	item.Script = req.Script
	item.Caption = req.Caption
	item.Hashtags = req.Hashtags
	copy := *item
	return &copy, nil
}

type creditsStub struct {
	balance int
	cost    int

	deductions int
	refunds    int
	refunded   int
}

func (c *creditsStub) Balance(ctx context.Context, userID string) (creditsdomain.BalanceResponse, error) {
	return creditsdomain.BalanceResponse{Monthly: c.balance, Total: c.balance}, nil
}

func (c *creditsStub) RoteiroCost(ctx context.Context) int { return c.cost }

func (c *creditsStub) Deduct(ctx context.Context, userID string, cost int, reason string) (*creditsdomain.DeductionResult, error) {
	if c.balance < cost {
		return nil, &creditsdomain.InsufficientCreditsError{Balance: c.balance, Required: cost}
	}
	c.balance -= cost
	c.deductions++
	return &creditsdomain.DeductionResult{FromMonthly: cost}, nil
}

func (c *creditsStub) Refund(ctx context.Context, userID string, amount int, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.balance += amount
	c.refunds++
	c.refunded += amount
	return nil
}

type fixture struct {
	svc      generationdomain.Service
	llm      *llmStub
	profile  *profileStub
	calendar *calendarStub
	credits  *creditsStub
	userID   string
	itemID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userID := "2f6c54e8-9f0f-4a51-8c1b-0f61e0b1a111"
	itemID := int64(7001)

	f := &fixture{
		llm: &llmStub{configured: true, response: validCompletion},
		profile: &profileStub{profile: &profiledomain.ContentProfile{
			ID:           1,
			UserID:       userID,
			BusinessName: "Doceria da Ana",
			Niche:        "confeitaria",
			Tone:         "descontraído",
			Goals:        "vendas|seguidores",
		}},
		calendar: &calendarStub{items: map[int64]*calendardomain.CalendarItem{
			itemID: {
				ID:       itemID,
				UserID:   userID,
				Topic:    "Bolo de pote",
				Platform: "instagram",
				Date:     "2026-09-10",
				Status:   calendardomain.StatusScheduled,
			},
		}},
		credits: &creditsStub{balance: 30, cost: 1},
		userID:  userID,
		itemID:  itemID,
	}
	f.svc = NewService(ServiceParam{
		Log:         zap.NewNop(),
		LLM:         f.llm,
		ProfileSvc:  f.profile,
		CalendarSvc: f.calendar,
		CreditsSvc:  f.credits,
	})
	return f
}

func (f *fixture) request() generationdomain.GenerateRequest {
	return generationdomain.GenerateRequest{CalendarItemID: strconv.FormatInt(f.itemID, 10)}
}

func TestGenerateHappyPath(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Generate(context.Background(), f.userID, f.request())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !resp.OK {
		t.Fatal("expected ok response")
	}
	if resp.Item.Status != calendardomain.StatusGenerated {
		t.Fatalf("expected generated status, got %q", resp.Item.Status)
	}
	if f.credits.balance != 29 {
		t.Fatalf("expected 29 credits left, got %d", f.credits.balance)
	}

	if resp.Generated.Hashtags != "#vendas #promo" {
		t.Fatalf("unexpected hashtags: %q", resp.Generated.Hashtags)
	}
	if strings.Contains(resp.Generated.Caption, "#") {
		t.Fatalf("caption still holds hashtags: %q", resp.Generated.Caption)
	}
	if !strings.HasPrefix(resp.Generated.Script, "🎣 Gancho:") {
		t.Fatalf("script missing canonical heading: %q", resp.Generated.Script)
	}
	if len(resp.Generated.CoverTextOptions) != 3 {
		t.Fatalf("expected cover options capped at 3, got %d", len(resp.Generated.CoverTextOptions))
	}

	applied := f.calendar.lastApplied
	if applied == nil {
		t.Fatal("expected persistence call")
	}
	if applied.RecommendedTime != "19:30" {
		t.Fatalf("recommended time not forwarded: %q", applied.RecommendedTime)
	}
	if applied.MetaPatch["primary_goal"] != "vendas" {
		t.Fatalf("primary goal missing in meta: %v", applied.MetaPatch)
	}
}

func TestGeneratePromptWrappedJSON(t *testing.T) {
	f := newFixture(t)
	f.llm.response = "Here is the content:\n" + validCompletion + "\nHope that helps!"

	resp, err := f.svc.Generate(context.Background(), f.userID, f.request())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Generated.Topic != "Bolo de pote para vender mais" {
		t.Fatalf("unexpected topic: %q", resp.Generated.Topic)
	}
}

func TestGenerateUnconfiguredFailsFast(t *testing.T) {
	f := newFixture(t)
	f.llm.configured = false

	_, err := f.svc.Generate(context.Background(), f.userID, f.request())
	if !errors.Is(err, generationdomain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if f.credits.deductions != 0 {
		t.Fatal("no credits may be charged before the availability check")
	}
}

func TestGenerateMissingItemID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), f.userID, generationdomain.GenerateRequest{})
	if !errors.Is(err, generationdomain.ErrMissingItemID) {
		t.Fatalf("expected ErrMissingItemID, got %v", err)
	}
}

func TestGenerateNoProfile(t *testing.T) {
	f := newFixture(t)
	f.profile.err = profiledomain.ErrNoProfile

	_, err := f.svc.Generate(context.Background(), f.userID, f.request())
	if !errors.Is(err, profiledomain.ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}
	if f.llm.calls != 0 {
		t.Fatal("external service must not be called without a profile")
	}
}

func TestGenerateOwnershipIsolation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), "0b7b0a3e-58a7-4f8f-9f5e-aaaaaaaaaaaa", f.request())
	if !errors.Is(err, calendardomain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestGenerateInsufficientCreditsSkipsExternalCall(t *testing.T) {
	f := newFixture(t)
	f.credits.balance = 0

	_, err := f.svc.Generate(context.Background(), f.userID, f.request())
	var insufficient *creditsdomain.InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if insufficient.Balance != 0 || insufficient.Required != 1 {
		t.Fatalf("unexpected payload: %+v", insufficient)
	}
	if f.llm.calls != 0 {
		t.Fatal("external service must not be called with insufficient credits")
	}
}

func TestGenerateRegenerationCapBeforeCharge(t *testing.T) {
	f := newFixture(t)
	f.calendar.items[f.itemID].RegenerateCount = calendardomain.MaxRegenerations

	req := f.request()
	req.Mode = generationdomain.ModeRegenerate

	_, err := f.svc.Generate(context.Background(), f.userID, req)
	if !errors.Is(err, calendardomain.ErrRegenerationLimit) {
		t.Fatalf("expected ErrRegenerationLimit, got %v", err)
	}
	if f.credits.deductions != 0 {
		t.Fatal("a rejected regeneration must not charge credits")
	}
	if f.llm.calls != 0 {
		t.Fatal("external service must not be called past the cap")
	}
}

func TestGenerateRefundsOnServiceFailure(t *testing.T) {
	f := newFixture(t)
	f.llm.err = errors.New("upstream exploded")

	_, err := f.svc.Generate(context.Background(), f.userID, f.request())
	if !errors.Is(err, generationdomain.ErrServiceFailure) {
		t.Fatalf("expected ErrServiceFailure, got %v", err)
	}
	if f.credits.refunds != 1 || f.credits.refunded != 1 {
		t.Fatalf("expected one refund of 1 credit, got %d/%d", f.credits.refunds, f.credits.refunded)
	}
	if f.credits.balance != 30 {
		t.Fatalf("expected balance restored, got %d", f.credits.balance)
	}
}

func TestGenerateRefundsAndReleasesOnFailedRegeneration(t *testing.T) {
	f := newFixture(t)
	f.llm.response = "no json here"

	req := f.request()
	req.Mode = generationdomain.ModeRegenerate

	_, err := f.svc.Generate(context.Background(), f.userID, req)
	if !errors.Is(err, generationdomain.ErrServiceFailure) {
		t.Fatalf("expected ErrServiceFailure, got %v", err)
	}
	if f.credits.refunds != 1 {
		t.Fatalf("expected refund, got %d", f.credits.refunds)
	}
	if f.calendar.releases != 1 {
		t.Fatalf("expected regeneration slot release, got %d", f.calendar.releases)
	}
	if f.calendar.items[f.itemID].RegenerateCount != 0 {
		t.Fatalf("expected count back at 0, got %d", f.calendar.items[f.itemID].RegenerateCount)
	}
}

func TestGenerateRefundsAfterRequestCanceled(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.llm.cancel = cancel

	req := f.request()
	req.Mode = generationdomain.ModeRegenerate

	_, err := f.svc.Generate(ctx, f.userID, req)
	if !errors.Is(err, generationdomain.ErrServiceFailure) {
		t.Fatalf("expected ErrServiceFailure, got %v", err)
	}

	// Compensation must land even though the request context died with
	// the upstream call.
	if f.credits.refunds != 1 {
		t.Fatalf("expected refund despite canceled request, got %d", f.credits.refunds)
	}
	if f.credits.balance != 30 {
		t.Fatalf("expected balance restored, got %d", f.credits.balance)
	}
	if f.calendar.releases != 1 {
		t.Fatalf("expected regeneration slot release, got %d", f.calendar.releases)
	}
	if f.calendar.items[f.itemID].RegenerateCount != 0 {
		t.Fatalf("expected count back at 0, got %d", f.calendar.items[f.itemID].RegenerateCount)
	}
}

func TestGenerateOverrideTopicWins(t *testing.T) {
	f := newFixture(t)
	f.llm.response = `{"topic": "", "script": "x", "caption": "y", "hashtags": ""}`

	override := "Tema especial de festa junina"
	req := f.request()
	req.OverrideTopic = &override

	resp, err := f.svc.Generate(context.Background(), f.userID, req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Generated.Topic != override {
		t.Fatalf("expected override topic fallback, got %q", resp.Generated.Topic)
	}
}
