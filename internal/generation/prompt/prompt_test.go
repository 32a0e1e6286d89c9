package prompt

import (
	"strings"
	"testing"

	profiledomain "github.com/goghstudio/gogh-backend/internal/profile/domain"
	"github.com/goghstudio/gogh-backend/internal/strategy"
)

func TestSplitGoals(t *testing.T) {
	got := SplitGoals("vendas | seguidores||engajamento ")
	want := []string{"vendas", "seguidores", "engajamento"}
	if len(got) != len(want) {
		t.Fatalf("expected %d goals, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("goal %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if SplitGoals("") != nil {
		t.Fatal("expected nil for empty goals")
	}
}

func TestMapGoalToCTAPriority(t *testing.T) {
	cases := []struct {
		goal string
		want string
	}{
		{"vendas no site", "compra ou visita"},
		{"presença essencial", "conhecer melhor a marca"},
		{"mais seguidores", "seguir o perfil"},
		{"engajamento", "comentar e compartilhar"},
		{"leads no whatsapp", "WhatsApp"},
		{"autoridade no nicho", "salvar o conteúdo"},
		{"educação financeira", "aplicar o aprendizado"},
		{"lançamento do curso", "urgência"},
		{"comunidade fiel", "participar da comunidade"},
		{"outra coisa", "CTA claro e direto"},
	}
	for _, tc := range cases {
		got := MapGoalToCTA(tc.goal)
		if !strings.Contains(got, tc.want) {
			t.Fatalf("goal %q: expected instruction containing %q, got %q", tc.goal, tc.want, got)
		}
	}
}

func TestBuildAudienceSummary(t *testing.T) {
	withAges := &profiledomain.ContentProfile{
		TargetAudience: "mulheres empreendedoras",
		ExtraPreferences: map[string]any{
			"idade_minima": float64(25),
			"idade_maxima": float64(40),
		},
	}
	if got := BuildAudienceSummary(withAges); got != "25 a 40 anos" {
		t.Fatalf("expected age range, got %q", got)
	}

	freeText := &profiledomain.ContentProfile{TargetAudience: "mulheres empreendedoras"}
	if got := BuildAudienceSummary(freeText); got != "mulheres empreendedoras" {
		t.Fatalf("expected free text fallback, got %q", got)
	}

	if got := BuildAudienceSummary(&profiledomain.ContentProfile{}); got != "não informado" {
		t.Fatalf("expected final fallback, got %q", got)
	}
}

func TestBuildPromptsAreDeterministic(t *testing.T) {
	in := Input{
		Profile: &profiledomain.ContentProfile{
			BusinessName: "Doceria da Ana",
			Niche:        "confeitaria",
			Tone:         "descontraído",
			Goals:        "vendas|seguidores",
		},
		Topic:    "Bolo de pote",
		Platform: "instagram",
		Date:     "2026-09-10",
		Strategy: strategy.Resolve("educacional"),
	}

	first := BuildSystemPrompt(in) + BuildUserPrompt(in)
	second := BuildSystemPrompt(in) + BuildUserPrompt(in)
	if first != second {
		t.Fatal("prompt construction must be deterministic")
	}

	user := BuildUserPrompt(in)
	for _, fragment := range []string{"Doceria da Ana", "Bolo de pote", "instagram", "2026-09-10", "compra ou visita"} {
		if !strings.Contains(user, fragment) {
			t.Fatalf("user prompt missing %q:\n%s", fragment, user)
		}
	}

	system := BuildSystemPrompt(in)
	if !strings.Contains(system, "gancho → desenvolvimento") {
		t.Fatalf("system prompt missing strategy steps:\n%s", system)
	}
	if !strings.Contains(system, `"ad_copy"`) {
		t.Fatalf("system prompt missing expected JSON shape:\n%s", system)
	}
}
