// Package prompt builds the system and user instructions sent to the
// text-generation service. Everything here is deterministic.
package prompt

import (
	"fmt"
	"strings"

	profiledomain "github.com/goghstudio/gogh-backend/internal/profile/domain"
	"github.com/goghstudio/gogh-backend/internal/strategy"
)

// SplitGoals breaks the pipe-separated goals field into trimmed,
// non-empty entries.
func SplitGoals(goals string) []string {
	var out []string
	for _, goal := range strings.Split(goals, "|") {
		goal = strings.TrimSpace(goal)
		if goal != "" {
			out = append(out, goal)
		}
	}
	return out
}

// ctaRule maps goal keywords to the CTA instruction embedded in the
// prompt. Rules are tried in order; the first keyword hit wins.
type ctaRule struct {
	keywords    []string
	instruction string
}

var ctaRules = []ctaRule{
	{[]string{"venda", "site", "loja"}, "Direcione o CTA para compra ou visita ao site/loja."},
	{[]string{"essencial"}, "Direcione o CTA para conhecer melhor a marca e seus serviços."},
	{[]string{"seguidor"}, "Direcione o CTA para seguir o perfil."},
	{[]string{"engajamento"}, "Direcione o CTA para comentar e compartilhar a publicação."},
	{[]string{"whatsapp", "lead", "contato"}, "Direcione o CTA para chamar no WhatsApp ou enviar mensagem."},
	{[]string{"autoridade"}, "Direcione o CTA para salvar o conteúdo e acompanhar o especialista."},
	{[]string{"educa", "ensinar"}, "Direcione o CTA para salvar o conteúdo e aplicar o aprendizado."},
	{[]string{"lançamento", "promo"}, "Direcione o CTA com urgência para aproveitar a oferta ou lançamento."},
	{[]string{"retenção", "comunidade"}, "Direcione o CTA para participar da comunidade e voltar sempre."},
}

const defaultCTAInstruction = "Feche com um CTA claro e direto relacionado ao tema."

// MapGoalToCTA resolves the CTA instruction for the user's primary goal.
func MapGoalToCTA(goal string) string {
	goal = strings.ToLower(strings.TrimSpace(goal))
	for _, rule := range ctaRules {
		for _, kw := range rule.keywords {
			if strings.Contains(goal, kw) {
				return rule.instruction
			}
		}
	}
	return defaultCTAInstruction
}

// BuildAudienceSummary formats the audience line: numeric age range
// from extra preferences first, then the free-text audience field, then
// "não informado".
func BuildAudienceSummary(profile *profiledomain.ContentProfile) string {
	if profile != nil {
		minAge, minOK := numericPreference(profile.ExtraPreferences, "idade_minima")
		maxAge, maxOK := numericPreference(profile.ExtraPreferences, "idade_maxima")
		if minOK && maxOK && minAge > 0 && maxAge >= minAge {
			return fmt.Sprintf("%d a %d anos", minAge, maxAge)
		}
		if audience := strings.TrimSpace(profile.TargetAudience); audience != "" {
			return audience
		}
	}
	return "não informado"
}

func numericPreference(prefs map[string]any, key string) (int, bool) {
	if prefs == nil {
		return 0, false
	}
	switch v := prefs[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Input carries everything the prompt builders need.
type Input struct {
	Profile               *profiledomain.ContentProfile
	Topic                 string
	Platform              string
	Date                  string
	Strategy              strategy.Strategy
	RegenerateInstruction string
}

// BuildSystemPrompt produces the system instruction, including the
// strategy's section structure and the exact JSON shape expected back.
func BuildSystemPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("Você é um estrategista de conteúdo para pequenos negócios brasileiros. ")
	b.WriteString("Crie conteúdo pronto para publicação, em português do Brasil, com linguagem natural.\n\n")
	b.WriteString(in.Strategy.PromptInstruction)
	b.WriteString("\n\nResponda com um único objeto JSON, sem texto fora dele, no formato:\n")
	b.WriteString(`{"topic": string, "script": string, "caption": string, "hashtags": string, `)
	b.WriteString(`"recommended_time": "HH:MM", "recommended_time_reason": string, `)
	b.WriteString(`"cover_text_options": [string, string, string], `)
	b.WriteString(`"ad_copy": {"headline": string, "body": string, "cta": string}}`)
	b.WriteString("\n\nO campo script deve seguir as seções: ")
	b.WriteString(strings.Join(in.Strategy.Steps, " → "))
	b.WriteString(".")
	return b.String()
}

// BuildUserPrompt produces the user instruction from the profile and
// the calendar slot context.
func BuildUserPrompt(in Input) string {
	goals := SplitGoals(in.Profile.Goals)
	primaryGoal := ""
	if len(goals) > 0 {
		primaryGoal = goals[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Negócio: %s\n", fallback(in.Profile.BusinessName, "não informado"))
	fmt.Fprintf(&b, "Nicho: %s\n", fallback(in.Profile.Niche, "não informado"))
	fmt.Fprintf(&b, "Público: %s\n", BuildAudienceSummary(in.Profile))
	fmt.Fprintf(&b, "Tom de voz: %s\n", fallback(in.Profile.Tone, "neutro"))
	if len(goals) > 0 {
		fmt.Fprintf(&b, "Objetivos: %s\n", strings.Join(goals, ", "))
	}
	if in.Profile.Platforms != "" {
		fmt.Fprintf(&b, "Plataformas da marca: %s\n", in.Profile.Platforms)
	}
	if in.Profile.PostFrequency != "" {
		fmt.Fprintf(&b, "Frequência de postagem: %s\n", in.Profile.PostFrequency)
	}

	b.WriteString("\n")
	if in.Topic != "" {
		fmt.Fprintf(&b, "Tema do conteúdo: %s\n", in.Topic)
	} else {
		b.WriteString("Tema do conteúdo: escolha um tema relevante para o nicho.\n")
	}
	if in.Platform != "" {
		fmt.Fprintf(&b, "Plataforma de publicação: %s\n", in.Platform)
	}
	if in.Date != "" {
		fmt.Fprintf(&b, "Data planejada: %s\n", in.Date)
	}

	b.WriteString("\n")
	b.WriteString(MapGoalToCTA(primaryGoal))

	if in.RegenerateInstruction != "" {
		b.WriteString("\n\nAjuste solicitado pelo usuário: ")
		b.WriteString(in.RegenerateInstruction)
	}

	return b.String()
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
