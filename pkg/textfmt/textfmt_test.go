package textfmt

import (
	"strings"
	"testing"
)

func TestNormalizeHashtagsDeduplicatesAndLowercases(t *testing.T) {
	got := NormalizeHashtags("#Vendas #vendas #PROMO Confira nossa #promo hoje")
	if got != "#vendas #promo" {
		t.Fatalf("unexpected hashtags: %q", got)
	}
}

func TestNormalizeHashtagsIsIdempotent(t *testing.T) {
	inputs := []string{
		"#Vendas #vendas #PROMO",
		"#marketing_digital #Conteúdo #conteúdo texto solto",
		"sem hashtags aqui",
		"",
	}
	for _, in := range inputs {
		once := NormalizeHashtags(in)
		twice := NormalizeHashtags(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeHashtagsKeepsFirstAppearanceOrder(t *testing.T) {
	got := NormalizeHashtags("#b #A #a #B #c")
	if got != "#b #a #c" {
		t.Fatalf("unexpected order: %q", got)
	}
}

func TestStripHashtagsRemovesAllTokens(t *testing.T) {
	inputs := []string{
		"Confira nossa #promo hoje #vendas",
		"#só #hashtags",
		"linha um #tag\nlinha dois #outra",
	}
	for _, in := range inputs {
		got := StripHashtags(in)
		if strings.Contains(got, "#") {
			t.Fatalf("hashtag survived in %q", got)
		}
	}
}

func TestFormatCaptionNeverContainsHashtags(t *testing.T) {
	got := FormatCaptionForReadability("Confira nossa #promo hoje. Vem com a gente #vendas!")
	if strings.Contains(got, "#") {
		t.Fatalf("caption still has hashtag: %q", got)
	}
}

func TestFormatCaptionGroupsSentencesInPairs(t *testing.T) {
	got := FormatCaptionForReadability("Primeira frase. Segunda frase. Terceira frase.")
	paragraphs := strings.Split(got, "\n\n")
	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(paragraphs), got)
	}
	if !strings.Contains(paragraphs[0], "Primeira") || !strings.Contains(paragraphs[0], "Segunda") {
		t.Fatalf("first paragraph should hold two sentences: %q", paragraphs[0])
	}
}

func TestFormatCaptionUsesExplicitNewlines(t *testing.T) {
	got := FormatCaptionForReadability("Parágrafo um.\nParágrafo dois.")
	if got != "Parágrafo um.\n\nParágrafo dois." {
		t.Fatalf("unexpected caption: %q", got)
	}
}

func TestFormatScriptCanonicalHeadings(t *testing.T) {
	raw := "Gancho: pergunta forte\nDesenvolvimento: explica o problema\nCTA: chama para ação"
	got := FormatScriptForReadability(raw)

	blocks := strings.Split(got, "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %q", len(blocks), got)
	}
	for i, prefix := range []string{"🎣 Gancho:", "🧠 Desenvolvimento:", "📣 CTA final:"} {
		if !strings.HasPrefix(blocks[i], prefix) {
			t.Fatalf("block %d missing heading %q: %q", i, prefix, blocks[i])
		}
	}
	if !strings.Contains(blocks[0], "pergunta forte") {
		t.Fatalf("hook content lost: %q", blocks[0])
	}
}

func TestFormatScriptCollapsesConsecutiveSameSection(t *testing.T) {
	raw := "Gancho: primeira chamada\nGancho: segunda chamada\nCTA: finaliza"
	got := FormatScriptForReadability(raw)

	if strings.Count(got, "🎣 Gancho:") != 1 {
		t.Fatalf("expected a single hook heading: %q", got)
	}
	if !strings.Contains(got, "primeira chamada") || !strings.Contains(got, "segunda chamada") {
		t.Fatalf("collapsed block lost content: %q", got)
	}
}

func TestFormatScriptStripsLabelNoise(t *testing.T) {
	raw := "🔥 GANCHO - pergunta forte\nDemonstração: mostra o produto"
	got := FormatScriptForReadability(raw)

	if !strings.Contains(got, "🎣 Gancho: pergunta forte") {
		t.Fatalf("noisy hook label not normalized: %q", got)
	}
	if !strings.Contains(got, "🎬 Demonstração: mostra o produto") {
		t.Fatalf("demonstration heading missing: %q", got)
	}
}

func TestFormatScriptSentenceFallback(t *testing.T) {
	raw := "Abra com uma pergunta. Explique o problema. Chame para ação."
	got := FormatScriptForReadability(raw)

	blocks := strings.Split(got, "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("expected sentence-split blocks, got %d: %q", len(blocks), got)
	}
}

func TestStripDecorativeEmojis(t *testing.T) {
	got := StripDecorativeEmojis("🔥 Promoção imperdível 🚀 hoje!")
	if got != "Promoção imperdível hoje!" {
		t.Fatalf("unexpected result: %q", got)
	}
}
