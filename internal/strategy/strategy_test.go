package strategy

import "testing"

func TestResolveUnknownFallsBackToDefault(t *testing.T) {
	s := Resolve("inexistente")
	if s.Key != DefaultKey {
		t.Fatalf("expected default strategy, got %q", s.Key)
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	s := Resolve("  Storytelling ")
	if s.Key != "storytelling" {
		t.Fatalf("expected storytelling, got %q", s.Key)
	}
}

func TestPickPrecedence(t *testing.T) {
	if got := Pick("lista_rapida", "storytelling"); got.Key != "lista_rapida" {
		t.Fatalf("request key should win, got %q", got.Key)
	}
	if got := Pick("", "storytelling"); got.Key != "storytelling" {
		t.Fatalf("profile key should win over default, got %q", got.Key)
	}
	if got := Pick("", ""); got.Key != DefaultKey {
		t.Fatalf("expected default, got %q", got.Key)
	}
}

func TestStrategiesHaveInstructionAndSteps(t *testing.T) {
	for _, key := range Keys() {
		s := Resolve(key)
		if s.PromptInstruction == "" {
			t.Fatalf("strategy %q missing prompt instruction", key)
		}
		if len(s.Steps) == 0 {
			t.Fatalf("strategy %q missing steps", key)
		}
	}
}
