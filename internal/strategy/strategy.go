// Package strategy holds the script strategies a generation run can be
// steered by. Each strategy fixes the section structure the model is
// asked to produce.
package strategy

import "strings"

type Strategy struct {
	Key               string   `json:"key"`
	Label             string   `json:"label"`
	Steps             []string `json:"steps"`
	PromptInstruction string   `json:"prompt_instruction"`
}

const DefaultKey = "educacional"

var strategies = map[string]Strategy{
	"educacional": {
		Key:   "educacional",
		Label: "Educacional",
		Steps: []string{"gancho", "desenvolvimento", "demonstracao", "cta"},
		PromptInstruction: "Estruture o roteiro em: Gancho (pergunta ou afirmação forte), " +
			"Desenvolvimento (ensine algo útil sobre o tema), Demonstração (mostre um exemplo prático) " +
			"e CTA final (convite claro para agir).",
	},
	"storytelling": {
		Key:   "storytelling",
		Label: "Storytelling",
		Steps: []string{"gancho", "desenvolvimento", "demonstracao", "cta"},
		PromptInstruction: "Conte uma história real ou plausível: Gancho (comece no momento de tensão), " +
			"Desenvolvimento (contexto e virada), Demonstração (o resultado concreto) " +
			"e CTA final (conecte a história ao convite).",
	},
	"problema_solucao": {
		Key:   "problema_solucao",
		Label: "Problema e Solução",
		Steps: []string{"gancho", "desenvolvimento", "demonstracao", "cta"},
		PromptInstruction: "Apresente um problema comum do público no Gancho, aprofunde a dor no " +
			"Desenvolvimento, mostre a solução na Demonstração e feche com CTA final direto.",
	},
	"lista_rapida": {
		Key:   "lista_rapida",
		Label: "Lista Rápida",
		Steps: []string{"gancho", "desenvolvimento", "cta"},
		PromptInstruction: "Formato de lista: Gancho anunciando o número de dicas, Desenvolvimento " +
			"com itens curtos e numerados, CTA final pedindo para salvar ou compartilhar.",
	},
}

// Resolve returns the strategy for key, falling back to the default
// when the key is empty or unknown.
func Resolve(key string) Strategy {
	key = strings.ToLower(strings.TrimSpace(key))
	if s, ok := strategies[key]; ok {
		return s
	}
	return strategies[DefaultKey]
}

// Pick resolves the effective strategy key with explicit precedence:
// the request field wins over the profile-stored key, which wins over
// the default.
func Pick(requestKey, profileKey string) Strategy {
	if strings.TrimSpace(requestKey) != "" {
		return Resolve(requestKey)
	}
	if strings.TrimSpace(profileKey) != "" {
		return Resolve(profileKey)
	}
	return Resolve(DefaultKey)
}

// Keys lists the available strategy keys.
func Keys() []string {
	keys := make([]string, 0, len(strategies))
	for k := range strategies {
		keys = append(keys, k)
	}
	return keys
}
