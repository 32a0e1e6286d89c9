package service

import (
	"encoding/json"
	"strings"

	generationdomain "github.com/goghstudio/gogh-backend/internal/generation/domain"
)

// extractJSONObject cuts the substring between the first '{' and the
// last '}'. Models sometimes wrap the JSON in prose or code fences.
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// rawGenerated tolerates the field shapes models actually produce:
// hashtags as string or array, cover options as array or single string.
type rawGenerated struct {
	Topic                 string                  `json:"topic"`
	Script                string                  `json:"script"`
	Caption               string                  `json:"caption"`
	Hashtags              json.RawMessage         `json:"hashtags"`
	RecommendedTime       *string                 `json:"recommended_time"`
	RecommendedTimeReason *string                 `json:"recommended_time_reason"`
	CoverTextOptions      json.RawMessage         `json:"cover_text_options"`
	AdCopy                generationdomain.AdCopy `json:"ad_copy"`
}

func parseGeneratedContent(raw string) (*generationdomain.GeneratedContent, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, generationdomain.ErrServiceFailure
	}

	var parsed rawGenerated
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil, generationdomain.ErrServiceFailure
	}

	content := &generationdomain.GeneratedContent{
		Topic:                 strings.TrimSpace(parsed.Topic),
		Script:                parsed.Script,
		Caption:               parsed.Caption,
		Hashtags:              flattenStrings(parsed.Hashtags, " "),
		RecommendedTime:       parsed.RecommendedTime,
		RecommendedTimeReason: parsed.RecommendedTimeReason,
		CoverTextOptions:      stringList(parsed.CoverTextOptions, 3),
		AdCopy:                parsed.AdCopy,
	}
	return content, nil
}

func flattenStrings(raw json.RawMessage, sep string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, sep)
	}
	return ""
}

func stringList(raw json.RawMessage, max int) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return nil
		}
		list = []string{s}
	}
	var out []string
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == max {
			break
		}
	}
	return out
}
