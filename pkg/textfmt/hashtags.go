// Package textfmt holds the pure text transforms applied to generated
// content before persistence: hashtag normalization, caption paragraphing
// and script section formatting.
package textfmt

import (
	"regexp"
	"strings"
)

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// NormalizeHashtags extracts every hashtag token from text, lowercases
// them, removes duplicates keeping first-appearance order and returns
// them space-separated.
func NormalizeHashtags(text string) string {
	seen := make(map[string]struct{})
	var tags []string
	for _, tag := range hashtagPattern.FindAllString(text, -1) {
		tag = strings.ToLower(tag)
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return strings.Join(tags, " ")
}

// StripHashtags removes every hashtag token from text and collapses the
// whitespace left behind.
func StripHashtags(text string) string {
	out := hashtagPattern.ReplaceAllString(text, "")
	return collapseSpaces(out)
}

var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

func collapseSpaces(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
