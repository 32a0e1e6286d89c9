package textfmt

import (
	"regexp"
	"strings"
)

// sectionRule maps a recognized section keyword to its canonical heading.
// The pattern tolerates leading emoji or label noise before the keyword
// and consumes the keyword plus any trailing separator.
type sectionRule struct {
	pattern *regexp.Regexp
	heading string
}

// Ordered: first match wins per line.
var sectionRules = []sectionRule{
	{regexp.MustCompile(`(?i)^[^\p{L}\p{N}]*(gancho|hook)\b[\s:：\-–]*`), "🎣 Gancho:"},
	{regexp.MustCompile(`(?i)^[^\p{L}\p{N}]*(desenvolvimento|development)\b[\s:：\-–]*`), "🧠 Desenvolvimento:"},
	{regexp.MustCompile(`(?i)^[^\p{L}\p{N}]*(demonstra[çc][ãa]o|demonstration|exemplo|example)\b[\s:：\-–]*`), "🎬 Demonstração:"},
	{regexp.MustCompile(`(?i)^[^\p{L}\p{N}]*(cta|chamada)\b[\s:：\-–]*(final)?[\s:：\-–]*`), "📣 CTA final:"},
}

// FormatScriptForReadability reshapes a raw generated script into
// blank-line-separated blocks with canonical section headings. Lines
// matching the same section as the previous line are folded into the
// existing block instead of repeating the heading.
func FormatScriptForReadability(text string) string {
	lines := splitScriptLines(text)

	var blocks []string
	lastSection := -1
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		idx, content := matchSection(line)
		if idx < 0 {
			blocks = append(blocks, StripDecorativeEmojis(line))
			lastSection = -1
			continue
		}

		if idx == lastSection && len(blocks) > 0 {
			if content != "" {
				blocks[len(blocks)-1] += "\n" + content
			}
			continue
		}

		block := sectionRules[idx].heading
		if content != "" {
			block += " " + content
		}
		blocks = append(blocks, block)
		lastSection = idx
	}

	return strings.Join(blocks, "\n\n")
}

func matchSection(line string) (int, string) {
	for i, rule := range sectionRules {
		if loc := rule.pattern.FindStringIndex(line); loc != nil {
			content := strings.TrimSpace(line[loc[1]:])
			return i, StripDecorativeEmojis(content)
		}
	}
	return -1, ""
}

func splitScriptLines(text string) []string {
	if strings.Contains(text, "\n") {
		return strings.Split(text, "\n")
	}
	return splitSentences(text)
}

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
