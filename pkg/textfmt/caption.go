package textfmt

import "strings"

// FormatCaptionForReadability removes hashtag tokens from the caption
// and reflows the rest into blank-line-separated paragraphs. Explicit
// newlines win; otherwise sentences are grouped two at a time.
func FormatCaptionForReadability(text string) string {
	clean := StripHashtags(text)
	if clean == "" {
		return ""
	}

	if strings.Contains(clean, "\n") {
		var paragraphs []string
		for _, p := range strings.Split(clean, "\n") {
			p = strings.TrimSpace(p)
			if p != "" {
				paragraphs = append(paragraphs, p)
			}
		}
		return strings.Join(paragraphs, "\n\n")
	}

	sentences := splitSentences(clean)
	var paragraphs []string
	for i := 0; i < len(sentences); i += 2 {
		end := i + 2
		if end > len(sentences) {
			end = len(sentences)
		}
		paragraphs = append(paragraphs, strings.Join(sentences[i:end], " "))
	}
	return strings.Join(paragraphs, "\n\n")
}
