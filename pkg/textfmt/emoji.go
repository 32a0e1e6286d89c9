package textfmt

import "strings"

// decorative pictograph ranges; keeps letters, digits and common
// punctuation in any script.
var emojiRanges = [][2]rune{
	{0x1F300, 0x1FAFF}, // pictographs, emoticons, transport, supplemental
	{0x2600, 0x27BF},   // misc symbols and dingbats
	{0x2190, 0x21FF},   // arrows
	{0x2B00, 0x2BFF},   // misc symbols and arrows
	{0xFE00, 0xFE0F},   // variation selectors
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0x200D, 0x200D},   // zero-width joiner
}

func isDecorativeEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// StripDecorativeEmojis removes pictographic characters from text,
// leaving the surrounding whitespace normalized.
func StripDecorativeEmojis(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isDecorativeEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return collapseSpaces(b.String())
}
