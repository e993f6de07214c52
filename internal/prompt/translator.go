package prompt

import "strings"

// DefaultTranslation is returned when nothing usable remains after substitution.
const DefaultTranslation = "dreamy clouds, ethereal atmosphere, soft lighting"

// keywordMap is applied in order. Longer keys precede keys they contain.
var keywordMap = []struct{ from, to string }{
	{"宁静", "serene"},
	{"平静", "calm"},
	{"安静", "quiet"},
	{"温柔", "gentle"},
	{"孤独", "solitude"},
	{"思念", "longing"},
	{"快乐", "joyful"},
	{"悲伤", "melancholy"},
	{"忧伤", "wistful"},
	{"希望", "hope"},
	{"梦境", "dreamscape"},
	{"梦想", "dream"},
	{"天空", "sky"},
	{"星辰", "stars"},
	{"星空", "starry sky"},
	{"月光", "moonlight"},
	{"阳光", "sunlight"},
	{"夏日", "summer day"},
	{"微风", "breeze"},
	{"海洋", "ocean"},
	{"大海", "sea"},
	{"河流", "river"},
	{"湖面", "lake surface"},
	{"雨滴", "raindrops"},
	{"花瓣", "petals"},
	{"蝴蝶", "butterflies"},
	{"泡泡", "bubbles"},
	{"森林", "forest"},
	{"时光", "time"},
	{"岁月", "years"},
	{"情感", "emotion"},
	{"宇宙", "universe"},
	{"灵魂", "soul"},
	{"光影", "light and shadow"},
	{"云朵", "clouds"},
	{"云", "clouds"},
	{"光", "light"},
	{"水", "water"},
	{"风", "wind"},
	{"雨", "rain"},
	{"雪", "snow"},
	{"花", "flowers"},
	{"夜", "night"},
	{"海", "sea"},
}

// KeywordTranslator is the deterministic dictionary translator used when no
// LLM translation is available. It never fails.
type KeywordTranslator struct{}

// Translate replaces every mapped keyword in poem with its English term.
// Each term is padded with spaces, and when anything was replaced the whole
// result is whitespace-normalized, so line breaks become single spaces
// ("宁静的湖\n远方" gives "serene 的湖 远方"). A poem with no mapped keyword is
// returned unchanged. Empty output yields DefaultTranslation.
func (KeywordTranslator) Translate(poem string) string {
	out := poem
	replaced := false
	for _, kv := range keywordMap {
		if strings.Contains(out, kv.from) {
			out = strings.ReplaceAll(out, kv.from, " "+kv.to+" ")
			replaced = true
		}
	}
	if replaced {
		out = CleanPrompt(out)
	}
	if strings.TrimSpace(out) == "" {
		return DefaultTranslation
	}
	return out
}
