package prompt

import "sort"

// styleGroups are the named keyword groups that bias the visual style.
var styleGroups = map[string][]string{
	"dreamcore": {"dreamy", "ethereal", "surreal", "otherworldly", "dreamcore"},
	"summer":    {"summer", "warm", "bright", "vibrant", "luminous"},
	"fuji":      {"fuji photography", "artistic", "cinematic", "photographic"},
	"fresh":     {"fresh", "clean", "pure", "crisp", "bright"},
	"quiet":     {"serene", "peaceful", "tranquil", "calm", "quiet"},
	"cinematic": {"cinematic", "dramatic", "filmic", "movie-like"},
	"noText":    {"no text", "no words", "pure visual art", "no typography"},
}

// StyleGroups returns the known group names in sorted order.
func StyleGroups() []string {
	names := make([]string, 0, len(styleGroups))
	for name := range styleGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StyleKeywords expands group names into keywords, keeping first-seen order
// and dropping duplicates. Unknown groups are reported in the second result.
func StyleKeywords(groups ...string) (keywords []string, unknown []string) {
	seen := make(map[string]bool)
	for _, g := range groups {
		kws, ok := styleGroups[g]
		if !ok {
			unknown = append(unknown, g)
			continue
		}
		for _, kw := range kws {
			if !seen[kw] {
				seen[kw] = true
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords, unknown
}
