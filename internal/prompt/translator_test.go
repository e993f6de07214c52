package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordTranslator_Substitutes(t *testing.T) {
	var tr KeywordTranslator
	assert.Equal(t, "serene lake surface", tr.Translate("宁静湖面"))
	assert.Equal(t, "clouds and stars", tr.Translate("云朵and星辰"))
	assert.Equal(t, "sea sea", tr.Translate("大海 海"))
}

func TestKeywordTranslator_UnmappedPassesThrough(t *testing.T) {
	var tr KeywordTranslator
	for _, in := range []string{"hello world", "  spaced   out  ", "我们走吧"} {
		assert.Equal(t, in, tr.Translate(in))
		assert.Equal(t, tr.Translate(in), tr.Translate(tr.Translate(in)))
	}
}

func TestKeywordTranslator_NormalizesLinesAfterSubstitution(t *testing.T) {
	var tr KeywordTranslator
	assert.Equal(t, "serene 的湖 远方", tr.Translate("宁静的湖\n远方"))
	assert.Equal(t, "的湖\n远方", tr.Translate("的湖\n远方"), "no keyword, no normalization")
}

func TestKeywordTranslator_EmptyDefault(t *testing.T) {
	var tr KeywordTranslator
	assert.Equal(t, DefaultTranslation, tr.Translate(""))
	assert.Equal(t, DefaultTranslation, tr.Translate("   "))
}

// Mood in, keyword fallback translation, image prompt under the cap.
func TestFallbackScenario(t *testing.T) {
	_, err := BuildPoemPrompt("平静")
	require.NoError(t, err)

	poem := "湖面宁静如镜\n云朵停在时光里\n我听见风"
	translated := KeywordTranslator{}.Translate(poem)
	assert.Contains(t, translated, "serene")
	assert.NotContains(t, translated, "宁静")

	p, err := NewBuilder(DefaultMaxLength).BuildImagePrompt(translated, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(p)), DefaultMaxLength)
	assert.True(t, strings.Contains(p, translated))
}
