// Package prompt builds the three text artifacts of a generation request:
// the poem prompt, the translation prompt and the image prompt.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the advisory character cap for image prompts.
const DefaultMaxLength = 2500

// Chat is a system persona plus a user instruction for an LLM call.
type Chat struct {
	System string
	User   string
}

// ValidationError reports a missing or malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LengthError reports a prompt above the cap. It is advisory: the prompt is
// still returned and callers log it instead of aborting.
type LengthError struct {
	Length int
	Max    int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("prompt length %d exceeds cap %d", e.Length, e.Max)
}

const poemSystem = "你是一位现代中文诗人，擅长创作富有哲学意味的现代诗。你的诗歌语言简洁有力，意象丰富，常常探讨存在、时间、情感等深层主题。你善于将个人情感与普遍的人性思考相结合，创作出既有个人色彩又有普遍意义的现代诗歌。"

const poemUser = `根据用户的心情"%s"，创作一首现代中文诗歌。要求：
1. 诗歌要体现用户的心情和感受，但要有哲学深度
2. 使用现代诗的格式，语言简洁有力
3. 融入哲学思考，探讨存在、时间、情感等主题
4. 要有意象的运用，但不要过于晦涩
5. 长度适中，4-6句为宜
6. 体现现代人的情感体验和思考
7. 可以包含对生活、人性、宇宙的思考
8. 语言要有诗意，但保持现代感`

const translationSystem = "你是一个专业的诗歌翻译专家。请将中文诗歌翻译成优美的英文，并提取其中的视觉意象和情感色彩，适合作为AI图片生成的提示词。翻译要简洁、优雅，突出视觉元素，并融入dreamcore、夏日、清新、宁静、电影感、摄影感等关键词。"

const translationUser = "请将以下中文诗歌翻译成英文，并提取视觉意象，使其适合生成一张具有\"很美、很安静、电影感、摄影感、清新的dreamcore夏日fuji摄影文艺风格\"的图片，图片中不能出现任何文字。\n\n%s"

const imageTemplate = `a poetic cinematic photo of water and light, reflecting on translucent surfaces with sparkling highlights, clean atmosphere, soft natural color grading, dreamy and minimal, with floating elements like bubbles, petals or butterflies, in the style of a Japanese indie film, highly detailed, shot on 50mm f/1.4 lens, Fujifilm Pro 400H color palette, bokeh, overexposed sunlight, shallow depth of field, melancholic but peaceful. Inspired by the poem: "%s"`

// BuildPoemPrompt returns the poet persona and an instruction embedding mood.
func BuildPoemPrompt(mood string) (Chat, error) {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return Chat{}, &ValidationError{Field: "mood", Message: "must not be empty"}
	}
	return Chat{System: poemSystem, User: fmt.Sprintf(poemUser, mood)}, nil
}

// BuildTranslationPrompt asks for a concise English rendering of poem with
// visual keywords suitable for image generation.
func BuildTranslationPrompt(poem string) (Chat, error) {
	poem = strings.TrimSpace(poem)
	if poem == "" {
		return Chat{}, &ValidationError{Field: "poetry", Message: "must not be empty"}
	}
	return Chat{System: translationSystem, User: fmt.Sprintf(translationUser, poem)}, nil
}

// Builder assembles image prompts against a length cap.
type Builder struct {
	MaxLength int
}

// NewBuilder returns a Builder; a non-positive maxLength selects DefaultMaxLength.
func NewBuilder(maxLength int) *Builder {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Builder{MaxLength: maxLength}
}

// BuildImagePrompt interpolates translated into the cinematic template and
// appends styleKeywords comma-joined. The result is HTML-free and
// whitespace-normalized. A *LengthError is returned alongside the prompt
// when it is over the cap; the prompt is never truncated.
func (b *Builder) BuildImagePrompt(translated string, styleKeywords []string) (string, error) {
	p := fmt.Sprintf(imageTemplate, CleanPrompt(StripHTML(translated)))
	if len(styleKeywords) > 0 {
		p = BuildCustomPrompt(p, styleKeywords)
	}
	return b.Clean(p)
}

// Clean strips HTML and normalizes whitespace in a caller-supplied prompt,
// then checks it against the cap like BuildImagePrompt.
func (b *Builder) Clean(p string) (string, error) {
	p = CleanPrompt(StripHTML(p))
	if err := ValidateLength(p, b.MaxLength); err != nil {
		return p, err
	}
	return p, nil
}

// BuildCustomPrompt appends keywords to base, comma-joined.
func BuildCustomPrompt(base string, keywords []string) string {
	return base + " " + strings.Join(keywords, ", ")
}

// CleanPrompt collapses whitespace runs to a single space and trims.
func CleanPrompt(p string) string {
	return strings.Join(strings.Fields(p), " ")
}

// ValidateLength returns a *LengthError when p has more than max characters.
func ValidateLength(p string, max int) error {
	if max <= 0 {
		max = DefaultMaxLength
	}
	if n := utf8.RuneCountInString(p); n > max {
		return &LengthError{Length: n, Max: max}
	}
	return nil
}

// Preview shortens s to maxRunes runes for logging.
func Preview(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}
