package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/cloudpoem/internal/imagegen"
	"github.com/yangwenmai/cloudpoem/internal/prompt"
)

type scriptedLLM struct {
	poem        string
	translation string
	poemErr     error
	transErr    error
	chats       []prompt.Chat
}

func (s *scriptedLLM) Complete(_ context.Context, chat prompt.Chat) (string, error) {
	s.chats = append(s.chats, chat)
	if strings.Contains(chat.System, "翻译") {
		return s.translation, s.transErr
	}
	return s.poem, s.poemErr
}

type fakeDispatcher struct {
	prompts   []string
	out       *imagegen.Outcome
	err       error
	providers []string
}

func (f *fakeDispatcher) Generate(_ context.Context, p string) (*imagegen.Outcome, error) {
	f.prompts = append(f.prompts, p)
	return f.out, f.err
}

func (f *fakeDispatcher) Providers() []string { return f.providers }

func okDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		out:       &imagegen.Outcome{Image: imagegen.Image{URL: "https://img/1.png"}, Provider: "kling"},
		providers: []string{"openai", "kling"},
	}
}

func TestGeneratePoetry(t *testing.T) {
	llm := &scriptedLLM{poem: "云在天空，\n我在等风。"}
	s := NewStudio(okDispatcher(), WithModelClient(llm))

	got, err := s.GeneratePoetry(context.Background(), "  平静  ")
	require.NoError(t, err)
	assert.Equal(t, "云在天空，\n我在等风。", got.Poetry)
	assert.Equal(t, []string{"云在天空", "我在等风"}, got.Words)
	assert.Equal(t, "平静", got.Mood)
	require.Len(t, llm.chats, 1)
	assert.Contains(t, llm.chats[0].User, "平静")
}

func TestGeneratePoetry_Errors(t *testing.T) {
	s := NewStudio(okDispatcher())
	_, err := s.GeneratePoetry(context.Background(), "平静")
	assert.ErrorIs(t, err, ErrLLMNotConfigured)

	_, err = s.GeneratePoetry(context.Background(), " ")
	var verr *prompt.ValidationError
	assert.ErrorAs(t, err, &verr, "validation happens before configuration checks")

	s = NewStudio(okDispatcher(), WithModelClient(&scriptedLLM{poemErr: errors.New("503")}))
	_, err = s.GeneratePoetry(context.Background(), "平静")
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "poem", serr.StepName())
}

func TestGenerateImage_FromPoetryWithLLM(t *testing.T) {
	llm := &scriptedLLM{translation: "light on a quiet lake"}
	disp := okDispatcher()
	s := NewStudio(disp, WithModelClient(llm), WithStyleKeywords([]string{"serene", "no text"}))

	got, err := s.GenerateImage(context.Background(), ImageRequest{Poetry: "宁静的湖"})
	require.NoError(t, err)
	assert.Equal(t, TranslatedByLLM, got.TranslationSource)
	assert.Equal(t, "https://img/1.png", got.Image.URL)
	assert.Equal(t, "kling", got.Provider)
	require.Len(t, disp.prompts, 1)
	assert.Equal(t, got.Prompt, disp.prompts[0])
	assert.Contains(t, got.Prompt, `"light on a quiet lake"`)
	assert.True(t, strings.HasSuffix(got.Prompt, "serene, no text"))
}

func TestGenerateImage_TranslationFallback(t *testing.T) {
	for name, llm := range map[string]ModelClient{
		"no llm":      nil,
		"llm error":   &scriptedLLM{transErr: errors.New("quota")},
		"empty reply": &scriptedLLM{translation: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			disp := okDispatcher()
			opts := []StudioOption{}
			if llm != nil {
				opts = append(opts, WithModelClient(llm))
			}
			s := NewStudio(disp, opts...)

			got, err := s.GenerateImage(context.Background(), ImageRequest{Poetry: "宁静的湖面"})
			require.NoError(t, err)
			assert.Equal(t, TranslatedByKeywords, got.TranslationSource)
			assert.Contains(t, got.Translated, "serene")
			assert.LessOrEqual(t, len([]rune(got.Prompt)), prompt.DefaultMaxLength)
		})
	}
}

func TestGenerateImage_DirectPrompt(t *testing.T) {
	disp := okDispatcher()
	s := NewStudio(disp)

	got, err := s.GenerateImage(context.Background(), ImageRequest{Prompt: "  <b>a   red</b> kite  "})
	require.NoError(t, err)
	assert.Equal(t, "a red kite", disp.prompts[0])
	assert.Empty(t, got.TranslationSource)
}

func TestGenerateImage_OverLengthIsAdvisory(t *testing.T) {
	disp := okDispatcher()
	s := NewStudio(disp, WithPromptBuilder(prompt.NewBuilder(10)))

	_, err := s.GenerateImage(context.Background(), ImageRequest{Prompt: "a very long prompt indeed"})
	require.NoError(t, err)
	assert.Equal(t, "a very long prompt indeed", disp.prompts[0])
}

func TestGenerateImage_Validation(t *testing.T) {
	s := NewStudio(okDispatcher())
	for _, req := range []ImageRequest{{}, {Prompt: " ", Poetry: "\n"}, {Prompt: "a", Poetry: "b"}, {Prompt: "<p></p>"}} {
		_, err := s.GenerateImage(context.Background(), req)
		var verr *prompt.ValidationError
		assert.ErrorAs(t, err, &verr, "request %+v", req)
	}
}

func TestGenerateImage_DispatchFailure(t *testing.T) {
	disp := &fakeDispatcher{err: &imagegen.Failure{Provider: "kling", Kind: imagegen.KindTimeout, Message: "slow"}, providers: []string{"kling"}}
	s := NewStudio(disp)

	_, err := s.GenerateImage(context.Background(), ImageRequest{Prompt: "kite"})
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "dispatch", serr.Step)
	assert.Equal(t, imagegen.KindTimeout, imagegen.Classify(err))
}

func TestGenerateImage_NoProviderSkipsTranslation(t *testing.T) {
	llm := &scriptedLLM{translation: "calm lake"}
	s := NewStudio(imagegen.NewDispatcher(nil), WithModelClient(llm))

	_, err := s.GenerateImage(context.Background(), ImageRequest{Poetry: "宁静的湖"})
	assert.ErrorIs(t, err, imagegen.ErrNoProvider)
	assert.Empty(t, llm.chats, "no LLM call without an image provider")
}

func TestTranscribe(t *testing.T) {
	s := NewStudio(okDispatcher())
	_, err := s.Transcribe(context.Background(), "a.webm", []byte("x"))
	assert.ErrorIs(t, err, ErrTranscriberNotConfigured)

	s = NewStudio(okDispatcher(), WithTranscriber(StubTranscriber{}))
	_, err = s.Transcribe(context.Background(), "a.webm", nil)
	var verr *prompt.ValidationError
	assert.ErrorAs(t, err, &verr)

	text, err := s.Transcribe(context.Background(), "a.webm", []byte("x"))
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestStatus(t *testing.T) {
	s := NewStudio(okDispatcher(), WithModelClient(&StubModelClient{}))
	st := s.Status()
	assert.True(t, st.LLM)
	assert.False(t, st.Transcription)
	assert.Equal(t, []string{"openai", "kling"}, st.ImageProviders)
}

func TestStubModelClient(t *testing.T) {
	var m StubModelClient
	chat, _ := prompt.BuildTranslationPrompt("云")
	got, err := m.Complete(context.Background(), chat)
	require.NoError(t, err)
	assert.Equal(t, stubTranslation, got)

	chat, _ = prompt.BuildPoemPrompt("云")
	got, _ = m.Complete(context.Background(), chat)
	assert.Equal(t, stubPoem, got)
}
