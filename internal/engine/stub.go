package engine

import (
	"context"
	"strings"

	"github.com/yangwenmai/cloudpoem/internal/prompt"
)

// StubModelClient returns canned LLM responses (for development/testing).
type StubModelClient struct{}

const stubPoem = `云在天空慢慢走
我把心事放进湖面
时光像一尾安静的鱼
游过夏日的光影
原来宁静
也是一种回答`

const stubTranslation = "Clouds drift slowly across the sky; I lay my thoughts on the lake surface. Time swims like a quiet fish through summer light and shadow. Serenity, too, is an answer."

func (m *StubModelClient) Complete(_ context.Context, chat prompt.Chat) (string, error) {
	if strings.Contains(chat.System, "翻译") {
		return stubTranslation, nil
	}
	return stubPoem, nil
}

// StubTranscriber returns a fixed transcription.
type StubTranscriber struct{}

func (StubTranscriber) Transcribe(context.Context, string, []byte) (string, error) {
	return "今天的心情很平静", nil
}
