package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yangwenmai/cloudpoem/internal/prompt"
)

func TestMain(m *testing.M) {
	retryBackoff = time.Millisecond
	os.Exit(m.Run())
}

var testChat = prompt.Chat{System: "you are a poet", User: "write about rain"}

func chatOK(content string) chatResponse {
	return chatResponse{
		Choices: []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{
			{Message: struct {
				Content string `json:"content"`
			}{Content: content}},
		},
	}
}

func TestNewOpenAIClient_Defaults(t *testing.T) {
	c := NewOpenAIClient("sk-test")

	if c.apiKey != "sk-test" {
		t.Errorf("apiKey = %q, want %q", c.apiKey, "sk-test")
	}
	if c.model != "gpt-3.5-turbo" {
		t.Errorf("model = %q, want %q", c.model, "gpt-3.5-turbo")
	}
	if c.baseURL != "https://api.openai.com/v1" {
		t.Errorf("baseURL = %q, want default OpenAI URL", c.baseURL)
	}
	if c.temperature != 0.8 || c.maxTokens != 500 {
		t.Errorf("sampling = (%v, %d), want (0.8, 500)", c.temperature, c.maxTokens)
	}
}

func TestNewOpenAIClient_WithOptions(t *testing.T) {
	c := NewOpenAIClient("sk-test",
		WithModel("gpt-4o-mini"),
		WithBaseURL("https://proxy.example/v1/"),
		WithTimeout(5*time.Second),
	)

	if c.model != "gpt-4o-mini" {
		t.Errorf("model = %q, want %q", c.model, "gpt-4o-mini")
	}
	if c.baseURL != "https://proxy.example/v1" {
		t.Errorf("baseURL = %q, trailing slash should be trimmed", c.baseURL)
	}
	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", c.httpClient.Timeout)
	}
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-mock" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer sk-mock")
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("request model = %q, want %q", req.Model, "test-model")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "write about rain" {
			t.Errorf("messages = %+v, want system then user", req.Messages)
		}
		if req.MaxTokens != 500 {
			t.Errorf("max_tokens = %d, want 500", req.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatOK("  雨落在窗前  \n"))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-mock", WithModel("test-model"), WithBaseURL(srv.URL))
	got, err := c.Complete(context.Background(), testChat)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "雨落在窗前" {
		t.Errorf("Complete = %q, want %q", got, "雨落在窗前")
	}
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("bad-key", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), testChat)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), testChat)
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestComplete_RetryOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("server error"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatOK("recovered"))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	got, err := c.Complete(context.Background(), testChat)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "recovered" {
		t.Errorf("Complete = %q, want %q", got, "recovered")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestComplete_NoRetryOn4xx(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), testChat)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (should not retry 4xx)", attempts)
	}
}

func TestWhisperTranscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q, want whisper-1", got)
		}
		if got := r.FormValue("language"); got != "zh" {
			t.Errorf("language = %q, want zh", got)
		}
		_, fh, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if fh.Filename != "voice.m4a" || fh.Size != 4 {
			t.Errorf("file = %s (%d bytes), want voice.m4a (4 bytes)", fh.Filename, fh.Size)
		}
		w.Write([]byte(`{"text":" 今天有点累 "}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber("sk-test", srv.URL, "")
	got, err := tr.Transcribe(context.Background(), "voice.m4a", []byte("RIFF"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "今天有点累" {
		t.Errorf("Transcribe = %q, want %q", got, "今天有点累")
	}
}

func TestWhisperTranscriber_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber("sk-test", srv.URL, "whisper-1")
	if _, err := tr.Transcribe(context.Background(), "", []byte("x")); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

// loadTestEnvFile is a test helper that loads KEY=VALUE pairs from a file
// into env vars (only if not already set). Returns true if the file was found.
func loadTestEnvFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
	return true
}

// TestIntegration_Poem writes a real poem using .env.local config.
// Run explicitly:  go test ./internal/engine/ -run TestIntegration -v
func TestIntegration_Poem(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !loadTestEnvFile("../../.env.local") {
		t.Skip("skipping: ../../.env.local not found")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" || apiKey == "your_openai_api_key_here" {
		t.Skip("skipping: OPENAI_API_KEY not set")
	}
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	chat, err := prompt.BuildPoemPrompt("平静")
	if err != nil {
		t.Fatal(err)
	}
	c := NewOpenAIClient(apiKey, WithBaseURL(baseURL))
	got, err := c.Complete(context.Background(), chat)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	t.Logf("Poem:\n%s", got)
	if len(got) == 0 {
		t.Error("expected non-empty poem")
	}
}
