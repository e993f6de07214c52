package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageServer(t *testing.T, status int, body string, check func(*http.Request, imageRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req imageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_URL(t *testing.T) {
	srv := newImageServer(t, http.StatusOK, `{"data":[{"url":"https://img.example/1.png"}]}`, func(r *http.Request, req imageRequest) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "dall-e-3", req.Model)
		assert.Equal(t, 1, req.N)
		assert.Equal(t, "1024x1024", req.Size)
		assert.Equal(t, "standard", req.Quality)
		assert.Equal(t, "clouds", req.Prompt)
	})

	p := NewOpenAIProvider("sk-test", true, WithOpenAIBaseURL(srv.URL+"/"))
	img, err := p.Attempt(context.Background(), "clouds")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", img.URL)
	assert.Equal(t, img.URL, img.Locator())
	assert.False(t, img.Inline())
}

func TestOpenAIProvider_B64(t *testing.T) {
	srv := newImageServer(t, http.StatusOK, `{"data":[{"b64_json":"aGVsbG8="}]}`, nil)

	p := NewOpenAIProvider("sk-test", true, WithOpenAIBaseURL(srv.URL), WithImageStyle("natural"))
	img, err := p.Attempt(context.Background(), "clouds")
	require.NoError(t, err)
	assert.True(t, img.Inline())
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", img.Locator())
}

func TestOpenAIProvider_ErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantMsg  string
	}{
		{"quota", 429, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, KindQuotaExceeded, "You exceeded your current quota"},
		{"rate limit", 429, `{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`, KindRateLimit, "slow down"},
		{"bad key", 401, `{"error":{"message":"Incorrect API key","code":"invalid_api_key"}}`, KindAuthentication, "Incorrect API key"},
		{"html outage", 502, `<html>bad gateway</html>`, KindUnavailable, "<html>bad gateway</html>"},
		{"empty data", 200, `{"data":[]}`, KindUnknown, "no image in response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newImageServer(t, tt.status, tt.body, nil)
			p := NewOpenAIProvider("sk-test", true, WithOpenAIBaseURL(srv.URL))

			_, err := p.Attempt(context.Background(), "clouds")
			var f *Failure
			require.ErrorAs(t, err, &f)
			assert.Equal(t, "openai", f.Provider)
			assert.Equal(t, tt.wantKind, f.Kind)
			assert.Equal(t, tt.wantMsg, f.Message)
		})
	}
}

func TestOpenAIProvider_NoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", true, WithOpenAIBaseURL(srv.URL))
	_, err := p.Attempt(context.Background(), "clouds")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOpenAIProvider_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOpenAIProvider("sk-test", true, WithOpenAIBaseURL(url))
	_, err := p.Attempt(context.Background(), "clouds")
	assert.Equal(t, KindNetwork, Classify(err))
}
