package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
)

const completion = `{
  "id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "mistral-large-latest",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "{\"rating\": 7}"}}]
}`

type captured struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat json.RawMessage `json:"response_format"`
	Messages       []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func newProvider(t *testing.T, status int, body string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"object": "list", "data": []}`)
			return
		}
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzeText_RequestShape(t *testing.T) {
	var got captured
	srv := newProvider(t, http.StatusOK, completion, &got)
	c := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1/"})

	out, err := c.AnalyzeText(context.Background(), "Water boils at 100C at sea level.", domain.KindText)
	require.NoError(t, err)
	assert.Equal(t, `{"rating": 7}`, out)

	assert.Equal(t, DefaultTextModel, got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 1e-6)
	assert.Equal(t, maxTokens, got.MaxTokens)
	assert.JSONEq(t, `{"type": "json_object"}`, string(got.ResponseFormat))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, string(got.Messages[1].Content), "Water boils at 100C at sea level.")
}

func TestAnalyzeImage_SendsDataURL(t *testing.T) {
	var got captured
	srv := newProvider(t, http.StatusOK, completion, &got)
	c := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1"})

	_, err := c.AnalyzeImage(context.Background(), domain.Image{Data: []byte("img"), ContentType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, DefaultVisionModel, got.Model)
	require.Len(t, got.Messages, 2)
	var parts []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,aW1n", parts[1].ImageURL.URL)
}

func TestAnalyzeText_QuotaExceeded(t *testing.T) {
	srv := newProvider(t, http.StatusTooManyRequests, `{"error": {"message": "quota exceeded", "type": "rate_limit"}}`, nil)
	c := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1"})

	_, err := c.AnalyzeText(context.Background(), "claim", domain.KindText)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestAnalyzeText_EmptyChoices(t *testing.T) {
	srv := newProvider(t, http.StatusOK, `{"id": "x", "object": "chat.completion", "choices": []}`, nil)
	c := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1"})

	_, err := c.AnalyzeText(context.Background(), "claim", domain.KindText)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "empty response"))
}

func TestPing(t *testing.T) {
	srv := newProvider(t, http.StatusOK, completion, nil)
	c := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	assert.NoError(t, c.Ping(context.Background()))
}
