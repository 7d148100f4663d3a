package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Health mirrors the /health payload.
type Health struct {
	Status        string    `json:"status" yaml:"status"`
	Service       string    `json:"service" yaml:"service"`
	Version       string    `json:"version" yaml:"version"`
	LLMConnection string    `json:"llm_connection" yaml:"llm_connection"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	Checks        map[string]struct {
		Status  string `json:"status" yaml:"status"`
		Message string `json:"message,omitempty" yaml:"message,omitempty"`
	} `json:"checks" yaml:"checks"`
}

// Client talks to a fact-check server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) CheckText(ctx context.Context, text, extra string) (*domain.Result, error) {
	body := map[string]string{"text": text}
	if extra != "" {
		body["context"] = extra
	}
	return c.postJSON(ctx, "/api/fact-check/text", body)
}

func (c *Client) CheckURL(ctx context.Context, rawURL string) (*domain.Result, error) {
	return c.postJSON(ctx, "/api/fact-check/url", map[string]string{"url": rawURL})
}

// CheckImage uploads data as multipart field "file" named after filename.
func (c *Client) CheckImage(ctx context.Context, filename string, data []byte) (*domain.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", http.DetectContentType(data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/fact-check/image", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var res domain.Result
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health returns the payload for both healthy (200) and unhealthy (503) servers.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	var h Health
	err = c.do(req, &h)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && h.Status != "" {
		return &h, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*domain.Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var res domain.Result
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do decodes a 2xx body into out. On 503 it still decodes, then returns APIError.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &body) == nil && body.Detail != "" {
			apiErr.Detail = body.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		if resp.StatusCode == http.StatusServiceUnavailable {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
