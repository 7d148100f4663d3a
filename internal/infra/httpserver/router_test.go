package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfc "github.com/bryanwahyu/factcheck/internal/application/factcheck"
	"github.com/bryanwahyu/factcheck/internal/domain/audit"
	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
	"github.com/bryanwahyu/factcheck/internal/middleware"
)

const okAnswer = `{"rating": 8.5, "confidence": 0.85, "explanation": "Mostly accurate", "analysis": "detailed",
"correct_aspects": ["Fact 1"], "incorrect_aspects": [],
"sources": [{"title": "Test Source", "url": "https://example.com", "relevance": "Primary"}]}`

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubAnalyzer struct {
	answer string
	err    error
	calls  int
}

func (s *stubAnalyzer) AnalyzeText(context.Context, string, domain.ContentKind) (string, error) {
	s.calls++
	return s.answer, s.err
}

func (s *stubAnalyzer) AnalyzeImage(context.Context, domain.Image) (string, error) {
	s.calls++
	return s.answer, s.err
}

func (s *stubAnalyzer) Ping(context.Context) error { return s.err }

type stubFetcher struct {
	page string
	err  error
}

func (f stubFetcher) Fetch(context.Context, string) (string, error) { return f.page, f.err }

type memFailures struct{ saved []*audit.Failure }

func (m *memFailures) Save(_ context.Context, f *audit.Failure) error {
	m.saved = append(m.saved, f)
	return nil
}

func (m *memFailures) Latest(context.Context, int) ([]*audit.Failure, error) { return m.saved, nil }

type memAudit struct{ saved []*audit.Record }

func (m *memAudit) Save(_ context.Context, r *audit.Record) error {
	m.saved = append(m.saved, r)
	return nil
}

func (m *memAudit) Paginate(context.Context, int, int) ([]*audit.Record, error) { return m.saved, nil }

type fixture struct {
	handler  http.Handler
	analyzer *stubAnalyzer
	svc      *appfc.Service
	failures *memFailures
}

func newFixture(t *testing.T, a *stubAnalyzer, opts ...func(*Options)) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	svc := &appfc.Service{
		Analyzer: a,
		Fetcher:  stubFetcher{page: "This is content from a webpage about science."},
		Limits:   appfc.DefaultLimits(),
		Timeout:  time.Second,
		Logger:   logger,
	}
	o := Options{
		Service:     svc,
		Logger:      logger,
		ServiceName: "Fact Checker API",
		Version:     "1.0.0",
		Checkers: map[string]middleware.HealthChecker{
			middleware.LLMCheck: middleware.CheckerFunc(a.Ping),
		},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &fixture{handler: NewRouter(o), analyzer: a, svc: svc}
}

func (f *fixture) withFailures() *fixture {
	f.failures = &memFailures{}
	f.svc.Failures = f.failures
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func imageRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/fact-check/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["detail"]
}

func TestTextEndpoint_Success(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{answer: okAnswer})
	rec := f.do(postJSON("/api/fact-check/text", `{"text": "The Earth is round and orbits the Sun."}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "text", res["input_type"])
	assert.Equal(t, 8.5, res["rating"])
	assert.Equal(t, []any{}, res["incorrect_aspects"])
	assert.NotEmpty(t, res["timestamp"])
}

func TestTextEndpoint_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"text": ""}`},
		{"whitespace", `{"text": "   \n\t  "}`},
		{"missing", `{}`},
		{"wrong type", `{"text": 42}`},
		{"malformed", `{"text": `},
		{"too long", fmt.Sprintf(`{"text": %q}`, strings.Repeat("a", 10001))},
		{"context too long", fmt.Sprintf(`{"text": "claim", "context": %q}`, strings.Repeat("c", 1001))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &stubAnalyzer{answer: okAnswer}
			f := newFixture(t, a)
			rec := f.do(postJSON("/api/fact-check/text", tt.body))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.NotEmpty(t, detail(t, rec))
			assert.Zero(t, a.calls)
		})
	}
}

func TestTextEndpoint_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		a      *stubAnalyzer
		status int
		detail string
	}{
		{"malformed json", &stubAnalyzer{answer: "Invalid JSON response"}, http.StatusInternalServerError, "AI analysis failed"},
		{"out of range", &stubAnalyzer{answer: `{"rating": 15, "confidence": 0.5, "explanation": "x", "analysis": "y"}`}, http.StatusInternalServerError, "rating"},
		{"provider down", &stubAnalyzer{err: errors.New("connection refused")}, http.StatusInternalServerError, "AI analysis failed: connection refused"},
		{"quota", &stubAnalyzer{err: fmt.Errorf("%w: slow down", domain.ErrQuotaExceeded)}, http.StatusTooManyRequests, "quota"},
		{"deadline", &stubAnalyzer{err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.a).withFailures()
			rec := f.do(postJSON("/api/fact-check/text", `{"text": "Test statement"}`))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, detail(t, rec), tt.detail)

			require.Len(t, f.failures.saved, 1)
			assert.Equal(t, tt.status, f.failures.saved[0].Status)
			assert.Equal(t, "text", f.failures.saved[0].InputType)
		})
	}
}

func TestURLEndpoint(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{answer: okAnswer})
	rec := f.do(postJSON("/api/fact-check/url", `{"url": "https://example.com/article"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"input_type":"url"`)
}

func TestURLEndpoint_RejectsBadURLs(t *testing.T) {
	for _, u := range []string{"not-a-url", "ftp://example.com", "http://127.0.0.1/admin", "http://192.168.1.1/"} {
		a := &stubAnalyzer{answer: okAnswer}
		f := newFixture(t, a)
		rec := f.do(postJSON("/api/fact-check/url", fmt.Sprintf(`{"url": %q}`, u)))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, u)
		assert.Zero(t, a.calls)
	}
}

func TestURLEndpoint_FetchFailure(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{answer: okAnswer}).withFailures()
	f.svc.Fetcher = stubFetcher{err: &domain.FetchError{URL: "https://example.com", Reason: "HTTP 404"}}

	rec := f.do(postJSON("/api/fact-check/url", `{"url": "https://example.com"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Failed to fetch URL content: HTTP 404", detail(t, rec))
	require.Len(t, f.failures.saved, 1)
	assert.Equal(t, audit.PhaseFetch, f.failures.saved[0].Phase)
}

func TestImageEndpoint(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{answer: okAnswer})
	rec := f.do(imageRequest(t, "claim.png", "image/png", pngHeader))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"input_type":"image"`)
}

func TestImageEndpoint_Rejects(t *testing.T) {
	big := append(append([]byte{}, pngHeader...), make([]byte, 10<<20)...)
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}{
		{"not an image", func(t *testing.T) *http.Request {
			return imageRequest(t, "notes.txt", "text/plain", []byte("hello"))
		}, http.StatusBadRequest},
		{"empty", func(t *testing.T) *http.Request {
			return imageRequest(t, "empty.png", "image/png", nil)
		}, http.StatusBadRequest},
		{"too large", func(t *testing.T) *http.Request {
			return imageRequest(t, "big.png", "image/png", big)
		}, http.StatusRequestEntityTooLarge},
		{"missing file", func(t *testing.T) *http.Request {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			mw.WriteField("other", "x")
			mw.Close()
			req := httptest.NewRequest(http.MethodPost, "/api/fact-check/image", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			return req
		}, http.StatusUnprocessableEntity},
		{"not multipart", func(t *testing.T) *http.Request {
			return postJSON("/api/fact-check/image", `{}`)
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &stubAnalyzer{answer: okAnswer}
			f := newFixture(t, a)
			rec := f.do(tt.req(t))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, detail(t, rec))
			assert.Zero(t, a.calls)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})
	for _, path := range []string{"/", "/health"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var h map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
		assert.Equal(t, "healthy", h["status"])
		assert.Equal(t, "Fact Checker API", h["service"])
		assert.Equal(t, "1.0.0", h["version"])
		assert.Equal(t, "connected", h["llm_connection"])
	}

	down := newFixture(t, &stubAnalyzer{err: errors.New("unreachable")})
	rec := down.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"disconnected"`)

	assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/live", nil)).Code)
	assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)
	assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{answer: okAnswer})
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/fact-check/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.svc.Audit = &memAudit{}
	require.Equal(t, http.StatusOK, f.do(postJSON("/api/fact-check/text", `{"text": "claim"}`)).Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/fact-check/history?page=1&page_size=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page audit.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 10, page.PageSize)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "claim", page.Data[0].InputSummary)
}

func TestAuditEndpointsRequireKey(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{answer: okAnswer}, func(o *Options) {
		o.AuditKeys = []string{"ops-key"}
	}).withFailures()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/fact-check/failures", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/fact-check/failures", nil)
	req.Header.Set("Authorization", "Bearer ops-key")
	rec = f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// fact-check endpoints stay open
	assert.Equal(t, http.StatusOK, f.do(postJSON("/api/fact-check/text", `{"text": "claim"}`)).Code)
}

func TestRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(60, 1)
	defer limiter.Close()
	f := newFixture(t, &stubAnalyzer{answer: okAnswer}, func(o *Options) { o.Limiter = limiter })

	assert.Equal(t, http.StatusOK, f.do(postJSON("/api/fact-check/text", `{"text": "a"}`)).Code)
	rec := f.do(postJSON("/api/fact-check/text", `{"text": "b"}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, detail(t, rec), "Rate limit")
}

func TestNotFoundAndMethod(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})
	rec := f.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detail(t, rec))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/fact-check/text", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{}, func(o *Options) { o.CORSOrigins = []string{"http://localhost:3000"} })
	req := httptest.NewRequest(http.MethodOptions, "/api/fact-check/text", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := f.do(req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
