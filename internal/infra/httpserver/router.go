package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	appfc "github.com/bryanwahyu/factcheck/internal/application/factcheck"
	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
	"github.com/bryanwahyu/factcheck/internal/middleware"
)

const (
	maxJSONBody     = 1 << 20
	multipartMemory = 32 << 20
)

// Options wire the router. Limiter and AuditKeys are optional.
type Options struct {
	Service     *appfc.Service
	Logger      logrus.FieldLogger
	ServiceName string
	Version     string
	Checkers    map[string]middleware.HealthChecker
	CORSOrigins []string
	Limiter     *middleware.RateLimiter
	AuditKeys   []string
}

type Router struct {
	svc    *appfc.Service
	logger logrus.FieldLogger
}

func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Router{svc: opts.Service, logger: logger}
	mux := chi.NewRouter()

	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	health := middleware.HealthHandler(opts.ServiceName, opts.Version, opts.Checkers)
	mux.Get("/", health)
	mux.Get("/health", health)
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api/fact-check", func(rt chi.Router) {
		rt.Post("/text", r.wrap(r.handleText))
		rt.Post("/url", r.wrap(r.handleURL))
		rt.Post("/image", r.wrap(r.handleImage))

		rt.Group(func(g chi.Router) {
			g.Use(middleware.APIKeyAuth(opts.AuditKeys))
			g.Get("/history", r.wrap(r.handleHistory))
			g.Get("/failures", r.wrap(r.handleFailures))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// checkFailure carries the input of a failed check so wrap can log it.
type checkFailure struct {
	inputType domain.InputType
	input     string
	err       error
}

func (c *checkFailure) Error() string { return c.err.Error() }
func (c *checkFailure) Unwrap() error { return c.err }

func failed(t domain.InputType, input string, err error) error {
	return &checkFailure{inputType: t, input: input, err: err}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, detail := statusFor(err)

		var cf *checkFailure
		if errors.As(err, &cf) {
			middleware.IncrementChecksFailed()
			if domain.IsUpstream(err) {
				middleware.IncrementUpstreamFailed()
			}
			r.svc.RecordFailure(req.Context(), cf.inputType, cf.input, cf.err, status)
		}

		entry := r.logger.WithFields(logrus.Fields{
			"request_id": middleware.RequestID(req.Context()),
			"status":     status,
		}).WithError(err)
		if status >= 500 {
			entry.Error("request failed")
		} else {
			entry.Warn("request rejected")
		}
		writeDetail(w, status, detail)
	}
}

// statusFor maps domain errors to HTTP statuses and the detail message.
func statusFor(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit)
	case domain.IsValidation(err):
		return http.StatusUnprocessableEntity, err.Error()
	case domain.IsFetch(err), domain.IsInvalidFile(err):
		return http.StatusBadRequest, err.Error()
	case domain.IsTooLarge(err):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, appfc.ErrAuditDisabled):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "AI service quota exceeded. Please try again later."
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "AI analysis timed out"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// POST /api/fact-check/text
// Body: {"text": "...", "context": "..."}
func (r *Router) handleText(w http.ResponseWriter, req *http.Request) error {
	middleware.IncrementChecks(string(domain.InputText))
	var body struct {
		Text    *string `json:"text"`
		Context *string `json:"context"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return failed(domain.InputText, "", err)
	}
	if body.Text == nil {
		return failed(domain.InputText, "", &domain.ValidationError{Field: "text", Message: "field required"})
	}
	in := appfc.TextInput{Text: middleware.SanitizeString(*body.Text)}
	if body.Context != nil {
		in.Context = middleware.SanitizeString(*body.Context)
	}

	res, err := r.svc.CheckText(req.Context(), in)
	if err != nil {
		return failed(domain.InputText, in.Text, err)
	}
	return writeJSON(w, http.StatusOK, res)
}

// POST /api/fact-check/url
// Body: {"url": "https://..."}
func (r *Router) handleURL(w http.ResponseWriter, req *http.Request) error {
	middleware.IncrementChecks(string(domain.InputURL))
	var body struct {
		URL *string `json:"url"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return failed(domain.InputURL, "", err)
	}
	if body.URL == nil {
		return failed(domain.InputURL, "", &domain.ValidationError{Field: "url", Message: "field required"})
	}
	if err := middleware.ValidateURL(*body.URL); err != nil {
		return failed(domain.InputURL, *body.URL, &domain.ValidationError{Field: "url", Message: err.Error()})
	}

	res, err := r.svc.CheckURL(req.Context(), *body.URL)
	if err != nil {
		return failed(domain.InputURL, *body.URL, err)
	}
	return writeJSON(w, http.StatusOK, res)
}

// POST /api/fact-check/image
// multipart/form-data with the picture in field "file"
func (r *Router) handleImage(w http.ResponseWriter, req *http.Request) error {
	middleware.IncrementChecks(string(domain.InputImage))
	req.Body = http.MaxBytesReader(w, req.Body, r.svc.Limits.MaxImageBytes+maxJSONBody)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return failed(domain.InputImage, "", &domain.TooLargeError{Message: fmt.Sprintf(
				"Image size exceeds maximum allowed size (%.0fMB)", float64(r.svc.Limits.MaxImageBytes)/(1<<20))})
		}
		return failed(domain.InputImage, "", &domain.ValidationError{Field: "file", Message: "multipart form required"})
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return failed(domain.InputImage, "", &domain.ValidationError{Field: "file", Message: "field required"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return failed(domain.InputImage, header.Filename, err)
	}

	res, err := r.svc.CheckImage(req.Context(), appfc.ImageInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return failed(domain.InputImage, header.Filename, err)
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/fact-check/history?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.svc.History(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/fact-check/failures?limit=20
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.svc.RecentFailures(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &domain.ValidationError{Field: typeErr.Field, Message: "invalid type: got " + typeErr.Value}
		}
		return &domain.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	_ = writeJSON(w, status, map[string]string{"detail": detail})
}
