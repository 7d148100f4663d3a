package factcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/factcheck/internal/application"
	"github.com/bryanwahyu/factcheck/internal/domain/audit"
	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
)

const defaultTimeout = 60 * time.Second

// Limits bound the size of user input
type Limits struct {
	MaxTextLength       int
	MaxContextLength    int
	MaxURLContentLength int
	MaxImageBytes       int64
}

// DefaultLimits match the stock config
func DefaultLimits() Limits {
	return Limits{
		MaxTextLength:       10000,
		MaxContextLength:    1000,
		MaxURLContentLength: 10000,
		MaxImageBytes:       10 << 20,
	}
}

// Service implements the fact-check use-cases. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	Analyzer domain.Analyzer
	Fetcher  domain.PageFetcher
	Clock    application.Clock
	Limits   Limits
	// Timeout bounds each LLM call.
	Timeout time.Duration
	Logger  logrus.FieldLogger

	// optional
	Audit    audit.Repository
	Failures audit.FailureRepository
	Images   domain.ImageArchive
}

// TextInput for CheckText
type TextInput struct {
	Text    string
	Context string
}

// ImageInput for CheckImage
type ImageInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CheckText fact-checks free text, optionally with caller supplied context.
func (s *Service) CheckText(ctx context.Context, in TextInput) (*domain.Result, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, &domain.ValidationError{Field: "text", Message: "Text cannot be empty or whitespace only"}
	}
	if n := utf8.RuneCountInString(text); n > s.Limits.MaxTextLength {
		return nil, &domain.ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("must be at most %d characters, got %d", s.Limits.MaxTextLength, n),
		}
	}
	extra := strings.TrimSpace(in.Context)
	if n := utf8.RuneCountInString(extra); n > s.Limits.MaxContextLength {
		return nil, &domain.ValidationError{
			Field:   "context",
			Message: fmt.Sprintf("must be at most %d characters, got %d", s.Limits.MaxContextLength, n),
		}
	}

	content := text
	if extra != "" {
		content = fmt.Sprintf("Context: %s\n\nContent: %s", extra, text)
	}

	s.logger().WithField("input_type", domain.InputText).Info("processing text fact-check")
	res, err := s.analyze(ctx, domain.InputText, func(ctx context.Context) (string, error) {
		return s.Analyzer.AnalyzeText(ctx, content, domain.KindText)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, res, text, "")
	return res, nil
}

// CheckURL fetches the page behind rawURL and fact-checks its text.
func (s *Service) CheckURL(ctx context.Context, rawURL string) (*domain.Result, error) {
	log := s.logger().WithFields(logrus.Fields{"input_type": domain.InputURL, "url": rawURL})
	log.Info("processing url fact-check")

	page, err := s.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	page = truncateRunes(strings.TrimSpace(page), s.Limits.MaxURLContentLength)
	if page == "" {
		return nil, &domain.FetchError{URL: rawURL, Reason: "no readable content"}
	}
	log.WithField("chars", utf8.RuneCountInString(page)).Debug("fetched page content")

	res, err := s.analyze(ctx, domain.InputURL, func(ctx context.Context) (string, error) {
		return s.Analyzer.AnalyzeText(ctx, page, domain.KindWebpage)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, res, rawURL, "")
	return res, nil
}

// CheckImage fact-checks claims visible in an uploaded image. Type and size
// are enforced before the LLM is contacted.
func (s *Service) CheckImage(ctx context.Context, in ImageInput) (*domain.Result, error) {
	if len(in.Data) == 0 {
		return nil, &domain.InvalidFileError{Message: "File is empty"}
	}
	contentType := imageContentType(in.ContentType, in.Data)
	if !strings.HasPrefix(contentType, "image/") {
		s.logger().WithField("content_type", contentType).Warn("invalid file type uploaded")
		return nil, &domain.InvalidFileError{Message: "File must be an image"}
	}
	if int64(len(in.Data)) > s.Limits.MaxImageBytes {
		return nil, &domain.TooLargeError{Message: fmt.Sprintf(
			"Image size (%.2fMB) exceeds maximum allowed size (%.0fMB)",
			float64(len(in.Data))/(1<<20), float64(s.Limits.MaxImageBytes)/(1<<20),
		)}
	}

	img := domain.Image{Data: in.Data, ContentType: contentType}

	s.logger().WithFields(logrus.Fields{
		"input_type": domain.InputImage,
		"size_mb":    fmt.Sprintf("%.2f", float64(len(in.Data))/(1<<20)),
	}).Info("processing image fact-check")
	res, err := s.analyze(ctx, domain.InputImage, func(ctx context.Context) (string, error) {
		return s.Analyzer.AnalyzeImage(ctx, img)
	})
	if err != nil {
		return nil, err
	}
	imageKey := s.archive(ctx, in.Filename, img)
	s.record(ctx, res, in.Filename, imageKey)
	return res, nil
}

// analyze runs one bounded LLM call and validates the answer.
func (s *Service) analyze(ctx context.Context, inputType domain.InputType, call func(context.Context) (string, error)) (*domain.Result, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, err := call(callCtx)
	log := s.logger().WithFields(logrus.Fields{
		"input_type":  inputType,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		log.WithError(err).Error("ai analysis failed")
		return nil, &domain.UpstreamError{Err: err}
	}

	res, err := domain.ParseResult(raw, inputType, s.now())
	if err != nil {
		log.WithError(err).Error("ai response failed validation")
		return nil, &domain.UpstreamError{Err: err}
	}
	log.WithField("rating", res.Rating).Info("fact-check completed")
	return res, nil
}

// record stores the verdict when an audit store is configured. Failures are logged only.
func (s *Service) record(ctx context.Context, res *domain.Result, input, imageKey string) {
	if s.Audit == nil {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		s.logger().WithError(err).Warn("marshal verdict for audit")
		return
	}
	rec := &audit.Record{
		ID:           audit.RecordID(uuid.New().String()),
		InputType:    string(res.InputType),
		InputSummary: audit.Summarize(input),
		Rating:       res.Rating,
		Confidence:   res.Confidence,
		Result:       string(body),
		ImageKey:     imageKey,
		CreatedAt:    res.Timestamp,
	}
	if err := s.Audit.Save(ctx, rec); err != nil {
		s.logger().WithError(err).Warn("audit save failed")
	}
}

// archive keeps a copy of a checked image when an archive is configured.
// Only images with a verdict are kept so every object has an audit row.
func (s *Service) archive(ctx context.Context, filename string, img domain.Image) string {
	if s.Images == nil {
		return ""
	}
	now := s.now()
	key := fmt.Sprintf("images/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.New().String(), strings.ToLower(path.Ext(filename)))
	location, err := s.Images.Put(ctx, key, img)
	if err != nil {
		s.logger().WithError(err).Warn("image archive upload failed")
		return ""
	}
	s.logger().WithFields(logrus.Fields{"key": key, "location": location}).Debug("image archived")
	return key
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

// imageContentType trusts the declared type unless it is missing or generic.
func imageContentType(declared string, data []byte) string {
	ct := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return ct
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
