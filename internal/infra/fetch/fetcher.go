package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
	"github.com/bryanwahyu/factcheck/internal/middleware"
)

const (
	maxBodyBytes = 5 << 20
	userAgent    = "Mozilla/5.0 (compatible; FactCheckBot/1.0)"
	cachePrefix  = "page:"
)

var errBlockedAddress = errors.New("blocked address")

// Fetcher reads the readable text behind a URL
type Fetcher struct {
	client *http.Client
	cache  *cache.Cache
	logger logrus.FieldLogger
	// guard vets every dialed "ip:port" after DNS resolution
	guard func(address string) error
}

// New creates a fetcher. A zero cacheTTL disables caching. Redirect targets
// and resolved addresses are checked so a public URL cannot reach local or
// private hosts.
func New(timeout, cacheTTL time.Duration, logger logrus.FieldLogger) *Fetcher {
	f := &Fetcher{logger: logger, guard: publicAddress}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			return f.guard(address)
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	f.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			if err := middleware.ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("%w: redirect to %s: %v", errBlockedAddress, req.URL.Host, err)
			}
			return nil
		},
	}
	if cacheTTL > 0 {
		f.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	if f.logger == nil {
		f.logger = logrus.StandardLogger()
	}
	return f
}

func publicAddress(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: unresolved host %q", errBlockedAddress, host)
	}
	if err := middleware.CheckIP(ip); err != nil {
		return fmt.Errorf("%w: %s: %v", errBlockedAddress, ip, err)
	}
	return nil
}

// Fetch returns the page text. Errors are *factcheck.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.cache != nil {
		if v, ok := f.cache.Get(cachePrefix + rawURL); ok {
			f.logger.WithField("url", rawURL).Debug("page cache hit")
			return v.(string), nil
		}
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", &domain.FetchError{URL: rawURL, Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &domain.FetchError{URL: rawURL, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	f.logger.WithField("url", rawURL).Info("fetching url content")
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, errBlockedAddress) {
			f.logger.WithField("url", rawURL).WithError(err).Warn("blocked url target")
			return "", &domain.FetchError{URL: rawURL, Reason: "URL points to a local or private address"}
		}
		if isTimeout(err) {
			f.logger.WithField("url", rawURL).Warn("timeout fetching url")
			return "", &domain.FetchError{URL: rawURL, Reason: "Request timed out"}
		}
		return "", &domain.FetchError{URL: rawURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.WithFields(logrus.Fields{"url": rawURL, "status": resp.StatusCode}).Warn("http error fetching url")
		return "", &domain.FetchError{URL: rawURL, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return "", &domain.FetchError{URL: rawURL, Reason: "Request timed out"}
		}
		return "", &domain.FetchError{URL: rawURL, Reason: err.Error()}
	}

	text := extractText(body, resp.Header.Get("Content-Type"), resp.Request.URL, pageURL)
	f.logger.WithFields(logrus.Fields{"url": rawURL, "chars": len(text)}).Info("fetched url content")

	if f.cache != nil && text != "" {
		f.cache.Set(cachePrefix+rawURL, text, cache.DefaultExpiration)
	}
	return text, nil
}

// extractText prefers the readability article, then plain body text.
func extractText(body []byte, contentType string, final, original *url.URL) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "" {
		mediaType = http.DetectContentType(body)
		mediaType, _, _ = mime.ParseMediaType(mediaType)
	}

	if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return normalizeSpace(string(body))
	}

	base := final
	if base == nil {
		base = original
	}
	if article, err := readability.FromReader(bytes.NewReader(body), base); err == nil {
		if text := normalizeSpace(article.TextContent); text != "" {
			if title := strings.TrimSpace(article.Title); title != "" && !strings.HasPrefix(text, title) {
				return title + "\n\n" + text
			}
			return text
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, svg").Remove()
	return normalizeSpace(doc.Find("body").Text())
}

// normalizeSpace collapses runs of blanks inside lines and drops empty lines.
func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
