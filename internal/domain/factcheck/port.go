package factcheck

import "context"

// Analyzer port (interface to the LLM provider). Implementations return the
// raw model text; validation happens in ParseResult.
type Analyzer interface {
	AnalyzeText(ctx context.Context, content string, kind ContentKind) (string, error)
	AnalyzeImage(ctx context.Context, img Image) (string, error)
	Ping(ctx context.Context) error
}

// PageFetcher port (interface for reading the text behind a URL)
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// ImageArchive port (interface for keeping a copy of uploaded images)
type ImageArchive interface {
	Put(ctx context.Context, key string, img Image) (string, error)
}
