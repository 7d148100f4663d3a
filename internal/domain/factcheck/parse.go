package factcheck

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

const fence = "```"

// wire shape of the model output; pointers tell "missing" apart from zero
type rawResult struct {
	Rating           *float64    `json:"rating"`
	Confidence       *float64    `json:"confidence"`
	Explanation      *string     `json:"explanation"`
	Analysis         *string     `json:"analysis"`
	CorrectAspects   []string    `json:"correct_aspects"`
	IncorrectAspects []string    `json:"incorrect_aspects"`
	Sources          []rawSource `json:"sources"`
}

type rawSource struct {
	Title     *string `json:"title"`
	URL       *string `json:"url"`
	Relevance *string `json:"relevance"`
}

// ParseResult turns raw LLM text into a Result. Any schema violation returns
// a *SchemaError and a nil result.
func ParseResult(raw string, inputType InputType, at time.Time) (*Result, error) {
	if !inputType.Valid() {
		return nil, fmt.Errorf("unknown input type %q", inputType)
	}

	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, &SchemaError{Reason: "empty response from AI"}
	}
	if !strings.HasPrefix(cleaned, "{") {
		return nil, &SchemaError{Reason: "response is not a JSON object"}
	}

	var r rawResult
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &SchemaError{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("has wrong type (got %s, want %s)", typeErr.Value, typeErr.Type),
			}
		}
		return nil, &SchemaError{Reason: "invalid JSON response from AI"}
	}

	if err := checkRange("rating", r.Rating, MinRating, MaxRating); err != nil {
		return nil, err
	}
	if err := checkRange("confidence", r.Confidence, MinConfidence, MaxConfidence); err != nil {
		return nil, err
	}
	if r.Explanation == nil {
		return nil, &SchemaError{Field: "explanation", Reason: "is required"}
	}
	if r.Analysis == nil {
		return nil, &SchemaError{Field: "analysis", Reason: "is required"}
	}

	sources := make([]Source, 0, len(r.Sources))
	for i, s := range r.Sources {
		src, err := s.toSource(i)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return &Result{
		Rating:           *r.Rating,
		Explanation:      strings.TrimSpace(*r.Explanation),
		Confidence:       *r.Confidence,
		Analysis:         strings.TrimSpace(*r.Analysis),
		CorrectAspects:   compact(r.CorrectAspects),
		IncorrectAspects: compact(r.IncorrectAspects),
		Sources:          sources,
		Timestamp:        at.UTC(),
		InputType:        inputType,
	}, nil
}

func checkRange(field string, v *float64, lo, hi float64) error {
	if v == nil {
		return &SchemaError{Field: field, Reason: "is required"}
	}
	if math.IsNaN(*v) || *v < lo || *v > hi {
		return &SchemaError{Field: field, Reason: fmt.Sprintf("must be between %g and %g, got %g", lo, hi, *v)}
	}
	return nil
}

func (s rawSource) toSource(i int) (Source, error) {
	field := func(name string) string { return fmt.Sprintf("sources[%d].%s", i, name) }
	if s.Title == nil {
		return Source{}, &SchemaError{Field: field("title"), Reason: "is required"}
	}
	if s.URL == nil {
		return Source{}, &SchemaError{Field: field("url"), Reason: "is required"}
	}
	if s.Relevance == nil {
		return Source{}, &SchemaError{Field: field("relevance"), Reason: "is required"}
	}
	return Source{
		Title:     strings.TrimSpace(*s.Title),
		URL:       strings.TrimSpace(*s.URL),
		Relevance: strings.TrimSpace(*s.Relevance),
	}, nil
}

// compact trims entries and drops blanks; never returns nil so the JSON is [].
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stripFences removes one markdown fence such as ```json ... ``` wrapped
// around the payload. Backticks inside the payload are left alone.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = strings.TrimLeftFunc(strings.TrimPrefix(s, fence), unicode.IsLetter)
	s = strings.TrimSuffix(strings.TrimSpace(s), fence)
	return strings.TrimSpace(s)
}
