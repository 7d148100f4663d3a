package factcheck

import "time"

// InputType tags which endpoint produced a result
type InputType string

const (
	InputText  InputType = "text"
	InputURL   InputType = "url"
	InputImage InputType = "image"
)

// Valid reports whether t is one of the known input types.
func (t InputType) Valid() bool {
	switch t {
	case InputText, InputURL, InputImage:
		return true
	}
	return false
}

// ContentKind is how the content is described to the LLM.
type ContentKind string

const (
	KindText    ContentKind = "text"
	KindWebpage ContentKind = "webpage"
)

// Score bounds
const (
	MinRating     = 0.0
	MaxRating     = 10.0
	MinConfidence = 0.0
	MaxConfidence = 1.0
)

// Source value object
type Source struct {
	Title     string `json:"title" yaml:"title"`
	URL       string `json:"url" yaml:"url"`
	Relevance string `json:"relevance" yaml:"relevance"`
}

// Result is the fact-check verdict returned to the caller. It is built once
// per request and only ever produced by ParseResult.
type Result struct {
	Rating           float64   `json:"rating" yaml:"rating"`
	Explanation      string    `json:"explanation" yaml:"explanation"`
	Confidence       float64   `json:"confidence" yaml:"confidence"`
	Analysis         string    `json:"analysis" yaml:"analysis"`
	CorrectAspects   []string  `json:"correct_aspects" yaml:"correct_aspects"`
	IncorrectAspects []string  `json:"incorrect_aspects" yaml:"incorrect_aspects"`
	Sources          []Source  `json:"sources" yaml:"sources"`
	Timestamp        time.Time `json:"timestamp" yaml:"timestamp"`
	InputType        InputType `json:"input_type" yaml:"input_type"`
}

// Image is an uploaded picture ready for the vision model
type Image struct {
	Data        []byte
	ContentType string
}
