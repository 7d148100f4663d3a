package audit

import "time"

// RecordID identifier type
type RecordID string

// Record is a stored copy of a fact-check verdict, kept for auditing and history.
type Record struct {
	ID           RecordID  `json:"id"`
	InputType    string    `json:"input_type"`
	InputSummary string    `json:"input_summary"`
	Rating       float64   `json:"rating"`
	Confidence   float64   `json:"confidence"`
	Result       string    `json:"result"` // JSON string of the verdict
	ImageKey     string    `json:"image_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Phase where a check failed
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseFetch    Phase = "fetch"
	PhaseAnalyze  Phase = "analyze"
	PhaseParse    Phase = "parse"
)

// Failure represents a persisted failed check
type Failure struct {
	ID           int64     `json:"id"`
	InputType    string    `json:"input_type"`
	InputSummary string    `json:"input_summary,omitempty"`
	Phase        Phase     `json:"phase"`
	Message      string    `json:"message"`
	Status       int       `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Page of records
type Page struct {
	Data     []*Record `json:"data"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

const summaryLimit = 200

// Summarize shortens user input for storage next to a record.
func Summarize(input string) string {
	r := []rune(input)
	if len(r) <= summaryLimit {
		return input
	}
	return string(r[:summaryLimit]) + "..."
}
