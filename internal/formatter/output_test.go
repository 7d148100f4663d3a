package formatter

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/factcheck/internal/client"
	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
)

func init() { color.NoColor = true }

func sample() *domain.Result {
	return &domain.Result{
		Rating:           8.5,
		Explanation:      "The statement is mostly accurate.",
		Confidence:       0.85,
		Analysis:         "Water boils at 100C at sea level.",
		CorrectAspects:   []string{"Boiling point at sea level"},
		IncorrectAspects: []string{},
		Sources:          []domain.Source{{Title: "Chemistry 101", URL: "https://example.com/chem", Relevance: "Textbook"}},
		Timestamp:        time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		InputType:        domain.InputText,
	}
}

func TestDisplayResult_Human(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResult(&buf, sample(), Human))
	out := buf.String()

	assert.Contains(t, out, "RATING: 8.5/10 (likely accurate)")
	assert.Contains(t, out, "Confidence: 85%")
	assert.Contains(t, out, "+ Boiling point at sea level")
	assert.NotContains(t, out, "INCORRECT OR UNVERIFIED:")
	assert.Contains(t, out, "1. Chemistry 101")
	assert.Contains(t, out, "https://example.com/chem")
}

func TestDisplayResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResult(&buf, sample(), JSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 8.5, got["rating"])
	assert.Equal(t, "text", got["input_type"])
}

func TestDisplayResult_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResult(&buf, sample(), YAML))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 8.5, got["rating"])
	assert.Contains(t, got, "correct_aspects")
}

func TestDisplayResult_UnknownFormat(t *testing.T) {
	assert.Error(t, DisplayResult(&bytes.Buffer{}, sample(), "xml"))
}

func TestRatingLabel(t *testing.T) {
	assert.Equal(t, "likely accurate", RatingLabel(10))
	assert.Equal(t, "likely accurate", RatingLabel(7))
	assert.Equal(t, "mixed", RatingLabel(6.9))
	assert.Equal(t, "mixed", RatingLabel(4))
	assert.Equal(t, "likely inaccurate", RatingLabel(3.9))
	assert.Equal(t, "likely inaccurate", RatingLabel(0))
}

func TestDisplayHealth(t *testing.T) {
	var buf bytes.Buffer
	h := &client.Health{Status: "unhealthy", Service: "Fact Checker API", Version: "1.0.0", LLMConnection: "disconnected"}
	require.NoError(t, DisplayHealth(&buf, h, Human))
	assert.Contains(t, buf.String(), "Status: unhealthy")
	assert.Contains(t, buf.String(), "LLM connection: disconnected")
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 12, "  ")
	assert.Equal(t, "  one two\n  three four", got)
}
