package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/factcheck/internal/client"
	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
)

// Formats accepted by -o
const (
	Human = "human"
	JSON  = "json"
	YAML  = "yaml"
)

// DisplayResult writes a verdict in the requested format.
func DisplayResult(w io.Writer, res *domain.Result, format string) error {
	switch format {
	case JSON:
		return displayJSON(w, res)
	case YAML:
		return displayYAML(w, res)
	case Human, "":
		displayHuman(w, res)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (human, json, yaml)", format)
	}
}

// DisplayHealth writes the server health in the requested format.
func DisplayHealth(w io.Writer, h *client.Health, format string) error {
	switch format {
	case JSON:
		return displayJSON(w, h)
	case YAML:
		return displayYAML(w, h)
	case Human, "":
	default:
		return fmt.Errorf("unknown output format %q (human, json, yaml)", format)
	}

	status := color.New(color.FgGreen, color.Bold)
	if h.Status != "healthy" {
		status = color.New(color.FgRed, color.Bold)
	}
	fmt.Fprintf(w, "%s %s\n", h.Service, color.HiBlackString(h.Version))
	status.Fprintf(w, "Status: %s\n", h.Status)
	fmt.Fprintf(w, "LLM connection: %s\n", h.LLMConnection)
	for name, c := range h.Checks {
		line := fmt.Sprintf("  %s: %s", name, c.Status)
		if c.Message != "" {
			line += " (" + c.Message + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func displayJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func displayYAML(w io.Writer, v any) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprint(w, string(output))
	return nil
}

func displayHuman(w io.Writer, res *domain.Result) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	ratingColor(res.Rating).Fprintf(w, "RATING: %.1f/10 (%s)\n", res.Rating, RatingLabel(res.Rating))
	fmt.Fprintf(w, "Confidence: %.0f%%\n\n", res.Confidence*100)

	cyan.Fprintln(w, "SUMMARY:")
	fmt.Fprintln(w, wrapText(res.Explanation, 80, "   "))
	fmt.Fprintln(w)

	if len(res.CorrectAspects) > 0 {
		green.Fprintln(w, "CORRECT:")
		for _, a := range res.CorrectAspects {
			fmt.Fprintf(w, "   + %s\n", a)
		}
		fmt.Fprintln(w)
	}

	if len(res.IncorrectAspects) > 0 {
		red.Fprintln(w, "INCORRECT OR UNVERIFIED:")
		for _, a := range res.IncorrectAspects {
			fmt.Fprintf(w, "   - %s\n", a)
		}
		fmt.Fprintln(w)
	}

	white.Fprintln(w, "DETAILED ANALYSIS:")
	fmt.Fprintln(w, wrapText(res.Analysis, 80, "   "))
	fmt.Fprintln(w)

	if len(res.Sources) > 0 {
		cyan.Fprintln(w, "SOURCES:")
		for i, s := range res.Sources {
			fmt.Fprintf(w, "   %d. %s\n", i+1, s.Title)
			fmt.Fprintf(w, "      %s\n", color.CyanString(s.URL))
			if s.Relevance != "" {
				fmt.Fprintf(w, "      %s\n", s.Relevance)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "%s\n", color.HiBlackString("Checked %s (%s). Run with -o json or -o yaml for machine-readable output",
		res.Timestamp.Local().Format("2006-01-02 15:04:05"), res.InputType))
}

// RatingLabel names the band a rating falls in.
func RatingLabel(rating float64) string {
	switch {
	case rating >= 7:
		return "likely accurate"
	case rating >= 4:
		return "mixed"
	default:
		return "likely inaccurate"
	}
}

func ratingColor(rating float64) *color.Color {
	switch {
	case rating >= 7:
		return color.New(color.FgGreen, color.Bold)
	case rating >= 4:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}

		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}

	return strings.TrimSuffix(result.String(), "\n")
}
