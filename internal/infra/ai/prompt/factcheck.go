package prompt

import (
	"fmt"

	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
)

const schema = `{
  "rating": <number between 0-10, where 10 is completely factual>,
  "confidence": <number between 0-1 indicating your confidence in this assessment>,
  "explanation": "<brief explanation of the rating>",
  "analysis": "<detailed analysis of the content>",
  "correct_aspects": ["<list of correct or verified claims>"],
  "incorrect_aspects": ["<list of incorrect, misleading, or unverified claims>"],
  "sources": [
    {
      "title": "<source title>",
      "url": "<source url>",
      "relevance": "<why this source is relevant>"
    }
  ]
}`

// GetSystemPrompt provides the fact-checker role and the JSON schema the answer must follow.
func GetSystemPrompt() string {
	return `You are an expert fact-checker. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- rating is a number from 0 to 10 inclusive; 10 means completely factual.
- confidence is a number from 0 to 1 inclusive.
- explanation, analysis, and every source field are required strings.
- List each claim once, either in correct_aspects or incorrect_aspects.
- Be thorough and objective and cite credible sources. If something cannot be verified, say so in the analysis.

Schema:
` + schema
}

// GetUserPrompt wraps text or webpage content for analysis.
func GetUserPrompt(content string, kind domain.ContentKind) string {
	return fmt.Sprintf("Analyze the following %s and provide a comprehensive fact-check. Respond with the JSON per schema.\n\nContent to analyze:\n%s", kind, content)
}

// GetImagePrompt is sent alongside the uploaded picture.
func GetImagePrompt() string {
	return "Analyze this image and fact-check any claims, text, or information visible in it. Respond with the JSON per schema."
}
