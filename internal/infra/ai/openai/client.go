package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
	"github.com/bryanwahyu/factcheck/internal/infra/ai/prompt"
)

const (
	maxTokens          = 2048
	DefaultBaseURL     = "https://api.mistral.ai/v1"
	DefaultTextModel   = "mistral-large-latest"
	DefaultVisionModel = "pixtral-large-latest"
	DefaultTemperature = 0.3
)

// Options configure the client against any OpenAI-compatible endpoint.
type Options struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	VisionModel string
	Temperature float32
	HTTPClient  *http.Client
}

type Client struct {
	*openai.Client
	TextModel   string
	VisionModel string
	Temperature float32
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	c := &Client{
		Client:      openai.NewClientWithConfig(cfg),
		TextModel:   opts.TextModel,
		VisionModel: opts.VisionModel,
		Temperature: opts.Temperature,
	}
	if c.TextModel == "" {
		c.TextModel = DefaultTextModel
	}
	if c.VisionModel == "" {
		c.VisionModel = DefaultVisionModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	return c
}

func (c *Client) AnalyzeText(ctx context.Context, content string, kind domain.ContentKind) (string, error) {
	return c.complete(ctx, c.TextModel, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.GetUserPrompt(content, kind),
	})
}

func (c *Client) AnalyzeImage(ctx context.Context, img domain.Image) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", img.ContentType, base64.StdEncoding.EncodeToString(img.Data))
	return c.complete(ctx, c.VisionModel, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt.GetImagePrompt()},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
		},
	})
}

// Ping lists models; backs the health check.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.ListModels(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, model string, user openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: c.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			user,
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", mapError(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from AI")
	}
	return resp.Choices[0].Message.Content, nil
}

// mapError folds provider 429s into ErrQuotaExceeded.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, reqErr.Err)
	}
	return err
}
