package chat

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/veo3-storyboard/internal/imagecodec"
	"github.com/fpang/veo3-storyboard/internal/metrics"
)

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("received empty response from Gemini API")

// NewGeminiClient creates a genai client for the Gemini Developer API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// GeminiVision answers instructions about a single image with a Gemini model.
type GeminiVision struct {
	client *genai.Client
	model  string
}

// NewGeminiVision wraps client. An empty model selects GetModelName().
func NewGeminiVision(client *genai.Client, model string) *GeminiVision {
	if model == "" {
		model = GetModelName()
	}
	return &GeminiVision{client: client, model: model}
}

// Model returns the model ID requests are sent to.
func (v *GeminiVision) Model() string { return v.model }

// Describe sends img as inline PNG followed by instruction and returns the
// model's text.
func (v *GeminiVision) Describe(ctx context.Context, img image.Image, instruction string) (string, error) {
	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
		{Text: instruction},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	log.Debug().
		Str("model", v.model).
		Int("image_bytes", len(data)).
		Int("prompt_length", len(instruction)).
		Msg("Starting Gemini API call for image description")

	start := time.Now()
	resp, err := v.client.Models.GenerateContent(ctx, v.model, contents, nil)
	elapsed := time.Since(start)

	m := metrics.New(metrics.Namespace).
		Dimension("Operation", "describe").
		Duration("GeminiApiLatencyMs", elapsed).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()

	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		return "", ErrEmptyResponse
	}

	text := resp.Text()
	log.Debug().
		Int("response_length", len(text)).
		Dur("duration", elapsed).
		Msg("Gemini API response received")
	return text, nil
}
