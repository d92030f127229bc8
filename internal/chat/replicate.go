package chat

// replicate.go is a small REST client for Replicate predictions. Requests
// ask the API to hold the connection until the prediction finishes
// ("Prefer: wait"); predictions still running after that are polled.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/jsonutil"
	"github.com/fpang/veo3-storyboard/internal/metrics"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
)

// replicateBaseURL is the Replicate REST API base URL.
const replicateBaseURL = "https://api.replicate.com/v1"

// Prediction statuses.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// ReplicateClient runs models on Replicate.
type ReplicateClient struct {
	token        string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// ReplicateOption customizes a ReplicateClient.
type ReplicateOption func(*ReplicateClient)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) ReplicateOption {
	return func(c *ReplicateClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ReplicateOption {
	return func(c *ReplicateClient) { c.httpClient = hc }
}

// WithPollInterval sets the delay between status checks.
func WithPollInterval(d time.Duration) ReplicateOption {
	return func(c *ReplicateClient) { c.pollInterval = d }
}

// NewReplicateClient creates a client authenticated with token.
func NewReplicateClient(token string, opts ...ReplicateOption) *ReplicateClient {
	c := &ReplicateClient{
		token:   token,
		baseURL: replicateBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Prefer: wait holds the request up to 60s
		},
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- REST API request/response types ---

type predictionRequest struct {
	Input map[string]any `json:"input"`
}

type prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  any    `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p *prediction) terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// APIError is a non-2xx answer from a model REST API.
type APIError struct {
	Service string
	Status  int
	Detail  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Service, e.Status, e.Detail)
}

// StatusCode exposes the status for error classification.
func (e *APIError) StatusCode() int { return e.Status }

// PredictionError reports a prediction that finished without succeeding.
type PredictionError struct {
	ID      string
	Status  string
	Message string
}

func (e *PredictionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("prediction %s %s: %s", e.ID, e.Status, e.Message)
	}
	return fmt.Sprintf("prediction %s %s", e.ID, e.Status)
}

// Run creates a prediction for model ("owner/name"), waits for it to finish
// and returns its output.
func (c *ReplicateClient) Run(ctx context.Context, model string, input map[string]any) (any, error) {
	startTime := time.Now()
	log.Info().
		Str("model", model).
		Msg("Creating Replicate prediction")

	body, err := json.Marshal(predictionRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	p, err := c.do(ctx, http.MethodPost, url, body)
	if err == nil {
		p, err = c.wait(ctx, p)
	}

	m := metrics.New(metrics.Namespace).
		Dimension("Operation", "replicate").
		Dimension("Model", model).
		Duration("ReplicateLatencyMs", time.Since(startTime)).
		Count("ReplicateCalls")
	if err != nil {
		m.Count("ReplicateErrors")
	}
	m.Flush()

	if err != nil {
		return nil, err
	}

	log.Info().
		Str("model", model).
		Str("prediction_id", p.ID).
		Dur("duration", time.Since(startTime)).
		Msg("Replicate prediction complete")
	return p.Output, nil
}

// wait polls p until it reaches a terminal status.
func (c *ReplicateClient) wait(ctx context.Context, p *prediction) (*prediction, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !p.terminal() {
		getURL := p.URLs.Get
		if getURL == "" {
			getURL = fmt.Sprintf("%s/predictions/%s", c.baseURL, p.ID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		log.Debug().Str("prediction_id", p.ID).Str("status", p.Status).Msg("Polling Replicate prediction")
		next, err := c.do(ctx, http.MethodGet, getURL, nil)
		if err != nil {
			return nil, err
		}
		p = next
	}

	if p.Status != StatusSucceeded {
		return nil, &PredictionError{ID: p.ID, Status: p.Status, Message: errorText(p.Error)}
	}
	return p, nil
}

func (c *ReplicateClient) do(ctx context.Context, method, url string, body []byte) (*prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "wait")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", jsonutil.Truncate(string(respBody), 500)).
			Msg("Replicate API returned error")
		return nil, &APIError{Service: "replicate", Status: resp.StatusCode, Detail: apiDetail(respBody)}
	}

	var p prediction
	if err := json.Unmarshal(respBody, &p); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &p, nil
}

// apiDetail extracts the "detail" field of an error body, falling back to
// the truncated body.
func apiDetail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	return jsonutil.Truncate(string(body), 200)
}

func errorText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// ReplicateEditor draws on images with an instruction-following model.
type ReplicateEditor struct {
	client *ReplicateClient
	model  string
	// GuidanceScale is kept low so the original photo survives the edit.
	GuidanceScale  float64
	InferenceSteps int
}

// NewReplicateEditor returns an editor on model, defaulting to flux-kontext-max.
func NewReplicateEditor(client *ReplicateClient, model string) *ReplicateEditor {
	if model == "" {
		model = ModelFluxKontextMax
	}
	return &ReplicateEditor{client: client, model: model, GuidanceScale: 3.5, InferenceSteps: 28}
}

// Edit implements pipeline.Editor.
func (e *ReplicateEditor) Edit(ctx context.Context, instruction, imageDataURI string) (pipeline.ImageOutput, error) {
	out, err := e.client.Run(ctx, e.model, map[string]any{
		"prompt":              instruction,
		"input_image":         imageDataURI,
		"guidance_scale":      e.GuidanceScale,
		"num_inference_steps": e.InferenceSteps,
	})
	if err != nil {
		return pipeline.ImageOutput{}, err
	}
	return pipeline.OutputFromJSON(out), nil
}

// ReplicateGenerator creates images from text prompts.
type ReplicateGenerator struct {
	client *ReplicateClient
	model  string
}

// NewReplicateGenerator returns a generator on model, defaulting to
// flux-schnell.
func NewReplicateGenerator(client *ReplicateClient, model string) *ReplicateGenerator {
	if model == "" {
		model = ModelFluxSchnell
	}
	return &ReplicateGenerator{client: client, model: model}
}

// Generate implements pipeline.Generator. One square PNG is requested.
func (g *ReplicateGenerator) Generate(ctx context.Context, prompt string) (pipeline.ImageOutput, error) {
	out, err := g.client.Run(ctx, g.model, map[string]any{
		"prompt":        prompt,
		"num_outputs":   1,
		"aspect_ratio":  "1:1",
		"output_format": "png",
	})
	if err != nil {
		return pipeline.ImageOutput{}, err
	}
	return pipeline.OutputFromJSON(out), nil
}
