package chat

// gemini_image.go calls the Gemini image model over REST so it can be used
// as the storyboard editor instead of Replicate. Responses carry the edited
// image inline, so no download step follows.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/imagecodec"
	"github.com/fpang/veo3-storyboard/internal/jsonutil"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
)

// geminiBaseURL is the Gemini REST API base URL.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// annotationSystemInstruction frames every edit as an overlay on the photo.
const annotationSystemInstruction = "You are a storyboard artist. Draw annotation overlays on the supplied photo. " +
	"Never repaint, crop or restyle the photo itself."

// GeminiImageClient calls the Gemini image model via REST API for photo editing.
type GeminiImageClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiImageClient creates a new client for Gemini image editing. An
// empty model selects ModelGemini3ProImage.
func NewGeminiImageClient(apiKey, model string) *GeminiImageClient {
	if model == "" {
		model = ModelGemini3ProImage
	}
	return &GeminiImageClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Image generation can take 10-30s
		},
	}
}

// --- REST API request/response types ---

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GeminiImageResult holds the result of a Gemini image editing call.
type GeminiImageResult struct {
	ImageData     []byte
	ImageMIMEType string
	// Text is any commentary returned alongside the image.
	Text string
}

// EditImage sends a photo with an instruction and returns the edited image.
func (c *GeminiImageClient) EditImage(ctx context.Context, imageData []byte, imageMIMEType, instruction, systemInstruction string) (*GeminiImageResult, error) {
	startTime := time.Now()
	log.Info().
		Str("model", c.model).
		Int("image_bytes", len(imageData)).
		Str("image_mime", imageMIMEType).
		Msg("Sending image to Gemini for editing")

	req := geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiBlobData{
					MIMEType: imageMIMEType,
					Data:     base64.StdEncoding.EncodeToString(imageData),
				}},
				{Text: instruction},
			},
		}},
	}
	if systemInstruction != "" {
		req.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemInstruction}},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", jsonutil.Truncate(string(respBody), 500)).
			Msg("Gemini image editing API returned error")
		return nil, &APIError{Service: "gemini", Status: resp.StatusCode, Detail: jsonutil.Truncate(string(respBody), 200)}
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if geminiResp.Error != nil {
		return nil, &APIError{Service: "gemini", Status: geminiResp.Error.Code, Detail: geminiResp.Error.Message}
	}

	result := &GeminiImageResult{}
	var text strings.Builder
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil {
				decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode image data: %w", err)
				}
				result.ImageData = decoded
				result.ImageMIMEType = part.InlineData.MIMEType
			}
			text.WriteString(part.Text)
		}
	}
	result.Text = text.String()

	if result.ImageData == nil {
		return nil, fmt.Errorf("%w (text: %s)", pipeline.ErrNoOutput, jsonutil.Truncate(result.Text, 200))
	}

	log.Info().
		Int("output_bytes", len(result.ImageData)).
		Str("output_mime", result.ImageMIMEType).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image editing complete")
	return result, nil
}

// GeminiImageEditor adapts GeminiImageClient to pipeline.Editor.
type GeminiImageEditor struct {
	client *GeminiImageClient
}

// NewGeminiImageEditor wraps client.
func NewGeminiImageEditor(client *GeminiImageClient) *GeminiImageEditor {
	return &GeminiImageEditor{client: client}
}

// Edit implements pipeline.Editor.
func (e *GeminiImageEditor) Edit(ctx context.Context, instruction, imageDataURI string) (pipeline.ImageOutput, error) {
	img, err := imagecodec.DecodeDataURI(imageDataURI)
	if err != nil {
		return pipeline.ImageOutput{}, err
	}
	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		return pipeline.ImageOutput{}, err
	}
	res, err := e.client.EditImage(ctx, data, "image/png", instruction, annotationSystemInstruction)
	if err != nil {
		return pipeline.ImageOutput{}, err
	}
	return pipeline.BytesOutput(res.ImageData), nil
}
