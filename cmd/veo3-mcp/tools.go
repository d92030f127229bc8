package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/app"
	"github.com/fpang/veo3-storyboard/internal/cli"
	"github.com/fpang/veo3-storyboard/internal/imagecodec"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
	"github.com/fpang/veo3-storyboard/internal/session"
	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

type tools struct {
	app *app.App
}

// imageInput selects the reference frame.
type imageInput struct {
	ImagePath      string `json:"image_path,omitempty" jsonschema:"absolute path of the reference image"`
	GeneratePrompt string `json:"generate_prompt,omitempty" jsonschema:"generate the reference image from this prompt when no path is given"`
}

type analyzeOutput struct {
	Overview string         `json:"overview"`
	Plan     string         `json:"plan"`
	Analysis map[string]any `json:"analysis,omitempty"`
}

type generateInput struct {
	ImagePath      string `json:"image_path,omitempty" jsonschema:"absolute path of the reference image"`
	GeneratePrompt string `json:"generate_prompt,omitempty" jsonschema:"generate the reference image from this prompt when no path is given"`
	Prompt         string `json:"prompt" jsonschema:"description of the video to generate"`
	AnnotatedOut   string `json:"annotated_out,omitempty" jsonschema:"optional path to save the annotated frame as PNG"`
}

type generateOutput struct {
	SessionID  string         `json:"session_id"`
	Veo3Prompt map[string]any `json:"veo3_prompt"`
	Overview   string         `json:"overview"`
	Plan       string         `json:"plan"`
	Annotated  string         `json:"annotated_out,omitempty"`
}

func (in imageInput) request() (pipeline.IngestRequest, error) {
	switch {
	case in.ImagePath != "":
		path, err := cli.ValidateImagePath(in.ImagePath)
		if err != nil {
			return pipeline.IngestRequest{}, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return pipeline.IngestRequest{}, fmt.Errorf("failed to read image: %w", err)
		}
		return pipeline.IngestRequest{ImageBytes: data}, nil
	case in.GeneratePrompt != "":
		return pipeline.IngestRequest{GeneratePrompt: in.GeneratePrompt}, nil
	default:
		return pipeline.IngestRequest{}, errors.New("image_path or generate_prompt is required")
	}
}

func (t *tools) analyzeScene(ctx context.Context, req *mcp.CallToolRequest, in imageInput) (*mcp.CallToolResult, analyzeOutput, error) {
	ingest, err := in.request()
	if err != nil {
		return nil, analyzeOutput{}, err
	}

	sess := t.app.Sessions.Create()
	defer t.app.Sessions.Delete(sess.ID())

	if err := t.app.Orchestrator.Ingest(ctx, sess, ingest); err != nil {
		return nil, analyzeOutput{}, err
	}
	analysis, err := t.app.Orchestrator.Analyze(ctx, sess)
	if err != nil {
		return nil, analyzeOutput{}, err
	}

	return nil, analyzeOutput{
		Overview: storyboard.FormatOverview(analysis.SceneOverview),
		Plan:     analysis.Plan(),
		Analysis: analysis.Raw(),
	}, nil
}

func (t *tools) generateSpec(ctx context.Context, req *mcp.CallToolRequest, in generateInput) (*mcp.CallToolResult, generateOutput, error) {
	ingest, err := imageInput{ImagePath: in.ImagePath, GeneratePrompt: in.GeneratePrompt}.request()
	if err != nil {
		return nil, generateOutput{}, err
	}

	sess := t.app.Sessions.Create()
	res, err := t.app.Orchestrator.Run(ctx, sess, pipeline.RunRequest{IngestRequest: ingest, UserPrompt: in.Prompt})
	if err != nil {
		return nil, generateOutput{}, err
	}

	out := generateOutput{
		SessionID:  res.SessionID,
		Veo3Prompt: res.Spec,
		Overview:   storyboard.FormatOverview(res.SceneOverview),
		Plan:       res.Plan,
	}
	if in.AnnotatedOut != "" {
		data, err := imagecodec.EncodePNG(sess.Image(session.SelectAIAnnotated))
		if err != nil {
			return nil, generateOutput{}, err
		}
		if err := os.WriteFile(in.AnnotatedOut, data, 0o644); err != nil {
			return nil, generateOutput{}, fmt.Errorf("failed to save annotated frame: %w", err)
		}
		out.Annotated = in.AnnotatedOut
	}

	log.Info().Str("session_id", res.SessionID).Int("fields", len(res.Spec)).Msg("Veo3 spec returned over MCP")
	return nil, out, nil
}
