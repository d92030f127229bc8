// Package pipeline sequences the three model-backed stages that turn a
// photo into a Veo3 video spec: scene analysis, storyboard annotation and
// spec authoring. Stage results are committed to the session only after the
// whole stage succeeds, so a failed or cancelled stage leaves it untouched.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/fpang/veo3-storyboard/internal/assets"
	"github.com/fpang/veo3-storyboard/internal/imagecodec"
	"github.com/fpang/veo3-storyboard/internal/jsonutil"
	"github.com/fpang/veo3-storyboard/internal/metrics"
	"github.com/fpang/veo3-storyboard/internal/session"
	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

// Vision describes an image in response to a text instruction.
type Vision interface {
	Describe(ctx context.Context, img image.Image, instruction string) (string, error)
}

// Editor applies a text instruction to an image passed as a data URI.
type Editor interface {
	Edit(ctx context.Context, instruction, imageDataURI string) (ImageOutput, error)
}

// Generator produces an image from a text prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (ImageOutput, error)
}

// Fetcher downloads the image behind a result URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Collaborator names used in errors, logs and metrics.
const (
	CollaboratorVision    = "vision"
	CollaboratorEditor    = "editor"
	CollaboratorGenerator = "generator"
	CollaboratorFetch     = "fetch"
)

// Config wires the backends and call policy.
type Config struct {
	Vision    Vision
	Editor    Editor
	Generator Generator // optional
	Fetcher   Fetcher   // defaults to an HTTPFetcher

	// CallTimeout bounds each backend call; zero disables the bound.
	CallTimeout time.Duration
	// MaxRetries is the number of extra attempts for transient failures.
	MaxRetries           uint64
	RetryInitialInterval time.Duration
	// RateLimit caps backend calls per second across all sessions; zero
	// disables limiting.
	RateLimit float64
	RateBurst int
	// MaxImageDim scales images down before they are sent to a backend;
	// zero sends them at full size.
	MaxImageDim int
}

// Orchestrator runs pipeline stages against sessions. It holds no
// per-session state and is safe for concurrent use.
type Orchestrator struct {
	cfg     Config
	limiter *rate.Limiter
}

// New creates an Orchestrator. Vision and Editor are required.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Vision == nil {
		return nil, fmt.Errorf("vision backend is required")
	}
	if cfg.Editor == nil {
		return nil, fmt.Errorf("editor backend is required")
	}
	if cfg.Fetcher == nil {
		timeout := cfg.CallTimeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		cfg.Fetcher = NewHTTPFetcher(timeout)
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = time.Second
	}

	o := &Orchestrator{cfg: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return o, nil
}

// HasGenerator reports whether prompt-only ingestion is available.
func (o *Orchestrator) HasGenerator() bool {
	return o.cfg.Generator != nil
}

// IngestRequest supplies the initial image. Image takes precedence over
// ImageBytes, which takes precedence over GeneratePrompt.
type IngestRequest struct {
	Image          image.Image
	ImageBytes     []byte
	GeneratePrompt string
}

// Ingest stores the original image on s.
func (o *Orchestrator) Ingest(ctx context.Context, s *session.Session, req IngestRequest) error {
	start := time.Now()
	img, source, err := o.ingestImage(ctx, req)
	if err != nil {
		o.observe(StageIngest, start, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		o.observe(StageIngest, start, err)
		return upstream(CollaboratorGenerator, err)
	}

	s.SetOriginal(img, source)
	o.observe(StageIngest, start, nil)
	log.Info().
		Str("session_id", s.ID()).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Bool("generated", req.Image == nil && len(req.ImageBytes) == 0).
		Msg("Image ingested")
	return nil
}

func (o *Orchestrator) ingestImage(ctx context.Context, req IngestRequest) (image.Image, *imagecodec.SourceMetadata, error) {
	switch {
	case req.Image != nil:
		return req.Image, nil, nil

	case len(req.ImageBytes) > 0:
		img, err := imagecodec.Decode(req.ImageBytes)
		if err != nil {
			return nil, nil, err
		}
		source, err := imagecodec.ExtractMetadata(req.ImageBytes)
		if err != nil {
			log.Debug().Err(err).Msg("No EXIF metadata on upload")
			source = nil
		}
		return img, source, nil

	case strings.TrimSpace(req.GeneratePrompt) != "":
		if o.cfg.Generator == nil {
			return nil, nil, &UpstreamError{Collaborator: CollaboratorGenerator, Err: ErrNotConfigured}
		}
		var out ImageOutput
		err := o.call(ctx, CollaboratorGenerator, func(ctx context.Context) error {
			var err error
			out, err = o.cfg.Generator.Generate(ctx, req.GeneratePrompt)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		img, err := o.resolve(ctx, CollaboratorGenerator, out)
		if err != nil {
			return nil, nil, err
		}
		return img, nil, nil

	default:
		return nil, nil, ErrNoImage
	}
}

// Analyze runs stage 1 on the original image and stores the analysis.
func (o *Orchestrator) Analyze(ctx context.Context, s *session.Session) (*storyboard.SceneAnalysis, error) {
	original := s.Original()
	if original == nil {
		return nil, &PreconditionError{Stage: StageAnalyze, Missing: "original image"}
	}

	start := time.Now()
	text, err := o.describe(ctx, original, assets.SceneAnalysisPrompt)
	if err != nil {
		return nil, o.fail(StageAnalyze, start, err)
	}

	obj, err := jsonutil.ExtractJSONObject(text)
	if err != nil {
		log.Debug().Str("response", jsonutil.Truncate(text, 500)).Msg("Unparseable analysis response")
		return nil, o.fail(StageAnalyze, start, err)
	}
	analysis := storyboard.FromMap(obj)

	if err := ctx.Err(); err != nil {
		return nil, o.fail(StageAnalyze, start, upstream(CollaboratorVision, err))
	}
	s.SetAnalysis(analysis, text)
	o.observe(StageAnalyze, start, nil)

	log.Info().
		Str("session_id", s.ID()).
		Bool("hero", analysis.AnnotationInstructions.HeroElement != nil).
		Bool("camera", analysis.AnnotationInstructions.CameraMotion != nil).
		Int("secondary", len(analysis.AnnotationInstructions.SecondaryElements)).
		Bool("timing", analysis.AnnotationInstructions.Timing != nil).
		Dur("duration", time.Since(start)).
		Msg("Scene analysis complete")
	return &analysis, nil
}

// Annotate runs stage 2: it renders the annotation plan, asks the editor to
// draw it over the original image and stores the result.
func (o *Orchestrator) Annotate(ctx context.Context, s *session.Session) (*image.RGBA, error) {
	snap := s.Snapshot()
	if snap.Original == nil {
		return nil, &PreconditionError{Stage: StageAnnotate, Missing: "original image"}
	}
	if snap.Analysis == nil {
		return nil, &PreconditionError{Stage: StageAnnotate, Missing: "scene analysis"}
	}

	start := time.Now()
	plan := snap.Analysis.Plan()

	dataURI, err := imagecodec.Encode(imagecodec.Fit(snap.Original, o.cfg.MaxImageDim))
	if err != nil {
		return nil, o.fail(StageAnnotate, start, err)
	}

	var out ImageOutput
	err = o.call(ctx, CollaboratorEditor, func(ctx context.Context) error {
		var err error
		out, err = o.cfg.Editor.Edit(ctx, plan, dataURI)
		return err
	})
	if err != nil {
		return nil, o.fail(StageAnnotate, start, err)
	}

	annotated, err := o.resolve(ctx, CollaboratorEditor, out)
	if err != nil {
		return nil, o.fail(StageAnnotate, start, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, o.fail(StageAnnotate, start, upstream(CollaboratorEditor, err))
	}
	s.SetAIAnnotated(annotated, plan)
	o.observe(StageAnnotate, start, nil)

	log.Info().
		Str("session_id", s.ID()).
		Int("plan_length", len(plan)).
		Dur("duration", time.Since(start)).
		Msg("Storyboard annotations applied")
	return imagecodec.Clone(annotated), nil
}

// Finalize runs stage 3 on the image chosen by sel and returns the Veo3 spec.
func (o *Orchestrator) Finalize(ctx context.Context, s *session.Session, userPrompt string, sel session.Selection) (storyboard.Veo3Spec, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return nil, &PreconditionError{Stage: StageFinalize, Missing: "video description"}
	}
	img := s.Image(sel)
	if img == nil {
		return nil, &PreconditionError{Stage: StageFinalize, Missing: "image"}
	}

	start := time.Now()
	instruction, err := assets.RenderVeo3SpecPrompt(userPrompt)
	if err != nil {
		return nil, o.fail(StageFinalize, start, err)
	}

	text, err := o.describe(ctx, img, instruction)
	if err != nil {
		return nil, o.fail(StageFinalize, start, err)
	}

	obj, err := jsonutil.ExtractJSONObject(text)
	if err != nil {
		log.Debug().Str("response", jsonutil.Truncate(text, 500)).Msg("Unparseable spec response")
		return nil, o.fail(StageFinalize, start, err)
	}
	spec := storyboard.Veo3Spec(obj)

	if err := ctx.Err(); err != nil {
		return nil, o.fail(StageFinalize, start, upstream(CollaboratorVision, err))
	}
	s.SetSpec(spec)
	o.observe(StageFinalize, start, nil)

	log.Info().
		Str("session_id", s.ID()).
		Str("selection", string(sel)).
		Str("prompt", jsonutil.Truncate(spec.Prompt(), 80)).
		Int("fields", len(spec)).
		Dur("duration", time.Since(start)).
		Msg("Veo3 spec generated")
	return spec, nil
}

// SaveManualAnnotation stores an image annotated by hand.
func (o *Orchestrator) SaveManualAnnotation(s *session.Session, img image.Image) error {
	if img == nil {
		return &PreconditionError{Stage: StageFinalize, Missing: "manual annotation image"}
	}
	s.SetManualAnnotated(img)
	log.Info().Str("session_id", s.ID()).Msg("Manual annotations saved")
	return nil
}

// RunRequest drives a full pipeline run.
type RunRequest struct {
	IngestRequest
	UserPrompt string
}

// Result is the caller-facing outcome of a full run.
type Result struct {
	SessionID         string
	Spec              storyboard.Veo3Spec
	SceneOverview     storyboard.SceneOverview
	OverviewObject    any
	Plan              string
	AnnotationApplied bool
}

// Run executes ingest, analyze, annotate and finalize in order on s, using
// the current image for the final stage.
func (o *Orchestrator) Run(ctx context.Context, s *session.Session, req RunRequest) (*Result, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return nil, &PreconditionError{Stage: StageFinalize, Missing: "video description"}
	}

	start := time.Now()
	if err := o.Ingest(ctx, s, req.IngestRequest); err != nil {
		return nil, err
	}
	analysis, err := o.Analyze(ctx, s)
	if err != nil {
		return nil, err
	}
	if _, err := o.Annotate(ctx, s); err != nil {
		return nil, err
	}
	spec, err := o.Finalize(ctx, s, req.UserPrompt, session.SelectCurrent)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", s.ID()).
		Dur("duration", time.Since(start)).
		Msg("Pipeline run complete")

	return &Result{
		SessionID:         s.ID(),
		Spec:              spec,
		SceneOverview:     analysis.SceneOverview,
		OverviewObject:    analysis.OverviewObject(),
		Plan:              analysis.Plan(),
		AnnotationApplied: true,
	}, nil
}

// describe sends img to the vision backend.
func (o *Orchestrator) describe(ctx context.Context, img image.Image, instruction string) (string, error) {
	img = imagecodec.Fit(img, o.cfg.MaxImageDim)
	var text string
	err := o.call(ctx, CollaboratorVision, func(ctx context.Context) error {
		var err error
		text, err = o.cfg.Vision.Describe(ctx, img, instruction)
		return err
	})
	return text, err
}

// resolve turns a backend output into a decoded image, downloading it when
// the output is a URL.
func (o *Orchestrator) resolve(ctx context.Context, collaborator string, out ImageOutput) (*image.RGBA, error) {
	ref, err := out.Normalize()
	if err != nil {
		return nil, &UpstreamError{Collaborator: collaborator, Err: err}
	}

	data := ref.Data
	switch {
	case data != nil:
	case strings.HasPrefix(ref.URL, "data:"):
		return imagecodec.DecodeDataURI(ref.URL)
	default:
		err := o.call(ctx, CollaboratorFetch, func(ctx context.Context) error {
			var err error
			data, err = o.cfg.Fetcher.Fetch(ctx, ref.URL)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return imagecodec.Decode(data)
}

// fail wraps err as a StageError and records the failure.
func (o *Orchestrator) fail(stage Stage, start time.Time, err error) error {
	o.observe(stage, start, err)
	log.Error().Err(err).Str("stage", string(stage)).Msg("Pipeline stage failed")
	return &StageError{Stage: stage, Err: err}
}

func (o *Orchestrator) observe(stage Stage, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveStage(string(stage), outcome, time.Since(start))
}
