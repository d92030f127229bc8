// Package app assembles the pipeline, its model backends and the session
// store from configuration. Every binary starts here.
package app

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/veo3-storyboard/internal/auth"
	"github.com/fpang/veo3-storyboard/internal/chat"
	"github.com/fpang/veo3-storyboard/internal/config"
	"github.com/fpang/veo3-storyboard/internal/logging"
	"github.com/fpang/veo3-storyboard/internal/metrics"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
	"github.com/fpang/veo3-storyboard/internal/session"
)

// App is a fully wired pipeline.
type App struct {
	Config       *config.Config
	Orchestrator *pipeline.Orchestrator
	Sessions     *session.Store
	Gemini       *genai.Client

	visionModel    string
	editorModel    string
	generatorModel string
}

// New resolves credentials and builds the backends selected by cfg. The
// Gemini key is required; the Replicate token is required only when the
// Replicate editor is selected, and enables prompt-based generation when
// present.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.EMF {
		metrics.SetOutput(os.Stdout)
	}

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		return nil, err
	}
	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	vision := chat.NewGeminiVision(client, cfg.VisionModel)

	if cfg.ValidateKey {
		if err := auth.ValidateAPIKey(ctx, client, vision.Model()); err != nil {
			return nil, err
		}
	}

	a := &App{Config: cfg, Gemini: client, visionModel: vision.Model()}

	var replicate *chat.ReplicateClient
	if token, err := auth.GetReplicateToken(); err == nil {
		replicate = chat.NewReplicateClient(token)
	} else {
		log.Debug().Err(err).Msg("Replicate token unavailable")
	}

	var editor pipeline.Editor
	switch cfg.Editor {
	case config.EditorGemini:
		ic := chat.NewGeminiImageClient(apiKey, cfg.EditorModel)
		editor = chat.NewGeminiImageEditor(ic)
		a.editorModel = or(cfg.EditorModel, chat.ModelGemini3ProImage)
	default:
		if replicate == nil {
			return nil, &auth.ValidationError{
				Type:    auth.ErrTypeNoKey,
				Message: fmt.Sprintf("the replicate editor needs %s (or set VEO3_EDITOR=gemini)", auth.ReplicateToken.EnvVar),
			}
		}
		editor = chat.NewReplicateEditor(replicate, cfg.EditorModel)
		a.editorModel = or(cfg.EditorModel, chat.ModelFluxKontextMax)
	}

	var generator pipeline.Generator
	if replicate != nil {
		generator = chat.NewReplicateGenerator(replicate, cfg.GeneratorModel)
		a.generatorModel = or(cfg.GeneratorModel, chat.ModelFluxSchnell)
	}

	a.Orchestrator, err = pipeline.New(pipeline.Config{
		Vision:               vision,
		Editor:               editor,
		Generator:            generator,
		Fetcher:              pipeline.NewHTTPFetcher(cfg.CallTimeout),
		CallTimeout:          cfg.CallTimeout,
		MaxRetries:           cfg.MaxRetries,
		RetryInitialInterval: cfg.RetryInterval,
		RateLimit:            cfg.RateLimit,
		RateBurst:            cfg.RateBurst,
		MaxImageDim:          cfg.MaxImageDim,
	})
	if err != nil {
		return nil, err
	}
	a.Sessions = session.NewStore(cfg.SessionTTL, cfg.SessionCleanup)
	return a, nil
}

// Describe registers the wiring on a startup logger.
func (a *App) Describe(l *logging.StartupLogger) *logging.StartupLogger {
	l.Backend("vision", a.visionModel).
		Backend("editor", a.editorModel).
		Feature("generation", a.Orchestrator.HasGenerator()).
		Feature("emf", a.Config.EMF).
		Config("callTimeout", a.Config.CallTimeout.String()).
		Config("maxRetries", strconv.FormatUint(a.Config.MaxRetries, 10)).
		Config("sessionTTL", a.Config.SessionTTL.String())
	if a.generatorModel != "" {
		l.Backend("generator", a.generatorModel)
	}
	return l
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
