package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/veo3-storyboard/internal/api"
	"github.com/fpang/veo3-storyboard/internal/app"
	"github.com/fpang/veo3-storyboard/internal/cli"
	"github.com/fpang/veo3-storyboard/internal/config"
	"github.com/fpang/veo3-storyboard/internal/logging"
)

// CLI flags
var (
	addrFlag   string
	editorFlag string
	modelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "veo3-web",
	Short: "HTTP API for turning a still frame into a Veo3 video spec",
	Long: `Veo3 Web serves the storyboard pipeline over HTTP. Upload an image and a
video description to /generate-veo3 for a one-shot run, or drive each stage
through the session API under /api/sessions.

Configuration is read from VEO3_* environment variables and an optional .env
file in the working directory. Flags override both.

Examples:
  veo3-web
  veo3-web --addr :9090
  veo3-web --editor gemini --model gemini-2.5-pro`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "Address to listen on (default from VEO3_ADDR)")
	rootCmd.Flags().StringVar(&editorFlag, "editor", "", "Annotation backend: replicate or gemini")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model used for scene analysis and spec generation")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}
	if editorFlag != "" {
		cfg.Editor = editorFlag
	}
	if modelFlag != "" {
		cfg.VisionModel = modelFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		cli.HandleValidationError(err)
	}

	handler := api.NewServer(a.Orchestrator, a.Sessions, api.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigin:     cfg.CORSOrigin,
	}).Handler()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2*cfg.CallTimeout + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	a.Describe(logging.NewStartupLogger("veo3-web").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("addr", cfg.Addr).
		InitDuration(time.Since(initStart))).
		Log()

	fmt.Printf("\n  Veo3 Prompt Generator API: http://localhost%s\n\n", cfg.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
