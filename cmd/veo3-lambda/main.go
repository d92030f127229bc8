// Package main provides a Lambda entry point for the Veo3 storyboard API.
//
// It serves the same routes as veo3-web behind API Gateway (HTTP API,
// payload v2). Credentials are read from SSM Parameter Store at cold start
// unless already present in the environment, and metrics are written to
// stdout as CloudWatch Embedded Metric Format lines.
//
// Sessions live in the memory of a warm container. Clients that need the
// staged session API should pin to the one-shot /generate-veo3 route or
// tolerate 404s after a cold start.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/api"
	"github.com/fpang/veo3-storyboard/internal/app"
	"github.com/fpang/veo3-storyboard/internal/config"
	"github.com/fpang/veo3-storyboard/internal/lambdaboot"
	"github.com/fpang/veo3-storyboard/internal/logging"
)

var handler *httpadapter.HandlerAdapterV2

func init() {
	initStart := time.Now()
	logging.Configure(os.Getenv("VEO3_LOG_LEVEL"), logging.EnvOrDefault("VEO3_LOG_FORMAT", "json"), os.Stderr)

	if os.Getenv("VEO3_EMF") == "" {
		os.Setenv("VEO3_EMF", "true")
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	clients := lambdaboot.InitAWS()
	lambdaboot.LoadGeminiKey(clients.SSM, cfg.GeminiKeyParam)
	hasReplicate := lambdaboot.LoadReplicateToken(clients.SSM, cfg.ReplicateTokenParam)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backends")
	}

	handler = httpadapter.NewV2(api.NewServer(a.Orchestrator, a.Sessions, api.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigin:     cfg.CORSOrigin,
	}).Handler())

	a.Describe(lambdaboot.StartupLog("veo3-lambda", initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		SSMParam("geminiKey", cfg.GeminiKeyParam).
		SSMParam("replicateToken", cfg.ReplicateTokenParam).
		Feature("replicate", hasReplicate)).
		Log()
}

func main() {
	lambda.Start(handler.ProxyWithContext)
}
