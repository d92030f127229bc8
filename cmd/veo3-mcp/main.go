// Package main exposes the storyboard pipeline as Model Context Protocol
// tools over stdio, so an assistant can analyze a frame and request a Veo3
// spec for it.
//
// Tools:
//
//	analyze_scene       scene overview and annotation plan for an image
//	generate_veo3_spec  full pipeline run, optionally saving the annotated frame
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/veo3-storyboard/internal/api"
	"github.com/fpang/veo3-storyboard/internal/cli"
	"github.com/fpang/veo3-storyboard/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "veo3-mcp",
	Short: "MCP server exposing the Veo3 storyboard pipeline over stdio",
	Run:   runMain,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	// stdout carries the protocol; logs stay on stderr.
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := cli.InitApp(ctx)
	t := &tools{app: a}

	server := mcp.NewServer(&mcp.Implementation{Name: "veo3-storyboard", Version: api.Version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_scene",
		Description: "Analyze a still image for video potential. Returns the scene overview and the storyboard annotation plan.",
	}, t.analyzeScene)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_veo3_spec",
		Description: "Analyze and annotate a still image, then generate a structured Veo3 video spec for the described video.",
	}, t.generateSpec)

	log.Info().Msg("MCP server listening on stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
