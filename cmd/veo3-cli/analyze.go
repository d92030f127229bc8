package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/veo3-storyboard/internal/cli"
	"github.com/fpang/veo3-storyboard/internal/jsonutil"
	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

var jsonFlag bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a reference image and print the scene overview and annotation plan",
	Run:   runAnalyze,
}

var planCmd = &cobra.Command{
	Use:   "plan <analysis.json>",
	Short: "Render the annotation plan for a saved scene analysis without calling any model",
	Args:  cobra.ExactArgs(1),
	Run:   runPlan,
}

func init() {
	analyzeCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the raw analysis JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a := cli.InitApp(ctx)

	sess := a.Sessions.Create()
	if err := a.Orchestrator.Ingest(ctx, sess, ingestRequest()); err != nil {
		log.Fatal().Err(err).Msg("Failed to load image")
	}
	analysis, err := a.Orchestrator.Analyze(ctx, sess)
	if err != nil {
		log.Fatal().Err(err).Msg("Scene analysis failed")
	}

	if jsonFlag {
		data, err := json.MarshalIndent(analysis.Raw(), "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode analysis")
		}
		fmt.Println(string(data))
		return
	}
	printAnalysis(*analysis)
}

func runPlan(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatal().Err(err).Str("path", args[0]).Msg("Failed to read analysis")
	}
	obj, err := jsonutil.ExtractJSONObject(string(data))
	if err != nil {
		log.Fatal().Err(err).Str("path", args[0]).Msg("Failed to parse analysis")
	}
	printAnalysis(storyboard.FromMap(obj))
}

func printAnalysis(a storyboard.SceneAnalysis) {
	cli.PrintHeader(os.Stdout, "Scene Overview")
	fmt.Println(storyboard.FormatOverview(a.SceneOverview))
	cli.PrintHeader(os.Stdout, "Annotation Plan")
	fmt.Println(a.Plan())
}
