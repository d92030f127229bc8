package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/veo3-storyboard/internal/cli"
	"github.com/fpang/veo3-storyboard/internal/imagecodec"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
	"github.com/fpang/veo3-storyboard/internal/session"
	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

var (
	promptFlag       string
	annotatedOutFlag string
	specOutFlag      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: analyze, annotate and generate the Veo3 spec",
	Run:   runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Description of the video to generate")
	runCmd.Flags().StringVar(&annotatedOutFlag, "annotated-out", "", "Write the annotated frame to this PNG file")
	runCmd.Flags().StringVarP(&specOutFlag, "out", "o", "", "Write the Veo3 spec to this file instead of stdout")
}

func runPipeline(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a := cli.InitApp(ctx)

	req := pipeline.RunRequest{IngestRequest: ingestRequest(), UserPrompt: promptFlag}
	if req.UserPrompt == "" {
		p, err := cli.PromptLine(os.Stdin, os.Stdout, "Video description")
		if err != nil {
			log.Fatal().Err(err).Msg("A video description is required")
		}
		req.UserPrompt = p
	}

	start := time.Now()
	sess := a.Sessions.Create()
	res, err := a.Orchestrator.Run(ctx, sess, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}

	cli.PrintHeader(os.Stdout, "Scene Overview")
	fmt.Println(storyboard.FormatOverview(res.SceneOverview))
	cli.PrintHeader(os.Stdout, "Annotation Plan")
	fmt.Println(res.Plan)

	if annotatedOutFlag != "" {
		data, err := imagecodec.EncodePNG(sess.Image(session.SelectAIAnnotated))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode annotated frame")
		}
		writePNG(annotatedOutFlag, data)
	}

	if specOutFlag != "" {
		data, err := res.Spec.MarshalIndent()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode spec")
		}
		if err := os.WriteFile(specOutFlag, append(data, '\n'), 0o644); err != nil {
			log.Fatal().Err(err).Str("path", specOutFlag).Msg("Failed to write spec")
		}
		fmt.Printf("Veo3 spec: %s\n", specOutFlag)
	} else {
		cli.PrintHeader(os.Stdout, "Veo3 Spec")
		if err := cli.PrintSpec(os.Stdout, res.Spec); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode spec")
		}
	}

	fmt.Printf("\nCompleted in %s\n", cli.FormatDurationShort(time.Since(start)))
}
