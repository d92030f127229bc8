package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/cli"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
)

// ingestRequest resolves the image flags into an ingest request, prompting
// for a path when none was given.
func ingestRequest() pipeline.IngestRequest {
	if generateFlag != "" {
		return pipeline.IngestRequest{GeneratePrompt: generateFlag}
	}

	path := imageFlag
	if pickFlag {
		picked, err := cli.PickImage()
		if err != nil {
			log.Fatal().Err(err).Msg("No image selected")
		}
		path = picked
	}
	if path == "" {
		entered, err := cli.PromptLine(os.Stdin, os.Stdout, "Image path")
		if err != nil {
			log.Fatal().Err(err).Msg("An image path or --generate prompt is required")
		}
		path = entered
	}

	path, err := cli.ValidateImagePath(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid image")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read image")
	}
	log.Info().Str("path", path).Int("bytes", len(data)).Msg("Reference image loaded")
	return pipeline.IngestRequest{ImageBytes: data}
}

func writePNG(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write image")
	}
	fmt.Printf("Annotated frame: %s\n", path)
}
