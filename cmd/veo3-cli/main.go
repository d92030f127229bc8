package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fpang/veo3-storyboard/internal/logging"
)

// Shared flags
var (
	imageFlag    string
	pickFlag     bool
	generateFlag string
)

var rootCmd = &cobra.Command{
	Use:   "veo3-cli",
	Short: "Turn a still frame into a storyboard and a Veo3 video spec",
	Long: `Veo3 CLI analyzes a reference image, draws storyboard annotations on it
and asks Gemini for a structured Veo3 video generation spec.

Credentials are read from GEMINI_API_KEY and REPLICATE_API_TOKEN, or from
GPG-encrypted files under ~/.veo3-storyboard.

Examples:
  veo3-cli run -i harbor.jpg -p "the sailboat glides out of the harbor"
  veo3-cli run --pick --annotated-out storyboard.png
  veo3-cli run -g "a lighthouse on a cliff at dawn" -p "slow aerial orbit"
  veo3-cli analyze -i harbor.jpg --json
  veo3-cli plan analysis.json`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, analyzeCmd} {
		c.Flags().StringVarP(&imageFlag, "image", "i", "", "Reference image to start from")
		c.Flags().BoolVar(&pickFlag, "pick", false, "Choose the reference image in a native file dialog")
		c.Flags().StringVarP(&generateFlag, "generate", "g", "", "Generate the reference image from this prompt instead")
		c.MarkFlagsMutuallyExclusive("image", "pick", "generate")
	}
	rootCmd.AddCommand(runCmd, analyzeCmd, planCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
