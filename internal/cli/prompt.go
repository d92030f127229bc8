package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrNoInput is returned when the user enters nothing or cancels a dialog.
var ErrNoInput = errors.New("no input provided")

// PromptLine prints label and reads one trimmed line from r.
func PromptLine(r io.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)

	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNoInput
	}
	return input, nil
}

// PickImage opens a native file dialog filtered to image files.
func PickImage() (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Title("Select a reference frame"),
		zenity.FileFilters{
			{
				Name:     "Images",
				Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.bmp", "*.tiff"},
				CaseFold: true,
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("file picker failed: %w", err)
	}
	log.Debug().Str("path", selected).Msg("Image picked via native dialog")
	return selected, nil
}
