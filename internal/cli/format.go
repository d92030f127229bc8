package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Round(time.Second).Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// PrintHeader writes a boxed section title.
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "============================================")
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, "============================================")
}

// PrintSpec writes the indented Veo3 spec.
func PrintSpec(w io.Writer, spec storyboard.Veo3Spec) error {
	data, err := spec.MarshalIndent()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
