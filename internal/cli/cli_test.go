package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{42 * time.Second, "0:42"},
		{90*time.Second + 600*time.Millisecond, "1:31"},
		{2*time.Hour + 5*time.Minute + 3*time.Second, "2:05:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestValidateImagePath(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "frame.PNG")
	txt := filepath.Join(dir, "notes.txt")
	for _, p := range []string{png, txt} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"image", png, ""},
		{"empty", "  ", "empty"},
		{"missing", filepath.Join(dir, "nope.png"), "not found"},
		{"directory", dir, "directory"},
		{"wrong type", txt, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateImagePath(tt.path)
			if tt.wantErr == "" {
				if err != nil || !filepath.IsAbs(got) {
					t.Errorf("ValidateImagePath() = %q, %v", got, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateImagePath() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestPromptLine(t *testing.T) {
	var out bytes.Buffer
	got, err := PromptLine(strings.NewReader("  a slow pan across the bay \n"), &out, "Video description")
	if err != nil || got != "a slow pan across the bay" {
		t.Errorf("PromptLine() = %q, %v", got, err)
	}
	if out.String() != "Video description: " {
		t.Errorf("prompt = %q", out.String())
	}

	if _, err := PromptLine(strings.NewReader("\n"), &out, "x"); !errors.Is(err, ErrNoInput) {
		t.Errorf("blank input error = %v", err)
	}
	if got, err := PromptLine(strings.NewReader("no newline"), &out, "x"); err != nil || got != "no newline" {
		t.Errorf("EOF input = %q, %v", got, err)
	}
}

func TestPrintSpec(t *testing.T) {
	var out bytes.Buffer
	if err := PrintSpec(&out, storyboard.Veo3Spec{"prompt": "waves"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"prompt": "waves"`) {
		t.Errorf("output = %q", out.String())
	}
}
