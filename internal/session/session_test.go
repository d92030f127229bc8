package session

import (
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

func solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func colorOf(img *image.RGBA) color.RGBA {
	if img == nil {
		return color.RGBA{}
	}
	return img.RGBAAt(0, 0)
}

func TestCurrentImagePrecedence(t *testing.T) {
	tests := []struct {
		name                 string
		original, ai, manual bool
		want                 color.RGBA
		wantNil              bool
	}{
		{name: "all three", original: true, ai: true, manual: true, want: blue},
		{name: "ai and original", original: true, ai: true, want: green},
		{name: "original only", original: true, want: red},
		{name: "none", wantNil: true},
		{name: "manual without ai", original: true, manual: true, want: blue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("test")
			if tt.original {
				s.SetOriginal(solid(red), nil)
			}
			if tt.ai {
				s.SetAIAnnotated(solid(green), "plan")
			}
			if tt.manual {
				s.SetManualAnnotated(solid(blue))
			}

			got := s.CurrentImage()
			if tt.wantNil {
				if got != nil {
					t.Fatalf("CurrentImage() = %v, want nil", got.Bounds())
				}
				return
			}
			if colorOf(got) != tt.want {
				t.Errorf("CurrentImage() colour = %v, want %v", colorOf(got), tt.want)
			}
			if snap := s.Snapshot(); colorOf(snap.CurrentImage()) != tt.want {
				t.Errorf("Snapshot().CurrentImage() colour = %v, want %v", colorOf(snap.CurrentImage()), tt.want)
			}
		})
	}
}

func TestEmptySession(t *testing.T) {
	s := New("empty")

	snap := s.Snapshot()
	if snap.Original != nil || snap.AIAnnotated != nil || snap.ManualAnnotated != nil {
		t.Errorf("Snapshot() of empty session has images")
	}
	if snap.CurrentImage() != nil {
		t.Error("Snapshot().CurrentImage() is not nil")
	}
	if s.CurrentImage() != nil {
		t.Error("CurrentImage() is not nil")
	}
	for _, sel := range []Selection{SelectOriginal, SelectAIAnnotated, SelectManualAnnotated} {
		if s.Image(sel) != nil {
			t.Errorf("Image(%s) is not nil", sel)
		}
	}
}

func TestSnapshotWithPartialSlots(t *testing.T) {
	s := New("partial")
	s.SetOriginal(solid(red), nil)
	s.SetAIAnnotated(solid(green), "plan")

	snap := s.Snapshot()
	if colorOf(snap.Original) != red || colorOf(snap.AIAnnotated) != green || snap.ManualAnnotated != nil {
		t.Errorf("Snapshot() slots = %v %v %v", colorOf(snap.Original), colorOf(snap.AIAnnotated), snap.ManualAnnotated)
	}
}

func TestSnapshotSharesNoState(t *testing.T) {
	s := New("deep")
	s.SetAnalysis(storyboard.FromMap(map[string]any{
		"annotation_instructions": map[string]any{"hero_element": map[string]any{"label": "BOAT"}},
	}), "{}")
	spec := map[string]any{"camera": map[string]any{"movement": "pan"}}
	s.SetSpec(spec)

	// Mutating the caller's map after the write must not reach the session.
	spec["camera"].(map[string]any)["movement"] = "caller"

	snap := s.Snapshot()
	snap.Analysis.AnnotationInstructions.HeroElement.Label = "changed"
	snap.Spec["camera"].(map[string]any)["movement"] = "changed"

	again := s.Snapshot()
	if again.Analysis.AnnotationInstructions.HeroElement.Label != "BOAT" {
		t.Error("Snapshot() shares the hero element")
	}
	if again.Spec["camera"].(map[string]any)["movement"] != "pan" {
		t.Errorf("Snapshot() spec = %v", again.Spec)
	}
	if s.Analysis().AnnotationInstructions.HeroElement == snap.Analysis.AnnotationInstructions.HeroElement {
		t.Error("Analysis() returns a shared pointer")
	}
}

func TestImageSelectionFallsBackToOriginal(t *testing.T) {
	s := New("test")
	s.SetOriginal(solid(red), nil)

	for _, sel := range []Selection{SelectAIAnnotated, SelectManualAnnotated, SelectOriginal, SelectCurrent} {
		if got := colorOf(s.Image(sel)); got != red {
			t.Errorf("Image(%s) = %v, want original", sel, got)
		}
	}

	s.SetAIAnnotated(solid(green), "plan")
	if got := colorOf(s.Image(SelectOriginal)); got != red {
		t.Errorf("Image(original) = %v after annotate, want red", got)
	}
	if got := colorOf(s.Image(SelectAIAnnotated)); got != green {
		t.Errorf("Image(ai_annotated) = %v, want green", got)
	}
}

func TestImagesAreCopies(t *testing.T) {
	src := solid(red)
	s := New("test")
	s.SetOriginal(src, nil)

	src.SetRGBA(0, 0, blue)
	got := s.Original()
	if colorOf(got) != red {
		t.Fatal("session aliased the caller's image")
	}

	got.SetRGBA(0, 0, green)
	if colorOf(s.Original()) != red {
		t.Fatal("session returned its internal buffer")
	}
}

func TestStateNeverMovesBack(t *testing.T) {
	s := New("test")
	if s.State() != StateEmpty {
		t.Fatalf("initial state = %s", s.State())
	}
	s.SetOriginal(solid(red), nil)
	s.SetAnalysis(storyboard.SceneAnalysis{}, "{}")
	s.SetAIAnnotated(solid(green), "plan")
	if s.State() != StateAnnotated {
		t.Fatalf("state = %s, want annotated", s.State())
	}

	// Re-running analysis on the same session keeps the later stage.
	s.SetAnalysis(storyboard.SceneAnalysis{}, "{}")
	if s.State() != StateAnnotated {
		t.Errorf("state = %s after re-analysis, want annotated", s.State())
	}
	s.SetManualAnnotated(solid(blue))
	if s.State() != StateAnnotated {
		t.Errorf("manual save changed state to %s", s.State())
	}
}

func TestSnapshotAvailable(t *testing.T) {
	s := New("test")
	if got := s.Snapshot().Available(); len(got) != 0 {
		t.Errorf("Available() = %v, want none", got)
	}
	s.SetOriginal(solid(red), nil)
	s.SetManualAnnotated(solid(blue))
	got := s.Snapshot().Available()
	if len(got) != 2 || got[0] != SelectOriginal || got[1] != SelectManualAnnotated {
		t.Errorf("Available() = %v", got)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    Selection
		wantErr bool
	}{
		{"", SelectCurrent, false},
		{"current", SelectCurrent, false},
		{"Original", SelectOriginal, false},
		{"AI Annotated", SelectAIAnnotated, false},
		{"ai_annotated", SelectAIAnnotated, false},
		{"Manual Annotated", SelectManualAnnotated, false},
		{"manual-annotated", SelectManualAnnotated, false},
		{"thumbnail", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSelection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSelection(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := New("test")
	s.SetOriginal(solid(red), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetAIAnnotated(solid(green), "plan")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.CurrentImage()
		}()
	}
	wg.Wait()
}

func TestStore(t *testing.T) {
	st := NewStore(time.Minute, time.Minute)

	s := st.Create()
	if s.ID() == "" {
		t.Fatal("Create() returned empty ID")
	}
	got, ok := st.Get(s.ID())
	if !ok || got != s {
		t.Fatal("Get() did not return the created session")
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}

	other := st.Create()
	if other.ID() == s.ID() {
		t.Error("Create() reused an ID")
	}

	st.Delete(s.ID())
	if _, ok := st.Get(s.ID()); ok {
		t.Error("Get() found a deleted session")
	}
	st.Delete("unknown")
}

func TestStoreExpiry(t *testing.T) {
	st := NewStore(20*time.Millisecond, time.Hour)
	s := st.Create()
	time.Sleep(50 * time.Millisecond)
	if _, ok := st.Get(s.ID()); ok {
		t.Error("Get() returned an expired session")
	}
}
