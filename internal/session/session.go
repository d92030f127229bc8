// Package session holds the per-session working state of a storyboard run:
// the three image slots, the scene analysis and the pipeline stage reached.
package session

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/fpang/veo3-storyboard/internal/imagecodec"
	"github.com/fpang/veo3-storyboard/internal/storyboard"
)

// State is the pipeline stage a session has reached.
type State string

const (
	StateEmpty     State = "empty"
	StateIngested  State = "ingested"
	StateAnalyzed  State = "analyzed"
	StateAnnotated State = "annotated"
	StateSpecified State = "specified"
)

var stateOrder = map[State]int{
	StateEmpty:     0,
	StateIngested:  1,
	StateAnalyzed:  2,
	StateAnnotated: 3,
	StateSpecified: 4,
}

// Selection picks which image slot a stage operates on.
type Selection string

const (
	// SelectCurrent applies the precedence rule: manual, then AI annotated,
	// then original.
	SelectCurrent         Selection = "current"
	SelectOriginal        Selection = "original"
	SelectAIAnnotated     Selection = "ai_annotated"
	SelectManualAnnotated Selection = "manual_annotated"
)

// ParseSelection accepts the slot names above as well as the labels used by
// the interactive front end ("Original", "AI Annotated", "Manual Annotated").
// An empty string selects the current image.
func ParseSelection(s string) (Selection, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "", "current":
		return SelectCurrent, nil
	case "original":
		return SelectOriginal, nil
	case "ai_annotated", "ai":
		return SelectAIAnnotated, nil
	case "manual_annotated", "manual":
		return SelectManualAnnotated, nil
	}
	return "", fmt.Errorf("unknown image selection %q", s)
}

// Session is a mutable per-session record. All methods are safe for
// concurrent use; images handed in or out are copies.
type Session struct {
	mu sync.RWMutex

	id        string
	createdAt time.Time
	updatedAt time.Time
	state     State

	original        *image.RGBA
	aiAnnotated     *image.RGBA
	manualAnnotated *image.RGBA

	analysis    *storyboard.SceneAnalysis
	rawAnalysis string
	plan        string
	spec        map[string]any
	source      *imagecodec.SourceMetadata
}

// New creates an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{id: id, createdAt: now, updatedAt: now, state: StateEmpty}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot is a deep copy of a session at one point in time. It shares no
// pixel buffer, pointer or map with the session.
type Snapshot struct {
	ID              string
	State           State
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Original        *image.RGBA
	AIAnnotated     *image.RGBA
	ManualAnnotated *image.RGBA
	Analysis        *storyboard.SceneAnalysis
	RawAnalysis     string
	Plan            string
	Spec            map[string]any
	Source          *imagecodec.SourceMetadata
}

// CurrentImage resolves the precedence rule over the snapshot's slots.
func (sn Snapshot) CurrentImage() *image.RGBA {
	switch {
	case sn.ManualAnnotated != nil:
		return sn.ManualAnnotated
	case sn.AIAnnotated != nil:
		return sn.AIAnnotated
	default:
		return sn.Original
	}
}

// Image resolves sel. Asking for an annotated slot that is still empty
// falls back to the original image.
func (sn Snapshot) Image(sel Selection) *image.RGBA {
	switch sel {
	case SelectAIAnnotated:
		if sn.AIAnnotated != nil {
			return sn.AIAnnotated
		}
		return sn.Original
	case SelectManualAnnotated:
		if sn.ManualAnnotated != nil {
			return sn.ManualAnnotated
		}
		return sn.Original
	case SelectOriginal:
		return sn.Original
	default:
		return sn.CurrentImage()
	}
}

// Available lists the populated image slots in display order.
func (sn Snapshot) Available() []Selection {
	var out []Selection
	if sn.Original != nil {
		out = append(out, SelectOriginal)
	}
	if sn.AIAnnotated != nil {
		out = append(out, SelectAIAnnotated)
	}
	if sn.ManualAnnotated != nil {
		out = append(out, SelectManualAnnotated)
	}
	return out
}

// Snapshot copies the session's current contents.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sn := Snapshot{
		ID:              s.id,
		State:           s.state,
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.updatedAt,
		Original:        imagecodec.Clone(s.original),
		AIAnnotated:     imagecodec.Clone(s.aiAnnotated),
		ManualAnnotated: imagecodec.Clone(s.manualAnnotated),
		RawAnalysis:     s.rawAnalysis,
		Plan:            s.plan,
		Spec:            storyboard.CloneMap(s.spec),
	}
	if s.analysis != nil {
		a := s.analysis.Clone()
		sn.Analysis = &a
	}
	if s.source != nil {
		src := *s.source
		sn.Source = &src
	}
	return sn
}

// CurrentImage returns a copy of the image selected by the precedence rule,
// or nil when no slot is populated.
func (s *Session) CurrentImage() *image.RGBA {
	return s.Image(SelectCurrent)
}

// Image returns a copy of the image resolved by sel, or nil.
func (s *Session) Image(sel Selection) *image.RGBA {
	s.mu.RLock()
	view := Snapshot{Original: s.original, AIAnnotated: s.aiAnnotated, ManualAnnotated: s.manualAnnotated}
	img := imagecodec.Clone(view.Image(sel))
	s.mu.RUnlock()
	return img
}

// Original returns a copy of the original image, or nil.
func (s *Session) Original() *image.RGBA {
	return s.Image(SelectOriginal)
}

// Analysis returns a copy of the stored analysis, or nil.
func (s *Session) Analysis() *storyboard.SceneAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analysis == nil {
		return nil
	}
	a := s.analysis.Clone()
	return &a
}

// State returns the stage the session has reached.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetOriginal stores the ingested image and its optional EXIF record.
func (s *Session) SetOriginal(img image.Image, source *imagecodec.SourceMetadata) {
	norm := imagecodec.Normalize(img)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.original = norm
	s.source = source
	s.advance(StateIngested)
}

// SetAnalysis stores the parsed analysis and the model text it came from.
func (s *Session) SetAnalysis(a storyboard.SceneAnalysis, raw string) {
	a = a.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = &a
	s.rawAnalysis = raw
	s.advance(StateAnalyzed)
}

// SetAIAnnotated stores the editor's result together with the plan that
// produced it.
func (s *Session) SetAIAnnotated(img image.Image, plan string) {
	norm := imagecodec.Normalize(img)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiAnnotated = norm
	s.plan = plan
	s.advance(StateAnnotated)
}

// SetManualAnnotated stores an image annotated by hand outside the pipeline.
// It does not advance the pipeline state.
func (s *Session) SetManualAnnotated(img image.Image) {
	norm := imagecodec.Normalize(img)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manualAnnotated = norm
	s.updatedAt = time.Now()
}

// SetSpec records the final Veo3 spec.
func (s *Session) SetSpec(spec map[string]any) {
	spec = storyboard.CloneMap(spec)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spec = spec
	s.advance(StateSpecified)
}

// advance moves the state forward; it never moves it back. Caller holds mu.
func (s *Session) advance(to State) {
	if stateOrder[to] > stateOrder[s.state] {
		s.state = to
	}
	s.updatedAt = time.Now()
}
