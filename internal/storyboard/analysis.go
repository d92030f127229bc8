// Package storyboard models the scene analysis returned by the vision model
// and renders it into the markup plan sent to the image editor.
package storyboard

// SceneAnalysis is the two-part analysis produced for a single frame. Every
// field is optional; a zero SceneAnalysis is valid.
type SceneAnalysis struct {
	SceneOverview          SceneOverview          `json:"scene_overview"`
	AnnotationInstructions AnnotationInstructions `json:"annotation_instructions"`

	raw map[string]any
}

// SceneOverview describes the frame in free text.
type SceneOverview struct {
	Description         string   `json:"description,omitempty"`
	MainSubject         string   `json:"main_subject,omitempty"`
	SecondaryElements   []string `json:"secondary_elements,omitempty"`
	Mood                string   `json:"mood,omitempty"`
	Lighting            string   `json:"lighting,omitempty"`
	CameraOpportunities string   `json:"camera_opportunities,omitempty"`
	MotionPotential     string   `json:"motion_potential,omitempty"`
}

// AnnotationInstructions lists the overlays to draw. A nil pointer means the
// section was absent from the model output and is skipped in the plan; a
// non-nil pointer renders its section even when every field is empty.
type AnnotationInstructions struct {
	HeroElement       *HeroElement       `json:"hero_element,omitempty"`
	CameraMotion      *CameraMotion      `json:"camera_motion,omitempty"`
	SecondaryElements []SecondaryElement `json:"secondary_elements,omitempty"`
	Timing            *Timing            `json:"timing,omitempty"`
}

// HeroElement is the primary moving subject, marked in red.
type HeroElement struct {
	What       string `json:"what,omitempty"`
	Location   string `json:"location,omitempty"`
	Motion     string `json:"motion,omitempty"`
	Annotation string `json:"annotation,omitempty"`
	Arrow      string `json:"arrow,omitempty"`
	Label      string `json:"label,omitempty"`
}

// CameraMotion is the camera path, marked in blue.
type CameraMotion struct {
	Type       string `json:"type,omitempty"`
	Path       string `json:"path,omitempty"`
	Annotation string `json:"annotation,omitempty"`
	Arrows     string `json:"arrows,omitempty"`
	Label      string `json:"label,omitempty"`
}

// SecondaryElement is a supporting element, marked in green.
type SecondaryElement struct {
	What       string `json:"what,omitempty"`
	Motion     string `json:"motion,omitempty"`
	Annotation string `json:"annotation,omitempty"`
	Label      string `json:"label,omitempty"`
}

// Timing is the scene timing callout, marked in orange.
type Timing struct {
	Duration   string `json:"duration,omitempty"`
	Annotation string `json:"annotation,omitempty"`
	Label      string `json:"label,omitempty"`
}

// IsEmpty reports whether the analysis carries no usable content at all.
func (a SceneAnalysis) IsEmpty() bool {
	o := a.SceneOverview
	ai := a.AnnotationInstructions
	return o.Description == "" && o.MainSubject == "" && len(o.SecondaryElements) == 0 &&
		o.Mood == "" && o.Lighting == "" && o.CameraOpportunities == "" && o.MotionPotential == "" &&
		ai.HeroElement == nil && ai.CameraMotion == nil && len(ai.SecondaryElements) == 0 && ai.Timing == nil
}
