package storyboard

import (
	"fmt"
	"strings"
)

// Defaults substituted when the analysis leaves a slot empty.
const (
	DefaultHeroAnnotation      = "RED CIRCLE around main subject"
	DefaultHeroArrow           = "RED ARROW showing movement"
	DefaultHeroLabel           = "HERO MOVES"
	DefaultCameraAnnotation    = "BLUE DOTTED LINE for camera path"
	DefaultCameraArrows        = "BLUE ARROWS showing direction"
	DefaultCameraLabel         = "CAMERA MOTION"
	DefaultSecondaryAnnotation = "GREEN annotation"
	DefaultSecondaryLabel      = "ELEMENT"
	DefaultTimingAnnotation    = "ORANGE TEXT"
	DefaultTimingLabel         = "TIMING"
)

// firstSecondaryIndex is the list number of the first secondary element.
// Slots 1 and 2 belong to the hero and camera sections whether or not they
// render.
const firstSecondaryIndex = 3

var planPreamble = []string{
	"Keep the original photo unchanged. Only add storyboard markup overlays.",
	"Draw colored annotation marks as an overlay on top of the existing photo:",
	"IMPORTANT: Do NOT recreate or modify the base image - only add annotations.",
	"",
}

var planClosing = []string{
	"",
	"Use colored markers for all annotations.",
	"Preserve the original photo completely - only add overlay markings.",
}

// BuildPlan renders the annotation instructions into the editing prompt.
// The output depends only on its input.
func BuildPlan(ai AnnotationInstructions) string {
	lines := make([]string, 0, len(planPreamble)+len(planClosing)+8+2*len(ai.SecondaryElements))
	lines = append(lines, planPreamble...)

	if h := ai.HeroElement; h != nil {
		lines = append(lines,
			"1. Draw a thick "+or(h.Annotation, DefaultHeroAnnotation),
			"   Add "+or(h.Arrow, DefaultHeroArrow),
			"   Label: '"+or(h.Label, DefaultHeroLabel)+"'",
		)
	}

	if c := ai.CameraMotion; c != nil {
		lines = append(lines,
			"2. Draw "+or(c.Annotation, DefaultCameraAnnotation),
			"   Add "+or(c.Arrows, DefaultCameraArrows),
			"   Label: '"+or(c.Label, DefaultCameraLabel)+"'",
		)
	}

	for i, e := range ai.SecondaryElements {
		lines = append(lines,
			fmt.Sprintf("%d. %s", firstSecondaryIndex+i, or(e.Annotation, DefaultSecondaryAnnotation)),
			"   Label: '"+or(e.Label, DefaultSecondaryLabel)+"'",
		)
	}

	if tm := ai.Timing; tm != nil {
		lines = append(lines, fmt.Sprintf("Add %s with '%s'",
			or(tm.Annotation, DefaultTimingAnnotation), or(tm.Label, DefaultTimingLabel)))
	}

	lines = append(lines, planClosing...)
	return strings.Join(lines, "\n")
}

// Plan is shorthand for BuildPlan(a.AnnotationInstructions).
func (a SceneAnalysis) Plan() string {
	return BuildPlan(a.AnnotationInstructions)
}

// or returns v unless it is blank.
func or(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
