package storyboard

import (
	"fmt"
	"strconv"
)

// FromMap builds a SceneAnalysis from a decoded JSON object. Model output is
// loosely typed: numbers and booleans in text slots are stringified, sections
// of the wrong shape are treated as absent, and nothing here fails.
func FromMap(m map[string]any) SceneAnalysis {
	var a SceneAnalysis
	a.raw = m

	if o, ok := m["scene_overview"].(map[string]any); ok {
		a.SceneOverview = SceneOverview{
			Description:         str(o, "description"),
			MainSubject:         str(o, "main_subject"),
			SecondaryElements:   strList(o["secondary_elements"]),
			Mood:                str(o, "mood"),
			Lighting:            str(o, "lighting"),
			CameraOpportunities: str(o, "camera_opportunities"),
			MotionPotential:     str(o, "motion_potential"),
		}
	}

	ai, ok := m["annotation_instructions"].(map[string]any)
	if !ok {
		return a
	}

	if h, ok := ai["hero_element"].(map[string]any); ok {
		a.AnnotationInstructions.HeroElement = &HeroElement{
			What:       str(h, "what"),
			Location:   str(h, "location"),
			Motion:     str(h, "motion"),
			Annotation: str(h, "annotation"),
			Arrow:      str(h, "arrow"),
			Label:      str(h, "label"),
		}
	}
	if c, ok := ai["camera_motion"].(map[string]any); ok {
		a.AnnotationInstructions.CameraMotion = &CameraMotion{
			Type:       str(c, "type"),
			Path:       str(c, "path"),
			Annotation: str(c, "annotation"),
			Arrows:     str(c, "arrows"),
			Label:      str(c, "label"),
		}
	}
	if list, ok := ai["secondary_elements"].([]any); ok {
		for _, item := range list {
			e, ok := item.(map[string]any)
			if !ok {
				// A bare string still occupies a numbered slot.
				e = map[string]any{"what": item}
			}
			a.AnnotationInstructions.SecondaryElements = append(a.AnnotationInstructions.SecondaryElements, SecondaryElement{
				What:       str(e, "what"),
				Motion:     str(e, "motion"),
				Annotation: str(e, "annotation"),
				Label:      str(e, "label"),
			})
		}
	}
	if tm, ok := ai["timing"].(map[string]any); ok {
		a.AnnotationInstructions.Timing = &Timing{
			Duration:   str(tm, "duration"),
			Annotation: str(tm, "annotation"),
			Label:      str(tm, "label"),
		}
	}
	return a
}

// Raw returns the object the analysis was decoded from, or nil.
func (a SceneAnalysis) Raw() map[string]any {
	return a.raw
}

// OverviewObject returns the scene_overview object exactly as the model
// produced it, falling back to the typed overview.
func (a SceneAnalysis) OverviewObject() any {
	if o, ok := a.raw["scene_overview"].(map[string]any); ok {
		return o
	}
	return a.SceneOverview
}

func str(m map[string]any, key string) string {
	return scalar(m[key])
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func strList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if s := scalar(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := scalar(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
