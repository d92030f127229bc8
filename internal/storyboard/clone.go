package storyboard

import "slices"

// Clone returns a deep copy of a. No pointer, slice or map is shared with
// the receiver.
func (a SceneAnalysis) Clone() SceneAnalysis {
	out := a
	out.SceneOverview.SecondaryElements = slices.Clone(a.SceneOverview.SecondaryElements)

	ai := &out.AnnotationInstructions
	if h := a.AnnotationInstructions.HeroElement; h != nil {
		c := *h
		ai.HeroElement = &c
	}
	if c := a.AnnotationInstructions.CameraMotion; c != nil {
		cm := *c
		ai.CameraMotion = &cm
	}
	if t := a.AnnotationInstructions.Timing; t != nil {
		tm := *t
		ai.Timing = &tm
	}
	ai.SecondaryElements = slices.Clone(a.AnnotationInstructions.SecondaryElements)
	out.raw = CloneMap(a.raw)
	return out
}

// CloneMap deep-copies a decoded JSON object. Nested objects and arrays are
// copied; scalars are immutable and shared.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
