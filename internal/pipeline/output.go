package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ImageOutput is the result of an editing or generation call. Backends
// return one of four shapes, and exactly one field of ImageOutput is set:
//
//   - Collection: several results; the first element is primary
//   - Object: a result object exposing a direct URL
//   - Data: the image bytes themselves
//   - Value: anything else, used in its string form as a URL
//
// The zero value means the backend produced nothing.
type ImageOutput struct {
	Collection []ImageOutput
	Object     *OutputObject
	Data       []byte
	Value      string
}

// OutputObject is a result record that carries the image location.
type OutputObject struct {
	URL string
}

// ImageRef locates a single resulting image, either inline or by URL.
type ImageRef struct {
	URL  string
	Data []byte
}

// Empty reports whether the ref points at nothing.
func (r ImageRef) Empty() bool {
	return len(r.Data) == 0 && strings.TrimSpace(r.URL) == ""
}

// URLOutput wraps a bare URL.
func URLOutput(url string) ImageOutput { return ImageOutput{Value: url} }

// BytesOutput wraps inline image bytes.
func BytesOutput(data []byte) ImageOutput { return ImageOutput{Data: data} }

// Normalize resolves an ImageOutput to one image reference. A collection
// yields its first element, an object its URL, anything else its string
// form. Nested collections are resolved the same way.
func (o ImageOutput) Normalize() (ImageRef, error) {
	switch {
	case o.Collection != nil:
		if len(o.Collection) == 0 {
			return ImageRef{}, ErrNoOutput
		}
		return o.Collection[0].Normalize()
	case o.Object != nil:
		if strings.TrimSpace(o.Object.URL) == "" {
			return ImageRef{}, fmt.Errorf("%w: result object has no url", ErrNoOutput)
		}
		return ImageRef{URL: o.Object.URL}, nil
	case len(o.Data) > 0:
		return ImageRef{Data: o.Data}, nil
	case strings.TrimSpace(o.Value) != "":
		return ImageRef{URL: strings.TrimSpace(o.Value)}, nil
	default:
		return ImageRef{}, ErrNoOutput
	}
}

// OutputFromJSON converts a decoded JSON value (as returned by a REST
// backend's "output" field) into an ImageOutput.
func OutputFromJSON(v any) ImageOutput {
	switch t := v.(type) {
	case nil:
		return ImageOutput{}
	case string:
		return ImageOutput{Value: t}
	case []any:
		items := make([]ImageOutput, 0, len(t))
		for _, item := range t {
			items = append(items, OutputFromJSON(item))
		}
		return ImageOutput{Collection: items}
	case map[string]any:
		if u, ok := t["url"].(string); ok {
			return ImageOutput{Object: &OutputObject{URL: u}}
		}
		b, err := json.Marshal(t)
		if err != nil {
			return ImageOutput{Value: fmt.Sprint(t)}
		}
		return ImageOutput{Value: string(b)}
	default:
		return ImageOutput{Value: fmt.Sprint(t)}
	}
}
