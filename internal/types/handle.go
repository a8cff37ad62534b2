package types

// Configuration is an opaque option mapping handed to the evaluator.
type Configuration map[string]any

// OverlayList is an ordered list of opaque overlay values.
type OverlayList []any

// ComposeInput is the on-disk form of the configuration and overlays.
type ComposeInput struct {
	Config   Configuration `yaml:"config" json:"config"`
	Overlays OverlayList   `yaml:"overlays" json:"overlays"`
}

type HandleSource struct {
	URL      string `yaml:"url" json:"url"`
	Revision string `yaml:"revision" json:"revision"`
	Digest   string `yaml:"digest" json:"digest"`
}

// ImportHandle tells an external evaluator to import the artifact at
// ArtifactPath with Config, applying Overlays in order.
type ImportHandle struct {
	ArtifactPath string        `yaml:"artifactPath" json:"artifactPath"`
	Config       Configuration `yaml:"config" json:"config"`
	Overlays     OverlayList   `yaml:"overlays" json:"overlays"`
	Source       HandleSource  `yaml:"source" json:"source"`
}

// Clone returns a deep copy of the nested maps and slices a decoded
// document holds, so the copy can be changed without touching c.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for key, value := range c {
		out[key] = cloneValue(value)
	}
	return out
}

// Clone returns a deep copy in the same order.
func (o OverlayList) Clone() OverlayList {
	out := make(OverlayList, len(o))
	for i, value := range o {
		out[i] = cloneValue(value)
	}
	return out
}

// cloneValue copies the container types yaml.v3 and encoding/json decode
// into. Scalars are immutable and returned as is.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case Configuration:
		return v.Clone()
	case OverlayList:
		return v.Clone()
	default:
		return value
	}
}
