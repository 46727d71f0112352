package extension

import (
	"encoding/json"

	"github.com/ui5-community/plugin-loader/pkg/errors"
)

// ManifestFilename is the manifest file looked up inside each dependency's
// package directory.
const ManifestFilename = "ui5-plugin-loader.json"

// Document is one parsed manifest file. A manifest contributes middleware
// entries, task entries, or named presets (presets are accepted by the
// schema but never expanded into descriptors).
type Document struct {
	Middleware []MiddlewareEntry `json:"middleware,omitempty"`
	Tasks      []TaskEntry       `json:"tasks,omitempty"`
	Presets    map[string]Preset `json:"presets,omitempty"`
}

// MiddlewareEntry is one middleware extension declaration.
type MiddlewareEntry struct {
	Name             string         `json:"name"`
	AfterMiddleware  string         `json:"afterMiddleware,omitempty"`
	BeforeMiddleware string         `json:"beforeMiddleware,omitempty"`
	MountPath        string         `json:"mountPath,omitempty"`
	Configuration    map[string]any `json:"configuration,omitempty"`
	Dependencies     []string       `json:"dependencies,omitempty"`
	Order            int            `json:"order,omitempty"`
}

// TaskEntry is one task extension declaration.
type TaskEntry struct {
	Name          string         `json:"name"`
	AfterTask     string         `json:"afterTask,omitempty"`
	BeforeTask    string         `json:"beforeTask,omitempty"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Dependencies  []string       `json:"dependencies,omitempty"`
	Order         int            `json:"order,omitempty"`
}

// Preset is a named group of entries. Presets survive parsing so hosts can
// introspect them, but the pipeline ignores them.
type Preset struct {
	Middleware []MiddlewareEntry `json:"middleware,omitempty"`
	Tasks      []TaskEntry       `json:"tasks,omitempty"`
}

// IsEmpty reports whether the document declares nothing at all.
func (d *Document) IsEmpty() bool {
	return len(d.Middleware) == 0 && len(d.Tasks) == 0 && len(d.Presets) == 0
}

// ParseDocument decodes a manifest document from JSON bytes.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest")
	}
	return &doc, nil
}

// Descriptors flattens the document's middleware and task entries into
// descriptors tagged with the contributing dependency and provenance.
// Order is preserved: middleware entries first, then task entries, each in
// manifest-array order. Presets are not expanded.
func (d *Document) Descriptors(sourceDependency string, provenance Provenance) []Descriptor {
	out := make([]Descriptor, 0, len(d.Middleware)+len(d.Tasks))

	for _, m := range d.Middleware {
		out = append(out, Descriptor{
			Name:             m.Name,
			Category:         CategoryMiddleware,
			OrderHint:        OrderHint{After: m.AfterMiddleware, Before: m.BeforeMiddleware},
			MountPath:        m.MountPath,
			Configuration:    m.Configuration,
			SourceDependency: sourceDependency,
			Provenance:       provenance,
		})
	}

	for _, t := range d.Tasks {
		out = append(out, Descriptor{
			Name:             t.Name,
			Category:         CategoryTask,
			OrderHint:        OrderHint{After: t.AfterTask, Before: t.BeforeTask},
			Configuration:    t.Configuration,
			SourceDependency: sourceDependency,
			Provenance:       provenance,
		})
	}

	return out
}
