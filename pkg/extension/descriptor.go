// Package extension defines the descriptor model for build-tool extensions
// and the store that reads manifest documents contributed by dependencies.
//
// A dependency contributes extensions through a manifest file
// ([ManifestFilename]) shipped inside its own package, or through a
// same-named JSON file in a fallback directory maintained by the host
// project. Each manifest flattens into a list of [Descriptor] values which
// the resolution pipeline orders and filters.
package extension

import "maps"

// Category identifies which kind of extension a descriptor configures.
// The category determines which ordering-hint axis applies.
type Category string

const (
	// CategoryMiddleware marks server middleware extensions.
	CategoryMiddleware Category = "middleware"

	// CategoryTask marks build task extensions.
	CategoryTask Category = "task"
)

// Provenance records where a manifest document was found.
type Provenance string

const (
	// FromPackage means the manifest was shipped inside the dependency's
	// own package. It always wins over a fallback manifest.
	FromPackage Provenance = "package"

	// FromFallback means the manifest came from the host-maintained
	// fallback directory.
	FromFallback Provenance = "fallback"
)

// OrderHint expresses a relative ordering wish against another extension
// or a builtin anchor. At most one of After/Before is set.
type OrderHint struct {
	After  string
	Before string
}

// IsZero reports whether no hint is set.
func (h OrderHint) IsZero() bool {
	return h.After == "" && h.Before == ""
}

// Target returns the referenced extension name, or empty when no hint is set.
func (h OrderHint) Target() string {
	if h.After != "" {
		return h.After
	}
	return h.Before
}

// Descriptor is one extension entry contributed by a manifest.
//
// Descriptors are immutable once created: every pipeline stage that changes
// a descriptor works on a copy (see [Descriptor.Clone]).
type Descriptor struct {
	// Name uniquely identifies the extension within one pipeline run.
	Name string

	// Category selects the middleware or task axis.
	Category Category

	// OrderHint is the relative ordering wish, if any.
	OrderHint OrderHint

	// MountPath is the request path middleware is mounted at (middleware only).
	MountPath string

	// Configuration is an opaque payload forwarded to the extension.
	Configuration map[string]any

	// SourceDependency names the dependency package that contributed this
	// descriptor.
	SourceDependency string

	// Provenance records whether the manifest came from the package itself
	// or the fallback directory.
	Provenance Provenance
}

// Clone returns a copy of the descriptor with its own configuration map.
// The configuration is copied shallowly; values are treated as immutable.
func (d Descriptor) Clone() Descriptor {
	c := d
	if d.Configuration != nil {
		c.Configuration = maps.Clone(d.Configuration)
	}
	return c
}
