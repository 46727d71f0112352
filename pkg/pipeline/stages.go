package pipeline

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/extension"
)

// Well-known host anchor points used as default ordering targets.
const (
	// DefaultMiddlewareAnchor is the builtin middleware every unhinted
	// middleware extension is placed after.
	DefaultMiddlewareAnchor = "compression"

	// DefaultTaskAnchor is the builtin task every unhinted task extension
	// is placed after.
	DefaultTaskAnchor = "replaceVersion"
)

// Builtin anchor names accepted as order-hint targets even though no
// descriptor carries them: the host ships these itself.
var (
	builtinMiddleware = []string{"compression", "csp", "cors"}
	builtinTasks      = []string{"replaceVersion", "replaceCopyright", "replaceToken"}
)

// sortPatterns classifies descriptor names into priority buckets. Patterns
// are tested in order, first match wins; unmatched names land in
// defaultBucket. Matching is case-insensitive substring containment.
var sortPatterns = []struct {
	substr string
	bucket int
}{
	{"stringreplace", 10},
	{"transpile", 20},
	{"modules", 30},
	{"livereload", 40},
}

const defaultBucket = 50

// Discover runs stage 2: for every dependency, look up its manifest and
// flatten the entries into descriptors. Output order is dependency order,
// then manifest-array order within each dependency. Dependencies without a
// manifest contribute nothing.
func Discover(dependencies []string, store *extension.Store, fallbackDir string, logger *log.Logger) []extension.Descriptor {
	var out []extension.Descriptor
	for _, dep := range dependencies {
		doc, provenance, ok := store.Load(dep, fallbackDir)
		if !ok {
			continue
		}
		descs := doc.Descriptors(dep, provenance)
		logger.Debug("discovered extensions", "dependency", dep, "count", len(descs), "provenance", provenance)
		out = append(out, descs...)
	}
	return out
}

// ApplyDisable runs stage 3: drop every descriptor whose name is disabled.
// Survivors keep their relative order and are not modified in any way.
func ApplyDisable(list []extension.Descriptor, cfg Config, logger *log.Logger) []extension.Descriptor {
	out := make([]extension.Descriptor, 0, len(list))
	for _, d := range list {
		if cfg.IsDisabled(d.Name) {
			logger.Info("extension disabled", "name", d.Name)
			continue
		}
		out = append(out, d)
	}
	return out
}

// FillDefaults runs stage 4: descriptors without an order hint are anchored
// after the host's well-known default for their category.
func FillDefaults(list []extension.Descriptor) []extension.Descriptor {
	out := make([]extension.Descriptor, 0, len(list))
	for _, d := range list {
		if !d.OrderHint.IsZero() {
			out = append(out, d)
			continue
		}
		c := d.Clone()
		switch d.Category {
		case extension.CategoryMiddleware:
			c.OrderHint = extension.OrderHint{After: DefaultMiddlewareAnchor}
		case extension.CategoryTask:
			c.OrderHint = extension.OrderHint{After: DefaultTaskAnchor}
		}
		out = append(out, c)
	}
	return out
}

// ApplyOverrides runs stage 5: descriptors with a configured override get a
// replaced order hint (the patched direction clears the opposite one on the
// same axis), a replaced mount path, and a shallow-merged configuration.
func ApplyOverrides(list []extension.Descriptor, cfg Config) []extension.Descriptor {
	out := make([]extension.Descriptor, 0, len(list))
	for _, d := range list {
		patch, ok := cfg.Overrides[d.Name]
		if !ok {
			out = append(out, d)
			continue
		}

		c := d.Clone()

		switch d.Category {
		case extension.CategoryMiddleware:
			if patch.AfterMiddleware != "" {
				c.OrderHint = extension.OrderHint{After: patch.AfterMiddleware}
			} else if patch.BeforeMiddleware != "" {
				c.OrderHint = extension.OrderHint{Before: patch.BeforeMiddleware}
			}
			if patch.MountPath != nil {
				c.MountPath = *patch.MountPath
			}
		case extension.CategoryTask:
			if patch.AfterTask != "" {
				c.OrderHint = extension.OrderHint{After: patch.AfterTask}
			} else if patch.BeforeTask != "" {
				c.OrderHint = extension.OrderHint{Before: patch.BeforeTask}
			}
		}

		if len(patch.Configuration) > 0 {
			if c.Configuration == nil {
				c.Configuration = make(map[string]any, len(patch.Configuration))
			}
			for k, v := range patch.Configuration {
				c.Configuration[k] = v
			}
		}

		out = append(out, c)
	}
	return out
}

// ValidateReferences runs stage 6: every order-hint target must exist among
// the current descriptors or the builtin anchors. This stage is advisory
// only - unknown targets produce warnings, never removals. The returned
// warnings mirror what was logged, for host inspection.
func ValidateReferences(list []extension.Descriptor, logger *log.Logger) []string {
	known := make(map[string]bool, len(list))
	for _, d := range list {
		known[d.Name] = true
	}

	builtins := map[extension.Category][]string{
		extension.CategoryMiddleware: builtinMiddleware,
		extension.CategoryTask:       builtinTasks,
	}

	var warnings []string
	for _, d := range list {
		target := d.OrderHint.Target()
		if target == "" || known[target] {
			continue
		}
		if slices.Contains(builtins[d.Category], target) {
			continue
		}
		msg := fmt.Sprintf("extension %q references unknown order target %q", d.Name, target)
		logger.Warn("dangling order reference", "name", d.Name, "target", target)
		warnings = append(warnings, msg)
	}
	return warnings
}

// Dedupe runs stage 7: scanning in list order, the first descriptor for
// each name is kept and every later one is dropped with a warning.
// Dedupe is idempotent: running it on its own output changes nothing.
func Dedupe(list []extension.Descriptor, logger *log.Logger) []extension.Descriptor {
	seen := make(map[string]string, len(list)) // name -> source dependency
	out := make([]extension.Descriptor, 0, len(list))
	for _, d := range list {
		if first, dup := seen[d.Name]; dup {
			logger.Warn("duplicate extension dropped",
				"name", d.Name, "kept", first, "dropped", d.SourceDependency)
			continue
		}
		seen[d.Name] = d.SourceDependency
		out = append(out, d)
	}
	return out
}

// Sort runs stage 8: descriptors are classified into priority buckets by
// name pattern and sorted ascending by bucket, then by name (ordinal).
//
// The order hints collected in stages 4-5 are deliberately not consulted
// here: they are carried to the host for its own scheduling, while the
// pipeline's output order is fully determined by the bucket scheme.
func Sort(list []extension.Descriptor) []extension.Descriptor {
	out := make([]extension.Descriptor, len(list))
	copy(out, list)

	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := sortBucket(out[i].Name), sortBucket(out[j].Name)
		if bi != bj {
			return bi < bj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// sortBucket returns the priority bucket for an extension name.
func sortBucket(name string) int {
	lower := strings.ToLower(name)
	for _, p := range sortPatterns {
		if strings.Contains(lower, p.substr) {
			return p.bucket
		}
	}
	return defaultBucket
}
