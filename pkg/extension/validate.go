package extension

import (
	"fmt"

	"github.com/ui5-community/plugin-loader/pkg/errors"
)

// Violation is one structural problem found in a manifest document.
type Violation struct {
	Path    string // JSON-ish path of the offending field, e.g. "middleware[1].name"
	Message string
}

// String formats the violation as "path: message".
func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// Validator checks a parsed manifest document. Implementations are injected
// into the [Store]; when no validator is configured, validation is skipped
// (fail-open, availability over strictness).
type Validator interface {
	// Validate returns all violations found in the document. An empty
	// result means the document is acceptable.
	Validate(doc *Document) []Violation
}

// StructuralValidator validates the manifest shape: at least one declared
// section, valid names, and mutually exclusive ordering hints per entry.
type StructuralValidator struct{}

// NewStructuralValidator creates the default manifest validator.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{}
}

// Validate implements [Validator].
func (v *StructuralValidator) Validate(doc *Document) []Violation {
	var out []Violation

	if doc.IsEmpty() {
		out = append(out, Violation{
			Path:    "$",
			Message: "manifest must declare middleware, tasks, or presets",
		})
		return out
	}

	for i, m := range doc.Middleware {
		path := fmt.Sprintf("middleware[%d]", i)
		out = append(out, validateMiddleware(path, m)...)
	}
	for i, t := range doc.Tasks {
		path := fmt.Sprintf("tasks[%d]", i)
		out = append(out, validateTask(path, t)...)
	}
	for name, p := range doc.Presets {
		path := fmt.Sprintf("presets[%q]", name)
		for i, m := range p.Middleware {
			out = append(out, validateMiddleware(fmt.Sprintf("%s.middleware[%d]", path, i), m)...)
		}
		for i, t := range p.Tasks {
			out = append(out, validateTask(fmt.Sprintf("%s.tasks[%d]", path, i), t)...)
		}
	}

	return out
}

func validateMiddleware(path string, m MiddlewareEntry) []Violation {
	var out []Violation
	if err := errors.ValidateExtensionName(m.Name); err != nil {
		out = append(out, Violation{Path: path + ".name", Message: errors.UserMessage(err)})
	}
	if m.AfterMiddleware != "" && m.BeforeMiddleware != "" {
		out = append(out, Violation{
			Path:    path,
			Message: "afterMiddleware and beforeMiddleware are mutually exclusive",
		})
	}
	if err := errors.ValidateMountPath(m.MountPath); err != nil {
		out = append(out, Violation{Path: path + ".mountPath", Message: errors.UserMessage(err)})
	}
	return out
}

func validateTask(path string, t TaskEntry) []Violation {
	var out []Violation
	if err := errors.ValidateExtensionName(t.Name); err != nil {
		out = append(out, Violation{Path: path + ".name", Message: errors.UserMessage(err)})
	}
	if t.AfterTask != "" && t.BeforeTask != "" {
		out = append(out, Violation{
			Path:    path,
			Message: "afterTask and beforeTask are mutually exclusive",
		})
	}
	return out
}

// Ensure StructuralValidator implements Validator.
var _ Validator = (*StructuralValidator)(nil)
