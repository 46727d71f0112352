package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// Extension name constraints. Names are npm-style: lowercase, starting with a
// letter or @-scope, and limited to a conservative character set.
const (
	MinNameLength = 3
	MaxNameLength = 80
)

// extensionNameRegex matches valid extension names.
var extensionNameRegex = regexp.MustCompile(`^[a-z@][a-z0-9@._\-/]*$`)

// ValidateExtensionName validates an extension or package name.
// It rejects names that are malformed or could be used for path traversal.
func ValidateExtensionName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "extension name cannot be empty")
	}

	if len(name) < MinNameLength {
		return New(ErrCodeInvalidName, "extension name too short (min %d characters): %q", MinNameLength, name)
	}
	if len(name) > MaxNameLength {
		return New(ErrCodeInvalidName, "extension name too long (max %d characters): %q", MaxNameLength, name)
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "extension name contains path traversal: %q", name)
	}

	if !extensionNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid extension name: %q", name)
	}

	return nil
}

// ValidateManifestFilename validates a fallback manifest filename.
// It ensures the filename is a simple basename without path components.
func ValidateManifestFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be a hidden file")
	}

	return nil
}

// ValidateMountPath validates a middleware mount path.
// Mount paths are absolute request paths like "/proxy" or "/".
func ValidateMountPath(path string) error {
	if path == "" {
		return nil // optional field
	}

	if !strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "mount path must start with /: %q", path)
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "mount path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "mount path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "mount path cannot contain path traversal sequences (..)")
	}

	return nil
}
