package extension

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Locator resolves a dependency name to its package directory on the host
// filesystem. ok is false when the package cannot be found.
type Locator func(dependency string) (dir string, ok bool)

// Store reads one manifest document per dependency.
//
// Lookup order: the dependency's own package directory first, then the
// fallback directory. The fallback is consulted only when the package ships
// no manifest at all: a manifest that is present but unreadable, malformed,
// or invalid is a terminal miss for that dependency. Failures are logged and
// reported as "not found" - the store never fails a pipeline run over a
// single broken manifest.
type Store struct {
	locate    Locator
	validator Validator
	logger    *log.Logger
}

// NewStore creates a descriptor store.
// The validator may be nil, in which case validation is skipped entirely.
// A nil logger discards all output.
func NewStore(locate Locator, validator Validator, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Store{locate: locate, validator: validator, logger: logger}
}

// Load looks up the manifest for one dependency.
//
// The boolean result is false when no manifest exists for the dependency or
// when the manifest was dropped as malformed. Load never returns an error:
// per the recovery policy, a broken manifest is logged and skipped so the
// remaining dependencies still resolve.
func (s *Store) Load(dependency, fallbackDir string) (*Document, Provenance, bool) {
	if dir, ok := s.locate(dependency); ok {
		path := filepath.Join(dir, ManifestFilename)
		doc, present := s.read(dependency, path)
		if present {
			if doc == nil {
				// The package ships a manifest but it is broken. The
				// fallback only stands in for an absent manifest, so this
				// dependency is done.
				return nil, "", false
			}
			return doc, FromPackage, true
		}
	}

	if fallbackDir != "" {
		path := filepath.Join(fallbackDir, dependency+".json")
		if doc, present := s.read(dependency, path); present && doc != nil {
			return doc, FromFallback, true
		}
	}

	return nil, "", false
}

// read loads and validates a single manifest file. present is false only
// when no file exists at path; a file that exists but cannot be used is
// logged at error level and returned as (nil, true).
func (s *Store) read(dependency, path string) (doc *Document, present bool) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false
	}
	if err != nil {
		s.logger.Error("read manifest", "dependency", dependency, "path", path, "err", err)
		return nil, true
	}

	doc, err = ParseDocument(data)
	if err != nil {
		s.logger.Error("invalid manifest", "dependency", dependency, "path", path, "err", err)
		return nil, true
	}

	if s.validator != nil {
		if violations := s.validator.Validate(doc); len(violations) > 0 {
			for _, v := range violations {
				s.logger.Error("manifest validation failed",
					"dependency", dependency, "path", v.Path, "message", v.Message)
			}
			return nil, true
		}
	}

	return doc, true
}
