// Package project reads the host project's dependency declarations.
//
// The enumerator is deliberately shallow: it lists the names declared in the
// project's package.json (dependencies followed by devDependencies) with no
// transitive resolution and no deduplication. Duplicates across the two
// groups are possible and are resolved by the pipeline's dedup stage.
package project

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

const (
	packageJSON = "package.json"
	modulesDir  = "node_modules"
)

// Project is a host project rooted at a directory containing package.json
// and an installed node_modules tree.
type Project struct {
	root   string
	logger *log.Logger
}

// Open creates a project handle for the given root directory.
// A nil logger discards all output. Open does not touch the filesystem;
// missing files surface as empty results from the accessor methods.
func Open(root string, logger *log.Logger) *Project {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Project{root: root, logger: logger}
}

// Root returns the project root directory.
func (p *Project) Root() string { return p.root }

// Dependencies lists the project's declared direct dependencies: the
// "dependencies" group first, then "devDependencies", each in declaration
// order. Returns an empty list with a warning when package.json is missing
// or unreadable - never an error.
func (p *Project) Dependencies() []string {
	path := filepath.Join(p.root, packageJSON)

	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Warn("no project descriptor", "path", path, "err", err)
		return nil
	}

	var pkg packageFile
	if err := json.Unmarshal(data, &pkg); err != nil {
		p.logger.Warn("invalid project descriptor", "path", path, "err", err)
		return nil
	}

	deps := objectKeys(pkg.Dependencies)
	return append(deps, objectKeys(pkg.DevDependencies)...)
}

// PackageDir resolves an installed dependency to its package directory.
// ok is false when the package is not installed.
func (p *Project) PackageDir(name string) (string, bool) {
	dir := filepath.Join(p.root, modulesDir, filepath.FromSlash(name))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// packageFile is the subset of package.json the enumerator reads. The
// dependency groups stay raw so their key order can be recovered.
type packageFile struct {
	Name            string          `json:"name"`
	Dependencies    json.RawMessage `json:"dependencies"`
	DevDependencies json.RawMessage `json:"devDependencies"`
}

// objectKeys returns the keys of a raw JSON object in declaration order.
// encoding/json maps would lose the order, which is observable downstream:
// discovery order decides which duplicate survives deduplication.
func objectKeys(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)

		// Skip the version value.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}
