package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// rcFile is the on-disk shape of .pluginloader.toml, kept deliberately
// close to the configuration object hosts pass programmatically.
//
//	debug = true
//	disable = ["ui5-middleware-livereload"]
//
//	[override.ui5-tooling-modules-middleware]
//	afterMiddleware = "csp"
//	mountPath = "/resources"
//
//	[override.ui5-tooling-modules-middleware.configuration]
//	watch = false
type rcFile struct {
	Debug    bool                  `toml:"debug"`
	Disable  []string              `toml:"disable"`
	Override map[string]rcOverride `toml:"override"`
}

type rcOverride struct {
	AfterMiddleware  string         `toml:"afterMiddleware"`
	BeforeMiddleware string         `toml:"beforeMiddleware"`
	AfterTask        string         `toml:"afterTask"`
	BeforeTask       string         `toml:"beforeTask"`
	MountPath        string         `toml:"mountPath"`
	Configuration    map[string]any `toml:"configuration"`
}

// loadRC reads the project's rc file and converts it to the raw
// configuration shape the pipeline normalizes. A missing file yields nil,
// which resolves with defaults; a malformed file is an error.
func loadRC(projectRoot string) (map[string]any, error) {
	path := filepath.Join(projectRoot, rcFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var rc rcFile
	if err := toml.Unmarshal(data, &rc); err != nil {
		return nil, err
	}
	return rc.rawConfig(), nil
}

// rawConfig converts the rc file to the pipeline's raw configuration shape.
func (rc rcFile) rawConfig() map[string]any {
	raw := map[string]any{}
	if rc.Debug {
		raw["debug"] = true
	}
	if len(rc.Disable) > 0 {
		raw["disable"] = rc.Disable
	}
	if len(rc.Override) > 0 {
		overrides := map[string]any{}
		for name, o := range rc.Override {
			patch := map[string]any{}
			if o.AfterMiddleware != "" {
				patch["afterMiddleware"] = o.AfterMiddleware
			}
			if o.BeforeMiddleware != "" {
				patch["beforeMiddleware"] = o.BeforeMiddleware
			}
			if o.AfterTask != "" {
				patch["afterTask"] = o.AfterTask
			}
			if o.BeforeTask != "" {
				patch["beforeTask"] = o.BeforeTask
			}
			if o.MountPath != "" {
				patch["mountPath"] = o.MountPath
			}
			if len(o.Configuration) > 0 {
				patch["configuration"] = o.Configuration
			}
			overrides[name] = patch
		}
		raw["override"] = overrides
	}
	if len(raw) == 0 {
		return nil
	}
	return raw
}
