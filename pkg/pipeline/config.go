package pipeline

import (
	"slices"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/errors"
)

// Config is the normalized loader configuration. It is produced exactly once
// per run by [NormalizeConfig] (stage 1); downstream stages never re-check
// raw shapes.
type Config struct {
	// Debug enables verbose per-stage logging for this run.
	Debug bool

	// Disabled lists extension names excluded from the run.
	Disabled []string

	// Overrides maps extension names to partial descriptor patches.
	Overrides map[string]Override
}

// Override is a partial descriptor patch applied during stage 5.
//
// Ordering hints operate per axis: the middleware fields only affect
// middleware descriptors and the task fields only affect task descriptors.
// Setting one direction clears the other on the same axis.
type Override struct {
	AfterMiddleware  string
	BeforeMiddleware string
	AfterTask        string
	BeforeTask       string

	// MountPath replaces the descriptor's mount path when non-nil.
	MountPath *string

	// Configuration is shallow-merged over the descriptor's configuration;
	// patch keys win.
	Configuration map[string]any
}

// IsDisabled reports whether the given extension name is disabled.
func (c Config) IsDisabled(name string) bool {
	return slices.Contains(c.Disabled, name)
}

// configKeys are the recognized top-level configuration keys.
var configKeys = []string{"debug", "disable", "override", "configuration"}

// NormalizeConfig coerces a raw configuration object into a [Config].
//
// The raw object may either carry the loader keys directly or nest them
// under a "configuration" sub-object (the host passes both shapes).
// Unknown keys are logged as warnings and ignored. Malformed values for the
// known keys are a hard error: a broken configuration fails the whole run
// rather than silently resolving with the wrong extension set.
func NormalizeConfig(raw map[string]any, logger *log.Logger) (Config, error) {
	if nested, ok := raw["configuration"]; ok {
		sub, ok := nested.(map[string]any)
		if !ok {
			return Config{}, errors.New(errors.ErrCodeInvalidConfig, "configuration must be an object")
		}
		raw = sub
	}

	for key := range raw {
		if !slices.Contains(configKeys, key) {
			logger.Warn("unknown configuration key", "key", key)
		}
	}

	cfg := Config{Overrides: map[string]Override{}}

	if v, ok := raw["debug"]; ok {
		b, ok := v.(bool)
		if !ok {
			return Config{}, errors.New(errors.ErrCodeInvalidConfig, "debug must be a boolean")
		}
		cfg.Debug = b
	}

	disabled, err := normalizeDisable(raw["disable"])
	if err != nil {
		return Config{}, err
	}
	cfg.Disabled = disabled

	overrides, err := normalizeOverrides(raw["override"], logger)
	if err != nil {
		return Config{}, err
	}
	cfg.Overrides = overrides

	return cfg, nil
}

func normalizeDisable(v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			name, ok := item.(string)
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidConfig, "disable entries must be strings, got %T", item)
			}
			out = append(out, name)
		}
		return out, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "disable must be a list, got %T", v)
	}
}

func normalizeOverrides(v any, logger *log.Logger) (map[string]Override, error) {
	if v == nil {
		return map[string]Override{}, nil
	}

	raw, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "override must be an object, got %T", v)
	}

	out := make(map[string]Override, len(raw))
	for name, patch := range raw {
		fields, ok := patch.(map[string]any)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "override %q must be an object, got %T", name, patch)
		}
		o, err := normalizeOverride(name, fields, logger)
		if err != nil {
			return nil, err
		}
		out[name] = o
	}
	return out, nil
}

func normalizeOverride(name string, fields map[string]any, logger *log.Logger) (Override, error) {
	var o Override

	str := func(key string) (string, error) {
		v, ok := fields[key]
		if !ok {
			return "", nil
		}
		s, ok := v.(string)
		if !ok {
			return "", errors.New(errors.ErrCodeInvalidConfig, "override %q: %s must be a string, got %T", name, key, v)
		}
		return s, nil
	}

	var err error
	if o.AfterMiddleware, err = str("afterMiddleware"); err != nil {
		return Override{}, err
	}
	if o.BeforeMiddleware, err = str("beforeMiddleware"); err != nil {
		return Override{}, err
	}
	if o.AfterTask, err = str("afterTask"); err != nil {
		return Override{}, err
	}
	if o.BeforeTask, err = str("beforeTask"); err != nil {
		return Override{}, err
	}

	if v, ok := fields["mountPath"]; ok {
		s, ok := v.(string)
		if !ok {
			return Override{}, errors.New(errors.ErrCodeInvalidConfig, "override %q: mountPath must be a string, got %T", name, v)
		}
		o.MountPath = &s
	}

	if v, ok := fields["configuration"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return Override{}, errors.New(errors.ErrCodeInvalidConfig, "override %q: configuration must be an object, got %T", name, v)
		}
		o.Configuration = m
	}

	knownPatchKeys := []string{"afterMiddleware", "beforeMiddleware", "afterTask", "beforeTask", "mountPath", "configuration"}
	for key := range fields {
		if !slices.Contains(knownPatchKeys, key) {
			logger.Warn("unknown override key", "extension", name, "key", key)
		}
	}

	return o, nil
}
