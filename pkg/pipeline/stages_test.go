package pipeline

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ui5-community/plugin-loader/pkg/extension"
)

func mw(name string, hint extension.OrderHint) extension.Descriptor {
	return extension.Descriptor{Name: name, Category: extension.CategoryMiddleware, OrderHint: hint}
}

func task(name string, hint extension.OrderHint) extension.Descriptor {
	return extension.Descriptor{Name: name, Category: extension.CategoryTask, OrderHint: hint}
}

func names(list []extension.Descriptor) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.Name
	}
	return out
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "with-manifest")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"middleware":[{"name":"x-middleware"}],"tasks":[{"name":"x-task"}]}`
	if err := os.WriteFile(filepath.Join(pkgDir, extension.ManifestFilename), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	locate := func(dep string) (string, bool) {
		if dep == "with-manifest" {
			return pkgDir, true
		}
		return "", false
	}
	store := extension.NewStore(locate, nil, testLogger())

	got := Discover([]string{"no-manifest", "with-manifest"}, store, filepath.Join(root, "fallback"), testLogger())
	want := []string{"x-middleware", "x-task"}
	if !reflect.DeepEqual(names(got), want) {
		t.Errorf("Discover = %v, want %v", names(got), want)
	}
	if got[0].SourceDependency != "with-manifest" || got[0].Provenance != extension.FromPackage {
		t.Errorf("descriptor attribution wrong: %+v", got[0])
	}
}

func TestApplyDisable(t *testing.T) {
	list := []extension.Descriptor{
		mw("keep-one", extension.OrderHint{}),
		mw("drop-me", extension.OrderHint{}),
		task("keep-two", extension.OrderHint{}),
	}
	cfg := Config{Disabled: []string{"drop-me", "never-discovered"}}

	got := ApplyDisable(list, cfg, testLogger())
	want := []string{"keep-one", "keep-two"}
	if !reflect.DeepEqual(names(got), want) {
		t.Errorf("ApplyDisable = %v, want %v", names(got), want)
	}
}

func TestApplyDisableIsSubtractiveOnly(t *testing.T) {
	list := []extension.Descriptor{mw("keep-one", extension.OrderHint{After: "csp"})}
	got := ApplyDisable(list, Config{Disabled: []string{"other"}}, testLogger())
	if !reflect.DeepEqual(got, list) {
		t.Errorf("survivors must be unchanged: %+v", got)
	}
}

func TestFillDefaults(t *testing.T) {
	list := []extension.Descriptor{
		mw("plain-mw", extension.OrderHint{}),
		mw("hinted-mw", extension.OrderHint{Before: "csp"}),
		task("plain-task", extension.OrderHint{}),
		task("hinted-task", extension.OrderHint{After: "replaceToken"}),
	}

	got := FillDefaults(list)

	if got[0].OrderHint != (extension.OrderHint{After: DefaultMiddlewareAnchor}) {
		t.Errorf("plain middleware hint = %+v", got[0].OrderHint)
	}
	if got[1].OrderHint != (extension.OrderHint{Before: "csp"}) {
		t.Errorf("existing middleware hint replaced: %+v", got[1].OrderHint)
	}
	if got[2].OrderHint != (extension.OrderHint{After: DefaultTaskAnchor}) {
		t.Errorf("plain task hint = %+v", got[2].OrderHint)
	}
	if got[3].OrderHint != (extension.OrderHint{After: "replaceToken"}) {
		t.Errorf("existing task hint replaced: %+v", got[3].OrderHint)
	}

	// Input must not be mutated.
	if !list[0].OrderHint.IsZero() {
		t.Error("FillDefaults mutated its input")
	}
}

func TestApplyOverridesOrderHints(t *testing.T) {
	list := []extension.Descriptor{
		mw("mw-ext", extension.OrderHint{Before: "old-target"}),
		task("task-ext", extension.OrderHint{After: "old-target"}),
	}
	cfg := Config{Overrides: map[string]Override{
		"mw-ext":   {AfterMiddleware: "new-target"},
		"task-ext": {BeforeTask: "new-target"},
	}}

	got := ApplyOverrides(list, cfg)

	// The patched direction clears the opposite one on the same axis.
	if got[0].OrderHint != (extension.OrderHint{After: "new-target"}) {
		t.Errorf("middleware hint = %+v", got[0].OrderHint)
	}
	if got[1].OrderHint != (extension.OrderHint{Before: "new-target"}) {
		t.Errorf("task hint = %+v", got[1].OrderHint)
	}
}

func TestApplyOverridesAxisIsolation(t *testing.T) {
	// Task-axis patch fields must not affect a middleware descriptor.
	list := []extension.Descriptor{mw("mw-ext", extension.OrderHint{After: "csp"})}
	cfg := Config{Overrides: map[string]Override{
		"mw-ext": {AfterTask: "replaceVersion"},
	}}

	got := ApplyOverrides(list, cfg)
	if got[0].OrderHint != (extension.OrderHint{After: "csp"}) {
		t.Errorf("task patch leaked onto middleware axis: %+v", got[0].OrderHint)
	}
}

func TestApplyOverridesMountAndConfiguration(t *testing.T) {
	d := mw("mw-ext", extension.OrderHint{})
	d.MountPath = "/old"
	d.Configuration = map[string]any{"keep": 1, "replace": "manifest"}

	mount := "/new"
	cfg := Config{Overrides: map[string]Override{
		"mw-ext": {
			MountPath:     &mount,
			Configuration: map[string]any{"replace": "override", "extra": true},
		},
	}}

	got := ApplyOverrides([]extension.Descriptor{d}, cfg)

	if got[0].MountPath != "/new" {
		t.Errorf("MountPath = %q, want /new", got[0].MountPath)
	}
	want := map[string]any{"keep": 1, "replace": "override", "extra": true}
	if !reflect.DeepEqual(got[0].Configuration, want) {
		t.Errorf("Configuration = %v, want %v", got[0].Configuration, want)
	}
	// Shallow merge works on a copy, never on the manifest's map.
	if d.Configuration["extra"] != nil {
		t.Error("override mutated the input descriptor")
	}
}

func TestValidateReferences(t *testing.T) {
	list := []extension.Descriptor{
		mw("first-mw", extension.OrderHint{After: "compression"}),     // builtin anchor
		mw("second-mw", extension.OrderHint{Before: "first-mw"}),      // known descriptor
		mw("dangling-mw", extension.OrderHint{After: "no-such-ext"}),  // unknown
		task("cross-task", extension.OrderHint{After: "compression"}), // middleware builtin on task axis
		task("anchored-task", extension.OrderHint{After: "replaceVersion"}),
	}

	warnings := ValidateReferences(list, testLogger())

	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2 entries", warnings)
	}
	// Builtin anchors are category-scoped: "compression" is not a task.
	for _, w := range warnings {
		t.Log(w)
	}
}

func TestValidateReferencesNeverRemoves(t *testing.T) {
	list := []extension.Descriptor{mw("dangling-mw", extension.OrderHint{After: "ghost"})}
	_ = ValidateReferences(list, testLogger())
	if len(list) != 1 {
		t.Error("validation must be advisory only")
	}
}

func TestDedupeFirstWins(t *testing.T) {
	a := mw("dup-ext", extension.OrderHint{})
	a.SourceDependency = "pkg-a"
	b := mw("dup-ext", extension.OrderHint{})
	b.SourceDependency = "pkg-b"

	got := Dedupe([]extension.Descriptor{a, b, mw("solo-ext", extension.OrderHint{})}, testLogger())

	if !reflect.DeepEqual(names(got), []string{"dup-ext", "solo-ext"}) {
		t.Fatalf("Dedupe = %v", names(got))
	}
	if got[0].SourceDependency != "pkg-a" {
		t.Errorf("kept %q, want the first occurrence pkg-a", got[0].SourceDependency)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	list := []extension.Descriptor{
		mw("dup-ext", extension.OrderHint{}),
		mw("dup-ext", extension.OrderHint{}),
		mw("solo-ext", extension.OrderHint{}),
	}
	once := Dedupe(list, testLogger())
	twice := Dedupe(once, testLogger())
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Dedupe not idempotent: %v vs %v", names(once), names(twice))
	}
}

func TestSortBuckets(t *testing.T) {
	list := []extension.Descriptor{
		mw("ui5-middleware-livereload", extension.OrderHint{}),
		mw("ui5-tooling-modules-middleware", extension.OrderHint{}),
		mw("ui5-tooling-stringreplace-middleware", extension.OrderHint{}),
		mw("zz-plain-middleware", extension.OrderHint{}),
		task("babel-transpile-task", extension.OrderHint{}),
	}

	got := names(Sort(list))
	want := []string{
		"ui5-tooling-stringreplace-middleware", // 10
		"babel-transpile-task",                 // 20
		"ui5-tooling-modules-middleware",       // 30
		"ui5-middleware-livereload",            // 40
		"zz-plain-middleware",                  // 50
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sort = %v, want %v", got, want)
	}
}

func TestSortTieBreakLexicographic(t *testing.T) {
	list := []extension.Descriptor{
		mw("b-plain", extension.OrderHint{}),
		mw("a-plain", extension.OrderHint{}),
		mw("c-plain", extension.OrderHint{}),
	}
	got := names(Sort(list))
	want := []string{"a-plain", "b-plain", "c-plain"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sort = %v, want %v", got, want)
	}
}

func TestSortFirstPatternWins(t *testing.T) {
	// A name matching several patterns lands in the earliest bucket.
	if got := sortBucket("stringreplace-modules-middleware"); got != 10 {
		t.Errorf("bucket = %d, want 10", got)
	}
	if got := sortBucket("UI5-Tooling-Modules"); got != 30 {
		t.Errorf("matching is case-insensitive: bucket = %d, want 30", got)
	}
	if got := sortBucket("something-else"); got != defaultBucket {
		t.Errorf("bucket = %d, want %d", got, defaultBucket)
	}
}

func TestSortDeterministic(t *testing.T) {
	list := []extension.Descriptor{
		mw("g-plain", extension.OrderHint{}),
		mw("a-livereload", extension.OrderHint{}),
		task("m-transpile", extension.OrderHint{}),
		mw("b-plain", extension.OrderHint{}),
	}
	first := names(Sort(list))
	second := names(Sort(list))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Sort not deterministic: %v vs %v", first, second)
	}
	// Sort must not reorder its input.
	if list[0].Name != "g-plain" {
		t.Error("Sort mutated its input")
	}
}
