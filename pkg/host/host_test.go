package host

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/cache"
	"github.com/ui5-community/plugin-loader/pkg/dispatch"
	"github.com/ui5-community/plugin-loader/pkg/extension"
	"github.com/ui5-community/plugin-loader/pkg/loader"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func writeProject(t *testing.T, manifests map[string]string) string {
	t.Helper()
	root := t.TempDir()

	pkg := `{"dependencies":{`
	sep := ""
	for dep := range manifests {
		pkg += sep + `"` + dep + `":"1.0.0"`
		sep = ","
	}
	pkg += `}}`
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte(pkg), 0o644); err != nil {
		t.Fatal(err)
	}

	for dep, manifest := range manifests {
		dir := filepath.Join(root, "node_modules", dep)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, extension.ManifestFilename), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestAttach(t *testing.T) {
	root := writeProject(t, map[string]string{
		"combo-pack": `{
			"middleware":[{"name":"combo-middleware","mountPath":"/combo"}],
			"tasks":[{"name":"combo-task","configuration":{"mode":"fast"}}]
		}`,
	})

	reg := loader.NewRegistry()
	reg.Register("combo-middleware", func(ctx context.Context, mc loader.MountContext) (dispatch.Handler, error) {
		return dispatch.Wrap(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Combo", mc.Descriptor.MountPath)
		}), nil
	})

	var tasks []TaskRegistration
	att, err := Attach(context.Background(), Options{
		ProjectRoot:  root,
		Resolvers:    []loader.Resolver{reg},
		RegisterTask: func(r TaskRegistration) error { tasks = append(tasks, r); return nil },
		Logger:       testLogger(),
	})
	if err != nil {
		t.Fatalf("Attach error: %v", err)
	}

	if att.RunID == "" {
		t.Error("expected a run ID")
	}
	if len(att.Loaded) != 1 || att.Loaded[0].Name != "combo-middleware" {
		t.Fatalf("loaded = %+v", att.Loaded)
	}
	if len(tasks) != 1 || tasks[0].Name != "combo-task" {
		t.Fatalf("tasks = %+v", tasks)
	}
	if tasks[0].Configuration["mode"] != "fast" {
		t.Errorf("task configuration = %v", tasks[0].Configuration)
	}
	if tasks[0].Source != "combo-pack" {
		t.Errorf("task source = %q", tasks[0].Source)
	}

	// The composed chain serves requests; the terminal responds 404.
	rec := httptest.NewRecorder()
	att.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/combo", nil))
	if rec.Header().Get("X-Combo") != "/combo" {
		t.Error("middleware did not run")
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 from the terminal", rec.Code)
	}
}

func TestAttachWithoutResolvers(t *testing.T) {
	root := writeProject(t, map[string]string{
		"solo-pack": `{"middleware":[{"name":"solo-middleware"}]}`,
	})

	att, err := Attach(context.Background(), Options{ProjectRoot: root, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Attach error: %v", err)
	}

	// Resolution output stays populated even though nothing mounted.
	if len(att.Middleware) != 1 {
		t.Fatalf("middleware descriptors = %+v", att.Middleware)
	}
	if len(att.Loaded) != 0 || len(att.Skipped) != 1 {
		t.Errorf("loaded = %+v, skipped = %+v", att.Loaded, att.Skipped)
	}

	rec := httptest.NewRecorder()
	att.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("empty chain status = %d", rec.Code)
	}
}

func TestAttachTaskRegistrarFailureContinues(t *testing.T) {
	root := writeProject(t, map[string]string{
		"task-pack": `{"tasks":[{"name":"a-task"},{"name":"b-task"}]}`,
	})

	var seen []string
	_, err := Attach(context.Background(), Options{
		ProjectRoot: root,
		RegisterTask: func(r TaskRegistration) error {
			seen = append(seen, r.Name)
			if r.Name == "a-task" {
				return context.Canceled
			}
			return nil
		},
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("Attach error: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("a registrar failure must not stop later tasks: %v", seen)
	}
}

func TestAttachRefreshBypassesCache(t *testing.T) {
	root := writeProject(t, map[string]string{
		"hot-pack": `{"middleware":[{"name":"v1-middleware"}]}`,
	})
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	opts := Options{ProjectRoot: root, Cache: backend, Logger: testLogger()}
	if _, err := Attach(context.Background(), opts); err != nil {
		t.Fatalf("warm-up Attach error: %v", err)
	}

	// Edit the manifest behind the cache's back.
	manifest := filepath.Join(root, "node_modules", "hot-pack", extension.ManifestFilename)
	if err := os.WriteFile(manifest, []byte(`{"middleware":[{"name":"v2-middleware"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	att, err := Attach(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if att.Middleware[0].Name != "v1-middleware" {
		t.Fatalf("without refresh the cached manifest is served, got %q", att.Middleware[0].Name)
	}

	opts.Refresh = true
	att, err = Attach(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if att.Middleware[0].Name != "v2-middleware" {
		t.Errorf("refresh must re-read the manifest, got %q", att.Middleware[0].Name)
	}
}

func TestAttachInvalidConfig(t *testing.T) {
	root := writeProject(t, nil)
	_, err := Attach(context.Background(), Options{
		ProjectRoot: root,
		Config:      map[string]any{"debug": "yes"},
		Logger:      testLogger(),
	})
	if err == nil {
		t.Fatal("expected error for malformed config")
	}
}
