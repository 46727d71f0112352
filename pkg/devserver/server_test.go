package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/dispatch"
	"github.com/ui5-community/plugin-loader/pkg/extension"
	"github.com/ui5-community/plugin-loader/pkg/host"
	"github.com/ui5-community/plugin-loader/pkg/loader"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()

	pkg := `{"dependencies":{"echo-pack":"1.0.0"}}`
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte(pkg), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(root, "node_modules", "echo-pack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"middleware":[{"name":"echo-middleware","mountPath":"/echo"}]}`
	if err := os.WriteFile(filepath.Join(dir, extension.ManifestFilename), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := loader.NewRegistry()
	reg.Register("echo-middleware", func(ctx context.Context, mc loader.MountContext) (dispatch.Handler, error) {
		return func(w http.ResponseWriter, r *http.Request, next dispatch.Next) {
			if r.URL.Path == mc.Descriptor.MountPath {
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, "echo")
				return
			}
			next(nil)
		}, nil
	})

	srv, err := New(context.Background(), host.Options{
		ProjectRoot: root,
		Resolvers:   []loader.Resolver{reg},
		Logger:      log.NewWithOptions(io.Discard, log.Options{}),
	})
	if err != nil {
		t.Fatal(err)
	}
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerChain(t *testing.T) {
	srv := testServer(t)

	rec := get(t, srv.Handler(), "/echo")
	if rec.Code != http.StatusOK || rec.Body.String() != "echo" {
		t.Errorf("chain response = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing request ID header")
	}

	// Unhandled paths fall through to the 404 terminal.
	rec = get(t, srv.Handler(), "/other")
	if rec.Code != http.StatusNotFound {
		t.Errorf("fallthrough status = %d", rec.Code)
	}
}

func TestServerStatus(t *testing.T) {
	srv := testServer(t)

	rec := get(t, srv.Handler(), "/_loader/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.RunID == "" {
		t.Error("missing run_id")
	}
	if len(body.Middleware) != 1 || body.Middleware[0] != "echo-middleware" {
		t.Errorf("middleware = %v", body.Middleware)
	}
	if len(body.Mounted) != 1 {
		t.Errorf("mounted = %v", body.Mounted)
	}
}

func TestServerGraphDOT(t *testing.T) {
	srv := testServer(t)

	rec := get(t, srv.Handler(), "/_loader/graph.dot")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "echo-middleware") {
		t.Errorf("DOT body = %q", rec.Body.String())
	}
}

func TestServerRequestIDPassthrough(t *testing.T) {
	srv := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set("X-Request-Id", "caller-id")
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "caller-id" {
		t.Errorf("request ID = %q, want caller-id", got)
	}
}
