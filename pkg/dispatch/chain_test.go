package dispatch

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func record(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestChainOrder(t *testing.T) {
	var calls []string
	link := func(name string) Named {
		return Named{Name: name, Handler: func(w http.ResponseWriter, r *http.Request, next Next) {
			calls = append(calls, name)
			next(nil)
		}}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "final")
		w.WriteHeader(http.StatusNoContent)
	})

	rec := record(Chain([]Named{link("one"), link("two"), link("three")}, final, nil, testLogger()), "/")

	want := []string{"one", "two", "three", "final"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestChainEmpty(t *testing.T) {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := record(Chain(nil, final, nil, testLogger()), "/")
	if rec.Code != http.StatusTeapot {
		t.Errorf("empty chain must dispatch to the terminal, got %d", rec.Code)
	}
}

func TestChainNilFinal(t *testing.T) {
	rec := record(Chain(nil, nil, nil, testLogger()), "/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChainHandlerResponds(t *testing.T) {
	responder := Named{Name: "responder", Handler: func(w http.ResponseWriter, r *http.Request, next Next) {
		w.WriteHeader(http.StatusOK)
		// No next: the chain stops here.
	}}
	reached := false
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })

	record(Chain([]Named{responder}, final, nil, testLogger()), "/")
	if reached {
		t.Error("terminal must not run when a handler responds without next")
	}
}

func TestChainErrorShortCircuits(t *testing.T) {
	failing := Named{Name: "failing", Handler: func(w http.ResponseWriter, r *http.Request, next Next) {
		next(errors.New("boom"))
	}}
	reached := false
	after := Named{Name: "after", Handler: func(w http.ResponseWriter, r *http.Request, next Next) {
		reached = true
		next(nil)
	}}

	var failedName string
	onError := func(w http.ResponseWriter, r *http.Request, name string, err error) {
		failedName = name
		w.WriteHeader(http.StatusBadGateway)
	}

	rec := record(Chain([]Named{failing, after}, nil, onError, testLogger()), "/")

	if reached {
		t.Error("handlers after a failure must not run")
	}
	if failedName != "failing" {
		t.Errorf("failed name = %q", failedName)
	}
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestChainRecoversPanic(t *testing.T) {
	panicking := Named{Name: "panicking", Handler: func(w http.ResponseWriter, r *http.Request, next Next) {
		panic("kaboom")
	}}

	rec := record(Chain([]Named{panicking}, nil, nil, testLogger()), "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestChainDefaultErrorHandler(t *testing.T) {
	failing := Named{Name: "failing", Handler: func(w http.ResponseWriter, r *http.Request, next Next) {
		next(errors.New("boom"))
	}}
	rec := record(Chain([]Named{failing}, nil, nil, testLogger()), "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestMiddlewareAdapter(t *testing.T) {
	tagged := Named{Name: "tagged", Handler: func(w http.ResponseWriter, r *http.Request, next Next) {
		w.Header().Set("X-Tagged", "yes")
		next(nil)
	}}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := record(Middleware([]Named{tagged}, nil, testLogger())(inner), "/")
	if rec.Header().Get("X-Tagged") != "yes" {
		t.Error("middleware did not run")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestWrap(t *testing.T) {
	wrapped := Wrap(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wrapped", "yes")
	})
	reached := false
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })

	rec := record(Chain([]Named{{Name: "wrapped", Handler: wrapped}}, final, nil, testLogger()), "/")
	if rec.Header().Get("X-Wrapped") != "yes" || !reached {
		t.Error("wrapped handler must run and continue")
	}
}
