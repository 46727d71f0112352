// Package dispatch composes loaded middleware handlers into a single
// request-handling chain.
//
// Handlers follow the continuation style common in Node server frameworks:
// each handler receives the request and a Next continuation, and decides
// whether to respond itself or pass control on. The chain adapter bridges
// that style to net/http so the composed result mounts on any Go router.
package dispatch

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/errors"
)

// Next is the continuation a handler invokes to pass control to the rest of
// the chain. Calling it with a non-nil error short-circuits the remaining
// handlers and invokes the chain's error handler instead.
type Next func(err error)

// Handler is one middleware link. A handler either writes the response
// itself, or calls next exactly once to delegate.
type Handler func(w http.ResponseWriter, r *http.Request, next Next)

// Named pairs a handler with the extension name it was loaded from, for
// logging and error attribution.
type Named struct {
	Name    string
	Handler Handler
}

// ErrorHandler terminates a chain that short-circuited with an error.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, name string, err error)

// DefaultErrorHandler responds with 500 and logs the failing handler.
func DefaultErrorHandler(logger *log.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, name string, err error) {
		logger.Error("middleware failed", "name", name, "path", r.URL.Path, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Chain composes the handlers into one http.Handler, invoked in slice
// order. The terminal continuation calls final; passing nil final installs
// http.NotFoundHandler. An empty chain is valid and dispatches straight to
// the terminal.
//
// A panic inside a handler is recovered and turned into a chain error, so
// one broken extension cannot take down the host process.
func Chain(handlers []Named, final http.Handler, onError ErrorHandler, logger *log.Logger) http.Handler {
	if final == nil {
		final = http.NotFoundHandler()
	}
	if onError == nil {
		onError = DefaultErrorHandler(logger)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var run func(i int)
		run = func(i int) {
			if i >= len(handlers) {
				final.ServeHTTP(w, r)
				return
			}
			h := handlers[i]

			next := func(err error) {
				if err != nil {
					onError(w, r, h.Name, err)
					return
				}
				run(i + 1)
			}

			defer func() {
				if rec := recover(); rec != nil {
					onError(w, r, h.Name, errors.New(errors.ErrCodeHandlerFailed, "handler panic: %v", rec))
				}
			}()
			h.Handler(w, r, next)
		}
		run(0)
	})
}

// Middleware adapts the chain to the func(http.Handler) http.Handler shape
// routers like chi expect, so resolved extensions slot into an existing
// middleware stack.
func Middleware(handlers []Named, onError ErrorHandler, logger *log.Logger) func(http.Handler) http.Handler {
	return func(inner http.Handler) http.Handler {
		return Chain(handlers, inner, onError, logger)
	}
}

// Wrap lifts a plain http.Handler middleware into a chain Handler that
// always continues.
func Wrap(h func(http.ResponseWriter, *http.Request)) Handler {
	return func(w http.ResponseWriter, r *http.Request, next Next) {
		h(w, r)
		next(nil)
	}
}
