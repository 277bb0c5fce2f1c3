// Package requesthook provides a request-lifecycle observation hook for
// net/http servers.
//
// The hook wraps a handler chain and notifies a set of registered
// observers at two points per request: once before the downstream handler
// runs and once after it completes. Both notifications carry the same
// randomly generated request ID so external systems can correlate them.
// The start notification additionally carries the fully buffered request
// body; the body is repackaged afterwards so the downstream handler reads
// it exactly as the client sent it.
//
// Requests whose path is excluded, either by exact match or by regular
// expression, bypass observation entirely and are passed through to the
// downstream handler untouched.
//
// # Usage
//
//	hook, err := requesthook.New().
//	    Exclude("/healthz").
//	    ExcludeRegex(`^/internal/`).
//	    Register(observers.NewLogging(logger)).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	srv := hook.Wrap(mux)
package requesthook

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Builder assembles an immutable Hook. All methods return the receiver so
// calls can be chained; Build performs validation and produces the Hook.
type Builder struct {
	excludePaths    []string
	excludePatterns []string
	observers       []Observer
	logger          *zap.Logger
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Exclude adds an exact request path that bypasses observation.
func (b *Builder) Exclude(path string) *Builder {
	b.excludePaths = append(b.excludePaths, path)
	return b
}

// ExcludeRegex adds a regular expression; any request path matching it
// bypasses observation. The pattern is compiled by Build, an invalid
// pattern makes Build fail.
func (b *Builder) ExcludeRegex(pattern string) *Builder {
	b.excludePatterns = append(b.excludePatterns, pattern)
	return b
}

// Register appends an observer. Registration order defines notification
// order.
func (b *Builder) Register(observer Observer) *Builder {
	b.observers = append(b.observers, observer)
	return b
}

// WithLogger sets the logger used for the hook's own diagnostics (body
// read failures, recovered observer panics). Defaults to a nop logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and returns an immutable Hook. It
// fails if any exclusion pattern does not compile.
func (b *Builder) Build() (*Hook, error) {
	m, err := newMatcher(b.excludePaths, b.excludePatterns)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)

	return &Hook{
		matcher:  m,
		registry: &registry{observers: observers, logger: logger},
		logger:   logger,
	}, nil
}

// Hook observes the lifecycle of every non-excluded request passing
// through it. A Hook is immutable after Build and safe for use by any
// number of concurrent requests.
type Hook struct {
	matcher  *matcher
	registry *registry
	logger   *zap.Logger
}

// Excluded reports whether a request path bypasses observation.
func (h *Hook) Excluded(path string) bool {
	return h.matcher.excluded(path)
}

// NotifyStarted fans the start notification out to all registered
// observers in registration order.
func (h *Hook) NotifyStarted(data RequestStartData) {
	h.registry.notifyStarted(data)
}

// NotifyEnded fans the end notification out to all registered observers
// in registration order.
func (h *Hook) NotifyEnded(data RequestEndData) {
	h.registry.notifyEnded(data)
}

// Wrap returns a handler that observes every non-excluded request before
// delegating to next. It follows the standard middleware shape and can be
// inserted anywhere in a handler chain.
//
// Per request: the body is drained into memory and repackaged, observers
// receive the start notification, next runs with the repackaged body, and
// observers receive the end notification with the elapsed time and final
// status. A body read failure ends the request with 400 Bad Request
// before any notification or handler invocation. If next panics, the end
// notification fires with status 500 and the panic is re-raised
// unchanged.
func (h *Hook) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.matcher.excluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		requestID := uuid.New()
		uri := r.URL.RequestURI()
		method := r.Method

		body, err := drainBody(r)
		if err != nil {
			h.logger.Error("failed to read request body",
				zap.String("method", method),
				zap.String("uri", uri),
				zap.Error(err),
			)
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		// Observers get their own copy so a misbehaving observer
		// cannot corrupt the bytes the handler is about to read.
		observed := make([]byte, len(body))
		copy(observed, body)

		h.registry.notifyStarted(RequestStartData{
			Request:   r,
			RequestID: requestID,
			URI:       uri,
			Method:    method,
			Body:      observed,
		})

		reattachBody(r, body)

		rw := &responseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		defer func() {
			if p := recover(); p != nil {
				h.registry.notifyEnded(RequestEndData{
					RequestID: requestID,
					Elapsed:   time.Since(start),
					URI:       uri,
					Method:    method,
					Status:    http.StatusInternalServerError,
				})
				panic(p)
			}
		}()

		next.ServeHTTP(rw, r)

		h.registry.notifyEnded(RequestEndData{
			RequestID: requestID,
			Elapsed:   time.Since(start),
			URI:       uri,
			Method:    method,
			Status:    rw.status,
		})
	})
}
