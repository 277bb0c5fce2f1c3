package requesthook

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestStartData is passed to every observer before the downstream
// handler runs.
type RequestStartData struct {
	// Request is the live inbound request. Observers may inspect its
	// metadata (method, headers, URL) but must not read its body or
	// mutate it; the body at this point is already consumed and is
	// provided in Body.
	Request *http.Request

	// RequestID links this notification to the matching end
	// notification of the same request.
	RequestID uuid.UUID

	// URI is the request URI including the query string.
	URI string

	// Method is the HTTP method.
	Method string

	// Body is the fully buffered request body.
	Body []byte
}

// RequestEndData is passed to every observer after the downstream handler
// completes.
type RequestEndData struct {
	// RequestID matches the RequestID of the paired start notification.
	RequestID uuid.UUID

	// Elapsed is the time between the start notification being
	// prepared and the downstream handler completing.
	Elapsed time.Duration

	// URI is the request URI including the query string.
	URI string

	// Method is the HTTP method.
	Method string

	// Status is the final HTTP status code of the response.
	Status int
}

// Observer is notified before a request is passed for processing and
// after processing completes. Implementations are registered once at
// build time and must be safe for concurrent use, since notifications
// for different requests may arrive from any number of goroutines.
//
// Callbacks are invoked synchronously on the request's goroutine; slow
// observers delay the request they observe.
type Observer interface {
	// OnRequestStarted fires before the downstream handler is invoked.
	OnRequestStarted(data RequestStartData)

	// OnRequestEnded fires after the downstream handler completes.
	// Observers must tolerate a start notification with no matching
	// end, which happens when the server drops a request mid-flight.
	OnRequestEnded(data RequestEndData)
}

// registry fans notifications out to an ordered set of observers.
//
// A panicking observer is recovered and logged so it cannot abort the
// request or starve the observers registered after it.
type registry struct {
	observers []Observer
	logger    *zap.Logger
}

func (reg *registry) notifyStarted(data RequestStartData) {
	for _, observer := range reg.observers {
		reg.notify(func() { observer.OnRequestStarted(data) })
	}
}

func (reg *registry) notifyEnded(data RequestEndData) {
	for _, observer := range reg.observers {
		reg.notify(func() { observer.OnRequestEnded(data) })
	}
}

// notify invokes a single observer callback, isolating panics.
func (reg *registry) notify(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			reg.logger.Error("observer panic recovered",
				zap.Any("error", p),
				zap.String("stack", string(debug.Stack())),
			)
		}
	}()

	fn()
}
