package requesthook

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// drainBody reads the request body to completion and closes it. A request
// without a body yields nil without error. A read failure is terminal for
// the request; the partial bytes are discarded.
func drainBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to drain request body: %w", err)
	}

	return body, nil
}

// reattachBody gives the request a fresh body over the buffered bytes so
// the downstream handler reads exactly what the client sent. The new body
// is fully in memory, reads never block on network I/O that has already
// been consumed.
func reattachBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}
