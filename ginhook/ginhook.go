// Package ginhook adapts a requesthook.Hook to gin's middleware contract.
package ginhook

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vyrodovalexey/requesthook"
)

// Middleware returns a gin middleware that runs the same per-request
// lifecycle as Hook.Wrap: exclusion check, body drain and repackage,
// start notification, handler chain, end notification with elapsed time
// and final status.
//
// A body read failure aborts the request with 400 Bad Request before any
// notification fires. If the handler chain panics, the end notification
// fires with status 500 and the panic is re-raised for gin's recovery
// middleware to handle.
func Middleware(hook *requesthook.Hook) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hook.Excluded(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		requestID := uuid.New()
		uri := c.Request.URL.RequestURI()
		method := c.Request.Method

		body, err := readBody(c.Request)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		observed := make([]byte, len(body))
		copy(observed, body)

		hook.NotifyStarted(requesthook.RequestStartData{
			Request:   c.Request,
			RequestID: requestID,
			URI:       uri,
			Method:    method,
			Body:      observed,
		})

		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		defer func() {
			if p := recover(); p != nil {
				hook.NotifyEnded(requesthook.RequestEndData{
					RequestID: requestID,
					Elapsed:   time.Since(start),
					URI:       uri,
					Method:    method,
					Status:    http.StatusInternalServerError,
				})
				panic(p)
			}
		}()

		c.Next()

		hook.NotifyEnded(requesthook.RequestEndData{
			RequestID: requestID,
			Elapsed:   time.Since(start),
			URI:       uri,
			Method:    method,
			Status:    c.Writer.Status(),
		})
	}
}

// readBody drains the request body and closes it.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	defer func() { _ = r.Body.Close() }()

	return io.ReadAll(r.Body)
}
