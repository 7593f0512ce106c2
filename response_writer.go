package hookflow

import (
	"net/http"
	"sync"
)

// responseWriter wraps http.ResponseWriter to track response state. Writes are
// dropped once the handler has returned, because a suspended pipeline may resume
// after the connection is gone.
type responseWriter struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	status int
	bytes  int64
	wrote  bool
	closed bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w: w}
}

// Header returns the underlying header map.
func (w *responseWriter) Header() http.Header {
	return w.w.Header()
}

func (w *responseWriter) WriteHeader(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeHeader(status)
}

func (w *responseWriter) writeHeader(status int) {
	if w.wrote || w.closed {
		return
	}
	w.status = status
	w.wrote = true
	w.w.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, http.ErrHandlerTimeout
	}
	if !w.wrote {
		w.writeHeader(http.StatusOK)
	}
	n, err := w.w.Write(b)
	w.bytes += int64(n)
	return n, err
}

// commit copies header into the response and writes the status line. It reports
// false when the status was already written or the writer is closed.
func (w *responseWriter) commit(status int, header http.Header) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.wrote || w.closed {
		return false
	}
	dst := w.w.Header()
	for k, v := range header {
		dst[k] = v
	}
	w.writeHeader(status)
	return true
}

// Written reports whether the status line has been written.
func (w *responseWriter) Written() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wrote
}

// Status returns the written status code, or 0 before WriteHeader.
func (w *responseWriter) Status() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// BytesWritten returns the number of body bytes written.
func (w *responseWriter) BytesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytes
}

// Flush implements http.Flusher if the underlying writer supports it.
func (w *responseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if f, ok := w.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.w
}

// close detaches the writer from the connection.
func (w *responseWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}
