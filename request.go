package hookflow

import (
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Request is the request side of a Context.
type Request struct {
	raw     *http.Request
	id      string
	payload io.Reader

	// Body holds the parsed request body once the content type parser ran.
	Body any
}

func newRequest(r *http.Request) *Request {
	return &Request{
		raw:     r,
		id:      uuid.NewString(),
		payload: r.Body,
	}
}

// Method returns the HTTP method.
func (r *Request) Method() string {
	return r.raw.Method
}

// URL returns the request URL.
func (r *Request) URL() *url.URL {
	return r.raw.URL
}

// Path returns the request path.
func (r *Request) Path() string {
	return r.raw.URL.Path
}

// Header returns the first value of a request header. Keys are case-insensitive.
func (r *Request) Header(key string) string {
	return r.raw.Header.Get(key)
}

// Headers returns the request header map.
func (r *Request) Headers() http.Header {
	return r.raw.Header
}

// Param returns a URL parameter captured by the route pattern.
func (r *Request) Param(key string) string {
	return chi.URLParam(r.raw, key)
}

// Query returns the first value of a query string parameter.
func (r *Request) Query(key string) string {
	return r.raw.URL.Query().Get(key)
}

// ID returns the request identifier.
func (r *Request) ID() string {
	return r.id
}

// SetID replaces the request identifier.
func (r *Request) SetID(id string) {
	if id != "" {
		r.id = id
	}
}

// ContentType returns the media type of the request body without parameters.
func (r *Request) ContentType() string {
	ct := r.raw.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mt
}

// Payload returns the current request payload stream.
func (r *Request) Payload() io.Reader {
	return r.payload
}

// SetPayload replaces the request payload stream.
func (r *Request) SetPayload(p io.Reader) {
	r.payload = p
}

// Raw returns the underlying *http.Request.
func (r *Request) Raw() *http.Request {
	return r.raw
}
