package hookflow

import (
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/mailru/easyjson/jlexer"
)

// DefaultBodyLimit is the maximum request body size accepted by default.
const DefaultBodyLimit int64 = 1 << 20

// CatchAllContentType registers a parser for every content type without its own.
const CatchAllContentType = "*"

// ContentTypeParser turns a raw request body into the value stored in Request.Body.
type ContentTypeParser func(ctx *Context, body []byte) (any, error)

type parsers map[string]ContentTypeParser

func defaultParsers() parsers {
	return parsers{
		"application/json": parseJSON,
		"text/plain":       parseText,
	}
}

func (p parsers) clone() parsers {
	return maps.Clone(p)
}

func (p parsers) lookup(contentType string) (ContentTypeParser, bool) {
	if parser, ok := p[contentType]; ok {
		return parser, true
	}
	if i := strings.IndexByte(contentType, '/'); i > 0 {
		if parser, ok := p[contentType[:i]+"/*"]; ok {
			return parser, true
		}
	}
	parser, ok := p[CatchAllContentType]
	return parser, ok
}

func parseJSON(_ *Context, body []byte) (any, error) {
	if len(body) == 0 {
		return nil, ErrEmptyJSONBody
	}
	l := jlexer.Lexer{Data: body}
	v := l.Interface()
	l.Consumed()
	if err := l.Error(); err != nil {
		return nil, ErrInvalidJSONBody.WithError(err)
	}
	return v, nil
}

func parseText(_ *Context, body []byte) (any, error) {
	return string(body), nil
}

// parseBody reads the payload stream within the route body limit and stores the
// parsed value in ctx.Request.Body.
func parseBody(ctx *Context) error {
	contentType := ctx.Request.ContentType()
	parser, ok := ctx.route.scope.parsers.lookup(contentType)
	if !ok {
		return ErrUnsupportedMediaType.WithMessagef("Unsupported Media Type: %s", contentType)
	}

	limit := ctx.route.opts.bodyLimit
	if ctx.Request.raw.ContentLength > limit {
		return ErrPayloadTooLarge
	}

	var data []byte
	if payload := ctx.Request.Payload(); payload != nil {
		var err error
		data, err = io.ReadAll(io.LimitReader(payload, limit+1))
		if err != nil {
			return ErrBadRequest.WithMessage("Failed to read request body").WithError(err)
		}
	}
	if int64(len(data)) > limit {
		return ErrPayloadTooLarge
	}

	body, err := parser(ctx, data)
	if err != nil {
		return err
	}
	ctx.Request.Body = body
	return nil
}

// AddContentTypeParser registers parser for a media type in this scope and its
// future children. Use CatchAllContentType to handle any unregistered type.
func (a *App) AddContentTypeParser(contentType string, parser ContentTypeParser) error {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" || parser == nil {
		return fmt.Errorf("%w: %q", ErrInvalidParser, contentType)
	}
	if a.root.ready.Load() {
		return ErrAppReady
	}
	a.parsers[contentType] = parser
	return nil
}
