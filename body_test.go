package hookflow_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookflow"
)

func echoBody(ctx *hookflow.Context) (any, error) {
	return ctx.Request.Body, nil
}

func TestBody_DefaultParsers(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		app.Post("/", echoBody)

		rec := serve(app, newRequest(http.MethodPost, "/", `{"a":[1,2]}`, "application/json; charset=utf-8"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"a":[1,2]}`, rec.Body.String())
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		app.Put("/", echoBody)

		rec := serve(app, newRequest(http.MethodPut, "/", "hello", "text/plain"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello", rec.Body.String())
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		app.Post("/", echoBody)

		for _, body := range []string{`{`, `{"a":1} trailing`, `nope`} {
			rec := serve(app, newRequest(http.MethodPost, "/", body, "application/json"))

			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Equal(t, "invalid_json_body", decodeError(t, rec).Code, body)
		}
	})

	t.Run("empty json with declared length", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		app.Delete("/", echoBody)

		req := newRequest(http.MethodDelete, "/", "", "application/json")
		req.Header.Set("Content-Length", "0")
		rec := serve(app, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "empty_json_body", decodeError(t, rec).Code)
	})

	t.Run("unsupported media type", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		app.Post("/", echoBody)

		rec := serve(app, newRequest(http.MethodPost, "/", "<a/>", "application/xml"))

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "unsupported_media_type", body.Code)
		assert.Equal(t, "Unsupported Media Type: application/xml", body.Message)
	})
}

func TestBody_Limit(t *testing.T) {
	t.Parallel()

	t.Run("app limit", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New(hookflow.WithBodyLimit(4))
		app.Post("/", echoBody)

		rec := serve(app, newRequest(http.MethodPost, "/", "123456789", "text/plain"))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "payload_too_large", decodeError(t, rec).Code)

		rec = serve(app, newRequest(http.MethodPost, "/", "1234", "text/plain"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1234", rec.Body.String())
	})

	t.Run("route limit overrides app limit", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New(hookflow.WithBodyLimit(4))
		app.Post("/", echoBody, hookflow.WithRouteBodyLimit(16))

		rec := serve(app, newRequest(http.MethodPost, "/", "123456789", "text/plain"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "123456789", rec.Body.String())
	})

	t.Run("unknown length is counted", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New(hookflow.WithBodyLimit(4))
		app.Post("/", echoBody)

		req := newRequest(http.MethodPost, "/", "123456789", "text/plain")
		req.ContentLength = -1
		req.TransferEncoding = []string{"chunked"}
		rec := serve(app, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestBody_CustomParsers(t *testing.T) {
	t.Parallel()

	formParser := func(ctx *hookflow.Context, body []byte) (any, error) {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, hookflow.ErrBadRequest.WithError(err)
		}
		return map[string]string{"name": values.Get("name")}, nil
	}

	t.Run("registered parser", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		require.NoError(t, app.AddContentTypeParser("application/x-www-form-urlencoded", formParser))
		app.Post("/", echoBody)

		rec := serve(app, newRequest(http.MethodPost, "/", "name=gopher", "application/x-www-form-urlencoded"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"name":"gopher"}`, rec.Body.String())
	})

	t.Run("catch all parser", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		require.NoError(t, app.AddContentTypeParser(hookflow.CatchAllContentType, func(ctx *hookflow.Context, body []byte) (any, error) {
			return len(body), nil
		}))
		app.Post("/", echoBody)

		rec := serve(app, newRequest(http.MethodPost, "/", "<a/>", "application/xml"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "4", rec.Body.String())
	})

	t.Run("child parser stays in child", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		app.Post("/parent", echoBody)
		require.NoError(t, app.Register(func(child *hookflow.App) error {
			if err := child.AddContentTypeParser("application/x-www-form-urlencoded", formParser); err != nil {
				return err
			}
			child.Post("/child", echoBody)
			return nil
		}))

		rec := serve(app, newRequest(http.MethodPost, "/child", "name=a", "application/x-www-form-urlencoded"))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = serve(app, newRequest(http.MethodPost, "/parent", "name=a", "application/x-www-form-urlencoded"))
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("invalid registration", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		assert.ErrorIs(t, app.AddContentTypeParser("", formParser), hookflow.ErrInvalidParser)
		assert.ErrorIs(t, app.AddContentTypeParser("text/csv", nil), hookflow.ErrInvalidParser)
	})
}
