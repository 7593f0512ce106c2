//go:generate easyjson error_body.go

package hookflow

import "net/http"

// ErrorBody is the payload written by the fallback error handler.
//
//easyjson:json
type ErrorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// newErrorBody describes err as the fallback payload for status.
func newErrorBody(err error, status int) ErrorBody {
	body := ErrorBody{
		Error:      http.StatusText(status),
		StatusCode: status,
	}
	if err != nil {
		body.Code = errorCode(err)
		body.Message = err.Error()
	}
	return body
}
