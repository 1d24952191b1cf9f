package gateway

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/roach88/vendorsync/internal/errors"
)

// RemoteError is a non-success response from the vendor API. URL never
// contains the API key.
type RemoteError struct {
	Method  string
	Status  int
	URL     string
	Body    string
	Message string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("HTTP %d for %s %s: %s", e.Status, e.Method, e.URL, msg)
}

func (e *RemoteError) withMessage(msg string) *RemoteError {
	e.Message = msg
	return e
}

// AsRemoteError extracts a *RemoteError from err's chain.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// errorMessage pulls a human-readable message out of an API error body. Alma
// reports errors as {"errorList":{"error":[{"errorMessage":...}]}}.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"errorList.error.0.errorMessage", "error", "message"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}
