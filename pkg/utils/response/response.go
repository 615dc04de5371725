// Package response provides the error envelope written by HTTP handlers.
// Successful GraphRAG responses are returned as plain resource bodies.
package response

import (
	"github.com/kart-io/graphrag/pkg/utils/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload, field errors for validation failures
	Data any `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`
}

// Success creates a successful response with data.
func Success(data any) *Response {
	return &Response{Code: 0, Message: "success", Data: data}
}

// Err creates an error response from an Errno in the given language.
func Err(e *errors.Errno, lang string) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{Code: e.Code, Message: e.Message(lang)}
}

// WithData attaches a payload.
func (r *Response) WithData(data any) *Response {
	r.Data = data
	return r
}

// WithRequestID adds request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}
