package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidSignature     = errors.New("invalid payment signature")
	ErrPaymentNotSuccessful = errors.New("payment not successful")
	ErrInvalidTransition    = errors.New("order cannot transition from its current state")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one entry per offending input field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation error"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// GatewayError reports a failed call to the remote payment provider.
// StatusCode is zero when the provider was never reached.
type GatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment gateway %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
