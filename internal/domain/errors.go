package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidConfig  = errors.New("invalid config")
	ErrInvalidDrawing = errors.New("invalid drawing")
	ErrLayerCreation  = errors.New("layer creation failed")
	ErrTransaction    = errors.New("transaction error")
	ErrExecution      = errors.New("execution error")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindInvalidConfig  ErrorKind = "invalid_config"
	KindInvalidDrawing ErrorKind = "invalid_drawing"
	KindLayerCreation  ErrorKind = "layer_creation"
	KindTransaction    ErrorKind = "transaction"
	KindExecution      ErrorKind = "execution"
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:       ErrNotFound,
	KindInvalidConfig:  ErrInvalidConfig,
	KindInvalidDrawing: ErrInvalidDrawing,
	KindLayerCreation:  ErrLayerCreation,
	KindTransaction:    ErrTransaction,
	KindExecution:      ErrExecution,
}

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: relevant file path
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrLayerCreation) match an OpError of the same kind
// even when the wrapped cause is not the sentinel itself.
func (e *OpError) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// IsKind helps callers classify errors without depending on infra packages.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// KindOf returns the kind of the outermost OpError in the chain, or KindExecution.
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindExecution
}
