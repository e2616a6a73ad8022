package domain

import "errors"

// Common domain errors
var (
	ErrInvalidSelector  = errors.New("invalid value selector")
	ErrNodeNotFound     = errors.New("node not found")
	ErrEdgeNotFound     = errors.New("edge not found")
	ErrInvalidNode      = errors.New("invalid node")
	ErrUnsupportedKind  = errors.New("unsupported node kind")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInvalidGroupName = errors.New("invalid group name")

	ErrDuplicateGroupName = errors.New("duplicate group name")
)

// DomainError wraps errors with additional context.
//
//nolint:revive // Name is intentionally verbose to distinguish domain-layer errors
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNodeError builds a DomainError describing a problem with a single node.
func NewNodeError(err error, code, nodeID, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Code:    code,
		Message: message,
		Details: map[string]any{"node_id": nodeID},
	}
}
