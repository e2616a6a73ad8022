package policy

import (
	"errors"
	"fmt"
	"strings"
)

// Domain names a policy driven decision.
type Domain string

const (
	// DomainVision decides whether a model accepts image input.
	DomainVision Domain = "vision"
	// DomainPublish decides whether a workflow may be published.
	DomainPublish Domain = "publish"
)

// Mode indicates whether a domain fails open or closed when evaluation errors.
type Mode string

const (
	// ModeFailClosed resolves errors to the restrictive answer.
	ModeFailClosed Mode = "fail-closed"
	// ModeFailOpen resolves errors to the fallback answer.
	ModeFailOpen Mode = "fail-open"
)

var defaultModes = map[Domain]Mode{
	DomainVision:  ModeFailOpen,
	DomainPublish: ModeFailClosed,
}

// DefaultMode returns the posture a domain uses unless configured otherwise.
func DefaultMode(domain Domain) Mode {
	if mode, ok := defaultModes[domain]; ok {
		return mode
	}
	return ModeFailClosed
}

// ParseMode converts a textual representation into a Mode constant.
func ParseMode(value string) (Mode, error) {
	mode := Mode(strings.TrimSpace(strings.ToLower(value)))
	if mode == "" {
		return "", errors.New("mode is required")
	}
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid mode %q", value)
	}
	return mode, nil
}

// IsValid reports whether the mode is recognised.
func (m Mode) IsValid() bool {
	switch m {
	case ModeFailClosed, ModeFailOpen:
		return true
	default:
		return false
	}
}
