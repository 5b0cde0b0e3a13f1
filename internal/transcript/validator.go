package transcript

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError describes why a transcript was rejected before any
// external call was made for it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transcript: %s", e.Reason)
}

// Limits holds the accepted transcript size range in characters.
type Limits struct {
	Min int
	Max int
}

// DefaultLimits matches the documented processing window: anything shorter
// carries too little signal to transform, anything longer is a cost guard.
var DefaultLimits = Limits{Min: 100, Max: 100000}

// Validate checks that raw transcript text is usable input for the
// transformation pipeline. It is a pure function with no I/O.
func Validate(text string, limits Limits) error {
	if limits.Min <= 0 {
		limits.Min = DefaultLimits.Min
	}
	if limits.Max <= 0 {
		limits.Max = DefaultLimits.Max
	}

	if strings.TrimSpace(text) == "" {
		return &ValidationError{Reason: "transcript is empty"}
	}
	if !utf8.ValidString(text) {
		return &ValidationError{Reason: "transcript is not valid UTF-8 text"}
	}
	if len(text) < limits.Min {
		return &ValidationError{Reason: fmt.Sprintf("transcript too short: %d characters (minimum %d)", len(text), limits.Min)}
	}
	if len(text) > limits.Max {
		return &ValidationError{Reason: fmt.Sprintf("transcript too long: %d characters (maximum %d)", len(text), limits.Max)}
	}
	return nil
}
