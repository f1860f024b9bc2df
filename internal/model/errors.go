package model

import (
	"errors"
	"fmt"
)

// Error kinds. Call sites wrap these with fmt.Errorf("...: %w", ErrX).
var (
	// Fatal: abort the run before any sink write.
	ErrData             = errors.New("data error")
	ErrScalerMismatch   = errors.New("scaler mismatch")
	ErrInsufficientData = errors.New("insufficient data")
	ErrModelLoad        = errors.New("model load error")

	// Non-fatal.
	ErrSignalUnavailable = errors.New("external signal unavailable")
	ErrSinkWrite         = errors.New("sink write error")
)

// SinkError reports the failure of a single sink.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

// Unwrap exposes both ErrSinkWrite and the underlying cause to errors.Is.
func (e *SinkError) Unwrap() []error {
	return []error{ErrSinkWrite, e.Err}
}
