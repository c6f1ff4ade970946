package frame

import (
	"errors"
	"fmt"
)

// ErrDataFormat is matched by every payload shape error.
var ErrDataFormat = errors.New("frame: unrecognized data format")

// FormatError reports a payload that does not match any known shape.
type FormatError struct {
	Shape  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("frame: %s: %s", e.Shape, e.Reason)
}

// Is makes errors.Is(err, ErrDataFormat) hold for every FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrDataFormat }

func formatErr(shape, format string, args ...any) error {
	return &FormatError{Shape: shape, Reason: fmt.Sprintf(format, args...)}
}
