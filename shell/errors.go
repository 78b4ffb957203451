package shell

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the shell channel.
var (
	// ErrTimeout indicates a command was not answered in time.
	ErrTimeout = errors.New("command timed out")

	// ErrDisconnected indicates the transport went away.
	ErrDisconnected = errors.New("disconnected")

	// ErrClosed indicates the channel was closed by its owner.
	ErrClosed = errors.New("channel closed")

	// ErrSuperseded indicates a unique command was replaced by a newer
	// command for the same parameter before it was sent.
	ErrSuperseded = errors.New("superseded by a newer command")

	// ErrConfirmationDeclined indicates the user cancelled a gated operation.
	ErrConfirmationDeclined = errors.New("confirmation declined")

	// ErrLineTooLong indicates a command exceeded MaxLineLength.
	ErrLineTooLong = errors.New("line too long")
)

// TransportError is a channel-level failure. It is handled exactly like a
// device rejection by callers.
type TransportError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("transport %s failed", e.Op)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// NewTransportError creates a new transport error.
func NewTransportError(op string, cause error) error {
	return &TransportError{Op: op, Cause: cause}
}

// DeviceRejection is an explicit "Error:" reply to a specific command. The
// firmware message is kept verbatim.
type DeviceRejection struct {
	Command string
	Message string
}

// Error implements the error interface.
func (e *DeviceRejection) Error() string {
	return fmt.Sprintf("device rejected %q: %s", e.Command, e.Message)
}

// ParseError reports a reply that matched a command but whose value does
// not fit the expected shape.
type ParseError struct {
	Shape string
	Value string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s from %q", e.Shape, e.Value)
}

func newParseError(shape, value string) error {
	return &ParseError{Shape: shape, Value: value}
}

// RangeError reports a value outside a parameter's valid domain. It is
// returned before anything is sent.
type RangeError struct {
	Field    string
	Value    float64
	Min, Max float64
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g out of range [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// ValueError reports a name outside an enumerated parameter's table. It is
// returned before anything is sent.
type ValueError struct {
	Field   string
	Value   string
	Allowed []string
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	field := e.Field
	if field == "" {
		field = "value"
	}
	return fmt.Sprintf("%s %q is not one of %s", field, e.Value, strings.Join(e.Allowed, ", "))
}

// IsRejection reports whether err means a write was not applied by the
// device, as opposed to being superseded or declined locally.
func IsRejection(err error) bool {
	var dr *DeviceRejection
	var te *TransportError
	return errors.As(err, &dr) || errors.As(err, &te)
}
