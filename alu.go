package alu

import (
	"errors"
	"fmt"
)

// Digit bounds for input slots.
const (
	MinDigit = 1
	MaxDigit = 9
)

// MaxSlots is the maximum number of input slots in a single program.
const MaxSlots = 64

// DefaultRegisters is the register file declared when none is specified.
var DefaultRegisters = []string{"w", "x", "y", "z"}

// DefaultOutput is the register read as the program result.
const DefaultOutput = "z"

var (
	ErrUnsatisfiable      = errors.New("alu: unsatisfiable")
	ErrCandidateLimit     = errors.New("alu: candidate limit exceeded")
	ErrInvalidProgram     = errors.New("alu: invalid program")
	ErrDivideByZero       = errors.New("alu: division by zero")
	ErrUnknownOpcode      = errors.New("alu: unknown opcode")
	ErrUndeclaredRegister = errors.New("alu: undeclared register")
	ErrTooManyInputs      = errors.New("alu: too many inputs")
	ErrVerification       = errors.New("alu: verification failed")
)

// ParseError reports an instruction that could not be ingested.
type ParseError struct {
	Line int
	Text string
	Err  error
}

// Error returns the error message, naming the offending instruction.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %q: %s", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("%q: %s", e.Text, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// isDigit returns true if v is a valid input digit.
func isDigit(v int64) bool {
	return v >= MinDigit && v <= MaxDigit
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
