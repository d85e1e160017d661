package parse

import (
	"errors"
	"fmt"

	"src.tabl.sh/pkg/diag"
)

// StatusCode classifies the outcome of parsing or converting a formula.
type StatusCode uint8

// Status codes. The first group is reported by Parse, the second by the
// postfix generator.
const (
	Success StatusCode = iota
	InvalidNumericExpression
	InvalidOperandLocation
	NoSuchOperator
	SingletonQuote
	UnbalancedParentheses
	InvalidReference
	MissingOperand
	EmptyExpression

	ArgumentCountMismatch
	ArgumentTypeMismatch
	InvalidFunctionTarget
	CircularReference
)

var statusNames = [...]string{
	Success:                  "Success",
	InvalidNumericExpression: "InvalidNumericExpression",
	InvalidOperandLocation:   "InvalidOperandLocation",
	NoSuchOperator:           "NoSuchOperator",
	SingletonQuote:           "SingletonQuote",
	UnbalancedParentheses:    "UnbalancedParentheses",
	InvalidReference:         "InvalidReference",
	MissingOperand:           "MissingOperand",
	EmptyExpression:          "EmptyExpression",
	ArgumentCountMismatch:    "ArgumentCountMismatch",
	ArgumentTypeMismatch:     "ArgumentTypeMismatch",
	InvalidFunctionTarget:    "InvalidFunctionTarget",
	CircularReference:        "CircularReference",
}

func (c StatusCode) String() string {
	if int(c) < len(statusNames) {
		return statusNames[c]
	}
	return fmt.Sprintf("StatusCode(%d)", c)
}

// Error is a failed parse or conversion, pinned to the offending part of the
// formula.
type Error struct {
	Code    StatusCode
	Message string
	Context diag.Context
}

// NewError returns an Error for the range r of src.
func NewError(code StatusCode, src Source, r diag.Ranger, format string, args ...any) *Error {
	return &Error{code, fmt.Sprintf(format, args...), *diag.NewContext(src.Name, src.Code, r)}
}

func (e *Error) asDiag() *diag.Error {
	return &diag.Error{Type: "formula error", Message: e.Message, Context: e.Context}
}

// Error returns a plain text representation of the error.
func (e *Error) Error() string { return e.asDiag().Error() }

// Range returns the range of the offending text.
func (e *Error) Range() diag.Ranging { return e.Context.Range() }

// Show shows the error with the offending text highlighted.
func (e *Error) Show(indent string) string { return e.asDiag().Show(indent) }

// StatusOf returns the status code of err: Success for nil, the code of a
// wrapped *Error, and NoSuchOperator for any other error.
func StatusOf(err error) StatusCode {
	if err == nil {
		return Success
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return NoSuchOperator
}
