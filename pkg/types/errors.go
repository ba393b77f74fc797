// Package types holds the error taxonomy shared by the expression core, the
// equation store, and the API surfaces.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Category tags. Every ExprError carries exactly one of these first.
const (
	TagParseError = "ParseError"
	TagEvalError  = "EvalError"
	TagStoreError = "StoreError"
)

// Specific error tags.
const (
	TagEmptyEquation         = "EmptyEquation"
	TagInvalidCharacter      = "InvalidCharacter"
	TagUnbalancedParentheses = "UnbalancedParentheses"
	TagEmptyParentheses      = "EmptyParentheses"
	TagConsecutiveOperators  = "ConsecutiveOperators"
	TagInsufficientOperands  = "InsufficientOperands"
	TagTooManyOperands       = "TooManyOperands"
	TagEmptyExpression       = "EmptyExpression"

	TagUndefinedVariable = "UndefinedVariable"
	TagDivisionByZero    = "DivisionByZero"
	TagMalformedOperand  = "MalformedOperand"
	TagInternalError     = "InternalError"

	TagNotFound = "NotFound"
)

// ExprError is a parse, evaluation, or registry failure with an HTTP-style
// status code and a list of tags.
type ExprError struct {
	Message string
	Code    int
	Tags    []string
	// Operand is the variable name or operand text the error refers to, if any.
	Operand string
}

// Error implements the error interface.
func (e *ExprError) Error() string {
	return fmt.Sprintf("%s (code=%d, tags=[%s])", e.Message, e.Code, strings.Join(e.Tags, ", "))
}

// HasTag returns true if the error has the specified tag.
func (e *ExprError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Reason returns the most specific tag, e.g. "DivisionByZero".
func (e *ExprError) Reason() string {
	if len(e.Tags) == 0 {
		return ""
	}
	return e.Tags[len(e.Tags)-1]
}

// ToMap converts the error to a generic map of JSON-compatible values.
func (e *ExprError) ToMap() map[string]interface{} {
	tags := make([]interface{}, len(e.Tags))
	for i, tag := range e.Tags {
		tags[i] = tag
	}
	m := map[string]interface{}{
		"message": e.Message,
		"code":    float64(e.Code),
		"tags":    tags,
	}
	if e.Operand != "" {
		m["operand"] = e.Operand
	}
	return m
}

// HasTag reports whether err wraps an *ExprError carrying tag.
func HasTag(err error, tag string) bool {
	var ee *ExprError
	if !errors.As(err, &ee) {
		return false
	}
	return ee.HasTag(tag)
}

// AsExprError unwraps err into an *ExprError if it holds one.
func AsExprError(err error) (*ExprError, bool) {
	var ee *ExprError
	ok := errors.As(err, &ee)
	return ee, ok
}

func parseError(tag, msg string) *ExprError {
	return &ExprError{Message: msg, Code: 400, Tags: []string{TagParseError, tag}}
}

func evalError(tag, msg string) *ExprError {
	return &ExprError{Message: msg, Code: 400, Tags: []string{TagEvalError, tag}}
}

// Parse error constructors.

// NewEmptyEquationError creates an EmptyEquation error.
func NewEmptyEquationError() *ExprError {
	return parseError(TagEmptyEquation, "equation cannot be empty")
}

// NewInvalidCharacterError creates an InvalidCharacter error for ch at byte offset pos.
func NewInvalidCharacterError(ch rune, pos int) *ExprError {
	e := parseError(TagInvalidCharacter, fmt.Sprintf("invalid character %q at position %d", ch, pos))
	e.Operand = string(ch)
	return e
}

// NewUnbalancedParenthesesError creates an UnbalancedParentheses error.
func NewUnbalancedParenthesesError(msg string) *ExprError {
	return parseError(TagUnbalancedParentheses, msg)
}

// NewEmptyParenthesesError creates an EmptyParentheses error.
func NewEmptyParenthesesError(pos int) *ExprError {
	return parseError(TagEmptyParentheses, fmt.Sprintf("empty parentheses at position %d", pos))
}

// NewConsecutiveOperatorsError creates a ConsecutiveOperators error.
func NewConsecutiveOperatorsError(seq string, pos int) *ExprError {
	e := parseError(TagConsecutiveOperators, fmt.Sprintf("consecutive operators %q at position %d", seq, pos))
	e.Operand = seq
	return e
}

// NewInsufficientOperandsError creates an InsufficientOperands error.
func NewInsufficientOperandsError(op string) *ExprError {
	e := parseError(TagInsufficientOperands, fmt.Sprintf("operator %q is missing an operand", op))
	e.Operand = op
	return e
}

// NewTooManyOperandsError creates a TooManyOperands error.
func NewTooManyOperandsError(n int) *ExprError {
	return parseError(TagTooManyOperands, fmt.Sprintf("%d operands are not joined by an operator", n))
}

// NewEmptyExpressionError creates an EmptyExpression error.
func NewEmptyExpressionError() *ExprError {
	return parseError(TagEmptyExpression, "expression has no operands")
}

// Evaluation error constructors.

// NewUndefinedVariableError creates an UndefinedVariable error.
func NewUndefinedVariableError(name string) *ExprError {
	e := evalError(TagUndefinedVariable, fmt.Sprintf("variable %s not provided", name))
	e.Operand = name
	return e
}

// NewDivisionByZeroError creates a DivisionByZero error.
func NewDivisionByZeroError() *ExprError {
	return evalError(TagDivisionByZero, "division by zero")
}

// NewMalformedOperandError creates a MalformedOperand error.
func NewMalformedOperandError(text string) *ExprError {
	e := evalError(TagMalformedOperand, fmt.Sprintf("malformed operand %q", text))
	e.Operand = text
	return e
}

// NewInternalError creates an InternalError. These indicate a tree that the
// tree builder could not have produced.
func NewInternalError(msg string) *ExprError {
	return &ExprError{Message: msg, Code: 500, Tags: []string{TagEvalError, TagInternalError}}
}

// NewNotFoundError creates a NotFound error for an unknown equation id.
func NewNotFoundError(id string) *ExprError {
	return &ExprError{
		Message: fmt.Sprintf("equation not found with ID: %s", id),
		Code:    404,
		Tags:    []string{TagStoreError, TagNotFound},
		Operand: id,
	}
}
