package expr

import (
	"regexp"
	"strconv"
)

// Node is the interface for expression tree nodes. A Node is either a
// *LeafNode or an *OperatorNode.
type Node interface {
	nodeType() string
	// String renders the subtree as canonical infix text.
	String() string
}

// LeafNode holds the raw text of an operand. What kind of operand it is gets
// decided when the tree is evaluated, not when it is built.
type LeafNode struct {
	Text string
}

func (n *LeafNode) nodeType() string { return "Leaf" }

func (n *LeafNode) String() string { return n.Text }

// OperatorNode is a binary operation. It exclusively owns both children and
// both are always non-nil in trees produced by BuildTree.
type OperatorNode struct {
	Op    string
	Left  Node
	Right Node
}

func (n *OperatorNode) nodeType() string { return "Operator" }

func (n *OperatorNode) String() string { return Render(n) }

// OperandKind classifies the text of a leaf.
type OperandKind int

const (
	OperandMalformed   OperandKind = iota
	OperandVariable                // letters only, e.g. x
	OperandCoefficient             // digits then letters, e.g. 3x
	OperandNumber                  // a floating-point literal, e.g. 42
)

func (k OperandKind) String() string {
	switch k {
	case OperandVariable:
		return "variable"
	case OperandCoefficient:
		return "coefficient"
	case OperandNumber:
		return "number"
	default:
		return "malformed"
	}
}

var (
	variablePattern    = regexp.MustCompile(`^[a-zA-Z]+$`)
	coefficientPattern = regexp.MustCompile(`^([0-9]+)([a-zA-Z]+)$`)
)

// ClassifyOperand reports how a leaf's text will be interpreted by Evaluate.
// The checks run in order: variable, coefficient, number.
func ClassifyOperand(text string) OperandKind {
	switch {
	case variablePattern.MatchString(text):
		return OperandVariable
	case coefficientPattern.MatchString(text):
		return OperandCoefficient
	}
	if _, ok := parseNumber(text); ok {
		return OperandNumber
	}
	return OperandMalformed
}

// parseNumber parses a float literal. Out-of-range literals still count as
// numbers and come back as ±Inf.
func parseNumber(text string) (float64, bool) {
	f, err := strconv.ParseFloat(text, 64)
	if err == nil {
		return f, true
	}
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return f, true
	}
	return 0, false
}
