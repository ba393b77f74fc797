package expr

import (
	"fmt"
	"math"

	"github.com/lemonberrylabs/equations/pkg/types"
)

// Scope provides variable lookup for expression evaluation.
type Scope interface {
	// Lookup returns the value bound to name and whether it was bound.
	Lookup(name string) (float64, bool)
}

// Bindings is a Scope backed by a plain map.
type Bindings map[string]float64

// Lookup implements Scope.
func (b Bindings) Lookup(name string) (float64, bool) {
	v, ok := b[name]
	return v, ok
}

// Evaluate computes the value of a tree under the given scope. Errors are
// *types.ExprError values tagged EvalError. The tree is only read.
func Evaluate(node Node, scope Scope) (float64, error) {
	switch n := node.(type) {
	case *LeafNode:
		if n == nil {
			return 0, types.NewInternalError("cannot evaluate a nil leaf")
		}
		return evalLeaf(n, scope)
	case *OperatorNode:
		if n == nil {
			return 0, types.NewInternalError("cannot evaluate a nil operator")
		}
		return evalOperator(n, scope)
	case nil:
		return 0, types.NewInternalError("cannot evaluate an empty tree")
	default:
		return 0, types.NewInternalError(fmt.Sprintf("unsupported expression node type: %T", node))
	}
}

func evalLeaf(n *LeafNode, scope Scope) (float64, error) {
	switch ClassifyOperand(n.Text) {
	case OperandVariable:
		return lookup(scope, n.Text)
	case OperandCoefficient:
		m := coefficientPattern.FindStringSubmatch(n.Text)
		multiplier, _ := parseNumber(m[1])
		v, err := lookup(scope, m[2])
		if err != nil {
			return 0, err
		}
		return multiplier * v, nil
	case OperandNumber:
		f, _ := parseNumber(n.Text)
		return f, nil
	default:
		return 0, types.NewMalformedOperandError(n.Text)
	}
}

func lookup(scope Scope, name string) (float64, error) {
	if scope == nil {
		return 0, types.NewUndefinedVariableError(name)
	}
	v, ok := scope.Lookup(name)
	if !ok {
		return 0, types.NewUndefinedVariableError(name)
	}
	return v, nil
}

func evalOperator(n *OperatorNode, scope Scope) (float64, error) {
	if n.Left == nil || n.Right == nil {
		return 0, types.NewInternalError(fmt.Sprintf("operator %q is missing a child", n.Op))
	}

	left, err := Evaluate(n.Left, scope)
	if err != nil {
		return 0, err
	}
	right, err := Evaluate(n.Right, scope)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpDiv:
		if right == 0 {
			return 0, types.NewDivisionByZeroError()
		}
		return left / right, nil
	case OpPow:
		return math.Pow(left, right), nil
	default:
		return 0, types.NewInternalError(fmt.Sprintf("unknown operator: %s", n.Op))
	}
}
