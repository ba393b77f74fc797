package expr

import (
	"sort"

	"github.com/lemonberrylabs/equations/pkg/types"
)

// Parse validates, tokenizes, and compiles an equation into an expression
// tree. It either returns a complete tree or an *types.ExprError tagged
// ParseError; it never returns a partial tree.
func Parse(input string) (Node, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}
	return BuildTree(ToPostfix(Tokenize(input)))
}

// ToPostfix reorders infix tokens into postfix order with the shunting-yard
// algorithm.
//
// An operator pops every stacked operator of greater or equal precedence
// before being pushed, so all operators group left to right, "^" included:
// 2^3^2 is (2^3)^2. Parenthesis balance is not checked here; Validate has
// already done that.
func ToPostfix(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	var stack []Token

	for _, tok := range tokens {
		switch tok.Type {
		case TokenOperand:
			out = append(out, tok)
		case TokenLParen:
			stack = append(stack, tok)
		case TokenRParen:
			for len(stack) > 0 && stack[len(stack)-1].Type != TokenLParen {
				out = append(out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1] // discard "("
			}
		case TokenOperator:
			for len(stack) > 0 && stackPrecedence(stack[len(stack)-1]) >= Precedence(tok.Value) {
				out = append(out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)
		}
	}

	for len(stack) > 0 {
		out = append(out, stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
	return out
}

// stackPrecedence is 0 for the "(" sentinel so nothing pops past it.
func stackPrecedence(tok Token) int {
	if tok.Type == TokenLParen {
		return 0
	}
	return Precedence(tok.Value)
}

// BuildTree assembles postfix tokens into an expression tree. The first node
// popped for an operator becomes its right child and the second its left.
//
// Any parenthesis token that reaches this point (only possible when ToPostfix
// was fed unbalanced input) is treated as an operand, matching how the
// postfix sequence would be read back.
func BuildTree(postfix []Token) (Node, error) {
	var stack []Node

	for _, tok := range postfix {
		if tok.Type != TokenOperator {
			stack = append(stack, &LeafNode{Text: tok.Value})
			continue
		}

		if len(stack) < 2 {
			return nil, types.NewInsufficientOperandsError(tok.Value)
		}
		right := stack[len(stack)-1]
		left := stack[len(stack)-2]
		stack = stack[:len(stack)-2]
		stack = append(stack, &OperatorNode{Op: tok.Value, Left: left, Right: right})
	}

	switch len(stack) {
	case 0:
		return nil, types.NewEmptyExpressionError()
	case 1:
		return stack[0], nil
	default:
		return nil, types.NewTooManyOperandsError(len(stack))
	}
}

// Postfix flattens a tree back into its postfix token texts.
func Postfix(node Node) []string {
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *LeafNode:
			if n != nil {
				out = append(out, n.Text)
			}
		case *OperatorNode:
			if n == nil {
				return
			}
			walk(n.Left)
			walk(n.Right)
			out = append(out, n.Op)
		}
	}
	walk(node)
	return out
}

// Variables returns the sorted, de-duplicated variable names a tree reads,
// including the variable part of coefficient leaves such as 3x.
func Variables(node Node) []string {
	seen := map[string]bool{}
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *LeafNode:
			if n == nil {
				return
			}
			switch ClassifyOperand(n.Text) {
			case OperandVariable:
				seen[n.Text] = true
			case OperandCoefficient:
				seen[coefficientPattern.FindStringSubmatch(n.Text)[2]] = true
			}
		case *OperatorNode:
			if n == nil {
				return
			}
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(node)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
