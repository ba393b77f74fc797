// Package expr implements the equation compiler and evaluator: validation,
// tokenization, infix-to-postfix conversion, tree construction, evaluation
// against variable bindings, and canonical infix rendering.
//
// Trees returned by Parse are never mutated afterwards, so a single tree may
// be evaluated and rendered from any number of goroutines at once.
package expr

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenOperand  TokenType = iota // number, variable, or coefficient (e.g. 3x)
	TokenOperator                  // + - * / ^
	TokenLParen                    // (
	TokenRParen                    // )
)

// Operator symbols.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
	OpPow = "^"
)

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value string // raw source text
	Pos   int    // byte offset in source
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenOperand:
		return "OPERAND"
	case TokenOperator:
		return "OPERATOR"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	default:
		return "UNKNOWN"
	}
}

// Precedence returns the binding strength of an operator symbol. "(" is the
// stack sentinel at 0; anything unknown is also 0.
func Precedence(op string) int {
	switch op {
	case OpAdd, OpSub:
		return 1
	case OpMul, OpDiv:
		return 2
	case OpPow:
		return 3
	default:
		return 0
	}
}

// IsOperator reports whether s is one of the five binary operator symbols.
func IsOperator(s string) bool {
	switch s {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow:
		return true
	}
	return false
}

func isOperatorByte(ch byte) bool {
	return ch == '+' || ch == '-' || ch == '*' || ch == '/' || ch == '^'
}
