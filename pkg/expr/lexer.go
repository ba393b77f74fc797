package expr

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lemonberrylabs/equations/pkg/types"
)

var (
	emptyParens = regexp.MustCompile(`\([ \t\n\v\f\r]*\)`)

	// consecutiveOps only catches an operator followed by * / ^, or a +/-
	// followed by another +/-. Sequences such as "x * - y" get through here
	// and are rejected by the tree builder instead. Whitespace between the
	// two operators does not help: "x + * y" is rejected too.
	consecutiveOps = regexp.MustCompile(`[-+*/^][ \t\n\v\f\r]*[*/^]|[-+][ \t\n\v\f\r]*[-+]`)
)

// whitespace is the only set of characters that separates tokens. The
// validator, its patterns and the lexer all use it.
const whitespace = " \t\n\v\f\r"

func isSpace(r rune) bool {
	return r < utf8.RuneSelf && strings.IndexByte(whitespace, byte(r)) >= 0
}

// Validate checks raw equation text before tokenization. The checks run in a
// fixed order and the first failure is returned.
func Validate(input string) error {
	if strings.Trim(input, whitespace) == "" {
		return types.NewEmptyEquationError()
	}

	for i, ch := range input {
		if !isAllowed(ch) {
			return types.NewInvalidCharacterError(ch, i)
		}
	}

	depth := 0
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return types.NewUnbalancedParenthesesError("closing parenthesis without matching opening parenthesis")
			}
		}
	}
	if depth != 0 {
		return types.NewUnbalancedParenthesesError("opening parenthesis is never closed")
	}

	if loc := emptyParens.FindStringIndex(input); loc != nil {
		return types.NewEmptyParenthesesError(loc[0])
	}

	if loc := consecutiveOps.FindStringIndex(input); loc != nil {
		return types.NewConsecutiveOperatorsError(input[loc[0]:loc[1]], loc[0])
	}

	return nil
}

func isAllowed(ch rune) bool {
	switch {
	case ch >= '0' && ch <= '9':
		return true
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		return true
	case isSpace(ch):
		return true
	case ch == '(' || ch == ')':
		return true
	}
	return ch < utf8.RuneSelf && isOperatorByte(byte(ch))
}

// Lexer tokenizes an equation string.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input and returns all tokens. Whitespace only
// separates tokens; every other character that is not an operator or a
// parenthesis extends the current operand run.
func (l *Lexer) Tokenize() []Token {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return l.tokens
		}

		ch := l.input[l.pos]
		switch {
		case ch == '(':
			l.emit(TokenLParen, l.pos+1)
		case ch == ')':
			l.emit(TokenRParen, l.pos+1)
		case isOperatorByte(ch):
			l.emit(TokenOperator, l.pos+1)
		default:
			l.readOperand()
		}
	}
}

// Tokenize is shorthand for NewLexer(input).Tokenize().
func Tokenize(input string) []Token {
	return NewLexer(input).Tokenize()
}

func (l *Lexer) emit(tt TokenType, end int) {
	l.tokens = append(l.tokens, Token{Type: tt, Value: l.input[l.pos:end], Pos: l.pos})
	l.pos = end
}

// readOperand reads a maximal run of non-separator characters.
func (l *Lexer) readOperand() {
	end := l.pos
	for end < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[end:])
		if isSpace(r) || r == '(' || r == ')' || (r < utf8.RuneSelf && isOperatorByte(byte(r))) {
			break
		}
		end += size
	}
	l.emit(TokenOperand, end)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		if !isSpace(rune(l.input[l.pos])) {
			return
		}
		l.pos++
	}
}
