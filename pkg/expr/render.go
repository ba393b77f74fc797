package expr

import "strings"

// Render produces canonical infix text for a tree, with a single space around
// every operator and only the parentheses needed to read it back the same way.
//
// A child is parenthesized when it binds more loosely than its parent. The
// right side of "-" and "/" is parenthesized whenever it is an operation,
// even when precedence alone would not require it: x - (y - z), x / (y * z).
func Render(node Node) string {
	var sb strings.Builder
	render(&sb, node)
	return sb.String()
}

func render(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *LeafNode:
		if n != nil {
			sb.WriteString(n.Text)
		}
	case *OperatorNode:
		if n == nil {
			return
		}
		prec := Precedence(n.Op)

		left, leftIsOp := n.Left.(*OperatorNode)
		renderChild(sb, n.Left, leftIsOp && left != nil && Precedence(left.Op) < prec)

		sb.WriteByte(' ')
		sb.WriteString(n.Op)
		sb.WriteByte(' ')

		right, rightIsOp := n.Right.(*OperatorNode)
		wrap := rightIsOp && right != nil && (Precedence(right.Op) < prec || n.Op == OpSub || n.Op == OpDiv)
		renderChild(sb, n.Right, wrap)
	}
}

func renderChild(sb *strings.Builder, node Node, parens bool) {
	if parens {
		sb.WriteByte('(')
	}
	render(sb, node)
	if parens {
		sb.WriteByte(')')
	}
}
