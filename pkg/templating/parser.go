package templating

import (
	"fmt"
	"strings"
)

// blockFrame tracks one open block on the parser's stack. New nodes are
// appended to the top frame's primary or inverse list; with an empty stack
// they go to the top-level tree.
type blockFrame struct {
	node   *HelperNode
	inElse bool
}

// Parse consumes the lexer's token stream and assembles the template tree.
// It fails with a SyntaxError on any unmatched delimiter, comment, or block
// at end of input, and on malformed nesting.
func Parse(tokens []Token) ([]Node, error) {
	var top []Node
	var stack []*blockFrame

	appendNode := func(n Node) {
		if len(stack) == 0 {
			top = append(top, n)
			return
		}
		frame := stack[len(stack)-1]
		if frame.inElse {
			frame.node.Inverse = append(frame.node.Inverse, n)
		} else {
			frame.node.Primary = append(frame.node.Primary, n)
		}
	}

	i := 0
	for i < len(tokens) {
		tok := tokens[i]

		switch tok.Type {
		case TokenContent:
			appendNode(&ContentNode{Text: tok.Value, Token: tok})
			i++

		case TokenCommentOpen:
			end, ok := findCommentClose(tokens, i+1)
			if !ok {
				return nil, newSyntaxError("unterminated comment", tok)
			}
			appendNode(&CommentNode{Token: tok})
			i = end + 1

		case TokenOpen, TokenOpenUnescaped:
			text, end, err := collectExpression(tokens, i)
			if err != nil {
				return nil, err
			}
			node, opened, err := classifyExpression(tok, text, &stack)
			if err != nil {
				return nil, err
			}
			if node != nil {
				appendNode(node)
			}
			// A block node joins the tree before its frame opens, so its
			// children land in its own child lists, not inside itself.
			if opened != nil {
				stack = append(stack, &blockFrame{node: opened})
			}
			i = end + 1

		case TokenClose, TokenCloseUnescaped:
			return nil, newSyntaxError(
				fmt.Sprintf("unexpected %q without a matching open delimiter", tok.Value), tok)

		case TokenCommentClose:
			return nil, newSyntaxError(
				"unexpected comment terminator without a matching comment open", tok)

		default:
			return nil, newSyntaxError(
				fmt.Sprintf("unexpected token %q", tok.Value), tok)
		}
	}

	if len(stack) > 0 {
		frame := stack[len(stack)-1]
		return nil, newSyntaxError(
			fmt.Sprintf("unclosed block %q", frame.node.Name), frame.node.Token)
	}

	return top, nil
}

// findCommentClose scans forward for the comment terminator, skipping the
// comment body. Delimiter tokens never occur inside a comment region; the
// lexer treats that text as literal content.
func findCommentClose(tokens []Token, from int) (int, bool) {
	for i := from; i < len(tokens); i++ {
		if tokens[i].Type == TokenCommentClose {
			return i, true
		}
	}
	return 0, false
}

// collectExpression gathers the expression body between an open delimiter
// and its matching close. An expression may be split across lines; its
// constituent content tokens are concatenated with a single separating
// space. Returns the joined text and the index of the closing token.
func collectExpression(tokens []Token, open int) (string, int, error) {
	openTok := tokens[open]
	wantClose := TokenClose
	if openTok.Type == TokenOpenUnescaped {
		wantClose = TokenCloseUnescaped
	}

	var parts []string
	for i := open + 1; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case TokenContent:
			if part := strings.TrimSpace(tok.Value); part != "" {
				parts = append(parts, part)
			}
		case wantClose:
			return strings.Join(parts, " "), i, nil
		case TokenClose, TokenCloseUnescaped:
			return "", 0, newSyntaxError(
				fmt.Sprintf("mismatched closing delimiter %q for %q", tok.Value, openTok.Value), tok)
		default:
			return "", 0, newSyntaxError(
				fmt.Sprintf("unexpected %q inside an open expression", tok.Value), tok)
		}
	}

	return "", 0, newSyntaxError(
		fmt.Sprintf("unmatched %q delimiter", openTok.Value), openTok)
}

// classifyExpression classifies a delimited region by the first character of
// its trimmed expression text: '#' opens a block, '/' closes one, '>' is a
// partial reference, the exact text "else" is the else marker, and anything
// else is a plain expression. Returns the node to append (nil when the
// region only manipulates parser state) and, for block opens, the node
// whose frame the caller must push.
func classifyExpression(open Token, text string, stack *[]*blockFrame) (Node, *HelperNode, error) {
	escape := open.Type == TokenOpen

	switch {
	case text == "":
		return nil, nil, newSyntaxError("empty expression", open)

	case text[0] == '#':
		node, err := parseHelperExpression(open, strings.TrimSpace(text[1:]), true, escape)
		if err != nil {
			return nil, nil, err
		}
		return node, node, nil

	case text[0] == '/':
		name := strings.TrimSpace(text[1:])
		if len(*stack) == 0 {
			return nil, nil, newSyntaxError(
				fmt.Sprintf("closing tag %q without an open block", name), open)
		}
		frame := (*stack)[len(*stack)-1]
		if name != frame.node.Name {
			return nil, nil, newSyntaxError(
				fmt.Sprintf("closing tag %q does not match open block %q", name, frame.node.Name), open)
		}
		*stack = (*stack)[:len(*stack)-1]
		return nil, nil, nil

	case text[0] == '>':
		name := strings.TrimSpace(text[1:])
		if name == "" {
			return nil, nil, newSyntaxError("partial reference is missing a name", open)
		}
		return &PartialNode{Name: name, Token: open}, nil, nil

	case text == "else":
		if len(*stack) == 0 {
			return nil, nil, newSyntaxError("else marker outside of a block", open)
		}
		frame := (*stack)[len(*stack)-1]
		if frame.inElse {
			return nil, nil, newSyntaxError(
				fmt.Sprintf("duplicate else marker in block %q", frame.node.Name), open)
		}
		frame.inElse = true
		return nil, nil, nil

	default:
		subTokens, err := parseExpression(open, text)
		if err != nil {
			return nil, nil, err
		}
		if len(subTokens) == 1 && subTokens[0].Type == ExprPath {
			return &PathNode{
				Path:   subTokens[0].Path,
				Raw:    subTokens[0].Text,
				Escape: escape,
				Token:  open,
			}, nil, nil
		}
		node, err := buildHelperNode(open, subTokens, false, escape)
		return node, nil, err
	}
}

// parseHelperExpression parses a helper invocation body (the text after a
// '#' for blocks, or the whole expression for inline helpers).
func parseHelperExpression(open Token, text string, block, escape bool) (*HelperNode, error) {
	if text == "" {
		return nil, newSyntaxError("block open is missing a helper name", open)
	}
	subTokens, err := parseExpression(open, text)
	if err != nil {
		return nil, err
	}
	return buildHelperNode(open, subTokens, block, escape)
}

// buildHelperNode assembles a HelperNode from expression sub-tokens. The
// first sub-token must be a bare single-segment path naming the helper.
func buildHelperNode(open Token, subTokens []ExprToken, block, escape bool) (*HelperNode, error) {
	if len(subTokens) == 0 {
		return nil, newSyntaxError("empty expression", open)
	}

	head := subTokens[0]
	if head.Type != ExprPath || len(head.Path) != 1 || head.Path[0].IsIndex {
		return nil, newSyntaxError(
			fmt.Sprintf("expected a helper name, found %s", head), open)
	}

	node := &HelperNode{
		Name:   head.Path[0].Key,
		Block:  block,
		Escape: escape,
		Token:  open,
	}

	for _, sub := range subTokens[1:] {
		switch sub.Type {
		case ExprPath:
			node.Positional = append(node.Positional, Argument{
				IsPath: true,
				Path:   sub.Path,
				Raw:    sub.Text,
			})
		case ExprLiteral:
			node.Positional = append(node.Positional, Argument{
				Value: sub.Value,
				Raw:   sub.Text,
			})
		case ExprKeyValue:
			arg := Argument{Raw: sub.Pair.Text}
			if sub.Pair.Type == ExprPath {
				arg.IsPath = true
				arg.Path = sub.Pair.Path
			} else {
				arg.Value = sub.Pair.Value
			}
			node.Named = append(node.Named, NamedArgument{Key: sub.Key, Value: arg})
		case ExprBlockParams:
			if len(node.BlockParams) > 0 {
				return nil, newSyntaxError(
					fmt.Sprintf("duplicate block parameter list for helper %q", node.Name), open)
			}
			node.BlockParams = sub.Names
		}
	}

	return node, nil
}
