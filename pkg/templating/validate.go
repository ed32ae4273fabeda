package templating

import (
	"fmt"
	"sort"
	"strings"
)

// IssueSeverity indicates lint issue severity.
type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
)

// IssueCode classifies lint issues.
type IssueCode string

const (
	IssueCodeSyntaxError    IssueCode = "SYNTAX_ERROR"
	IssueCodeBlockMismatch  IssueCode = "BLOCK_MISMATCH"
	IssueCodeUnknownHelper  IssueCode = "UNKNOWN_HELPER"
	IssueCodeMissingPartial IssueCode = "MISSING_PARTIAL"
)

// Issue is a single problem found while validating a template.
type Issue struct {
	Severity   IssueSeverity
	Code       IssueCode
	Message    string
	SourceName string
	Line       int
	Column     int
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", i.SourceName, i.Line, i.Column, i.Severity, i.Message)
}

// Validate lints a template without compiling it, reporting structural
// faults plus references to helpers and partials the engine does not know.
// Unlike Parse, validation does not stop at the first fault: it
// resynchronizes after each error and keeps scanning, so one pass reports
// every issue in the source, sorted by position. Unknown references are
// warnings by default since partials may be registered later; StrictMode
// reports them as errors. An empty result means the template would compile
// against this engine.
func (e *Engine) Validate(sourceName, source string) []Issue {
	refSeverity := IssueSeverityWarning
	if e.config.StrictMode {
		refSeverity = IssueSeverityError
	}

	nodes, issues := lintTokens(sourceName, Lex(sourceName, source))

	walkNodes(nodes, func(node Node) {
		switch n := node.(type) {
		case *HelperNode:
			if _, ok := e.helpers.Get(n.Name); !ok {
				msg := fmt.Sprintf("unknown helper %q", n.Name)
				if hint := e.helpers.suggest(n.Name); hint != "" {
					msg += fmt.Sprintf(" (did you mean %q?)", hint)
				}
				issues = append(issues, Issue{
					Severity:   refSeverity,
					Code:       IssueCodeUnknownHelper,
					Message:    msg,
					SourceName: sourceName,
					Line:       n.Token.LineNumber,
					Column:     n.Token.StartOffset + 1,
				})
			}
		case *PartialNode:
			if _, ok := e.partials.Get(n.Name); !ok {
				issues = append(issues, Issue{
					Severity:   refSeverity,
					Code:       IssueCodeMissingPartial,
					Message:    fmt.Sprintf("partial %q is not registered", n.Name),
					SourceName: sourceName,
					Line:       n.Token.LineNumber,
					Column:     n.Token.StartOffset + 1,
				})
			}
		}
	})

	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Line != issues[b].Line {
			return issues[a].Line < issues[b].Line
		}
		return issues[a].Column < issues[b].Column
	})

	return issues
}

// lintTokens is the error-tolerant counterpart of Parse. Where Parse fails
// fast, lintTokens records an issue, resynchronizes, and keeps building as
// much of the tree as the source allows so reference checks still cover the
// well-formed regions. Block pairing faults get their own issue code;
// everything else structural is a plain syntax error.
func lintTokens(sourceName string, tokens []Token) ([]Node, []Issue) {
	var top []Node
	var stack []*blockFrame
	var issues []Issue

	report := func(code IssueCode, err error) {
		issue := Issue{
			Severity:   IssueSeverityError,
			Code:       code,
			Message:    err.Error(),
			SourceName: sourceName,
		}
		if syntaxErr, ok := err.(*SyntaxError); ok {
			issue.Message = syntaxErr.Message
			issue.Line = syntaxErr.LineNumber
			issue.Column = syntaxErr.StartOffset + 1
		}
		issues = append(issues, issue)
	}

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
				report(IssueCodeSyntaxError, newSyntaxError("unterminated comment", tok))
				i = len(tokens)
				continue
			}
			appendNode(&CommentNode{Token: tok})
			i = end + 1

		case TokenOpen, TokenOpenUnescaped:
			text, end, err := collectExpression(tokens, i)
			if err != nil {
				report(IssueCodeSyntaxError, err)
				i = resyncPastClose(tokens, i+1)
				continue
			}

			// Handle block closes here: pairing faults carry their own
			// issue code, and a name mismatch still pops the innermost
			// block so scanning can continue.
			if strings.HasPrefix(text, "/") {
				name := strings.TrimSpace(text[1:])
				if len(stack) == 0 {
					report(IssueCodeBlockMismatch, newSyntaxError(
						fmt.Sprintf("closing tag %q without an open block", name), tok))
				} else {
					frame := stack[len(stack)-1]
					if name != frame.node.Name {
						report(IssueCodeBlockMismatch, newSyntaxError(
							fmt.Sprintf("closing tag %q does not match open block %q", name, frame.node.Name), tok))
					}
					stack = stack[:len(stack)-1]
				}
				i = end + 1
				continue
			}

			node, opened, err := classifyExpression(tok, text, &stack)
			if err != nil {
				report(IssueCodeSyntaxError, err)
			} else {
				if node != nil {
					appendNode(node)
				}
				if opened != nil {
					stack = append(stack, &blockFrame{node: opened})
				}
			}
			i = end + 1

		case TokenClose, TokenCloseUnescaped:
			report(IssueCodeSyntaxError, newSyntaxError(
				fmt.Sprintf("unexpected %q without a matching open delimiter", tok.Value), tok))
			i++

		case TokenCommentClose:
			report(IssueCodeSyntaxError, newSyntaxError(
				"unexpected comment terminator without a matching comment open", tok))
			i++

		default:
			report(IssueCodeSyntaxError, newSyntaxError(
				fmt.Sprintf("unexpected token %q", tok.Value), tok))
			i++
		}
	}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		report(IssueCodeBlockMismatch, newSyntaxError(
			fmt.Sprintf("unclosed block %q", frame.node.Name), frame.node.Token))
	}

	return top, issues
}

// resyncPastClose skips forward past the next closing delimiter so linting
// can resume after a malformed expression region.
func resyncPastClose(tokens []Token, from int) int {
	for i := from; i < len(tokens); i++ {
		if tokens[i].Type == TokenClose || tokens[i].Type == TokenCloseUnescaped {
			return i + 1
		}
	}
	return len(tokens)
}

// walkNodes visits every node of a tree depth-first.
func walkNodes(nodes []Node, visit func(Node)) {
	for _, node := range nodes {
		visit(node)
		if helper, ok := node.(*HelperNode); ok {
			walkNodes(helper.Primary, visit)
			walkNodes(helper.Inverse, visit)
		}
	}
}
