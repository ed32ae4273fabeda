package templating

import (
	"fmt"
	"strings"
)

// Node is a node of the template tree produced by Parse. Every node carries
// its originating token for diagnostics.
type Node interface {
	String() string
}

// ContentNode is literal output text.
type ContentNode struct {
	Text  string
	Token Token
}

func (n *ContentNode) String() string {
	return fmt.Sprintf("Content(%q)", n.Text)
}

// CommentNode produces no output.
type CommentNode struct {
	Token Token
}

func (n *CommentNode) String() string {
	return "Comment"
}

// PathNode is a single-path lookup. Escape is false only when the template
// used the unescaped delimiter form.
type PathNode struct {
	Path   []PathSegment
	Raw    string
	Escape bool
	Token  Token
}

func (n *PathNode) String() string {
	if !n.Escape {
		return fmt.Sprintf("PathExpression{{{%s}}}", n.Raw)
	}
	return fmt.Sprintf("PathExpression{{%s}}", n.Raw)
}

// Argument is a helper argument: either a reference path dereferenced at
// render time or an unwrapped literal value.
type Argument struct {
	IsPath bool
	Path   []PathSegment
	Value  interface{}
	Raw    string
}

func (a Argument) String() string {
	if a.IsPath {
		return a.Raw
	}
	if s, ok := a.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", a.Value)
}

// NamedArgument is a key=value helper argument. Order of appearance is
// preserved.
type NamedArgument struct {
	Key   string
	Value Argument
}

// HelperNode is an invocation of a named helper. Block invocations carry
// primary and inverse child lists partitioned at an else marker.
type HelperNode struct {
	Name        string
	Positional  []Argument
	Named       []NamedArgument
	BlockParams []string
	Block       bool
	Escape      bool
	Primary     []Node
	Inverse     []Node
	Token       Token
}

func (n *HelperNode) String() string {
	var b strings.Builder
	if n.Block {
		b.WriteString("Block(")
	} else {
		b.WriteString("Helper(")
	}
	b.WriteString(n.Name)
	for _, arg := range n.Positional {
		b.WriteString(" ")
		b.WriteString(arg.String())
	}
	for _, named := range n.Named {
		fmt.Fprintf(&b, " %s=%s", named.Key, named.Value)
	}
	if len(n.BlockParams) > 0 {
		fmt.Fprintf(&b, " as |%s|", strings.Join(n.BlockParams, " "))
	}
	b.WriteString(")")
	return b.String()
}

// PartialNode is a reference to a registered sub-template by name. The
// partial is looked up at render time, not compile time.
type PartialNode struct {
	Name  string
	Token Token
}

func (n *PartialNode) String() string {
	return fmt.Sprintf("Partial(> %s)", n.Name)
}
