package templating

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError represents a structural fault detected while lexing, parsing,
// or compiling a template: unterminated delimiters, comments, strings,
// brackets, or blocks, malformed paths, and unknown helper or partial
// references. It is always fatal to the compilation or render that raised
// it.
type SyntaxError struct {
	Message     string
	SourceName  string
	LineNumber  int
	StartOffset int
	EndOffset   int
	Line        string // the offending source line
}

// newSyntaxError creates a SyntaxError positioned at the given token.
func newSyntaxError(message string, tok Token) *SyntaxError {
	return &SyntaxError{
		Message:     message,
		SourceName:  tok.SourceName,
		LineNumber:  tok.LineNumber,
		StartOffset: tok.StartOffset,
		EndOffset:   tok.EndOffset,
		Line:        tok.Line,
	}
}

// Error renders the diagnostic with the offending source line and a caret
// pointing at the offending column.
func (e *SyntaxError) Error() string {
	var b strings.Builder

	if e.SourceName != "" {
		b.WriteString(e.SourceName)
		b.WriteString(":")
	}
	if e.LineNumber > 0 {
		b.WriteString(strconv.Itoa(e.LineNumber))
		b.WriteString(":")
		b.WriteString(strconv.Itoa(e.StartOffset + 1))
		b.WriteString(":")
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(e.Message)

	if line := strings.TrimRight(e.Line, "\r\n"); line != "" {
		lineNum := strconv.Itoa(e.LineNumber)

		b.WriteString("\n  ")
		b.WriteString(lineNum)
		b.WriteString(" | ")
		b.WriteString(line)

		// Caret under the offending column, padded past the line-number
		// gutter ("  <num> | ").
		b.WriteString("\n")
		b.WriteString(strings.Repeat(" ", len(lineNum)+5+e.StartOffset))
		b.WriteString("^")
	}

	return b.String()
}

// HelperError represents a fault raised inside third-party helper code
// during a render. It is caught at the single call site that invoked the
// helper and surfaced, with the original error retained as the underlying
// cause, to the caller of the top-level render.
type HelperError struct {
	Helper     string
	SourceName string
	LineNumber int
	Cause      error
}

func (e *HelperError) Error() string {
	where := e.SourceName
	if e.LineNumber > 0 {
		where += ":" + strconv.Itoa(e.LineNumber)
	}
	if where != "" {
		return fmt.Sprintf("helper %q failed at %s: %v", e.Helper, where, e.Cause)
	}
	return fmt.Sprintf("helper %q failed: %v", e.Helper, e.Cause)
}

func (e *HelperError) Unwrap() error {
	return e.Cause
}

// newHelperError wraps a helper failure with the invoking token's position.
func newHelperError(name string, tok Token, cause error) *HelperError {
	return &HelperError{
		Helper:     name,
		SourceName: tok.SourceName,
		LineNumber: tok.LineNumber,
		Cause:      cause,
	}
}

// recoveredError converts a panic recovery value to an error.
func recoveredError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsSyntaxError checks if an error is (or wraps) a SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsHelperError checks if an error is (or wraps) a HelperError.
func IsHelperError(err error) bool {
	var he *HelperError
	return errors.As(err, &he)
}
