package templating

import (
	"errors"
	"strings"
	"testing"
)

func TestSyntaxErrorFormat(t *testing.T) {
	err := &SyntaxError{
		Message:     "unmatched \"{{\" delimiter",
		SourceName:  "page.html",
		LineNumber:  3,
		StartOffset: 5,
		EndOffset:   7,
		Line:        "<h1> {{ title\n",
	}

	got := err.Error()
	want := "page.html:3:6: unmatched \"{{\" delimiter\n" +
		"  3 | <h1> {{ title\n" +
		strings.Repeat(" ", len("  3 | ")+5) + "^"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSyntaxErrorCaretColumn(t *testing.T) {
	err := &SyntaxError{
		Message:     "bad",
		SourceName:  "t",
		LineNumber:  12,
		StartOffset: 2,
		Line:        "ab{{ x",
	}

	lines := strings.Split(err.Error(), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	// The caret must sit under the same column of the echoed line that the
	// offset points at in the raw line.
	caret := strings.IndexByte(lines[2], '^')
	lineStart := strings.Index(lines[1], "| ") + 2
	if caret != lineStart+2 {
		t.Errorf("caret at column %d, want %d\n%s", caret, lineStart+2, err.Error())
	}
}

func TestSyntaxErrorWithoutSourceLine(t *testing.T) {
	err := &SyntaxError{Message: "empty expression", SourceName: "t", LineNumber: 1}
	got := err.Error()
	if strings.Contains(got, "\n") {
		t.Errorf("Error() = %q, want single line when no source line is available", got)
	}
	if got != "t:1:1: empty expression" {
		t.Errorf("Error() = %q, want %q", got, "t:1:1: empty expression")
	}
}

func TestSyntaxErrorFromParse(t *testing.T) {
	_, err := Parse(Lex("view.html", "line one\n  {{ broken"))
	if err == nil {
		t.Fatal("expected error")
	}

	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error is %T, want *SyntaxError", err)
	}
	if syntaxErr.SourceName != "view.html" {
		t.Errorf("source = %q, want %q", syntaxErr.SourceName, "view.html")
	}
	if syntaxErr.LineNumber != 2 {
		t.Errorf("line = %d, want 2", syntaxErr.LineNumber)
	}
	if syntaxErr.StartOffset != 2 {
		t.Errorf("start offset = %d, want 2", syntaxErr.StartOffset)
	}
	if !strings.Contains(err.Error(), "  {{ broken") {
		t.Errorf("Error() = %q, want the echoed source line", err.Error())
	}
	if !strings.Contains(err.Error(), "^") {
		t.Errorf("Error() = %q, want a caret marker", err.Error())
	}
}

func TestHelperErrorFormat(t *testing.T) {
	cause := errors.New("database offline")
	err := newHelperError("lookup", Token{SourceName: "t.html", LineNumber: 4}, cause)

	got := err.Error()
	if !strings.Contains(got, `helper "lookup" failed at t.html:4`) {
		t.Errorf("Error() = %q, want helper name and position", got)
	}
	if !errors.Is(err, cause) {
		t.Error("HelperError does not unwrap to its cause")
	}
}

func TestRecoveredError(t *testing.T) {
	sentinel := errors.New("original")

	if err := recoveredError(sentinel); !errors.Is(err, sentinel) {
		t.Errorf("recoveredError(error) = %v, want it to wrap the original", err)
	}
	if err := recoveredError("boom"); !strings.Contains(err.Error(), "boom") {
		t.Errorf("recoveredError(string) = %v, want the message retained", err)
	}
	if err := recoveredError(42); !strings.Contains(err.Error(), "42") {
		t.Errorf("recoveredError(int) = %v, want the value retained", err)
	}
}

func TestErrorPredicates(t *testing.T) {
	syntaxErr := &SyntaxError{Message: "x"}
	helperErr := &HelperError{Helper: "h", Cause: errors.New("y")}

	if !IsSyntaxError(syntaxErr) || IsSyntaxError(helperErr) || IsSyntaxError(nil) {
		t.Error("IsSyntaxError misclassifies")
	}
	if !IsHelperError(helperErr) || IsHelperError(syntaxErr) || IsHelperError(nil) {
		t.Error("IsHelperError misclassifies")
	}
}
