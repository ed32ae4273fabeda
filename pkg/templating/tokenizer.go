package templating

import (
	"log/slog"
	"strings"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenContent TokenType = iota
	TokenOpen
	TokenClose
	TokenOpenUnescaped
	TokenCloseUnescaped
	TokenCommentOpen
	TokenCommentClose
)

func (t TokenType) String() string {
	switch t {
	case TokenContent:
		return "content"
	case TokenOpen:
		return "open"
	case TokenClose:
		return "close"
	case TokenOpenUnescaped:
		return "open-unescaped"
	case TokenCloseUnescaped:
		return "close-unescaped"
	case TokenCommentOpen:
		return "comment-open"
	case TokenCommentClose:
		return "comment-close"
	default:
		return "unknown"
	}
}

// Token represents a positioned slice of template source. Tokens are
// produced in source order and are immutable once emitted.
type Token struct {
	Type        TokenType
	SourceName  string
	LineNumber  int    // 1-based line number in the source
	StartOffset int    // offset of the first character within the line
	EndOffset   int    // offset one past the last character within the line
	Line        string // the raw source line, newline included
	Value       string // the token text
}

// Delimiter sequences recognized by the lexer. The comment form is checked
// first so that "{{!--" is never reported as "{{" followed by "!--".
const (
	delimCommentOpen  = "{{!--"
	delimCommentClose = "--}}"
	delimOpenRaw      = "{{{"
	delimCloseRaw     = "}}}"
	delimOpenEscaped  = "{{"
	delimCloseEscaped = "}}"
)

// Lex splits template source into positioned tokens. Lexing never fails:
// malformed delimiter pairing is a parse error, not a lexing error.
//
// The source is processed one line at a time (newline inclusive) to keep
// line and offset bookkeeping simple. Within a line the lexer scans
// character by character, accumulating literal content and flushing it
// whenever a delimiter is recognized. Delimiters inside a comment region
// are literal; only the comment terminator is significant there.
func Lex(sourceName, source string) []Token {
	logger := Logger()
	if debugEnabled(logger) {
		logger.Debug("lexing template",
			slog.String("source", sourceName),
			slog.Int("bytes", len(source)))
	}

	var tokens []Token
	inComment := false

	for n, line := range splitLines(source) {
		lineNumber := n + 1
		emit := func(typ TokenType, start, end int) {
			tokens = append(tokens, Token{
				Type:        typ,
				SourceName:  sourceName,
				LineNumber:  lineNumber,
				StartOffset: start,
				EndOffset:   end,
				Line:        line,
				Value:       line[start:end],
			})
		}

		i := 0
		contentStart := 0
		flush := func(end int) {
			if end > contentStart {
				emit(TokenContent, contentStart, end)
			}
		}

		for i < len(line) {
			if inComment {
				if strings.HasPrefix(line[i:], delimCommentClose) {
					flush(i)
					emit(TokenCommentClose, i, i+len(delimCommentClose))
					i += len(delimCommentClose)
					contentStart = i
					inComment = false
					continue
				}
				i++
				continue
			}

			switch {
			case strings.HasPrefix(line[i:], delimCommentOpen):
				flush(i)
				emit(TokenCommentOpen, i, i+len(delimCommentOpen))
				i += len(delimCommentOpen)
				contentStart = i
				inComment = true
			case strings.HasPrefix(line[i:], delimOpenRaw):
				flush(i)
				emit(TokenOpenUnescaped, i, i+len(delimOpenRaw))
				i += len(delimOpenRaw)
				contentStart = i
			case strings.HasPrefix(line[i:], delimCloseRaw):
				flush(i)
				emit(TokenCloseUnescaped, i, i+len(delimCloseRaw))
				i += len(delimCloseRaw)
				contentStart = i
			case strings.HasPrefix(line[i:], delimOpenEscaped):
				flush(i)
				emit(TokenOpen, i, i+len(delimOpenEscaped))
				i += len(delimOpenEscaped)
				contentStart = i
			case strings.HasPrefix(line[i:], delimCloseEscaped):
				flush(i)
				emit(TokenClose, i, i+len(delimCloseEscaped))
				i += len(delimCloseEscaped)
				contentStart = i
			default:
				i++
			}
		}

		// Flush the remainder of every line so no text is silently dropped.
		flush(len(line))
	}

	if debugEnabled(logger) {
		logger.Debug("lexing complete",
			slog.String("source", sourceName),
			slog.Int("tokens", len(tokens)))
	}

	return tokens
}

// splitLines splits source into lines, keeping the trailing newline on each
// line. The final line is included even without a terminating newline.
func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	lines := strings.SplitAfter(source, "\n")
	// SplitAfter leaves a trailing empty string when the source ends in a
	// newline; it carries no content and no line of its own.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
