package templating

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ExprTokenType identifies the kind of an expression sub-token.
type ExprTokenType int

const (
	ExprPath ExprTokenType = iota
	ExprLiteral
	ExprKeyValue
	ExprBlockParams
)

func (t ExprTokenType) String() string {
	switch t {
	case ExprPath:
		return "Path"
	case ExprLiteral:
		return "Literal"
	case ExprKeyValue:
		return "KeyValue"
	case ExprBlockParams:
		return "BlockParams"
	default:
		return "Unknown"
	}
}

// PathSegment is a single step of a reference path: either a named key or a
// numeric index (from a bracketed all-digits key).
type PathSegment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s PathSegment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// ExprToken is one sub-token of a delimited expression. Exactly one of the
// variant fields is populated, selected by Type:
//
//	ExprPath        Path
//	ExprLiteral     Value (string, int64, float64, bool, or nil)
//	ExprKeyValue    Key and Pair (Pair is a Literal or Path sub-token)
//	ExprBlockParams Names
type ExprToken struct {
	Type  ExprTokenType
	Path  []PathSegment
	Value interface{}
	Key   string
	Pair  *ExprToken
	Names []string
	Text  string // raw source text of the sub-token
}

func (t ExprToken) String() string {
	switch t.Type {
	case ExprPath:
		return fmt.Sprintf("Path(%s)", t.Text)
	case ExprLiteral:
		if s, ok := t.Value.(string); ok {
			return fmt.Sprintf("Literal(%q)", s)
		}
		return fmt.Sprintf("Literal(%v)", t.Value)
	case ExprKeyValue:
		return fmt.Sprintf("KeyValue(%s=%s)", t.Key, t.Pair)
	case ExprBlockParams:
		return fmt.Sprintf("BlockParams(|%s|)", strings.Join(t.Names, " "))
	default:
		return "Unknown"
	}
}

var (
	// Bare path segments and key/value keys are word characters only.
	bareSegmentRegex = regexp.MustCompile(`^[A-Za-z0-9_$]+$`)

	// Characters that have no meaning outside strings and brackets.
	invalidSymbols = "(){};,?&^%~`@!<>*+#"
)

// exprScanner holds the scanner state for a single expression body.
type exprScanner struct {
	open   Token
	text   string
	tokens []ExprToken

	term       strings.Builder
	termActive bool
	termQuoted bool

	quote      byte // non-zero while inside a string literal
	inBracket  bool
	inParams   bool
	paramsBuf  strings.Builder
	pendingKey string
	keyActive  bool
}

// parseExpression parses the text between delimiters into an ordered
// sequence of expression sub-tokens. A single left-to-right scan with a
// small set of mutually exclusive modes (string literal, bracket, block
// parameters, normal) drives sub-token boundaries. Errors carry the
// position of the opening delimiter token.
func parseExpression(open Token, text string) ([]ExprToken, error) {
	s := &exprScanner{open: open, text: text}

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch {
		case s.quote != 0:
			if c == s.quote {
				s.finishString()
			} else {
				s.term.WriteByte(c)
			}

		case s.inParams:
			if c == '|' {
				s.finishBlockParams()
			} else {
				s.paramsBuf.WriteByte(c)
			}

		case s.inBracket:
			switch c {
			case ']':
				s.term.WriteByte(c)
				s.inBracket = false
			case '[':
				return nil, s.errorf("brackets may not nest")
			default:
				s.term.WriteByte(c)
			}

		default:
			switch {
			case c == ' ' || c == '\t' || c == '\r' || c == '\n':
				if err := s.finishTerm(); err != nil {
					return nil, err
				}
			case c == '"' || c == '\'':
				if s.termActive {
					return nil, s.errorf("unexpected quote inside %q", s.term.String())
				}
				s.quote = c
				s.termActive = true
			case c == '[':
				if s.termQuoted {
					return nil, s.errorf("unexpected '[' after a string literal")
				}
				s.term.WriteByte(c)
				s.termActive = true
				s.inBracket = true
			case c == ']':
				return nil, s.errorf("unexpected ']' outside a bracket")
			case c == '=':
				if err := s.startKeyValue(); err != nil {
					return nil, err
				}
			case c == '|':
				if err := s.startBlockParams(); err != nil {
					return nil, err
				}
			case strings.IndexByte(invalidSymbols, c) >= 0:
				return nil, s.errorf("invalid character %q in expression", string(c))
			default:
				if s.termQuoted {
					return nil, s.errorf("unexpected character %q after a string literal", string(c))
				}
				s.term.WriteByte(c)
				s.termActive = true
			}
		}
	}

	switch {
	case s.quote != 0:
		return nil, s.errorf("unterminated string literal")
	case s.inBracket:
		return nil, s.errorf("unterminated bracket")
	case s.inParams:
		return nil, s.errorf("unterminated block parameter list")
	}

	if err := s.finishTerm(); err != nil {
		return nil, err
	}
	if s.keyActive {
		return nil, s.errorf("missing value for %q", s.pendingKey)
	}

	return s.tokens, nil
}

func (s *exprScanner) errorf(format string, args ...interface{}) error {
	return newSyntaxError(fmt.Sprintf(format, args...), s.open)
}

// finishString closes the current string-literal term. Quoted text is always
// a string literal regardless of content.
func (s *exprScanner) finishString() {
	s.quote = 0
	s.termQuoted = true
}

// finishTerm converts the accumulated term into a sub-token and appends it,
// honoring a pending key/value pair.
func (s *exprScanner) finishTerm() error {
	if !s.termActive {
		return nil
	}
	raw := s.term.String()
	s.term.Reset()
	s.termActive = false

	quoted := s.termQuoted
	s.termQuoted = false

	tok, err := s.castTerm(raw, quoted)
	if err != nil {
		return err
	}

	if s.keyActive {
		pair := tok
		s.tokens = append(s.tokens, ExprToken{
			Type: ExprKeyValue,
			Key:  s.pendingKey,
			Pair: &pair,
			Text: s.pendingKey + "=" + tok.Text,
		})
		s.keyActive = false
		s.pendingKey = ""
		return nil
	}

	s.tokens = append(s.tokens, tok)
	return nil
}

// castTerm applies the literal casting cascade to a bare term: keyword
// literal, then number, then reference path. The precedence order is part
// of the template semantics; a bare "true" is never a path lookup.
func (s *exprScanner) castTerm(raw string, quoted bool) (ExprToken, error) {
	if quoted {
		return ExprToken{Type: ExprLiteral, Value: raw, Text: raw}, nil
	}

	switch raw {
	case "true":
		return ExprToken{Type: ExprLiteral, Value: true, Text: raw}, nil
	case "false":
		return ExprToken{Type: ExprLiteral, Value: false, Text: raw}, nil
	case "null", "undefined":
		return ExprToken{Type: ExprLiteral, Value: nil, Text: raw}, nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ExprToken{Type: ExprLiteral, Value: n, Text: raw}, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return ExprToken{Type: ExprLiteral, Value: f, Text: raw}, nil
	}

	path, err := parsePath(raw, s.open)
	if err != nil {
		return ExprToken{}, err
	}
	return ExprToken{Type: ExprPath, Path: path, Text: raw}, nil
}

// startKeyValue begins a key/value pair by reinterpreting the immediately
// preceding Path sub-token's raw text as the key.
func (s *exprScanner) startKeyValue() error {
	if s.keyActive {
		return s.errorf("missing value for %q", s.pendingKey)
	}
	if err := s.finishTerm(); err != nil {
		return err
	}
	if len(s.tokens) == 0 {
		return s.errorf("key/value pair is missing a key")
	}

	last := s.tokens[len(s.tokens)-1]
	if last.Type != ExprPath {
		return s.errorf("key/value pair is missing a key")
	}
	if !bareSegmentRegex.MatchString(last.Text) {
		return s.errorf("invalid key %q in key/value pair", last.Text)
	}

	s.tokens = s.tokens[:len(s.tokens)-1]
	s.pendingKey = last.Text
	s.keyActive = true
	return nil
}

// startBlockParams begins block-parameter capture. Entry is legal only when
// the immediately preceding sub-token is the bare path "as"; that sentinel
// is discarded.
func (s *exprScanner) startBlockParams() error {
	if err := s.finishTerm(); err != nil {
		return err
	}
	n := len(s.tokens)
	if n == 0 || s.tokens[n-1].Type != ExprPath || s.tokens[n-1].Text != "as" {
		return s.errorf("block parameters must follow the keyword 'as'")
	}
	s.tokens = s.tokens[:n-1]
	s.inParams = true
	s.paramsBuf.Reset()
	return nil
}

func (s *exprScanner) finishBlockParams() error {
	names := strings.Fields(s.paramsBuf.String())
	if len(names) == 0 {
		return s.errorf("empty block parameter list")
	}
	for _, name := range names {
		if !bareSegmentRegex.MatchString(name) {
			return s.errorf("invalid block parameter name %q", name)
		}
	}
	s.tokens = append(s.tokens, ExprToken{
		Type:  ExprBlockParams,
		Names: names,
		Text:  "|" + strings.Join(names, " ") + "|",
	})
	s.inParams = false
	return nil
}

// parsePath parses a dot/bracket reference path. A path may not begin with
// a dot; brackets may not nest, may not directly follow a dot, and their
// content may not contain '.' or '['; a named segment after a bracket
// requires a '.' separator. All-digit bracket content becomes an integer
// index segment.
func parsePath(raw string, open Token) ([]PathSegment, error) {
	if raw == "" {
		return nil, newSyntaxError("empty reference path", open)
	}
	if raw[0] == '.' {
		return nil, newSyntaxError(
			fmt.Sprintf("reference path %q may not begin with '.'", raw), open)
	}

	var segments []PathSegment
	rest := raw
	expectSegment := true

	for rest != "" {
		switch rest[0] {
		case '.':
			if expectSegment {
				return nil, newSyntaxError(
					fmt.Sprintf("empty segment in reference path %q", raw), open)
			}
			rest = rest[1:]
			expectSegment = true

		case '[':
			if expectSegment && len(segments) > 0 {
				return nil, newSyntaxError(
					fmt.Sprintf("bracket may not follow '.' in reference path %q", raw), open)
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, newSyntaxError(
					fmt.Sprintf("unterminated bracket in reference path %q", raw), open)
			}
			key := rest[1:end]
			if key == "" {
				return nil, newSyntaxError(
					fmt.Sprintf("empty bracket in reference path %q", raw), open)
			}
			if strings.ContainsAny(key, ".[") {
				return nil, newSyntaxError(
					fmt.Sprintf("invalid bracket key %q in reference path %q", key, raw), open)
			}
			segments = append(segments, bracketSegment(key))
			rest = rest[end+1:]
			expectSegment = false

		default:
			if !expectSegment {
				return nil, newSyntaxError(
					fmt.Sprintf("missing '.' before segment in reference path %q", raw), open)
			}
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			name := rest[:end]
			if !bareSegmentRegex.MatchString(name) {
				return nil, newSyntaxError(
					fmt.Sprintf("invalid segment %q in reference path %q", name, raw), open)
			}
			segments = append(segments, PathSegment{Key: name})
			rest = rest[end:]
			expectSegment = false
		}
	}

	if expectSegment {
		return nil, newSyntaxError(
			fmt.Sprintf("reference path %q may not end with '.'", raw), open)
	}

	return segments, nil
}

// bracketSegment auto-casts all-digit bracket content to an integer index.
func bracketSegment(key string) PathSegment {
	allDigits := true
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			allDigits = false
			break
		}
	}
	if allDigits {
		if n, err := strconv.Atoi(key); err == nil {
			return PathSegment{Index: n, IsIndex: true}
		}
	}
	return PathSegment{Key: key}
}
