package sparql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokVar
	tokString
	tokLang
	tokCaret
	tokNumber
	tokIdent
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// ParseError reports malformed or unsupported query text.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sparql: %s at offset %d", e.Msg, e.Pos)
}

func errorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

type lexer struct {
	src string
	pos int
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	var out []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (lx *lexer) peekRune(offset int) rune {
	if lx.pos+offset >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos+offset:])
	return r
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		switch {
		case unicode.IsSpace(r):
			lx.pos += size
		case r == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	switch {
	case r == '<':
		if tok, ok := lx.iri(); ok {
			return tok, nil
		}
		return lx.operator()
	case r == '?' || r == '$':
		lx.pos += size
		name := lx.name(false)
		if name == "" {
			return token{}, errorf(start, "empty variable name")
		}
		return token{kind: tokVar, text: name, pos: start}, nil
	case r == '"' || r == '\'':
		return lx.str(r)
	case r == '@':
		lx.pos += size
		tag := lx.langTag()
		if tag == "" {
			return token{}, errorf(start, "empty language tag")
		}
		return token{kind: tokLang, text: tag, pos: start}, nil
	case r == '^' && lx.peekRune(1) == '^':
		lx.pos += 2
		return token{kind: tokCaret, text: "^^", pos: start}, nil
	case r >= '0' && r <= '9':
		for lx.pos < len(lx.src) && lx.src[lx.pos] >= '0' && lx.src[lx.pos] <= '9' {
			lx.pos++
		}
		return token{kind: tokNumber, text: lx.src[start:lx.pos], pos: start}, nil
	case r == ':' || isNameStart(r):
		return lx.word()
	case strings.ContainsRune("{}().;,*", r):
		lx.pos += size
		return token{kind: tokPunct, text: string(r), pos: start}, nil
	default:
		return lx.operator()
	}
}

// iri scans <...>. It reports false when '<' starts a comparison instead.
func (lx *lexer) iri() (token, bool) {
	start := lx.pos
	end := strings.IndexByte(lx.src[start+1:], '>')
	if end < 0 {
		return token{}, false
	}
	body := lx.src[start+1 : start+1+end]
	if strings.ContainsAny(body, " \t\n\r{}\"") {
		return token{}, false
	}
	lx.pos = start + end + 2
	return token{kind: tokIRI, text: body, pos: start}, true
}

func (lx *lexer) operator() (token, error) {
	start := lx.pos
	for _, op := range []string{"&&", "||", "!=", "<=", ">=", "=", "!", "<", ">"} {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			return token{kind: tokPunct, text: op, pos: start}, nil
		}
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	return token{}, errorf(start, "unexpected character %q", r)
}

func (lx *lexer) str(quote rune) (token, error) {
	start := lx.pos
	lx.pos++
	var b strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case rune(c) == quote:
			lx.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case c == '\\':
			if lx.pos+1 >= len(lx.src) {
				return token{}, errorf(lx.pos, "unterminated escape")
			}
			esc := lx.src[lx.pos+1]
			switch esc {
			case 't':
				b.WriteByte('\t')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '"', '\'', '\\':
				b.WriteByte(esc)
			default:
				return token{}, errorf(lx.pos, "invalid escape \\%c", esc)
			}
			lx.pos += 2
		case c == '\n' || c == '\r':
			return token{}, errorf(lx.pos, "newline in string")
		default:
			b.WriteByte(c)
			lx.pos++
		}
	}
	return token{}, errorf(start, "unterminated string")
}

func (lx *lexer) langTag() string {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			lx.pos++
			continue
		}
		break
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) name(allowDot bool) string {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !isNameChar(r) || (r == '.' && !allowDot) {
			break
		}
		lx.pos += size
	}
	return lx.src[start:lx.pos]
}

// word scans a keyword, function name or prefixed name.
func (lx *lexer) word() (token, error) {
	start := lx.pos
	prefix := lx.name(false)
	if lx.pos < len(lx.src) && lx.src[lx.pos] == ':' {
		lx.pos++
		local := lx.name(true)
		// A trailing '.' ends the statement, not the local name.
		for strings.HasSuffix(local, ".") {
			local = strings.TrimSuffix(local, ".")
			lx.pos--
		}
		return token{kind: tokPName, text: prefix + ":" + local, pos: start}, nil
	}
	if prefix == "" {
		return token{}, errorf(start, "unexpected character")
	}
	return token{kind: tokIdent, text: prefix, pos: start}, nil
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
