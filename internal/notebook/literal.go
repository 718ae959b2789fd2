package notebook

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// The strict parser accepts only the literal dialect found in notebook
// parameter blocks: nested string-key mappings, sequences, quoted strings
// (single, double and triple quotes, with escapes and implicit adjacent
// concatenation), integers and floats, True/False/None, and trailing
// commas. Anything that could reference or run code, a bare name or a
// call, is rejected outright and never falls back to the looser grammar.

// unsafeError marks an expression containing code, not data. It is
// terminal: no fallback parse is attempted.
type unsafeError struct {
	snippet string
}

func (e *unsafeError) Error() string {
	return fmt.Sprintf("non-literal syntax: %s", e.snippet)
}

// syntaxError marks input the strict grammar cannot read. The caller may
// try the fallback grammar.
type syntaxError struct {
	pos int
	msg string
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.pos, e.msg)
}

type litParser struct {
	src string
	pos int
}

// parseLiteral parses one complete literal expression. The whole input
// must be consumed; trailing content is a syntax error.
func parseLiteral(src string) (any, error) {
	p := &litParser{src: src}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, &syntaxError{pos: p.pos, msg: "trailing content after expression"}
	}
	return value, nil
}

func (p *litParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '#':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case c == '\\' && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '\n' || p.src[p.pos+1] == '\r'):
			// Line continuation.
			p.pos += 2
		default:
			return
		}
	}
}

func (p *litParser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *litParser) parseValue() (any, error) {
	p.skipSpace()
	c, ok := p.peek()
	if !ok {
		return nil, &syntaxError{pos: p.pos, msg: "unexpected end of input"}
	}

	switch {
	case c == '{':
		return p.parseDict()
	case c == '[':
		return p.parseList()
	case c == '\'' || c == '"':
		return p.parseStringGroup()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case isIdentStart(rune(c)):
		return p.parseWord()
	default:
		return nil, &syntaxError{pos: p.pos, msg: fmt.Sprintf("unexpected character %q", c)}
	}
}

func (p *litParser) parseDict() (any, error) {
	p.pos++ // consume '{'
	params := NewParams()

	p.skipSpace()
	if c, ok := p.peek(); ok && c == '}' {
		p.pos++
		return params, nil
	}

	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, &syntaxError{pos: p.pos, msg: "unterminated mapping"}
		}
		if c != '\'' && c != '"' {
			// Bare keys are not part of the strict dialect; the fallback
			// grammar accepts them.
			return nil, &syntaxError{pos: p.pos, msg: "mapping key must be a quoted string"}
		}
		key, err := p.parseStringGroup()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if c, ok := p.peek(); !ok || c != ':' {
			return nil, &syntaxError{pos: p.pos, msg: "expected ':' after mapping key"}
		}
		p.pos++

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		params.Set(key, value)

		p.skipSpace()
		c, ok = p.peek()
		switch {
		case !ok:
			return nil, &syntaxError{pos: p.pos, msg: "unterminated mapping"}
		case c == ',':
			p.pos++
			p.skipSpace()
			if c, ok := p.peek(); ok && c == '}' {
				p.pos++
				return params, nil
			}
		case c == '}':
			p.pos++
			return params, nil
		default:
			return nil, &syntaxError{pos: p.pos, msg: fmt.Sprintf("expected ',' or '}', got %q", c)}
		}
	}
}

func (p *litParser) parseList() (any, error) {
	p.pos++ // consume '['
	items := []any{}

	p.skipSpace()
	if c, ok := p.peek(); ok && c == ']' {
		p.pos++
		return items, nil
	}

	for {
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, value)

		p.skipSpace()
		c, ok := p.peek()
		switch {
		case !ok:
			return nil, &syntaxError{pos: p.pos, msg: "unterminated sequence"}
		case c == ',':
			p.pos++
			p.skipSpace()
			if c, ok := p.peek(); ok && c == ']' {
				p.pos++
				return items, nil
			}
		case c == ']':
			p.pos++
			return items, nil
		default:
			return nil, &syntaxError{pos: p.pos, msg: fmt.Sprintf("expected ',' or ']', got %q", c)}
		}
	}
}

// parseStringGroup parses one string literal plus any adjacent string
// literals, which concatenate implicitly just as in the source dialect.
func (p *litParser) parseStringGroup() (string, error) {
	var sb strings.Builder
	for {
		part, err := p.parseString()
		if err != nil {
			return "", err
		}
		sb.WriteString(part)

		p.skipSpace()
		c, ok := p.peek()
		if !ok || (c != '\'' && c != '"') {
			return sb.String(), nil
		}
	}
}

func (p *litParser) parseString() (string, error) {
	quote := p.src[p.pos]
	triple := strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]

		if c == quote {
			if !triple {
				p.pos++
				return sb.String(), nil
			}
			if strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(quote), 3)) {
				p.pos += 3
				return sb.String(), nil
			}
			sb.WriteByte(c)
			p.pos++
			continue
		}

		if c == '\\' {
			if p.pos+1 >= len(p.src) {
				return "", &syntaxError{pos: p.pos, msg: "unterminated escape"}
			}
			decoded, consumed, err := decodeEscape(p.src[p.pos:])
			if err != nil {
				return "", &syntaxError{pos: p.pos, msg: err.Error()}
			}
			sb.WriteString(decoded)
			p.pos += consumed
			continue
		}

		if (c == '\n' || c == '\r') && !triple {
			return "", &syntaxError{pos: p.pos, msg: "newline in single-line string"}
		}

		sb.WriteByte(c)
		p.pos++
	}
	return "", &syntaxError{pos: p.pos, msg: "unterminated string"}
}

// decodeEscape decodes one backslash escape sequence. Unknown escapes keep
// the backslash, matching the source dialect.
func decodeEscape(s string) (string, int, error) {
	switch s[1] {
	case 'n':
		return "\n", 2, nil
	case 't':
		return "\t", 2, nil
	case 'r':
		return "\r", 2, nil
	case 'b':
		return "\b", 2, nil
	case 'f':
		return "\f", 2, nil
	case 'v':
		return "\v", 2, nil
	case '0':
		return "\x00", 2, nil
	case '\\':
		return "\\", 2, nil
	case '\'':
		return "'", 2, nil
	case '"':
		return "\"", 2, nil
	case '\n':
		// Escaped newline joins physical lines.
		return "", 2, nil
	case 'x':
		if len(s) < 4 {
			return "", 0, fmt.Errorf("truncated \\x escape")
		}
		n, err := strconv.ParseUint(s[2:4], 16, 8)
		if err != nil {
			return "", 0, fmt.Errorf("invalid \\x escape %q", s[:4])
		}
		return string(rune(n)), 4, nil
	case 'u':
		if len(s) < 6 {
			return "", 0, fmt.Errorf("truncated \\u escape")
		}
		n, err := strconv.ParseUint(s[2:6], 16, 32)
		if err != nil {
			return "", 0, fmt.Errorf("invalid \\u escape %q", s[:6])
		}
		return string(rune(n)), 6, nil
	default:
		return s[:2], 2, nil
	}
}

func (p *litParser) parseNumber() (any, error) {
	start := p.pos
	if c, ok := p.peek(); ok && (c == '-' || c == '+') {
		p.pos++
	}

	digits := 0
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9':
			digits++
			p.pos++
		case c == '.' && !isFloat:
			isFloat = true
			p.pos++
		case c == '_':
			// Digit group separator.
			p.pos++
		case (c == 'e' || c == 'E') && digits > 0:
			isFloat = true
			p.pos++
			if c, ok := p.peek(); ok && (c == '-' || c == '+') {
				p.pos++
			}
		default:
			goto done
		}
	}
done:
	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if digits == 0 {
		return nil, &syntaxError{pos: start, msg: fmt.Sprintf("invalid number %q", text)}
	}
	if !isFloat {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i, nil
		}
		// Out of int64 range, keep the value as a float.
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, &syntaxError{pos: start, msg: fmt.Sprintf("invalid number %q", text)}
	}
	return f, nil
}

// parseWord handles the keyword literals. Any other name is code, not
// data: a bare variable reference or, if followed by '(', a call. Both are
// rejected without fallback.
func (p *litParser) parseWord() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isIdentPart(r) {
			break
		}
		p.pos += size
	}
	word := p.src[start:p.pos]

	switch word {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	}

	snippet := word
	p.skipSpace()
	if c, ok := p.peek(); ok && c == '(' {
		end := start + 60
		if end > len(p.src) {
			end = len(p.src)
		}
		snippet = strings.TrimSpace(p.src[start:end])
	}
	return nil, &unsafeError{snippet: snippet}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
