package notebook

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ogctester/internal/apperrors"
)

// assignmentRe finds a top-level assignment to the fixed parameter
// variable at the start of a line. The negative part of the match keeps
// "params ==" comparisons out.
var assignmentRe = regexp.MustCompile(`(?m)^[ \t]*params[ \t]*=[ \t]*`)

// errNoAssignment means a cell has no params assignment at all; scanning
// continues with the next cell.
var errNoAssignment = errors.New("no params assignment in cell")

// Extract scans the notebook's code cells in order and parses the first
// params assignment found. A cell without an assignment is skipped; a cell
// whose assignment cannot be parsed fails the whole extraction rather than
// silently consulting later cells.
func Extract(nb *Notebook, patternID string) (*Params, error) {
	for _, cell := range nb.Cells {
		if cell.CellType != "code" {
			continue
		}
		params, err := ExtractSource(string(cell.Source))
		if errors.Is(err, errNoAssignment) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return params, nil
	}
	return nil, apperrors.ParamsNotFound(patternID)
}

// ExtractSource parses the first params assignment in one source text.
func ExtractSource(source string) (*Params, error) {
	var rest string
	for _, loc := range assignmentRe.FindAllStringIndex(source, -1) {
		candidate := source[loc[1]:]
		if strings.HasPrefix(candidate, "=") {
			// "params ==" is a comparison, not an assignment.
			continue
		}
		rest = candidate
		break
	}
	if rest == "" {
		return nil, errNoAssignment
	}

	expr, err := assignedExpression(rest)
	if err != nil {
		return nil, apperrors.ParamsParse(snippet(rest), err)
	}
	return parseParams(expr)
}

// assignedExpression cuts the right-hand side out of the source: a brace
// or bracket aggregate spans until its matching close, anything else spans
// to the end of the physical line.
func assignedExpression(rest string) (string, error) {
	if rest == "" {
		return "", fmt.Errorf("empty right-hand side")
	}
	if rest[0] == '{' || rest[0] == '[' {
		end, err := matchAggregate(rest)
		if err != nil {
			return "", err
		}
		return rest[:end], nil
	}
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		return strings.TrimSpace(rest[:i]), nil
	}
	return strings.TrimSpace(rest), nil
}

// matchAggregate returns the index just past the delimiter closing the
// aggregate opening at position 0. The scan is string-aware: delimiters
// inside quoted strings (including triple quotes) and comments do not
// count.
func matchAggregate(src string) (int, error) {
	depth := 0
	i := 0
	for i < len(src) {
		c := src[i]
		switch c {
		case '{', '[':
			depth++
			i++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
			if depth < 0 {
				return 0, fmt.Errorf("unbalanced close at offset %d", i)
			}
			i++
		case '\'', '"':
			end, err := skipString(src, i)
			if err != nil {
				return 0, err
			}
			i = end
		case '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		default:
			i++
		}
	}
	return 0, fmt.Errorf("unterminated aggregate")
}

// skipString advances past the string literal starting at index i.
func skipString(src string, i int) (int, error) {
	quote := src[i]
	delim := string(quote)
	if strings.HasPrefix(src[i:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	i += len(delim)
	for i < len(src) {
		if src[i] == '\\' {
			i += 2
			continue
		}
		if strings.HasPrefix(src[i:], delim) {
			return i + len(delim), nil
		}
		i++
	}
	return 0, fmt.Errorf("unterminated string")
}

// parseParams runs the strict literal parser and, for plain syntax
// differences only, the fallback grammar. A right-hand side containing
// code is terminal: it never reaches the fallback.
func parseParams(expr string) (*Params, error) {
	value, err := parseLiteral(expr)
	if err == nil {
		params, ok := value.(*Params)
		if !ok {
			return nil, apperrors.ParamsParse(snippet(expr), fmt.Errorf("params must be a mapping"))
		}
		return params, nil
	}

	var unsafe *unsafeError
	if errors.As(err, &unsafe) {
		return nil, apperrors.UnsafeExpression(unsafe.snippet)
	}

	params, fbErr := parseFallback(expr)
	if fbErr != nil {
		return nil, apperrors.ParamsParse(snippet(expr), err)
	}
	return params, nil
}

// snippet trims an expression to a short fragment for error messages.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}
