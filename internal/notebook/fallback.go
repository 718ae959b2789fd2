package notebook

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// parseFallback normalizes the expression toward the YAML flow grammar and
// parses it with yaml.v3, which tolerates what the strict dialect does not:
// bare mapping keys and single-quoted strings without escape processing.
// Decoding goes through yaml.Node so mapping key order survives.
func parseFallback(expr string) (*Params, error) {
	normalized := normalizeLiteral(expr)

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(normalized), &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	value, err := yamlValue(root.Content[0])
	if err != nil {
		return nil, err
	}
	params, ok := value.(*Params)
	if !ok {
		return nil, fmt.Errorf("params must be a mapping")
	}
	return params, nil
}

// normalizeLiteral rewrites the keyword literals to their structured-data
// spellings, drops comments and strips trailing commas. Quoted strings
// pass through untouched.
func normalizeLiteral(src string) string {
	var out strings.Builder
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\'' || c == '"':
			end, err := skipString(src, i)
			if err != nil {
				out.WriteString(src[i:])
				return out.String()
			}
			out.WriteString(src[i:end])
			i = end
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == ',':
			if closesAggregate(src, i+1) {
				i++
			} else {
				out.WriteByte(c)
				i++
			}
		case isIdentStart(rune(c)):
			j := i
			for j < len(src) {
				r, size := utf8.DecodeRuneInString(src[j:])
				if !isIdentPart(r) {
					break
				}
				j += size
			}
			switch word := src[i:j]; word {
			case "True":
				out.WriteString("true")
			case "False":
				out.WriteString("false")
			case "None":
				out.WriteString("null")
			default:
				out.WriteString(word)
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// closesAggregate reports whether only whitespace and comments separate
// position i from a closing brace or bracket.
func closesAggregate(src string, i int) bool {
	for i < len(src) {
		switch c := src[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '}' || c == ']':
			return true
		default:
			return false
		}
	}
	return false
}

// yamlValue converts a decoded yaml.Node into the extractor's value model.
func yamlValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		params := NewParams()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("non-scalar mapping key at line %d", keyNode.Line)
			}
			value, err := yamlValue(valNode)
			if err != nil {
				return nil, err
			}
			params.Set(keyNode.Value, value)
		}
		return params, nil
	case yaml.SequenceNode:
		items := []any{}
		for _, child := range node.Content {
			value, err := yamlValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	case yaml.ScalarNode:
		return yamlScalar(node)
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	default:
		return nil, fmt.Errorf("unsupported node kind %d at line %d", node.Kind, node.Line)
	}
}

func yamlScalar(node *yaml.Node) (any, error) {
	switch node.Tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		return strconv.ParseBool(node.Value)
	case "!!int":
		return strconv.ParseInt(node.Value, 0, 64)
	case "!!float":
		return strconv.ParseFloat(node.Value, 64)
	default:
		return node.Value, nil
	}
}
