package domain

import (
	"fmt"
	"strings"
)

// Filter keys the query grammar recognises. The set is closed: any other
// `key:` prefix is ordinary free text.
const (
	FilterTag    = "tag"
	FilterPath   = "path"
	FilterVision = "vision"
)

// ParsedQuery is the structured form of a free-text search query.
// Terms and filter values keep their original order and multiplicity.
type ParsedQuery struct {
	Terms   []string
	Filters map[string][]string
}

// Empty reports whether the query carries neither terms nor filters.
func (q ParsedQuery) Empty() bool {
	return len(q.Terms) == 0 && len(q.Filters) == 0
}

// ParseQuery parses a raw query string.
//
// Grammar: a query is a sequence of whitespace-separated tokens. A token
// of the form key:value with key in {tag, path, vision} is a filter; the
// value may be double- or single-quoted (spaces allowed) or an unquoted
// run. Every other token, quoted or not, is a free term. An unterminated
// quote yields ErrQuerySyntax.
func ParseQuery(query string) (ParsedQuery, error) {
	parsed := ParsedQuery{Filters: make(map[string][]string)}

	runes := []rune(query)
	i := 0
	for i < len(runes) {
		// Skip whitespace between tokens.
		for i < len(runes) && isSpace(runes[i]) {
			i++
		}
		if i >= len(runes) {
			break
		}

		if isQuote(runes[i]) {
			value, next, err := readQuoted(runes, i)
			if err != nil {
				return ParsedQuery{}, err
			}
			parsed.Terms = append(parsed.Terms, value)
			i = next
			continue
		}

		run, next := readRun(runes, i)
		i = next

		key, rest, isFilter := splitFilter(run)
		if !isFilter {
			parsed.Terms = append(parsed.Terms, run)
			continue
		}

		switch {
		case rest != "":
			parsed.Filters[key] = append(parsed.Filters[key], rest)
		case i < len(runes) && isQuote(runes[i]):
			value, next, err := readQuoted(runes, i)
			if err != nil {
				return ParsedQuery{}, err
			}
			parsed.Filters[key] = append(parsed.Filters[key], value)
			i = next
		default:
			// A bare "key:" with no attached value does not match the
			// filter grammar; it stays free text.
			parsed.Terms = append(parsed.Terms, run)
		}
	}

	return parsed, nil
}

// splitFilter recognises a filter token. The returned rest is the part
// after the colon, which may be empty when the value is quoted separately.
func splitFilter(token string) (key, rest string, ok bool) {
	for _, k := range []string{FilterTag, FilterPath, FilterVision} {
		if strings.HasPrefix(token, k+":") {
			return k, token[len(k)+1:], true
		}
	}
	return "", "", false
}

// readRun consumes an unquoted run of characters, stopping at whitespace
// or a quote character.
func readRun(runes []rune, start int) (string, int) {
	i := start
	for i < len(runes) && !isSpace(runes[i]) && !isQuote(runes[i]) {
		i++
	}
	return string(runes[start:i]), i
}

// readQuoted consumes a quoted string starting at runes[start] (a quote
// rune) and returns the unquoted value. An unterminated quote is a
// syntax error.
func readQuoted(runes []rune, start int) (string, int, error) {
	quote := runes[start]
	i := start + 1
	for i < len(runes) {
		if runes[i] == quote {
			return string(runes[start+1 : i]), i + 1, nil
		}
		i++
	}
	return "", 0, fmt.Errorf("%w: unterminated %q quote at offset %d", ErrQuerySyntax, quote, start)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isQuote(r rune) bool {
	return r == '"' || r == '\''
}
