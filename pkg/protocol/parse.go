package protocol

import (
	"strconv"
	"strings"

	"github.com/kibitz/kibitz/pkg/option"
)

// Identity fields reported by "id" lines.
const (
	IDName   = "name"
	IDAuthor = "author"
)

// ParseIDLine parses "id name <rest>" and "id author <rest>".
func ParseIDLine(line string) (field, value string, ok bool) {
	rest, found := cutWord(strings.TrimSpace(line), "id")
	if !found {
		return "", "", false
	}
	for _, f := range []string{IDName, IDAuthor} {
		if v, found := cutWord(rest, f); found {
			return f, v, true
		}
	}
	return "", "", false
}

// cutWord strips word (followed by whitespace or end of string) from the front of s.
func cutWord(s, word string) (string, bool) {
	if !strings.HasPrefix(s, word) {
		return "", false
	}
	rest := s[len(word):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// option line keywords that terminate a field value
var optionKeywords = map[string]bool{
	"name":    true,
	"type":    true,
	"min":     true,
	"max":     true,
	"default": true,
	"var":     true,
}

// ParseOptionLine parses
//
//	option name <N> type <T> [min <min>] [max <max>] [default <D>] [var <V> ...]
//
// Names and string values may span several tokens. Lines without a name are
// reported as not ok and should be skipped by the caller.
func ParseOptionLine(line string) (string, option.Option, bool) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 || tokens[0] != "option" {
		return "", nil, false
	}

	fields := make(map[string][]string)
	var vars []string
	current := ""
	for _, tok := range tokens[1:] {
		if optionKeywords[tok] {
			current = tok
			if tok == "var" {
				vars = append(vars, "")
			}
			if _, seen := fields[tok]; !seen {
				fields[tok] = nil
			}
			continue
		}
		switch current {
		case "":
			// tokens before the first keyword carry no meaning
		case "var":
			last := len(vars) - 1
			vars[last] = strings.TrimSpace(vars[last] + " " + tok)
		default:
			fields[current] = append(fields[current], tok)
		}
	}

	nameTokens, hasName := fields["name"]
	if !hasName || len(nameTokens) == 0 {
		return "", nil, false
	}
	name := strings.Join(nameTokens, " ")

	typeToken := strings.Join(fields["type"], " ")
	def := unquoteEmpty(strings.Join(fields["default"], " "))
	_, hasDefault := fields["default"]

	switch option.ParseKind(typeToken) {
	case option.KindSpin:
		return name, option.NewSpin(atoi(fields["min"]), atoi(fields["max"]), atoi(fields["default"])), true
	case option.KindString:
		return name, option.NewString(def), true
	case option.KindCheck:
		b, _ := option.ParseBool(def)
		return name, option.NewCheck(b), true
	case option.KindCombo:
		choices := make([]string, 0, len(vars))
		for _, v := range vars {
			if v != "" {
				choices = append(choices, v)
			}
		}
		if !hasDefault && len(choices) > 0 {
			def = choices[0]
		}
		return name, option.NewCombo(choices, def), true
	default:
		return name, &option.Unknown{Type: typeToken, Default: def, Value: def}, true
	}
}

func atoi(tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	n, err := strconv.Atoi(tokens[0])
	if err != nil {
		return 0
	}
	return n
}

func unquoteEmpty(s string) string {
	if s == "<empty>" {
		return ""
	}
	return s
}
