package transform

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// ModelGlobMatch implements the model glob semantics from spec.md
// §4.2.2: '*' matches any run of characters, '?' matches a single
// character, every other character is literal; a bare "*" matches
// everything without even compiling a pattern.
func ModelGlobMatch(pattern, model string) bool {
	if pattern == "*" {
		return true
	}
	var sb strings.Builder
	sb.WriteByte('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteByte('.')
		default:
			writeEscaped(&sb, ch)
		}
	}
	sb.WriteByte('$')

	re, err := regexp2.Compile(sb.String(), regexp2.None)
	if err != nil {
		return false
	}
	ok, err := re.MatchString(model)
	if err != nil {
		return false
	}
	return ok
}

const regexSpecial = `\.+()|[]{}^$`

func writeEscaped(sb *strings.Builder, ch rune) {
	if strings.ContainsRune(regexSpecial, ch) {
		sb.WriteByte('\\')
	}
	sb.WriteRune(ch)
}
