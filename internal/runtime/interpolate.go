package runtime

import (
	"regexp"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Interpolate replaces {{name}} placeholders with the matching variable.
// Unknown placeholders are left verbatim. Substituted values are not scanned again.
func Interpolate(text string, vars domain.Vars) string {
	if vars.Len() == 0 || len(text) < 4 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars.Get(name); ok {
			return v
		}
		return m
	})
}

var templateEscaper = strings.NewReplacer("{{", "{ {", "}}", "} }")

// EscapeTemplate breaks template delimiters in user supplied text so a stored answer
// can never inject a placeholder.
func EscapeTemplate(input string) string {
	if !strings.Contains(input, "{{") && !strings.Contains(input, "}}") {
		return input
	}
	return templateEscaper.Replace(input)
}
