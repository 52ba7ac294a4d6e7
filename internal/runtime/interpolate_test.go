package runtime_test

import (
	"testing"

	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	vars := domain.VarsOf("name", "Bo", "email", "a@b.com", "first_name", "Ana")

	tests := []struct {
		name string
		in   string
		vars domain.Vars
		want string
	}{
		{"simple", "Hi {{name}}", vars, "Hi Bo"},
		{"missing stays verbatim", "Hi {{missing}}", domain.Vars{}, "Hi {{missing}}"},
		{"missing among known", "{{name}} / {{missing}}", vars, "Bo / {{missing}}"},
		{"whitespace inside braces", "Hi {{ first_name }}!", vars, "Hi Ana!"},
		{"repeated", "{{name}}{{name}}", vars, "BoBo"},
		{"no placeholders", "plain text", vars, "plain text"},
		{"single braces", "{name}", vars, "{name}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runtime.Interpolate(tt.in, tt.vars))
		})
	}
}

func TestInterpolate_ValuesAreNotRescanned(t *testing.T) {
	vars := domain.VarsOf("a", "{{b}}", "b", "secret")
	assert.Equal(t, "x {{b}}", runtime.Interpolate("x {{a}}", vars))
}

func TestEscapeTemplate_PreventsInjection(t *testing.T) {
	stored := runtime.EscapeTemplate("{{secret}}")
	vars := domain.VarsOf("answer", stored, "secret", "s3cr3t")

	out := runtime.Interpolate("You said {{answer}}", vars)
	assert.NotContains(t, out, "s3cr3t")
	assert.Equal(t, "a@b.com", runtime.EscapeTemplate("a@b.com"))
}
