package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Supported condition operators.
const (
	OpEquals     = "equals"
	OpContains   = "contains"
	OpStartsWith = "startsWith"
	OpEndsWith   = "endsWith"
)

var operatorSource = map[string]string{
	strings.ToLower(OpEquals):     `subject == expected`,
	strings.ToLower(OpContains):   `subject contains expected`,
	strings.ToLower(OpStartsWith): `subject startsWith expected`,
	strings.ToLower(OpEndsWith):   `subject endsWith expected`,
}

var operatorPrograms = mustCompileOperators()

func conditionEnv(subject, expected string) map[string]any {
	return map[string]any{"subject": subject, "expected": expected}
}

func mustCompileOperators() map[string]*vm.Program {
	programs := make(map[string]*vm.Program, len(operatorSource))
	for op, src := range operatorSource {
		program, err := expr.Compile(src, expr.Env(conditionEnv("", "")), expr.AsBool())
		if err != nil {
			panic(fmt.Sprintf("compile condition operator %q: %v", op, err))
		}
		programs[op] = program
	}
	return programs
}

// KnownOperator reports whether op is a supported condition operator.
func KnownOperator(op string) bool {
	_, ok := operatorPrograms[strings.ToLower(op)]
	return ok
}

// Evaluate compares vars[variable] with value using operator, ignoring case.
// A missing variable name, a missing operator or an unknown operator yields false.
// A named variable that is not set compares as the empty string.
func Evaluate(variable, operator, value string, vars domain.Vars) bool {
	if variable == "" || operator == "" {
		return false
	}
	program, ok := operatorPrograms[strings.ToLower(operator)]
	if !ok {
		return false
	}
	subject, _ := vars.Get(variable)
	out, err := expr.Run(program, conditionEnv(strings.ToLower(subject), strings.ToLower(value)))
	if err != nil {
		return false
	}
	result, _ := out.(bool)
	return result
}
