package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

var functionNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTemplate enforces the registration contract: a name, a present
// configuration map, and well-formed custom function definitions. Runs
// before any mutation so a rejected registration leaves the store
// unchanged.
func validateTemplate(name string, tmpl rtbtypes.Template) error {
	if name == "" {
		return &rtbtypes.ValidationError{Reason: "template name is required"}
	}
	if tmpl.Configuration == nil {
		return &rtbtypes.ValidationError{
			Template: name,
			Reason:   "configuration map is missing",
		}
	}

	var bad []string
	seen := make(map[string]bool, len(tmpl.CustomFunctions))
	for i, fn := range tmpl.CustomFunctions {
		switch {
		case fn.Name == "":
			bad = append(bad, fmt.Sprintf("function #%d has no name", i))
		case !functionNameRe.MatchString(fn.Name):
			bad = append(bad, fmt.Sprintf("function %q has an invalid name", fn.Name))
		case fn.Args == nil:
			bad = append(bad, fmt.Sprintf("function %q has no argument list", fn.Name))
		case len(fn.Body) == 0:
			bad = append(bad, fmt.Sprintf("function %q has an empty body", fn.Name))
		case seen[fn.Name]:
			bad = append(bad, fmt.Sprintf("function %q is defined twice", fn.Name))
		}
		if fn.Name != "" {
			seen[fn.Name] = true
		}
	}
	if len(bad) > 0 {
		return &rtbtypes.ValidationError{
			Template: name,
			Reason:   "malformed custom functions: " + strings.Join(bad, "; "),
		}
	}
	return nil
}
