// SPDX-License-Identifier: Apache-2.0

// Package resolver rewrites declared step inputs containing back-references
// into concrete values from the execution context.
//
// Grammar: a string input of the exact form ${path} is a back-reference;
// everything else is a literal copied verbatim. Supported paths:
//
//	${target}                          the context's target
//	${results.<module>.<field>}        a field of a stored result's payload
//
// Resolution is single-pass; resolved values never contain further
// back-references to expand.
package resolver

import (
	"fmt"
	"strings"

	"github.com/0xbv1/secv/internal/core/models"
)

// Resolve maps every declared input to its concrete value. The returned map
// is new; the caller merges it into the context's parameters.
func Resolve(inputs map[string]interface{}, ec *models.ExecutionContext) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(inputs))

	for key, value := range inputs {
		str, ok := value.(string)
		if !ok || !isReference(str) {
			resolved[key] = value
			continue
		}

		path := str[2 : len(str)-1]
		concrete, err := resolvePath(path, ec)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", key, err)
		}
		resolved[key] = concrete
	}

	return resolved, nil
}

func isReference(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}

// resolvePath looks up a dot-notation path in the execution context.
func resolvePath(path string, ec *models.ExecutionContext) (interface{}, error) {
	parts := strings.Split(path, ".")

	switch {
	case len(parts) == 1 && parts[0] == "target":
		return ec.Target, nil

	case len(parts) == 3 && parts[0] == "results":
		moduleName, field := parts[1], parts[2]
		result, ok := ec.Results[moduleName]
		if !ok {
			return nil, fmt.Errorf("no stored result for module %q", moduleName)
		}
		value, ok := result.Data[field]
		if !ok {
			return nil, fmt.Errorf("field %q not found in result of module %q", field, moduleName)
		}
		return value, nil

	default:
		return nil, fmt.Errorf("invalid context path: %q", path)
	}
}
