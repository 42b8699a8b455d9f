// Package hookenv constructs the process environment for one hook script
// invocation.
package hookenv

import (
	"unicode/utf8"

	"github.com/tjfontaine/virthooks/internal/core/domain"
)

// Environment variable names forming the script execution contract. Scripts
// locate the staged payload through the kind-specific variable and the
// entity through VMIDVar.
const (
	DomXMLVar = "_hook_domxml"
	JSONVar   = "_hook_json"
	VMIDVar   = "vmId"
)

// PayloadVar returns the variable name carrying the staged file path for
// the given payload kind.
func PayloadVar(kind domain.PayloadKind) string {
	if kind == domain.KindJSON {
		return JSONVar
	}
	return DomXMLVar
}

// Build assembles the execution environment for one script invocation:
// the base environment unmodified, the entity identifier, the merged
// parameter set, and the staged payload path.
//
// The parameter set is the union of the caller's explicit params and the
// entity configuration's custom map; on key collision the configuration
// value wins. Entries whose key or value is not valid UTF-8 are dropped
// rather than surfaced as an error.
//
// Build is called once per script so no invocation observes another's
// process-level environment mutations.
func Build(base []string, entity domain.EntityConfig, params map[string]string, stagedPath string, kind domain.PayloadKind) []string {
	env := make([]string, 0, len(base)+len(params)+len(entity.Custom)+2)
	env = append(env, base...)

	if entity.ID != "" {
		env = append(env, VMIDVar+"="+entity.ID)
	}

	merged := make(map[string]string, len(params)+len(entity.Custom))
	for k, v := range params {
		merged[k] = v
	}
	for k, v := range entity.Custom {
		merged[k] = v
	}
	for k, v := range merged {
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			continue
		}
		env = append(env, k+"="+v)
	}

	env = append(env, PayloadVar(kind)+"="+stagedPath)
	return env
}
