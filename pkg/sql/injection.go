package sql

import (
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a value that looks like a SQL injection payload.
type InjectionCheckResult struct {
	Name        string // Key the value was supplied under
	Value       string
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckValueForInjection runs libinjection over a single value. It returns
// nil when the value looks clean.
//
// Example:
//
//	CheckValueForInjection("sslmode", "require")              // nil
//	CheckValueForInjection("charset", "'; DROP TABLE users--") // fingerprint "s;T"-like
func CheckValueForInjection(name, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Name:        name,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}

// CheckQueryParameters checks every value of a connection URI query map.
// Connection query parameters end up in driver DSNs and occasionally in
// session setup statements, so they must not carry SQL fragments.
//
// Results are sorted by name. An empty slice means all values are clean.
func CheckQueryParameters(params map[string]string) []*InjectionCheckResult {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*InjectionCheckResult
	for _, name := range names {
		if result := CheckValueForInjection(name, params[name]); result != nil {
			results = append(results, result)
		}
	}
	return results
}
