package dberrors

import (
	"fmt"
	"regexp"
	"strings"
)

// Mapping associates a driver error pattern with a structured error.
// Message is a template using {name} placeholders, filled from the
// pattern's named groups and the caller-supplied context.
type Mapping struct {
	Pattern *regexp.Regexp
	Message string
	Kind    ErrorKind
	Level   ErrorLevel
	// Invalid lists the connection fields the UI should highlight.
	Invalid []string
}

// Mappings is an ordered list. The first matching entry wins.
type Mappings []Mapping

// MustCompile compiles a pattern written with literal spaces so that each
// space run matches any run of whitespace, including line breaks. Spaces
// inside bracket expressions and escaped spaces are left alone. Matching is
// case-insensitive and '.' matches newlines.
func MustCompile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)` + loosenSpaces(pattern))
}

func loosenSpaces(pattern string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '\\' && i+1 < len(pattern):
			b.WriteByte(ch)
			i++
			b.WriteByte(pattern[i])
		case inClass:
			b.WriteByte(ch)
			if ch == ']' {
				inClass = false
			}
		case ch == '[':
			inClass = true
			b.WriteByte(ch)
			// A leading ']' (after an optional '^') is a literal member.
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
				b.WriteByte('^')
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
				b.WriteByte(']')
			}
		case ch == ' ' || ch == '\t' || ch == '\n':
			for i+1 < len(pattern) && (pattern[i+1] == ' ' || pattern[i+1] == '\t' || pattern[i+1] == '\n') {
				i++
			}
			b.WriteString(`\s+`)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// Compose builds an engine's mapping list. Engine entries are evaluated
// before the shared base list unless replaceBase is set.
func Compose(base, own Mappings, replaceBase bool) Mappings {
	if replaceBase {
		out := make(Mappings, len(own))
		copy(out, own)
		return out
	}
	out := make(Mappings, 0, len(own)+len(base))
	out = append(out, own...)
	out = append(out, base...)
	return out
}

// Extract converts raw driver error text into exactly one structured error.
func (m Mappings) Extract(engineName, raw string, ctx map[string]string) EngineError {
	for _, mapping := range m {
		if mapping.Pattern == nil {
			continue
		}
		match := mapping.Pattern.FindStringSubmatch(raw)
		if match == nil {
			continue
		}

		fields := make(map[string]string, len(ctx)+len(match))
		for k, v := range ctx {
			fields[k] = v
		}
		for i, name := range mapping.Pattern.SubexpNames() {
			if name != "" && i < len(match) {
				fields[name] = match[i]
			}
		}

		level := mapping.Level
		if level == "" {
			level = LevelError
		}
		extra := map[string][]string{"engine_name": {engineName}}
		if len(mapping.Invalid) > 0 {
			extra["invalid"] = append([]string(nil), mapping.Invalid...)
		}
		return EngineError{
			Message:    Interpolate(mapping.Message, fields),
			Kind:       mapping.Kind,
			Level:      level,
			Extra:      extra,
			IssueCodes: IssueCodesFor(mapping.Kind),
		}
	}

	return Generic(engineName, raw)
}

// Generic is the fallback for driver errors that match no mapping.
// The raw message is kept verbatim.
func Generic(engineName, raw string) EngineError {
	return EngineError{
		Message:    raw,
		Kind:       KindGenericBackend,
		Level:      LevelError,
		Extra:      map[string][]string{"engine_name": {engineName}},
		IssueCodes: IssueCodesFor(KindGenericBackend),
	}
}

// TimeGrainNotSupported reports a grain the engine has no expression for.
func TimeGrainNotSupported(engineName, grain string) EngineError {
	return EngineError{
		Message: fmt.Sprintf("No grain spec for %s for database %s", grain, engineName),
		Kind:    KindTimeGrainNotSupported,
		Level:   LevelWarning,
		Extra: map[string][]string{
			"engine_name": {engineName},
			"time_grain":  {grain},
		},
	}
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate replaces {name} placeholders with values from fields. If any
// referenced field is absent the template is returned unfilled.
func Interpolate(template string, fields map[string]string) string {
	names := placeholder.FindAllStringSubmatch(template, -1)
	if len(names) == 0 {
		return template
	}
	for _, n := range names {
		if _, ok := fields[n[1]]; !ok {
			return template
		}
	}
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		return fields[strings.Trim(m, "{}")]
	})
}

// Base is the shared list every engine inherits. It covers Go's net dial
// failures, which surface identically regardless of driver.
var Base = Mappings{
	{
		Pattern: MustCompile(`lookup (?P<hostname>[^ :]+)(?: on [^ ]+)?: no such host`),
		Message: `The hostname "{hostname}" cannot be resolved.`,
		Kind:    KindConnectionInvalidHostname,
		Invalid: []string{"host"},
	},
	{
		Pattern: MustCompile(`dial tcp (?P<hostname>[^ ]*?):(?P<port>\d+): connect: connection refused`),
		Message: `Port {port} on hostname "{hostname}" refused the connection.`,
		Kind:    KindConnectionPortClosed,
		Invalid: []string{"host", "port"},
	},
	{
		Pattern: MustCompile(`dial tcp (?P<hostname>[^ ]*?):(?P<port>\d+): (?:i/o timeout|connect: no route to host|connect: network is unreachable)`),
		Message: `The host "{hostname}" might be down, and can't be reached on port {port}.`,
		Kind:    KindConnectionHostDown,
		Invalid: []string{"host", "port"},
	},
}
