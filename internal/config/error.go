package config

import (
	"fmt"
	"strings"
)

// Error is returned by Load when the file parses but cannot be used as is:
// environment references that did not resolve, settings that failed
// Validate, or both. Callers such as `bellhop config test` read the fields
// directly; Error() renders them for logs.
type Error struct {
	Path    string
	Missing []string // variable names, or "NAME: message" for ${NAME:?message}
	Errors  []string // "section.key: problem"
}

func (e *Error) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "config %s:", e.Path)
	}
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(title)
		for _, item := range items {
			b.WriteString("\n  - ")
			b.WriteString(item)
		}
	}
	section("missing environment variables (export them or add them to .env):", e.Missing)
	section("invalid settings:", e.Errors)
	return b.String()
}

// HasErrors reports whether anything needs fixing.
func (e *Error) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
