// Package naming turns Python module, function and parameter names into
// Go identifiers for generated bindings.
package naming

import (
	"path/filepath"
	"strings"
	"unicode"
)

// goKeywords cannot be used as identifiers at all.
var goKeywords = map[string]bool{
	"break": true, "default": true, "func": true, "interface": true, "select": true,
	"case": true, "defer": true, "go": true, "map": true, "struct": true,
	"chan": true, "else": true, "goto": true, "package": true, "switch": true,
	"const": true, "fallthrough": true, "if": true, "range": true, "type": true,
	"continue": true, "for": true, "import": true, "return": true, "var": true,
}

// generatedNames are identifiers the binding template itself declares or
// imports; parameters and import aliases must not shadow them.
var generatedNames = map[string]bool{
	"ctx": true, "context": true, "a": true, "sync": true, "any": true, "error": true,
	"env": true, "mod": true, "err": true,
}

func reserved(s string) bool {
	return goKeywords[s] || generatedNames[s]
}

// ModuleName returns the Python module name for a source path
// ("scripts/geo_utils.py" → "geo_utils").
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Pascal converts a snake_case name into an exported Go identifier
// ("geo_utils" → "GeoUtils", "_private" → "Private", "2d" → "X2d").
func Pascal(name string) string {
	var b strings.Builder
	for _, part := range splitWords(name) {
		runes := []rune(part)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	out := b.String()
	if out == "" {
		return "X"
	}
	if !unicode.IsLetter([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}

// Camel converts a snake_case name into an unexported Go identifier that
// is safe to use as a parameter name ("max_len" → "maxLen", "type" → "type_").
func Camel(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return "arg"
	}
	var b strings.Builder
	for i, part := range words {
		runes := []rune(part)
		if i == 0 {
			b.WriteRune(unicode.ToLower(runes[0]))
		} else {
			b.WriteRune(unicode.ToUpper(runes[0]))
		}
		b.WriteString(string(runes[1:]))
	}
	out := b.String()
	if !unicode.IsLetter([]rune(out)[0]) {
		out = "p" + out
	}
	if reserved(out) {
		out += "_"
	}
	return out
}

// Unexported lowercases the first rune of an identifier ("GeoUtils" → "geoUtils").
func Unexported(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// splitWords splits on underscores and drops characters that cannot appear
// in a Go identifier.
func splitWords(name string) []string {
	var words []string
	for _, part := range strings.Split(name, "_") {
		part = Identifier(part)
		part = strings.ReplaceAll(part, "_", "")
		if part != "" {
			words = append(words, part)
		}
	}
	return words
}

// Identifier returns a valid Go identifier for a string.
// Replaces invalid characters with underscores.
func Identifier(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// IsExported reports whether s is a valid exported Go identifier.
func IsExported(s string) bool {
	if !IsIdentifier(s) {
		return false
	}
	return unicode.IsUpper([]rune(s)[0])
}

// IsIdentifier reports whether s is a valid Go identifier that is not a keyword.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return !goKeywords[s]
}

// ImportAlias returns a valid Go identifier for an import path.
// Handles hyphens (go-redis → goredis), versioned paths (v9 → parent),
// leading digits (3d → pkg3d) and reserved words (go → pkgGo).
func ImportAlias(pkgPath string) string {
	parts := strings.Split(pkgPath, "/")
	last := parts[len(parts)-1]
	if len(last) > 1 && last[0] == 'v' && len(parts) > 1 && allDigits(last[1:]) {
		last = parts[len(parts)-2]
	}

	alias := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, last)

	if alias == "" {
		alias = "pkg"
	}
	if unicode.IsDigit([]rune(alias)[0]) {
		alias = "pkg" + alias
	}
	if reserved(alias) {
		alias = "pkg" + strings.ToUpper(alias[:1]) + alias[1:]
	}
	return alias
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
