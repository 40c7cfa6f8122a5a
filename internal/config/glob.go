package config

import "strings"

// expandBraces expands shell-style alternatives in a source pattern, which
// filepath.Glob does not understand.
// "scripts/{geo,stats}.py" -> ["scripts/geo.py", "scripts/stats.py"]
// "{lib,vendor}/*/api.py"  -> ["lib/*/api.py", "vendor/*/api.py"]
// A pattern without a closed brace pair is returned unchanged.
func expandBraces(pattern string) []string {
	open := strings.IndexByte(pattern, '{')
	if open == -1 {
		return []string{pattern}
	}
	end := strings.IndexByte(pattern[open:], '}')
	if end == -1 {
		return []string{pattern}
	}
	end += open

	prefix, suffix := pattern[:open], pattern[end+1:]
	var out []string
	for _, alt := range strings.Split(pattern[open+1:end], ",") {
		// later groups are expanded recursively
		out = append(out, expandBraces(prefix+alt+suffix)...)
	}
	return out
}
