package metadata

import (
	"bufio"
	"fmt"
	"strings"
)

// ParseVariables reads "NAME=value" lines as printed by the print-% rule.
// Lines that are not assignments (make chatter, warnings) are skipped; a
// variable printed twice keeps its last value.
func ParseVariables(output string) (map[string]string, error) {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		name, value, ok := strings.Cut(line, "=")
		if !ok || !isVariableName(name) {
			continue
		}
		vars[name] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("no variables printed")
	}
	return vars, nil
}

func isVariableName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// compilerFlags splits a flags variable and drops the parts that are stored
// elsewhere (includes, defines) or only matter to make (dependency files).
func compilerFlags(value string) []string {
	flags := []string{}
	for _, f := range strings.Fields(value) {
		switch {
		case strings.HasPrefix(f, "-I"), strings.HasPrefix(f, "-D"):
		case f == "-MMD", f == "-MP", strings.HasPrefix(f, "-MF"):
		default:
			flags = append(flags, f)
		}
	}
	return flags
}

func stripPrefix(items []string, prefix string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimPrefix(item, prefix)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
