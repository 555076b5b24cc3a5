package manifest

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

const descriptionMarker = "Description:"

var (
	// greet() { # says hello
	functionLine = regexp.MustCompile(`^\s*(?:function\s+)?([A-Za-z_][A-Za-z0-9_:.-]*)\s*\(\s*\)\s*\{\s*#\s*(.*?)\s*$`)
	// alias gg='git grep' # grep shortcut
	aliasLine = regexp.MustCompile(`^\s*alias\s+([^=\s]+)=(.*\S)\s+#\s*(.*?)\s*$`)
)

// ParseShell scans a shell file for function and alias declarations that
// carry an inline comment, and for the first Description: marker. Lines that
// match nothing are ignored.
func ParseShell(src []byte) *Manifest {
	m := &Manifest{Format: FormatShell}

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m.Description == "" {
			if idx := strings.Index(line, descriptionMarker); idx >= 0 {
				m.Description = strings.TrimSpace(line[idx+len(descriptionMarker):])
			}
		}

		if match := functionLine.FindStringSubmatch(line); match != nil {
			m.Functions = append(m.Functions, Function{Name: match[1], Description: match[2]})
			continue
		}
		if match := aliasLine.FindStringSubmatch(line); match != nil {
			m.Shortcuts = append(m.Shortcuts, Shortcut{
				Name:        match[1],
				Command:     unquote(match[2]),
				Description: match[3],
			})
		}
	}
	return m
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
