package uninstall

import (
	"strings"
)

// Command is a parsed uninstall invocation: the executable path plus the
// raw argument tail exactly as it appeared in the registry value.
type Command struct {
	Path string
	Args string
}

// ArgList splits the argument tail for process creation. Uninstall entries
// use plain space-separated switches, so field splitting is sufficient.
func (c Command) ArgList() []string {
	return strings.Fields(c.Args)
}

// ParseCommand splits an uninstall string from the registry into the
// executable path and its arguments.
//
// When the string starts with a double quote the executable extends to the
// matching closing quote, honoring backslash escapes. Vendors routinely ship
// malformed values with the closing quote missing, so a fallback scanner
// recovers those by cutting at a ".exe" boundary instead.
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Command{}, &ParseError{Input: s, Reason: "empty string"}
	}

	if s[0] != '"' {
		path, args, _ := strings.Cut(s, " ")
		return Command{Path: path, Args: strings.TrimSpace(args)}, nil
	}

	if cmd, ok := parseQuoted(s); ok {
		return cmd, nil
	}
	if cmd, ok := parseUnterminated(s); ok {
		return cmd, nil
	}
	return Command{}, &ParseError{Input: s, Reason: "unterminated quote"}
}

// parseQuoted scans a leading-quote invocation until the closing quote. A
// backslash keeps the following character literal, so an escaped quote does
// not end the path. Backslashes stay in the result since they are path
// separators here, not shell noise.
func parseQuoted(s string) (Command, bool) {
	var path strings.Builder
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			path.WriteByte(c)
			escaped = false
		case c == '\\':
			path.WriteByte(c)
			escaped = true
		case c == '"':
			return Command{
				Path: path.String(),
				Args: strings.TrimSpace(s[i+1:]),
			}, true
		default:
			path.WriteByte(c)
		}
	}
	return Command{}, false
}

// parseUnterminated recovers a quoted invocation with no closing quote by
// ending the executable at a ".exe" followed by a space (or end of string).
func parseUnterminated(s string) (Command, bool) {
	lower := strings.ToLower(s)
	for off := 1; off < len(lower); {
		i := strings.Index(lower[off:], ".exe")
		if i < 0 {
			return Command{}, false
		}
		end := off + i + len(".exe")
		if end == len(s) {
			return Command{Path: s[1:end]}, true
		}
		if s[end] == ' ' {
			return Command{
				Path: s[1:end],
				Args: strings.TrimSpace(s[end+1:]),
			}, true
		}
		off = end
	}
	return Command{}, false
}
