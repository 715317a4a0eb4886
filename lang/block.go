package lang

import "strings"

// Indent returns the indentation column of line: the number of leading space
// and tab characters.
func Indent(line string) int {
	n := 0

	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}

	return n
}

// isBlank reports whether line is empty, whitespace, or a comment.
func isBlank(line string) bool {
	s := strings.TrimSpace(line)

	return s == "" || s[0] == '#'
}

// ResolveBlock returns the index of the line that ends the block opened by the
// header at lines[header], whose indentation is indent.
//
// Starting after the header, blank and comment lines are skipped and the
// first line indented at or left of indent ends the block. If no such line
// exists the block runs to len(lines). Any deeper indentation counts as inside
// the block; body lines need not agree with each other.
func ResolveBlock(lines []string, header, indent int) int {
	for i := header + 1; i < len(lines); i++ {
		if isBlank(lines[i]) {
			continue
		}

		if Indent(lines[i]) <= indent {
			return i
		}
	}

	return len(lines)
}
