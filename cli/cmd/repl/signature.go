package repl

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/pyplay/lang"
)

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// functionCall is a call whose argument list contains the cursor.
type functionCall struct {
	name     string // callee, with the receiver for methods (e.g., "xs.append")
	before   byte   // byte preceding name, 0 at the start of input
	argIndex int    // current positional argument index (0-based)
	inCall   bool
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// detectFunctionCall reports the innermost call whose open parenthesis lies
// before cursor and is not yet closed.
func detectFunctionCall(input string, cursor int) functionCall {
	if cursor > len(input) {
		cursor = len(input)
	}

	open := -1
	depth := 0

scan:
	for i := cursor - 1; i >= 0; i-- {
		switch input[i] {
		case ')', ']', '}':
			depth++
		case '(', '[', '{':
			if depth > 0 {
				depth--

				continue
			}

			if input[i] != '(' {
				break scan
			}

			open = i

			break scan
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open
	for start > 0 && isNameByte(input[start-1]) {
		start--
	}

	name := input[start:open]
	if name == "" || strings.Trim(name, ".") == "" {
		return functionCall{}
	}

	var before byte
	if start > 0 {
		before = input[start-1]
	}

	argIndex := 0
	depth = 0

	var quote byte

	for i := open + 1; i < cursor; i++ {
		c := input[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			argIndex++
		}
	}

	return functionCall{name: name, before: before, argIndex: argIndex, inCall: true}
}

// signature returns the signature of the called function and its parameter
// list, or "" when the callee is unknown.
func (m model) signature(call functionCall) (string, []string) {
	recvName, method, isMethod := cutLast(call.name, ".")
	if !isMethod {
		if doc, ok := lang.BuiltinDoc(call.name); ok {
			return doc, splitParams(doc)
		}

		for _, fn := range m.it.Functions() {
			if fn.Name == call.name {
				sig := fn.Signature()

				return sig, splitParams(sig)
			}
		}

		return "", nil
	}

	var (
		recv lang.Value
		ok   bool
	)

	if recvName == "" {
		prefix := string(call.before) + "."
		recv, ok = literalReceiver(prefix, len(prefix))
	} else {
		recv, ok = m.it.Lookup(recvName)
	}

	if !ok {
		return "", nil
	}

	doc, ok := lang.MethodDoc(recv, method)
	if !ok {
		return "", nil
	}

	return doc, splitParams(doc)
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return "", s, false
	}

	return s[:i], s[i+len(sep):], true
}

// splitParams returns the parameters of a signature such as
// "print(*values, sep=' ')", splitting on top-level commas only.
func splitParams(signature string) []string {
	open := strings.IndexByte(signature, '(')
	closing := strings.LastIndexByte(signature, ')')

	if open < 0 || closing <= open+1 {
		return nil
	}

	var (
		params []string
		depth  int
		quote  byte
		start  = open + 1
	)

	for i := start; i < closing; i++ {
		c := signature[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			params = append(params, strings.TrimSpace(signature[start:i]))
			start = i + 1
		}
	}

	return append(params, strings.TrimSpace(signature[start:closing]))
}

// renderSignatureHint renders signature with the parameter at argIndex
// highlighted. A starred parameter absorbs every later positional argument.
func renderSignatureHint(signature string, params []string, argIndex int) string {
	if signature == "" {
		return ""
	}

	open := strings.IndexByte(signature, '(')
	if open < 0 {
		return signatureStyle.Render(signature)
	}

	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(signature[:open]))
	b.WriteString(signatureStyle.Render("("))

	current := argIndex

	for i, p := range params {
		if strings.HasPrefix(p, "*") && argIndex >= i {
			current = i
		}
	}

	for i, p := range params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		if i == current {
			b.WriteString(currentParamStyle.Render(p))
		} else {
			b.WriteString(signatureStyle.Render(p))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	if c := strings.LastIndexByte(signature, ')'); c > open && c+1 < len(signature) {
		b.WriteString(signatureStyle.Render(signature[c+1:]))
	}

	return b.String()
}
