package repl

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/pyplay/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "vars", "funcs", "edit", "reset", "clear", "quit"}

// isWordBoundary reports whether r delimits a completion word: whitespace,
// the attribute dot, quotes, and the operator and punctuation characters of
// the language.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%', '@',
		'<', '>', '=', '!', '~', '^',
		'&', '|', ',', ':', ';',
		'"', '\'', '#':
		return true
	}

	return false
}

// wordBounds returns the word at the cursor and its byte boundaries within
// input. The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the attribute chain leading up to the word starting at
// wordStart. For "x + xs.app" with the word "app" it returns "xs". Top-level
// words have no parent.
func parentPath(input string, wordStart int) string {
	prefix, ok := strings.CutSuffix(input[:wordStart], ".")
	if !ok || prefix == "" {
		return ""
	}

	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return strings.TrimSpace(prefix[pos:])
}

// literalReceiver returns a value of the type of the literal closing just
// before the attribute dot at wordStart, as in `"-".` or `[3, 1].`.
func literalReceiver(input string, wordStart int) (lang.Value, bool) {
	prefix, ok := strings.CutSuffix(input[:wordStart], ".")
	if !ok || prefix == "" {
		return nil, false
	}

	switch prefix[len(prefix)-1] {
	case '"', '\'':
		return "", true
	case ']':
		return lang.NewList(), true
	case '}':
		return lang.NewDict(), true
	case ')':
		return lang.NewTuple(), true
	}

	return nil, false
}

// receiver resolves the value whose attributes complete the word at
// wordStart.
func (m model) receiver(input string, wordStart int) (lang.Value, bool) {
	if v, ok := literalReceiver(input, wordStart); ok {
		return v, true
	}

	parent := parentPath(input, wordStart)
	if parent == "" || strings.Contains(parent, ".") {
		return nil, false
	}

	return m.it.Lookup(parent)
}

// topLevelCandidates returns the keywords, built-ins, bindings and defined
// functions, without duplicates.
func (m model) topLevelCandidates() []string {
	names := slices.Concat(lang.Keywords(), lang.Builtins())

	for name := range m.it.Globals() {
		names = append(names, name)
	}

	for _, fn := range m.it.Functions() {
		names = append(names, fn.Name)
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// computeMatches calculates the fuzzy matches for the word at the cursor,
// ranked best first. An empty top-level word has no matches so the hint
// stays visible; an empty word after an attribute dot matches every method.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()
	word, wordStart, wordEnd := wordBounds(input, m.input.Position())

	switch {
	case m.mode == modeCtrl:
		if word == "" {
			return nil, nil, wordStart, wordEnd
		}

		candidates = ctrlCommands

	case strings.HasSuffix(input[:wordStart], "."):
		recv, ok := m.receiver(input, wordStart)
		if !ok {
			return nil, nil, wordStart, wordEnd
		}

		candidates = lang.Methods(recv)

		if word == "" {
			matches = make(fuzzy.Matches, len(candidates))
			for i, c := range candidates {
				matches[i] = fuzzy.Match{Str: c, Index: i}
			}

			return matches, candidates, wordStart, wordEnd
		}

	default:
		if word == "" || inString(input[:wordStart]) {
			return nil, nil, wordStart, wordEnd
		}

		candidates = m.topLevelCandidates()
	}

	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// inString reports whether the end of prefix lies inside a string literal.
func inString(prefix string) bool {
	var quote byte

	for i := 0; i < len(prefix); i++ {
		c := prefix[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		}
	}

	return quote != 0
}

// isCallable reports whether name completes to something that is called.
func (m model) isCallable(name string) bool {
	if _, ok := lang.BuiltinDoc(name); ok {
		return true
	}

	return slices.ContainsFunc(m.it.Functions(), func(fn *lang.Function) bool {
		return fn.Name == name
	})
}

// renderCandidateBar builds the single-line completion bar, ellipsized to
// fit within width.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
	callable func(string) bool,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx, callable != nil && callable(match.Str))

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a candidate with its matched characters
// highlighted. Callables get a "()" suffix that is not inserted on
// completion.
func renderCandidate(match fuzzy.Match, selected, callable bool) string {
	base, highlight := suggestionStyle, matchStyle
	if selected {
		base, highlight = selectedStyle, selectedMatchStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if callable {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}
