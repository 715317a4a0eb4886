package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/pyplay/lang"
	"github.com/ardnew/pyplay/log"
)

// runDoneMsg is sent when a submitted block finishes.
type runDoneMsg struct {
	src   string
	lines []string
	err   error
}

// editDoneMsg is sent when an edited transcript ran successfully.
type editDoneMsg struct {
	it     *lang.Interpreter
	source string
	lines  []string
}

// editCancelledMsg is sent when the user cleared the editor content.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a failed
// run.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process fails outside the program.
type editErrorMsg struct{ err error }

const (
	evalPrompt = ">>> "
	contPrompt = "... "
	ctrlPrompt = " :  "
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help     Print this cruft
  vars     List variables and their values
  funcs    List defined functions
  edit     Edit the session in external $EDITOR and run it again
  reset    Forget all variables and functions
  clear    Clear screen
  quit     Exit REPL

Usage:
  Type a statement to run it; expression values are echoed
  A line ending in ':' starts a block; a blank line runs it
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates (Tab indents otherwise)
  Press Space to accept the current candidate
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Press Ctrl+C to interrupt a running block or discard the current one
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
)

// formatCommand formats the echo of a submitted line.
func formatCommand(prompt, input string) string {
	return promptStyle.Render(prompt) + inputStyle.Render(input)
}

// formatCtrlCommand formats the echo of a control command.
func formatCtrlCommand(input string) string {
	return ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc      func() context.Context
	input        textinput.Model
	it           *lang.Interpreter
	newInterp    func() *lang.Interpreter
	prompter     *terminalPrompter
	session      session
	logger       log.Logger
	history      *History
	historyIdx   int
	matches      fuzzy.Matches // current fuzzy match results
	candidates   []string      // backing candidate list
	wordStart    int           // byte offset of current word start
	wordEnd      int           // byte offset of current word end
	suggIdx      int           // selected candidate index
	tabActive    bool          // whether user is tab-cycling
	preTabText   string        // input text before tab-cycling began
	preTabCursor int           // cursor position before tab-cycling began
	width        int           // terminal width for ellipsization
	running      bool          // a block is executing
	cancel       context.CancelCauseFunc
	quitting     bool
	mode         inputMode
	evalText     string
	evalCursor   int
	ctrlText     string
	ctrlCursor   int

	// once a block calls input(), blocks run with the terminal released
	usesInput bool
}

// Run starts an interactive session. Interpreter options apply to every
// block; history is kept in cacheDir when it is not empty.
func Run(
	ctx context.Context,
	cacheDir string,
	logger log.Logger,
	opts ...lang.Option,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger.TraceContext(
		ctx,
		"repl start",
		slog.String("cache_dir", cacheDir),
	)

	prompter := &terminalPrompter{}
	opts = append(slices.Clone(opts), lang.WithEcho(true), lang.WithPrompter(prompter))

	var path string

	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0o700); err != nil {
			logger.WarnContext(ctx, "history disabled", slog.Any("error", err))
		} else {
			path = filepath.Join(cacheDir, baseHistory)
		}
	}

	history := NewHistory(path)
	if err := history.Load(); err != nil {
		logger.WarnContext(
			ctx,
			"could not load history",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}

	logger.TraceContext(
		ctx,
		"repl history loaded",
		slog.Int("entry_count", history.Len()),
	)

	m := newModel(ctx, func() *lang.Interpreter {
		return lang.NewInterpreter(opts...)
	}, prompter, history, logger)

	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	newInterp func() *lang.Interpreter,
	prompter *terminalPrompter,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		it:         newInterp(),
		newInterp:  newInterp,
		prompter:   prompter,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case runDoneMsg:
		return m.finishRun(msg)

	case editDoneMsg:
		m.it = msg.it
		m.session.reset(msg.source)
		m.input.Prompt = m.evalPrompt()
		m.logger.TraceContext(
			m.ctxFunc(),
			"repl edit complete",
			slog.Int("lines", len(msg.lines)),
		)

		return m, tea.Sequence(
			printLines(msg.lines),
			tea.Println(resultStyle.Render("✔ session replaced")),
		)

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("🗴 edit cancelled"))

	case editDeclinedMsg:
		return m, tea.Println(hintStyle.Render("🗴 edit discarded"))

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("🗴 error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	if m.running {
		return hintStyle.Render("running... (ctrl+c to interrupt)") + "\n"
	}

	return m.input.View() + "\n" + m.hintLine() + "\n"
}

// hintLine renders the line below the input: history position, usage hint,
// signature of the enclosing call, or completion candidates.
func (m model) hintLine() string {
	input := m.input.Value()

	if m.historyIdx < m.history.Len() {
		pos := lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx + 1))

		return hintStyle.Render(fmt.Sprintf("%s/%d", pos, m.history.Len()))
	}

	if strings.TrimSpace(input) == "" {
		switch {
		case m.mode == modeCtrl:
			return hintStyle.Render("Type: help, vars, funcs, edit, reset, clear, quit (press Esc to return)")
		case m.session.continuing():
			return hintStyle.Render("Enter a blank line to run the block")
		default:
			return hintStyle.Render("Type a statement or press Esc for commands")
		}
	}

	if call := detectFunctionCall(input, m.input.Position()); call.inCall &&
		m.mode == modeEval && !m.tabActive && len(m.matches) == 0 {
		if sig, params := m.signature(call); sig != "" {
			return renderSignatureHint(sig, params, call.argIndex)
		}
	}

	afterDot := m.wordStart <= len(input) && strings.HasSuffix(input[:m.wordStart], ".")

	return renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width,
		func(name string) bool { return m.mode == modeEval && (afterDot || m.isCallable(name)) })
}

func (m model) evalPrompt() string {
	if m.session.continuing() {
		return promptStyle.Render(contPrompt)
	}

	return promptStyle.Render(evalPrompt)
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(
		m.ctxFunc(),
		"repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	if m.running {
		if msg.Type == tea.KeyCtrlC && m.cancel != nil {
			m.cancel(ErrInterrupted)
		}

		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		switch {
		case m.session.continuing():
			m.session.discard()
			m.input.Prompt = m.evalPrompt()
		case m.input.Value() == "":
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" && !m.session.continuing() {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}
		// Lock in the current tab candidate without executing.
		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.handleTab()

	case tea.KeyShiftTab:
		return m.handleShiftTab()

	case tea.KeyUp:
		return m.historyPrev()

	case tea.KeyDown:
		return m.historyNext()

	case tea.KeyShiftUp:
		return m.historyPrevInMode()

	case tea.KeyShiftDown:
		return m.historyNextInMode()

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		return m.toggleMode()

	case tea.KeyRunes, tea.KeySpace:
		// Space breaks out of tab-cycling, keeping the candidate.
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	// For any other key (backspace, delete, arrows, etc.),
	// update input and recompute matches without auto-confirm.
	var cmd tea.Cmd

	m.tabActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

func (m model) handleTab() (model, tea.Cmd) {
	if len(m.matches) == 0 {
		if m.mode == modeEval {
			pos := m.input.Position()
			val := m.input.Value()
			m.input.SetValue(val[:pos] + strings.Repeat(" ", indentWidth) + val[pos:])
			m.input.SetCursor(pos + indentWidth)
		}

		return m, nil
	}

	return m.cycle(1), nil
}

func (m model) handleShiftTab() (model, tea.Cmd) {
	if len(m.matches) == 0 {
		return m, nil
	}

	return m.cycle(-1), nil
}

// cycle moves the tab selection by step, completing immediately when only
// one candidate remains.
func (m model) cycle(step int) model {
	if len(m.matches) == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	if m.tabActive {
		m.suggIdx = (m.suggIdx + step + len(m.matches)) % len(m.matches)
	} else {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = len(m.matches) - 1
		}
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word with replacement and moves
// the cursor after it.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes fuzzy matches for the current input state.
// When autoConfirm is true and the typed word already equals the only
// candidate, the completion is accepted. Deletions and cursor movement pass
// false so editing never completes unexpectedly.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	candidate := m.matches[0].Str
	if m.input.Value()[m.wordStart:m.wordEnd] == candidate {
		replaceCurrentWord(m, candidate)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	raw := m.input.Value()

	m.evalText, m.evalCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0

	if m.mode == modeCtrl {
		input := strings.TrimSpace(raw)
		if input == "" {
			return m, nil
		}

		m.input.SetValue("")

		if err := m.history.Add(input, modeCtrl); err != nil {
			m.logger.DebugContext(m.ctxFunc(), "history write failed", slog.Any("error", err))
		}

		m.historyIdx = m.history.Len()
		m.logger.TraceContext(
			m.ctxFunc(),
			"repl command",
			slog.String("input", input),
		)

		return m.executeCommand(input)
	}

	prompt := evalPrompt
	if m.session.continuing() {
		prompt = contPrompt
	}

	echo := tea.Println(formatCommand(prompt, raw))

	if err := m.history.Add(raw, modeEval); err != nil {
		m.logger.DebugContext(m.ctxFunc(), "history write failed", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	src, ready := m.session.feed(raw)

	m.input.SetValue(m.session.indent())
	m.input.CursorEnd()
	m.input.Prompt = m.evalPrompt()
	refreshMatches(&m, false)

	if !ready {
		return m, echo
	}

	m.logger.TraceContext(
		m.ctxFunc(),
		"repl eval",
		slog.String("source", src),
	)

	m, run := m.startRun(src)

	return m, tea.Sequence(echo, run)
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	echo := tea.Println(formatCtrlCommand(input))

	m.logger.TraceContext(
		m.ctxFunc(),
		"repl exec command",
		slog.String("command", parts[0]),
		slog.Any("args", parts[1:]),
	)

	switch parts[0] {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echo, tea.Println(helpMessage()))

	case "v", "vars":
		return m, tea.Sequence(echo, tea.Println(m.varsView()))

	case "f", "funcs":
		return m, tea.Sequence(echo, tea.Println(m.funcsView()))

	case "r", "reset":
		m.it.Reset()
		m.session.reset("")

		return m, tea.Sequence(echo, tea.Println(hintStyle.Render("session reset")))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		var edit tea.Cmd

		m, edit = m.handleEdit()

		return m, tea.Sequence(echo, edit)

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + parts[0] + " (try 'help')"),
		)
	}
}

func (m model) handleEdit() (model, tea.Cmd) {
	cmd := &editCommand{
		ctxFunc:   m.ctxFunc,
		logger:    m.logger,
		content:   m.session.source(),
		newInterp: m.newInterp,
		prompter:  m.prompter,
	}

	return m, tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case cmd.it == nil:
			return editCancelledMsg{}
		}

		return editDoneMsg{it: cmd.it, source: cmd.source, lines: cmd.lines}
	})
}

const previewWidth = 60

// varsView lists the global bindings with their representation and type.
func (m model) varsView() string {
	var b strings.Builder

	for name, v := range m.it.Globals() {
		fmt.Fprintf(&b, "  %s = %s %s\n",
			name, truncate(lang.Repr(v), previewWidth), hintStyle.Render(lang.TypeName(v)))
	}

	if b.Len() == 0 {
		return hintStyle.Render("  (no variables)")
	}

	return strings.TrimRight(b.String(), "\n")
}

// funcsView lists the defined functions by signature.
func (m model) funcsView() string {
	fns := m.it.Functions()
	if len(fns) == 0 {
		return hintStyle.Render("  (no functions)")
	}

	lines := make([]string, len(fns))
	for i, fn := range fns {
		lines[i] = "  def " + fn.Signature()
	}

	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n-3]) + "..."
}

func (m model) historyPrev() (model, tea.Cmd) {
	if m.historyIdx > 0 {
		m.historyIdx--
		m = m.showEntry(m.historyIdx)
	}

	return m, nil
}

func (m model) historyNext() (model, tea.Cmd) {
	if m.historyIdx < m.history.Len()-1 {
		m.historyIdx++

		return m.showEntry(m.historyIdx), nil
	}

	m.historyIdx = m.history.Len()
	m.input.SetValue(m.session.indent())
	m.input.CursorEnd()
	refreshMatches(&m, false)

	return m, nil
}

func (m model) historyPrevInMode() (model, tea.Cmd) {
	for i := m.historyIdx - 1; i >= 0; i-- {
		if entry, err := m.history.Entry(i); err == nil && entry.Mode == m.mode {
			m.historyIdx = i

			return m.showEntry(i), nil
		}
	}

	return m, nil
}

func (m model) historyNextInMode() (model, tea.Cmd) {
	for i := m.historyIdx + 1; i < m.history.Len(); i++ {
		if entry, err := m.history.Entry(i); err == nil && entry.Mode == m.mode {
			m.historyIdx = i

			return m.showEntry(i), nil
		}
	}

	// Reached end of mode-specific history, clear input
	if m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		refreshMatches(&m, false)
	}

	return m, nil
}

// showEntry loads history entry i into the input, switching mode if needed.
func (m model) showEntry(i int) model {
	entry, err := m.history.Entry(i)
	if err != nil {
		return m
	}

	if m.mode != entry.Mode {
		m, _ = m.switchToMode(entry.Mode)
	}

	m.input.SetValue(entry.Line)
	m.input.SetCursor(len(entry.Line))
	refreshMatches(&m, false)

	return m
}

// toggleMode switches between eval and control modes, preserving input state.
func (m model) toggleMode() (model, tea.Cmd) {
	if m.mode == modeEval {
		return m.switchToMode(modeCtrl)
	}

	return m.switchToMode(modeEval)
}

// switchToMode switches to the specified mode, preserving input state.
func (m model) switchToMode(mode inputMode) (model, tea.Cmd) {
	if m.mode == modeEval {
		m.evalText = m.input.Value()
		m.evalCursor = m.input.Position()
	} else {
		m.ctrlText = m.input.Value()
		m.ctrlCursor = m.input.Position()
	}

	m.mode = mode
	if mode == modeEval {
		m.input.Prompt = m.evalPrompt()
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	refreshMatches(&m, false)

	return m, nil
}
