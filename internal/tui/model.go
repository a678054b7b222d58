// Package tui is the interactive front-end: a form to enter the pattern, a
// live view while the search runs and a results screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"vanity-sol/internal/grinder"
	"vanity-sol/internal/keys"
	"vanity-sol/internal/validate"
)

// uiState is the current screen of the TUI.
type uiState int

const (
	stateForm    uiState = iota // pattern entry form
	stateRunning                // search in progress
	stateResults                // search finished
)

// Internal messages.
type tickMsg time.Time
type doneMsg struct {
	res grinder.Result
	err error
}
type savedMsg struct{ path string }
type saveErrMsg struct{ err error }

// Form focus indices.
const (
	fieldPrefix  = 0
	fieldSuffix  = 1
	fieldWorkers = 2
	fieldCase    = 3
	fieldChain   = 4
	numFields    = 5
)

// inputIndex maps a focusIdx to m.inputs slice index (-1 if not a text input).
func inputIndex(fi int) int {
	switch fi {
	case fieldPrefix, fieldSuffix, fieldWorkers:
		return fi
	default:
		return -1
	}
}

// Options seed the form.
type Options struct {
	Chain         string
	Workers       int
	CaseSensitive bool

	// Log receives search logs. The TUI owns the terminal, so nil (the
	// default) discards them.
	Log *zap.SugaredLogger
}

// Model is the bubbletea application model.
type Model struct {
	state  uiState
	width  int
	height int
	opts   Options

	// Form: prefix(0) suffix(1) workers(2).
	inputs        []textinput.Model
	focusIdx      int
	caseSensitive bool
	chainIdx      int

	// Running state.
	search    *grinder.Search
	source    keys.Source
	cancel    context.CancelFunc
	startTime time.Time
	spinner   spinner.Model

	// Outcome, captured when the search returns.
	match        *grinder.Match
	runErr       error
	finalTotal   uint64
	finalElapsed time.Duration

	// Status messages.
	errMsg  string
	infoMsg string
}

// New creates a fresh Model ready for the form state.
func New(opts Options) Model {
	if opts.Workers < 1 {
		opts.Workers = grinder.DefaultWorkers
	}

	newInput := func(placeholder string, limit, width int) textinput.Model {
		t := textinput.New()
		t.Placeholder = placeholder
		t.CharLimit = limit
		t.Width = width
		return t
	}

	inputs := []textinput.Model{
		newInput("e.g. anza", 44, 28),
		newInput("e.g. sol", 44, 28),
		newInput(strconv.Itoa(opts.Workers), 4, 6),
	}
	inputs[fieldWorkers].SetValue(strconv.Itoa(opts.Workers))
	inputs[fieldPrefix].Focus()

	chainIdx := 0
	for i, c := range keys.Chains() {
		if src, err := keys.SourceFor(opts.Chain); err == nil && src.Chain() == c {
			chainIdx = i
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	return Model{
		opts:          opts,
		inputs:        inputs,
		caseSensitive: opts.CaseSensitive,
		chainIdx:      chainIdx,
		spinner:       sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// chain returns the chain currently selected on the form.
func (m Model) chain() string {
	return keys.Chains()[m.chainIdx]
}

// formSource returns the Source for the selected chain.
func (m Model) formSource() keys.Source {
	src, err := keys.SourceFor(m.chain())
	if err != nil {
		return keys.Solana{}
	}
	return src
}

// ---- Update ----------------------------------------------------------------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.state == stateRunning {
			return m, tick()
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == stateRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case doneMsg:
		m.match = msg.res.Match
		m.runErr = msg.err
		m.finalTotal = msg.res.Attempts
		m.finalElapsed = msg.res.Elapsed
		if m.cancel != nil {
			m.cancel()
		}
		m.state = stateResults
		return m, nil

	case savedMsg:
		m.infoMsg = "Saved to " + msg.path
		return m, nil

	case saveErrMsg:
		m.errMsg = "Save error: " + msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Delegate unhandled msgs to focused text input when on form.
	if m.state == stateForm {
		return m.updateActiveInput(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {

	case stateForm:
		switch {
		case key.Matches(msg, bindings.Exit):
			return m, tea.Quit

		case key.Matches(msg, bindings.Tab, bindings.Down):
			m.focusIdx = (m.focusIdx + 1) % numFields
			m.syncFocus()
			return m, nil

		case key.Matches(msg, bindings.ShiftTab, bindings.Up):
			m.focusIdx = (m.focusIdx + numFields - 1) % numFields
			m.syncFocus()
			return m, nil

		case m.focusIdx == fieldCase && key.Matches(msg, bindings.Toggle):
			m.caseSensitive = !m.caseSensitive
			m.errMsg = m.patternErrors()
			return m, nil

		case m.focusIdx == fieldChain && key.Matches(msg, bindings.Toggle, bindings.Right):
			m.chainIdx = (m.chainIdx + 1) % len(keys.Chains())
			m.errMsg = m.patternErrors()
			return m, nil

		case m.focusIdx == fieldChain && key.Matches(msg, bindings.Left):
			n := len(keys.Chains())
			m.chainIdx = (m.chainIdx + n - 1) % n
			m.errMsg = m.patternErrors()
			return m, nil

		case key.Matches(msg, bindings.Enter):
			if err := m.prepareSearch(); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			run := m.runSearch()
			return m, tea.Batch(run, tick(), m.spinner.Tick)

		default:
			return m.updateActiveInput(msg)
		}

	case stateRunning:
		if key.Matches(msg, bindings.Stop) && m.cancel != nil {
			m.cancel()
		}

	case stateResults:
		switch {
		case key.Matches(msg, bindings.Quit):
			return m, tea.Quit
		case key.Matches(msg, bindings.Save) && m.match != nil:
			m.infoMsg = ""
			m.errMsg = ""
			return m, saveMatch(m.source, m.match)
		case key.Matches(msg, bindings.New):
			next := New(m.opts)
			next.width = m.width
			next.height = m.height
			next.chainIdx = m.chainIdx
			next.caseSensitive = m.caseSensitive
			next.inputs[fieldWorkers].SetValue(m.inputs[fieldWorkers].Value())
			return next, nil
		}
	}

	return m, nil
}

// updateActiveInput forwards the message to the focused text input and
// validates pattern fields in real time.
func (m Model) updateActiveInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	idx := inputIndex(m.focusIdx)
	if idx < 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)

	if m.focusIdx == fieldPrefix || m.focusIdx == fieldSuffix {
		m.errMsg = m.patternErrors()
	}
	return m, cmd
}

// patternErrors checks both pattern fields against the selected chain.
func (m Model) patternErrors() string {
	src := m.formSource()
	for _, fi := range []int{fieldPrefix, fieldSuffix} {
		val := strings.TrimSpace(m.inputs[fi].Value())
		if err := src.Validate(val, m.caseSensitive); err != nil {
			return fmt.Sprintf("%s: %v", fieldLabel(fi), err)
		}
	}
	return ""
}

func fieldLabel(fi int) string {
	switch fi {
	case fieldPrefix:
		return "prefix"
	case fieldSuffix:
		return "suffix"
	case fieldWorkers:
		return "workers"
	default:
		return ""
	}
}

// focusInvalid moves focus to the first form field named by a config
// validation error and returns that field's message.
func (m *Model) focusInvalid(err error) error {
	if !validate.IsFieldErrors(err) {
		return err
	}
	var fe validate.FieldErrors
	errors.As(err, &fe)
	fields := fe.Fields()
	for _, fi := range []int{fieldPrefix, fieldSuffix, fieldWorkers} {
		if msg, ok := fields[fieldLabel(fi)]; ok {
			m.focusIdx = fi
			m.syncFocus()
			return errors.New(msg)
		}
	}
	return err
}

// syncFocus blurs all inputs and focuses the active one (if applicable).
func (m *Model) syncFocus() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	if idx := inputIndex(m.focusIdx); idx >= 0 {
		m.inputs[idx].Focus()
	}
}

// prepareSearch validates form values and transitions to stateRunning.
func (m *Model) prepareSearch() error {
	prefix := strings.TrimSpace(m.inputs[fieldPrefix].Value())
	suffix := strings.TrimSpace(m.inputs[fieldSuffix].Value())
	if prefix == "" && suffix == "" {
		return errors.New("enter a prefix, a suffix or both")
	}

	workers, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldWorkers].Value()))
	if err != nil || workers < 1 {
		return errors.New("workers must be a positive integer")
	}

	src := m.formSource()
	search, err := grinder.New(grinder.Config{
		Prefix:        prefix,
		Suffix:        suffix,
		CaseSensitive: m.caseSensitive,
		Workers:       workers,
	}, src, m.opts.Log)
	if err != nil {
		return m.focusInvalid(err)
	}

	m.search = search
	m.source = src
	m.match = nil
	m.runErr = nil
	m.startTime = time.Now()
	m.errMsg = ""
	m.infoMsg = ""
	m.state = stateRunning
	return nil
}

// runSearch runs the search as a background tea.Cmd. The cancel func is
// created here, before the command is handed to bubbletea, so the stop key
// reaches it.
func (m *Model) runSearch() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	search := m.search
	return func() tea.Msg {
		res, err := search.Run(ctx)
		return doneMsg{res: res, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func saveMatch(src keys.Source, match *grinder.Match) tea.Cmd {
	return func() tea.Msg {
		path := fmt.Sprintf("vanity-%s-%s.txt", src.Chain(), time.Now().Format("20060102-150405"))
		f, err := os.Create(path)
		if err != nil {
			return saveErrMsg{err}
		}
		defer f.Close()

		fmt.Fprintf(f, "Chain:       %s\n", src.Chain())
		fmt.Fprintf(f, "Address:     %s\n", match.Keypair.Address)
		fmt.Fprintf(f, "Private Key: %s\n", match.Keypair.Secret)
		if src.Chain() == keys.ChainSolana {
			fmt.Fprintf(f, "Secret Key:  %s\n", keys.SecretBytesJSON(match.Keypair.PrivateKey))
		}
		if _, err := fmt.Fprintf(f, "Attempt:     %d\n", match.Attempt); err != nil {
			return saveErrMsg{err}
		}
		return savedMsg{path: path}
	}
}

// ---- View ------------------------------------------------------------------

func (m Model) View() string {
	var body string
	switch m.state {
	case stateForm:
		body = m.viewForm()
	case stateRunning:
		body = m.viewRunning()
	case stateResults:
		body = m.viewResults()
	}

	box := styleBox.Render(body)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Center, box)
	}
	return box
}

// ---- Form view -------------------------------------------------------------

func (m Model) viewForm() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("vanity-sol") + "\n")
	b.WriteString(styleMuted.Render("Grind a keypair with a custom address") + "\n\n")

	row := func(label string, fi int, field string) string {
		lbl := styleLabel
		if m.focusIdx == fi {
			lbl = styleSelected
		}
		return lbl.Width(11).Render(label) + "  " + field + "\n"
	}

	b.WriteString(row("Prefix", fieldPrefix, m.inputs[fieldPrefix].View()))
	b.WriteString(row("Suffix", fieldSuffix, m.inputs[fieldSuffix].View()))
	b.WriteString("\n")
	b.WriteString(row("Workers", fieldWorkers, m.inputs[fieldWorkers].View()))

	box := "[ ]"
	if m.caseSensitive {
		box = styleSuccess.Render("[✓]")
	}
	b.WriteString(row("Case", fieldCase, box+" sensitive"))

	var chains []string
	for i, c := range keys.Chains() {
		if i == m.chainIdx {
			chains = append(chains, styleAccent.Render("‹"+c+"›"))
		} else {
			chains = append(chains, styleMuted.Render(" "+c+" "))
		}
	}
	b.WriteString(row("Chain", fieldChain, strings.Join(chains, " ")))

	b.WriteString("\n")

	src := m.formSource()
	prefix := m.inputs[fieldPrefix].Value()
	suffix := m.inputs[fieldSuffix].Value()
	b.WriteString(renderPreview(src, prefix, suffix))

	if d := src.Difficulty(prefix, suffix, m.caseSensitive); d != nil {
		b.WriteString(styleMuted.Render("  ~1 in " + formatBigInt(d) + "\n"))
	}

	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(styleDanger.Render("  "+m.errMsg) + "\n\n")
	}

	help := styleHelp.PaddingLeft(12)
	b.WriteString(help.Render("up/down/tab move between fields") + "\n")
	b.WriteString(help.Render("space toggles case, ←/→ picks the chain") + "\n")
	b.WriteString(help.Render("enter starts search") + "\n")
	b.WriteString(help.Render("esc/ctrl+c quits"))
	return b.String()
}

// addressShape returns the rendered address length (without any lead) and
// the fixed lead for a chain. Solana addresses are 43 or 44 characters;
// the preview uses the common case.
func addressShape(src keys.Source) (int, string) {
	if src.Chain() == keys.ChainEthereum {
		return 40, "0x"
	}
	return 44, ""
}

// renderPreview builds a colour-coded address skeleton.
func renderPreview(src keys.Source, prefix, suffix string) string {
	addrLen, lead := addressShape(src)
	prefix = src.Trim(prefix)
	if len(prefix)+len(suffix) > addrLen {
		return styleWarn.Render("  pattern is longer than an address") + "\n"
	}

	var b strings.Builder
	b.WriteString(styleMuted.Render("  Preview") + "  " + lead)
	if prefix != "" {
		b.WriteString(styleSuccess.Render(prefix))
	}
	b.WriteString(styleMuted.Render(strings.Repeat("?", addrLen-len(prefix)-len(suffix))))
	if suffix != "" {
		b.WriteString(styleSuccess.Render(suffix))
	}
	b.WriteString("\n")
	return b.String()
}

// ---- Running view ----------------------------------------------------------

func (m Model) viewRunning() string {
	var b strings.Builder

	elapsed := time.Since(m.startTime)
	total := m.search.Attempts()
	rate := grinder.Rate(total, elapsed)

	b.WriteString(styleTitle.Render("vanity-sol") + "  " + m.spinner.View() + "\n")
	b.WriteString(styleMuted.Render("Searching for "+patternDesc(m.search.Config())+" on "+m.source.Chain()) + "\n\n")

	cfg := m.search.Config()
	etaStr := "—"
	if eta := grinder.ETA(m.source.Difficulty(cfg.Prefix, cfg.Suffix, cfg.CaseSensitive), rate); eta > 0 {
		etaStr = grinder.FormatDuration(eta)
	}

	b.WriteString(statRow("Tried", grinder.FormatCount(total)) + "  " + statRow("Rate", fmt.Sprintf("%.0f/s", rate)) + "\n")
	b.WriteString(statRow("Workers", strconv.Itoa(cfg.Workers)) + "  " + statRow("Time", grinder.FormatDuration(elapsed)) + "\n")
	b.WriteString(statRow("ETA", etaStr) + "\n\n")

	b.WriteString(styleHelp.Render("ctrl+c · q  stop search"))
	return b.String()
}

// ---- Results view ----------------------------------------------------------

func (m Model) viewResults() string {
	var b strings.Builder

	rate := grinder.Rate(m.finalTotal, m.finalElapsed)

	b.WriteString(styleTitle.Render("vanity-sol") + "\n")
	switch {
	case m.match != nil:
		b.WriteString(styleSuccess.Render(fmt.Sprintf("Found on attempt %s", grinder.FormatCount(m.match.Attempt))) + "\n")
	case errors.Is(m.runErr, context.Canceled):
		b.WriteString(styleWarn.Render("Stopped before a match") + "\n")
	default:
		b.WriteString(styleDanger.Render(fmt.Sprintf("Search failed: %v", m.runErr)) + "\n")
	}
	b.WriteString(styleMuted.Render(fmt.Sprintf("%s tried  •  %s  •  %.0f keys/s",
		grinder.FormatCount(m.finalTotal), grinder.FormatDuration(m.finalElapsed), rate)) + "\n\n")

	if m.match != nil {
		b.WriteString(fmt.Sprintf("%s  %s\n",
			styleMuted.Render("address:"),
			styleStat.Render(m.match.Keypair.Address)))
		b.WriteString(fmt.Sprintf("%s      %s\n",
			styleMuted.Render("key:"),
			styleKey.Render(truncate(m.match.Keypair.Secret, 24)+"...")))
		b.WriteString("\n")
	}

	if m.infoMsg != "" {
		b.WriteString(styleSuccess.Render("✓ "+m.infoMsg) + "\n\n")
	}
	if m.errMsg != "" {
		b.WriteString(styleDanger.Render("✗ "+m.errMsg) + "\n\n")
	}

	if m.match != nil {
		b.WriteString(styleHelp.Render("s save  n new search  q quit"))
	} else {
		b.WriteString(styleHelp.Render("n new search  q quit"))
	}
	return b.String()
}

// ---- Helpers ---------------------------------------------------------------

func statRow(label, value string) string {
	return styleLabel.Width(8).Render(label) + "  " + styleAccent.Render(value)
}

func patternDesc(cfg grinder.Config) string {
	var parts []string
	if cfg.Prefix != "" {
		parts = append(parts, fmt.Sprintf("prefix %q", cfg.Prefix))
	}
	if cfg.Suffix != "" {
		parts = append(parts, fmt.Sprintf("suffix %q", cfg.Suffix))
	}
	return strings.Join(parts, " + ")
}

// formatBigInt formats a large difficulty number (e.g. 58^6) compactly.
func formatBigInt(n *big.Int) string {
	f, _ := new(big.Float).SetInt(n).Float64()
	switch {
	case f < 1_000:
		return fmt.Sprintf("%.0f", f)
	case f < 1_000_000:
		return fmt.Sprintf("%.1fK", f/1e3)
	case f < 1_000_000_000:
		return fmt.Sprintf("%.2fM", f/1e6)
	case f < 1_000_000_000_000:
		return fmt.Sprintf("%.2fB", f/1e9)
	default:
		return fmt.Sprintf("%.2fT", f/1e12)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
