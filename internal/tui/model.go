// Package tui provides the Bubble Tea typing surface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/keymood/internal/analysis"
	"github.com/verte-zerg/keymood/internal/features"
	"github.com/verte-zerg/keymood/internal/model"
	"github.com/verte-zerg/keymood/internal/recorder"
	"github.com/verte-zerg/keymood/internal/stats"
	"github.com/verte-zerg/keymood/internal/store"
)

const (
	emptySessionNotice = "Please type something first."
	serverErrorNotice  = "Error while contacting server."
	placeholderText    = "Start typing how your day is going..."
)

type keyMap struct {
	Analyze key.Binding
	Reset   key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Analyze: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "analyze")),
	Reset:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "clear")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

type analysisDoneMsg struct {
	result analysis.Result
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	rec      *recorder.Recorder
	analyzer *analysis.Analyzer
	store    *store.Store

	origin time.Time
	now    func() time.Time

	width  int
	height int

	inputRunes []rune

	spinner    spinner.Model
	pending    bool
	pendingReq analysis.Request

	result *analysis.Result
	notice string
}

var (
	textStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	panelStyle       = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
)

// NewModel constructs a typing TUI model. st may be nil when history is disabled.
func NewModel(rec *recorder.Recorder, analyzer *analysis.Analyzer, st *store.Store) *Model {
	return &Model{
		rec:      rec,
		analyzer: analyzer,
		store:    st,
		origin:   time.Now(),
		now:      time.Now,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(currentWordStyle)),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case analysisDoneMsg:
		m.handleResult(msg.result)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Reset):
			m.reset()
			return m, nil
		case key.Matches(msg, keys.Analyze):
			return m, m.analyze()
		}
		m.handleKey(msg)
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	contentWidth := 60
	if m.width > 0 {
		contentWidth = int(float64(m.width) * 0.70)
		if contentWidth < 1 {
			contentWidth = 1
		}
	}

	var text string
	if len(m.inputRunes) == 0 {
		text = pendingStyle.Render(placeholderText)
	} else {
		text = wrapStyledRunes(buildStyledRunes(m.inputRunes, true), contentWidth)
	}
	sections := []string{
		lipgloss.NewStyle().Width(contentWidth).Render(text),
		"",
		panelStyle.Render(m.renderResults()),
	}
	if m.pending {
		sections = append(sections, m.spinner.View()+pendingStyle.Render(" contacting classifier"))
	}
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) nowMs() float64 {
	return float64(m.now().Sub(m.origin)) / float64(time.Millisecond)
}

// handleKey records the key as a press and edits the text buffer.
// Terminals report no key-up transitions, so only presses reach the recorder.
func (m *Model) handleKey(msg tea.KeyMsg) {
	m.rec.OnKeyPress(msg.String(), m.nowMs())
	switch msg.Type {
	case tea.KeyBackspace:
		if len(m.inputRunes) > 0 {
			m.inputRunes = m.inputRunes[:len(m.inputRunes)-1]
		}
	case tea.KeySpace:
		m.inputRunes = append(m.inputRunes, ' ')
	case tea.KeyRunes:
		m.inputRunes = append(m.inputRunes, msg.Runes...)
	}
}

func (m *Model) analyze() tea.Cmd {
	req, err := m.analyzer.Prepare(string(m.inputRunes))
	if err != nil {
		if errors.Is(err, features.ErrEmptySession) {
			m.notice = emptySessionNotice
			return nil
		}
		m.notice = err.Error()
		return nil
	}
	m.notice = ""
	m.pending = true
	m.pendingReq = req

	analyzer := m.analyzer
	run := func() tea.Msg {
		return analysisDoneMsg{result: analyzer.Run(context.Background(), req)}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m *Model) handleResult(res analysis.Result) {
	// A reset or a newer analyze makes this result stale.
	if !m.pending || res.Request.ID != m.pendingReq.ID || !m.analyzer.IsCurrent(res) {
		return
	}
	m.pending = false
	m.result = &res
	if res.Err != nil {
		logErrf("analysis %s: %v\n", res.Request.ID, res.Err)
		m.notice = serverErrorNotice
	}
	m.saveResult(res)
}

func (m *Model) saveResult(res analysis.Result) {
	if m.store == nil {
		return
	}
	rec := model.AnalysisRecord{
		AnalysisID: res.Request.ID,
		CreatedAt:  m.now(),
		Words:      res.Request.Words,
		Features:   res.Request.Features,
		Prediction: res.Prediction,
	}
	if _, err := m.store.InsertAnalysis(context.Background(), rec); err != nil {
		logErrf("failed to save analysis: %v\n", err)
	}
}

func (m *Model) reset() {
	m.rec.Reset()
	m.inputRunes = nil
	m.pending = false
	m.pendingReq = analysis.Request{}
	m.result = nil
	m.notice = ""
}

func (m *Model) renderResults() string {
	emotion, confidence := model.NotAvailable, model.NotAvailable
	wpm, interval, pause := model.NotAvailable, model.NotAvailable, model.NotAvailable
	if m.result != nil {
		emotion = m.result.Prediction.EmotionLabel()
		confidence = m.result.Prediction.ConfidenceLabel()
		fv := m.result.Request.Features
		wpm = stats.FormatFeature(fv.TypingSpeedWPM)
		interval = stats.FormatFeature(fv.AvgKeyIntervalMs)
		pause = stats.FormatFeature(fv.AvgPauseMs)
	}
	rows := [][2]string{
		{"Emotion", emotion},
		{"Confidence", confidence},
		{"Typing speed (WPM)", wpm},
		{"Avg key interval (ms)", interval},
		{"Avg pause (ms)", pause},
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-22s", row[0]))+valueStyle.Render(row[1]))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Keys %d", m.rec.Len())}
	for _, b := range []key.Binding{keys.Analyze, keys.Reset, keys.Quit} {
		help := b.Help()
		segments = append(segments, help.Key+" "+help.Desc)
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
