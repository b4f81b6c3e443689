package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vvka-141/pgingest/internal/logging"
)

type fetchMsg struct {
	transferred int64
	total       int64
}

type batchMsg struct {
	index   int
	rows    int64
	elapsed time.Duration
}

type logMsg string

type doneMsg struct{}

// progressModel renders one ingestion run: a download line while the CSV
// arrives, then a running total of loaded batches.
type progressModel struct {
	title       string
	spinner     spinner.Model
	fetching    bool
	transferred int64
	total       int64
	batches     int
	rows        int64
	lastElapsed time.Duration
	done        bool
}

func newProgressModel(title string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return progressModel{title: title, spinner: s, total: -1}
}

// Init implements tea.Model.
func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchMsg:
		m.fetching = true
		m.transferred = msg.transferred
		m.total = msg.total
	case batchMsg:
		m.fetching = false
		m.batches = msg.index + 1
		m.rows += msg.rows
		m.lastElapsed = msg.elapsed
	case logMsg:
		return m, tea.Println(string(msg))
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m progressModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.spinner.View())
	b.WriteString(" ")

	switch {
	case m.batches > 0:
		fmt.Fprintf(&b, "Loaded %d rows in %d batches", m.rows, m.batches)
		b.WriteString(MutedStyle.Render(fmt.Sprintf(" (last batch %.3f seconds)", m.lastElapsed.Seconds())))
	case m.fetching:
		b.WriteString(downloadStatus(m.transferred, m.total))
	default:
		b.WriteString(MutedStyle.Render("Waiting for data"))
	}
	b.WriteString("\n")
	return b.String()
}

func downloadStatus(transferred, total int64) string {
	if total <= 0 {
		return "Downloading " + logging.FormatBytes(transferred)
	}
	fraction := float64(transferred) / float64(total)
	return fmt.Sprintf("%s %3.0f%% %s of %s",
		renderBar(fraction, DefaultBarWidth),
		fraction*100,
		logging.FormatBytes(transferred),
		logging.FormatBytes(total))
}

func renderBar(fraction float64, width int) string {
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction * float64(width))
	return BarFilledStyle.Render(strings.Repeat(SymbolBarFull, filled)) +
		BarEmptyStyle.Render(strings.Repeat(SymbolBarEmpty, width-filled))
}
