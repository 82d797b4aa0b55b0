package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"splitget/internal/downloader"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type tickMsg time.Time

// DoneMsg tells the model that the download has finished.
type DoneMsg struct {
	Err error
}

// Model renders one progress bar per range by polling the sinks returned
// by source.
type Model struct {
	url      string
	source   func() []*downloader.Sink
	progress progress.Model
	start    time.Time
	done     bool
	quitting bool
	err      error
}

func NewModel(url string, source func() []*downloader.Sink) Model {
	return Model{
		url:      url,
		source:   source,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		start:    time.Now(),
	}
}

// Interrupted reports whether the user asked to quit before the download
// finished.
func (m Model) Interrupted() bool {
	return m.quitting && !m.done
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.progress.Width = min(msg.Width-40, 60)
		if m.progress.Width < 10 {
			m.progress.Width = 10
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.quitting = true
		m.err = msg.Err
		return m, tea.Quit

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	default:
		return m, nil
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("splitget") + " " + labelStyle.Render(m.url) + "\n")

	sinks := m.source()
	if sinks == nil {
		if m.err != nil {
			b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
		} else {
			b.WriteString(labelStyle.Render("Probing...") + "\n")
		}
		return b.String()
	}

	for _, s := range sinks {
		label := fmt.Sprintf("Connection %d/%d", s.Index+1, len(sinks))
		counts := fmt.Sprintf("%s / %s", humanize.IBytes(uint64(s.Received())), humanize.IBytes(uint64(s.Target)))
		line := fmt.Sprintf("%-18s %s %s", label, m.progress.ViewAs(fraction(s.Received(), s.Target)), labelStyle.Render(counts))
		if s.Done() {
			line += " " + doneStyle.Render("✓")
		}
		b.WriteString(line + "\n")
	}

	received, target := downloader.Totals(sinks)
	elapsed := time.Since(m.start)
	speed := ""
	if secs := elapsed.Seconds(); secs > 0 {
		speed = humanize.IBytes(uint64(float64(received)/secs)) + "/s"
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("Total %s / %s  %s  %s",
		humanize.IBytes(uint64(received)), humanize.IBytes(uint64(target)), speed, elapsed.Round(time.Second))) + "\n")

	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}
	return b.String()
}

func fraction(received, target int64) float64 {
	if target <= 0 {
		return 1
	}
	return min(float64(received)/float64(target), 1)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
