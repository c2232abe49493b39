package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RainOrigami/ModIoManager/batch"
)

// installDoneMsg carries the batch results once the worker finishes
type installDoneMsg struct {
	results []batch.Result
}

// installModel controls the UI for the install command
type installModel struct {
	spinner      spinner.Model
	progressChan chan batch.Progress
	resultsChan  chan []batch.Result
	runBatch     func(batch.ProgressFunc) []batch.Result

	// State
	current   batch.Progress
	label     string // name line of the mod currently being processed
	completed []string
	errors    []string
	results   []batch.Result
	done      bool
	batchSize int
}

func newInstallModel(batchSize int, runBatch func(batch.ProgressFunc) []batch.Result) installModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return installModel{
		spinner:      s,
		progressChan: make(chan batch.Progress, 100), // Buffer slightly to avoid blocking
		resultsChan:  make(chan []batch.Result, 1),
		runBatch:     runBatch,
		batchSize:    batchSize,
	}
}

func (m installModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startInstall(),
		m.waitForActivity(),
	)
}

func (m installModel) startInstall() tea.Cmd {
	return func() tea.Msg {
		// Run the batch in a separate goroutine
		go func() {
			results := m.runBatch(func(p batch.Progress) {
				m.progressChan <- p
			})
			close(m.progressChan)
			m.resultsChan <- results
		}()
		return nil
	}
}

func (m installModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.progressChan
		if !ok {
			return installDoneMsg{results: <-m.resultsChan}
		}
		return p
	}
}

func (m installModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case batch.Progress:
		if msg.CurrentIndex > m.current.CurrentIndex && m.label != "" {
			m.completed = append(m.completed, m.label)
		}
		if strings.HasPrefix(msg.Message, "Starting download of ") {
			m.label = strings.TrimSuffix(strings.TrimPrefix(msg.Message, "Starting download of "), "...")
		}
		if strings.HasPrefix(msg.Message, "Failed to install") {
			m.errors = append(m.errors, msg.Message)
		}
		m.current = msg
		return m, m.waitForActivity()

	case installDoneMsg:
		m.done = true
		m.results = msg.results
		return m, tea.Quit
	}

	return m, nil
}

func (m installModel) View() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Installing mods"))
	b.WriteString("\n\n")

	for _, msg := range m.completed {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓ " + msg))
		b.WriteString("\n")
	}
	for _, err := range m.errors {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗ " + err))
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString("Finished.\n")
		return b.String()
	}

	if m.current.BatchSize > 0 {
		b.WriteString(fmt.Sprintf("%s [%d/%d] %s (%d%%)\n",
			m.spinner.View(),
			m.current.CurrentIndex,
			m.current.BatchSize,
			m.current.Message,
			m.current.Percent,
		))
	} else {
		b.WriteString(fmt.Sprintf("%s Preparing...\n", m.spinner.View()))
	}

	b.WriteString("\nPress q to abort\n")
	return b.String()
}
