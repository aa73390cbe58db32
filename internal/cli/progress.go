package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/legtrack/internal/client"
	"github.com/raphaelgruber/legtrack/internal/models"
)

const pollInterval = time.Second

// maxPollErrors tolerates transient status errors, including the window
// where the trigger request has not created the job yet.
const maxPollErrors = 5

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the updated job data
type jobUpdateMsg struct {
	job *models.SyncJob
	err error
}

// progressModel is the bubbletea model for sync progress.
type progressModel struct {
	client    *client.Client
	job       *models.SyncJob
	progress  progress.Model
	theme     Theme
	startedAt time.Time
	pollErrs  int
	done      bool
	quitting  bool
	err       error
}

func newProgressModel(c *client.Client) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return progressModel{
		client:    c,
		progress:  prog,
		theme:     defaultTheme,
		startedAt: time.Now(),
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchStatus()

	case jobUpdateMsg:
		if msg.err != nil {
			m.pollErrs++
			if m.pollErrs >= maxPollErrors {
				m.err = fmt.Errorf("failed to fetch sync status: %w", msg.err)
				m.done = true
				return m, tea.Quit
			}
			return m, tickCmd()
		}
		// A terminal job from before this invocation is a leftover of an
		// earlier run, not ours.
		if msg.job != nil && msg.job.Status.Terminal() && msg.job.StartedAt.Before(m.startedAt) {
			msg.job = nil
		}
		if msg.job == nil {
			// Trigger request still in flight; keep waiting.
			m.pollErrs++
			if m.pollErrs >= maxPollErrors {
				m.err = fmt.Errorf("no sync run appeared")
				m.done = true
				return m, tea.Quit
			}
			return m, tickCmd()
		}
		m.pollErrs = 0
		m.job = msg.job

		if m.job.Status.Terminal() {
			m.done = true
			if m.job.Status == models.JobStatusError {
				m.err = fmt.Errorf("%s", m.job.Error)
			}
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.job == nil {
		return "Starting sync...\n"
	}

	var pct float64
	if m.job.MaxBills > 0 {
		pct = float64(m.job.Processed) / float64(m.job.MaxBills)
	}
	if pct > 1 {
		pct = 1
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d bills · %d new · %d updated · %d errors",
		m.job.Processed, m.job.MaxBills, m.job.Created, m.job.Updated, m.job.Errored)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to detach (the run keeps its progress)")

	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render(
			"\nDetached. Use 'legtrack status' to check on the run.\n")
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Sync failed: %s\n", m.err))
	}

	return m.theme.completedStyle().Render("✓ Sync finished\n")
}

// fetchStatus polls the server for the current job snapshot.
// Runs as a command to avoid blocking Update().
func (m progressModel) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.client.Status(ctx)
		return jobUpdateMsg{job: job, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunSyncProgress runs the interactive progress UI for the active sync run.
// Returns nil on completion or Ctrl+C (detach), error on run failure.
func RunSyncProgress(c *client.Client) error {
	model := newProgressModel(c)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}
	return nil
}
