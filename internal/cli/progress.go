package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/operasoftware/revenueapi-go/internal/client"
	"github.com/operasoftware/revenueapi-go/internal/service"
)

// Theme holds the color scheme for the wait display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
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

// pollMsg carries one observed status check from the wait loop.
type pollMsg struct {
	attempt int
	status  client.JobStatus
	err     error
}

// waitDoneMsg carries the final outcome of the wait loop.
type waitDoneMsg struct {
	outcome service.Outcome
	err     error
}

// waitModel is the bubbletea model for the upload wait display. The
// poll loop itself runs in the upload workflow; the model only renders
// what the loop reports.
type waitModel struct {
	wait     service.WaitConfig
	cancel   context.CancelFunc
	progress progress.Model
	theme    Theme

	attempt int
	status  client.JobStatus
	pollErr error
	outcome service.Outcome
	err     error
	done     bool
	quitting bool
}

// newWaitModel creates a new wait model.
func newWaitModel(wait service.WaitConfig, cancel context.CancelFunc) waitModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return waitModel{
		wait:     wait,
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command.
func (m waitModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case pollMsg:
		m.attempt = msg.attempt
		m.status = msg.status
		m.pollErr = msg.err
		return m, nil

	case waitDoneMsg:
		m.outcome = msg.outcome
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the wait display.
func (m waitModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m waitModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.attempt == 0 {
		return "Submitting upload...\n"
	}

	// Attempts consumed against the budget drive the bar.
	var pct float64
	if m.wait.MaxAttempts > 0 {
		pct = float64(m.attempt) / float64(m.wait.MaxAttempts)
	}

	label := string(m.status)
	if m.pollErr != nil {
		label = "retrying"
	}
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", label))
	counts := fmt.Sprintf("%d/%d checks", m.attempt, m.wait.MaxAttempts)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, hint)
}

// finalView renders the completion message.
func (m waitModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Upload failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render(fmt.Sprintf("\n✓ Job %s succeeded after %d status checks\n",
		m.outcome.JobID, m.outcome.Attempts))
}

// runUploadWithProgress runs submit-and-wait while rendering the
// interactive wait display. The workflow owns the poll loop; its OnPoll
// hook feeds the UI.
func runUploadWithProgress(ctx context.Context, svc *service.UploadService, payload string, reportDate time.Time) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newWaitModel(service.WaitConfig{
		PollInterval: cfg.Upload.PollInterval,
		MaxWait:      cfg.Upload.MaxWait,
		MaxAttempts:  cfg.Upload.MaxAttempts,
	}, cancel))

	svc.OnPoll = func(attempt int, status client.JobStatus, err error) {
		p.Send(pollMsg{attempt: attempt, status: status, err: err})
	}

	var out service.Outcome
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		out, runErr = svc.SubmitAndWait(ctx, payload, reportDate)
		p.Send(waitDoneMsg{outcome: out, err: runErr})
	}()

	final, uiErr := p.Run()
	<-done
	if uiErr != nil {
		return fmt.Errorf("progress UI error: %w", uiErr)
	}

	// Ctrl+C leaves the remote job running; that is not a failure here.
	if m, ok := final.(waitModel); ok && m.quitting {
		if out.JobID != "" {
			fmt.Printf("\nUpload %s continues remotely.\nCheck it with: opera-revenue upload --job-status --job-id %s\n",
				out.JobID, out.JobID)
		}
		return nil
	}

	if runErr != nil {
		return runErr
	}
	fmt.Printf("job %s succeeded after %d status checks in %s\n",
		out.JobID, out.Attempts, out.Elapsed.Round(time.Second))
	return nil
}
