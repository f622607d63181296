package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	paneov1 "github.com/jamesainslie/paneo/pkg/api/paneo/v1"
	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
)

// callTimeout bounds each poll and cancel call.
const callTimeout = 5 * time.Second

// JobSource is the part of the daemon client the copy view needs.
type JobSource interface {
	CopyStatus(ctx context.Context, jobID string) (*paneov1.Job, error)
	CancelCopy(ctx context.Context, jobID string) (string, error)
}

// jobMsg carries the result of one poll.
type jobMsg struct {
	job *paneov1.Job
	err error
}

// pollMsg asks for the next poll.
type pollMsg struct{}

// cancelMsg reports the outcome of a cancel request.
type cancelMsg struct {
	status string
	err    error
}

// CopyModel shows the progress of one copy job until it reaches a terminal
// state. Ctrl+C cancels the job; a second Ctrl+C leaves without waiting.
type CopyModel struct {
	source   JobSource
	jobID    string
	title    string
	interval time.Duration

	spinner  spinner.Model
	overall  progress.Model
	file     progress.Model
	job      *paneov1.Job
	err      error
	failures int

	canceling bool
	done      bool
	startTime time.Time
	width     int
}

// maxPollFailures is how many consecutive failed polls end the view.
const maxPollFailures = 5

// NewCopyModel creates a copy progress model for jobID.
func NewCopyModel(source JobSource, jobID, title string, interval time.Duration) CopyModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return CopyModel{
		source:    source,
		jobID:     jobID,
		title:     title,
		interval:  interval,
		spinner:   s,
		overall:   progress.New(progress.WithDefaultGradient()),
		file:      progress.New(progress.WithSolidFill(string(accentColor))),
		startTime: time.Now(),
		width:     80,
	}
}

// Init starts the spinner and the first poll.
func (m CopyModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m CopyModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		job, err := m.source.CopyStatus(ctx, m.jobID)
		return jobMsg{job: job, err: err}
	}
}

func (m CopyModel) cancel() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		status, err := m.source.CancelCopy(ctx, m.jobID)
		return cancelMsg{status: status, err: err}
	}
}

func (m CopyModel) schedulePoll() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })
}

// Update handles messages for the copy model.
func (m CopyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.Type != tea.KeyCtrlC {
			return m, nil
		}
		if m.canceling {
			return m, tea.Quit
		}
		m.canceling = true
		return m, m.cancel()

	case cancelMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("cancel: %w", msg.err)
		}
		return m, m.poll()

	case pollMsg:
		return m, m.poll()

	case jobMsg:
		if msg.err != nil {
			m.failures++
			if m.failures >= maxPollFailures {
				m.err = msg.err
				m.done = true
				return m, tea.Quit
			}
			return m, m.schedulePoll()
		}
		m.failures = 0
		m.job = msg.job
		if jobs.Status(msg.job.Status).Terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, m.schedulePoll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// Job returns the last job snapshot, or nil before the first poll.
func (m CopyModel) Job() *paneov1.Job {
	return m.job
}

// Err returns the error that ended the view, if any.
func (m CopyModel) Err() error {
	return m.err
}

// Done reports whether the job reached a terminal state.
func (m CopyModel) Done() bool {
	return m.done
}

// View renders the copy model.
func (m CopyModel) View() string {
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	var p paneov1.Job
	if m.job != nil {
		p = *m.job
	}

	b.WriteString("  ")
	b.WriteString(m.renderStatus(p, contentWidth))
	b.WriteString("\n\n")

	barWidth := contentWidth - 4
	m.overall.Width = barWidth
	m.file.Width = barWidth
	b.WriteString("  ")
	b.WriteString(m.overall.ViewAs(p.Progress.Ratio()))
	b.WriteString("\n")
	if p.Progress.CurrentFileTotalBytes > 0 && !m.done {
		b.WriteString("  ")
		b.WriteString(m.file.ViewAs(p.Progress.FileRatio()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderStats(p, contentWidth))
	b.WriteString("\n")

	if p.Error != "" {
		b.WriteString("\n  ")
		b.WriteString(errorTextStyle.Render(p.Error))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n  ")
		b.WriteString(errorTextStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m CopyModel) renderHeader(width int) string {
	title := titleStyle.Render("  " + m.title)
	hint := mutedTextStyle.Render("[Ctrl+C to cancel]")
	if m.canceling {
		hint = warningTextStyle.Render("[canceling, Ctrl+C to leave]")
	}

	spacing := width - lipgloss.Width(title) - lipgloss.Width(hint)
	if spacing < 1 {
		spacing = 1
	}
	return title + strings.Repeat(" ", spacing) + hint
}

func (m CopyModel) renderStatus(job paneov1.Job, width int) string {
	switch jobs.Status(job.Status) {
	case jobs.StatusCompleted:
		return successTextStyle.Render("Copy complete")
	case jobs.StatusCanceled:
		return warningTextStyle.Render("Copy canceled")
	case jobs.StatusFailed:
		return errorTextStyle.Render("Copy failed")
	}

	current := job.Progress.CurrentFile
	if current == "" {
		current = "preparing"
	}
	return fmt.Sprintf("%s Copying: %s", m.spinner.View(), pathStyle.Render(truncatePath(current, width-20)))
}

func (m CopyModel) renderStats(job paneov1.Job, totalWidth int) string {
	boxWidth := (totalWidth - 10) / 4
	if boxWidth < 12 {
		boxWidth = 12
	}

	p := job.Progress
	pct := "-"
	if v, ok := p.Percent(); ok {
		pct = fmt.Sprintf("%d%%", v)
	}
	filesVal := fmt.Sprintf("%s/%s", humanize.Comma(p.ProcessedFiles), humanize.Comma(p.TotalFiles))
	bytesVal := humanize.IBytes(uint64(max(p.ProcessedBytes, 0)))

	end := time.Now()
	if job.FinishedAt != nil {
		end = *job.FinishedAt
	}
	start := m.startTime
	if !job.StartedAt.IsZero() {
		start = job.StartedAt
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		"  ", renderStatBox("Done", pct, boxWidth),
		" ", renderStatBox("Files", filesVal, boxWidth),
		" ", renderStatBox("Bytes", bytesVal, boxWidth),
		" ", renderStatBox("Time", formatDuration(end.Sub(start)), boxWidth))
}

func renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		center(statsLabelStyle.Render(label), width-4),
		center(statsValueStyle.Render(value), width-4))
	return statsBoxStyle.Width(width).Render(content)
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

// RunCopy shows the progress view until the job finishes or the user leaves.
// It returns the last job snapshot.
func RunCopy(source JobSource, jobID, title string, interval time.Duration) (*paneov1.Job, error) {
	final, err := tea.NewProgram(NewCopyModel(source, jobID, title, interval)).Run()
	if err != nil {
		return nil, err
	}
	m := final.(CopyModel)
	return m.Job(), m.Err()
}
