package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/sim"
)

// StepStatus is one progress update from a running simulation.
type StepStatus struct {
	Phase string
	Step  int
	Done  int
	Total int
	MSV   float64
}

// ProgressObserver forwards step counts to a channel without ever blocking
// the simulation; updates are dropped while the receiver is busy.
type ProgressObserver struct {
	ch    chan<- StepStatus
	total int
	done  int
}

func NewProgressObserver(ch chan<- StepStatus, total int) *ProgressObserver {
	return &ProgressObserver{ch: ch, total: total}
}

func (p *ProgressObserver) OnStep(phase string, step int, c *dynamo.Cloud) error {
	p.done++
	s := StepStatus{Phase: phase, Step: step, Done: p.done, Total: p.total, MSV: c.MeanSquaredVelocity()}
	select {
	case p.ch <- s:
	default:
	}
	return nil
}

// RunFunc runs a simulation, reporting each step to progress.
type RunFunc func(ctx context.Context, progress dynamo.Observer) (*sim.Result, error)

type statusMsg StepStatus

type runDoneMsg struct {
	result *sim.Result
	err    error
}

// RunModel is the Bubble Tea model shown while a script renders.
type RunModel struct {
	title     string
	theme     Theme
	total     int
	run       RunFunc
	ctx       context.Context
	cancel    context.CancelFunc
	statusCh  chan StepStatus
	spinner   spinner.Model
	progress  progress.Model
	status    StepStatus
	result    *sim.Result
	err       error
	canceling bool
	done      bool
}

func NewRunModel(ctx context.Context, title string, total int, theme Theme, run RunFunc) RunModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.Secondary)

	p := progress.New(
		progress.WithScaledGradient(string(theme.Primary), string(theme.Secondary)),
		progress.WithoutPercentage(),
	)
	p.Width = 40

	ctx, cancel := context.WithCancel(ctx)
	return RunModel{
		title:    title,
		theme:    theme,
		total:    total,
		run:      run,
		ctx:      ctx,
		cancel:   cancel,
		statusCh: make(chan StepStatus, 64),
		spinner:  s,
		progress: p,
		status:   StepStatus{Total: total},
	}
}

// Result returns the simulation outcome once the program has finished.
func (m RunModel) Result() (*sim.Result, error) {
	if !m.done {
		return nil, fmt.Errorf("%w: run did not finish", dynamo.ErrContextCanceled)
	}
	return m.result, m.err
}

func (m RunModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.start(),
		m.waitForStatus(),
	)
}

func (m RunModel) start() tea.Cmd {
	return func() tea.Msg {
		obs := NewProgressObserver(m.statusCh, m.total)
		result, err := m.run(m.ctx, obs)
		close(m.statusCh)
		return runDoneMsg{result: result, err: err}
	}
}

func (m RunModel) waitForStatus() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.statusCh
		if !ok {
			return nil
		}
		return statusMsg(s)
	}
}

func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// the run goroutine notices between steps and reports back
			m.canceling = true
			m.cancel()
		}
		return m, nil

	case statusMsg:
		m.status = StepStatus(msg)
		return m, m.waitForStatus()

	case runDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.progress.Width = min(max(msg.Width-8, 20), 60)
		return m, nil
	}

	return m, nil
}

func (m RunModel) percent() float64 {
	if m.total <= 0 {
		return 1
	}
	return min(float64(m.status.Done)/float64(m.total), 1)
}

// View renders nothing after a successful run so the summary printed next
// starts on a clean screen; a failed or canceled run leaves one status line.
func (m RunModel) View() string {
	if m.done {
		switch {
		case m.err == nil:
			return ""
		case errors.Is(m.err, dynamo.ErrContextCanceled):
			return StatusCanceled.Render("canceled, nothing saved") + "\n"
		default:
			return StatusFailed.Render("failed: "+m.err.Error()) + "\n"
		}
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(GradientText(m.title, m.theme.Primary, m.theme.Secondary)) + "\n\n")

	phase := m.status.Phase
	if phase == "" {
		phase = "starting"
	}
	state := StatusRunning.Render(phase)
	if m.canceling {
		state = StatusCanceled.Render("canceling")
	}
	fmt.Fprintf(&b, "%s %s  %s\n", m.spinner.View(), state,
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render(fmt.Sprintf("step %d/%d", m.status.Done, m.total)))
	b.WriteString(m.progress.ViewAs(m.percent()) + "\n")
	fmt.Fprintf(&b, "%s %s\n\n", MetricLabel.Render("<|v|²>"), MetricValue.Render(fmt.Sprintf("%.4f", m.status.MSV)))
	b.WriteString(KeyHint.Render("q to cancel"))
	return b.String()
}
