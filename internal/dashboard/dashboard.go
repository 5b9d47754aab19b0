// Package dashboard implements the Session Dashboard (C17): an optional
// interactive terminal view subscribed to the Supervisor's (C11)
// iteration-event stream. Purely observational — it never feeds decisions
// back into the loop, and absence of a dashboard changes nothing about
// synthesis behavior. Grounded on the teacher's
// cmd/nerd/chat/campaign.go listenCampaignEvents/listenCampaignProgress
// pattern: a tea.Cmd that blocks on a channel receive and turns each value
// into a tea.Msg, re-armed after every Update.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tcsynth/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// eventMsg wraps one IterationEvent as a tea.Msg.
type eventMsg model.IterationEvent

// streamClosedMsg is sent once the event channel closes (the run finished
// or the dashboard was started after the fact).
type streamClosedMsg struct{}

// Model is the Session Dashboard's bubbletea model.
type Model struct {
	events <-chan model.IterationEvent

	bundleHash  string
	iteration   int
	accumulated int
	targetCount int
	distinctRatio float64
	usingMinimalValidator bool
	lastStage   model.IterationStage
	done        bool
	finalDetail string

	history table.Model
	rows    []table.Row
}

// New builds a dashboard subscribed to events. events should be the same
// channel passed as the Supervisor's Events field.
func New(events <-chan model.IterationEvent) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Iter", Width: 6},
			{Title: "Stage", Width: 22},
			{Title: "Accepted", Width: 10},
			{Title: "Rejected", Width: 10},
			{Title: "Detail", Width: 30},
		}),
		table.WithFocused(false),
		table.WithHeight(12),
	)
	return Model{events: events, history: t}
}

// Init starts listening for the first event.
func (m Model) Init() tea.Cmd {
	return m.listen()
}

// listen returns a tea.Cmd that blocks on the next channel receive,
// mirroring the teacher's listenCampaignEvents — the dashboard only wakes
// when there is something to show, never polling.
func (m Model) listen() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update handles an incoming event or a keypress (q/ctrl+c quits).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case eventMsg:
		m.apply(model.IterationEvent(msg))
		m.history.SetRows(m.rows)
		return m, m.listen()
	case streamClosedMsg:
		m.done = true
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(ev model.IterationEvent) {
	m.bundleHash = ev.BundleHash
	m.iteration = ev.Iteration
	m.lastStage = ev.Stage

	if ev.TargetCount > 0 {
		m.targetCount = ev.TargetCount
	}
	if ev.Accumulated > 0 {
		m.accumulated = ev.Accumulated
	}
	if ev.Stage == model.StageDiversityCheck {
		m.distinctRatio = ev.DistinctRatio
	}
	if ev.Stage == model.StageValidatorReady {
		m.usingMinimalValidator = ev.UsingMinimalValidator
	}

	switch ev.Stage {
	case model.StageSuiteComplete, model.StageSuitePartial, model.StageSuiteFailed:
		m.done = true
		m.finalDetail = ev.Detail
	}

	m.rows = append(m.rows, table.Row{
		fmt.Sprintf("%d", ev.Iteration),
		string(ev.Stage),
		fmt.Sprintf("%d", ev.Accepted),
		fmt.Sprintf("%d", ev.Rejected),
		ev.Detail,
	})
	const maxHistory = 200
	if len(m.rows) > maxHistory {
		m.rows = m.rows[len(m.rows)-maxHistory:]
	}
}

// View renders the current session status and a scrolling history table.
func (m Model) View() string {
	var b strings.Builder

	title := fmt.Sprintf(" tcsynth — suite %s ", truncateHash(m.bundleHash))
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n\n")

	progress := fmt.Sprintf("iteration %d | accumulated %d/%d | diversity %.0f%%",
		m.iteration, m.accumulated, m.targetCount, m.distinctRatio*100)
	if m.usingMinimalValidator {
		progress += " | " + warnStyle.Render("minimal validator")
	}
	b.WriteString(progress + "\n\n")

	b.WriteString(m.history.View())
	b.WriteString("\n")

	if m.done {
		b.WriteString("\n" + renderFinalStatus(m.lastStage, m.finalDetail))
	} else {
		b.WriteString("\n" + dimStyle.Render("press q to detach (the synthesis run itself keeps going)"))
	}
	return b.String()
}

func renderFinalStatus(stage model.IterationStage, detail string) string {
	switch stage {
	case model.StageSuiteComplete:
		return okStyle.Render("suite complete")
	case model.StageSuitePartial:
		return warnStyle.Render(fmt.Sprintf("partial suite: %s", detail))
	case model.StageSuiteFailed:
		return errStyle.Render(fmt.Sprintf("failed: %s", detail))
	default:
		return dimStyle.Render("finished")
	}
}

func truncateHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// Run starts the dashboard's tea.Program and blocks until the user quits
// or the event stream closes. Callers that want --no-ui behavior simply
// never call Run.
func Run(events <-chan model.IterationEvent) error {
	_, err := tea.NewProgram(New(events)).Run()
	return err
}
