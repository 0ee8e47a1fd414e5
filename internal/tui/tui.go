// Package tui runs a test session interactively in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/deepteaching86-gif/deepreading/internal/report"
	"github.com/deepteaching86-gif/deepreading/internal/session"
)

// Engine is the part of the session service the program drives.
type Engine interface {
	Start(ctx context.Context, userID string) (*session.StartResult, error)
	Submit(ctx context.Context, in session.SubmitInput) (*session.SubmitResult, error)
	Finalize(ctx context.Context, id string) (*session.FinalResult, error)
}

type phase int

const (
	phaseUser phase = iota
	phaseLoading
	phaseItem
	phaseVerdict
	phaseDone
	phaseError
)

type (
	startedMsg struct {
		res *session.StartResult
		err error
	}
	submittedMsg struct {
		res *session.SubmitResult
		err error
	}
	finalizedMsg struct {
		res *session.FinalResult
		err error
	}
)

// Model is the Bubble Tea model for one test session.
type Model struct {
	ctx    context.Context
	engine Engine
	now    func() time.Time

	phase     phase
	user      textinput.Model
	sessionID string
	item      *session.PresentedItem
	shownAt   time.Time
	choice    choice
	last      *session.SubmitResult
	final     *session.FinalResult
	err       error
}

// New creates a model. An empty userID prompts for one first.
func New(ctx context.Context, engine Engine, userID string) Model {
	ti := textinput.New()
	ti.Placeholder = "Student id"
	ti.CharLimit = 64
	ti.SetValue(userID)
	ti.Focus()

	m := Model{ctx: ctx, engine: engine, now: time.Now, user: ti}
	if userID != "" {
		m.phase = phaseLoading
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.phase == phaseLoading {
		return m.start(m.user.Value())
	}
	return nil
}

func (m Model) start(userID string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.engine.Start(m.ctx, userID)
		return startedMsg{res, err}
	}
}

func (m Model) submit(answer string) tea.Cmd {
	in := session.SubmitInput{
		SessionID:      m.sessionID,
		ItemID:         m.item.ID,
		Answer:         answer,
		ResponseTimeMs: m.now().Sub(m.shownAt).Milliseconds(),
	}
	return func() tea.Msg {
		res, err := m.engine.Submit(m.ctx, in)
		return submittedMsg{res, err}
	}
}

func (m Model) finalize() tea.Cmd {
	id := m.sessionID
	return func() tea.Msg {
		res, err := m.engine.Finalize(m.ctx, id)
		return finalizedMsg{res, err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case startedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.sessionID = msg.res.SessionID
		return m.show(msg.res.FirstItem), nil

	case submittedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.last = msg.res
		m.phase = phaseVerdict
		return m, nil

	case finalizedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.final = msg.res
		m.phase = phaseDone
		return m, nil
	}

	if m.phase == phaseUser {
		var cmd tea.Cmd
		m.user, cmd = m.user.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseUser:
		if msg.String() == "enter" {
			id := strings.TrimSpace(m.user.Value())
			if id == "" {
				return m, nil
			}
			m.phase = phaseLoading
			return m, m.start(id)
		}
		var cmd tea.Cmd
		m.user, cmd = m.user.Update(msg)
		return m, cmd

	case phaseItem:
		switch msg.String() {
		case "enter":
			m.phase = phaseLoading
			return m, m.submit(m.choice.value())
		case "esc":
			return m, tea.Quit
		}
		m.choice = m.choice.update(msg)
		return m, nil

	case phaseVerdict:
		if m.last.Completed() || m.last.PoolExhausted {
			m.phase = phaseLoading
			return m, m.finalize()
		}
		return m.show(m.last.NextItem), nil

	case phaseDone, phaseError:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) show(it *session.PresentedItem) Model {
	m.item = it
	m.choice = newChoice(it.Options)
	m.shownAt = m.now()
	m.phase = phaseItem
	return m
}

func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.phase = phaseError
	return m, nil
}

// Result is the final report, or nil if the session did not finish.
func (m Model) Result() *session.FinalResult {
	return m.final
}

// SessionID is the id of the running session, if started.
func (m Model) SessionID() string {
	return m.sessionID
}

func (m Model) View() tea.View {
	return tea.NewView(m.content())
}

func (m Model) content() string {
	switch m.phase {
	case phaseUser:
		return "Who is taking the test?\n\n" + m.user.View() + "\n\n" + hintStyle.Render("enter to start · ctrl+c to quit")
	case phaseLoading:
		return hintStyle.Render("Working...")
	case phaseItem:
		return report.Item(&session.PresentedItem{
			ID: m.item.ID, Stem: m.item.Stem, Passage: m.item.Passage,
			Domain: m.item.Domain, Stage: m.item.Stage, Panel: m.item.Panel,
		}) + "\n" + m.choice.view() + "\n" + hintStyle.Render("↑↓ or A-D to choose · enter to answer · esc to pause")
	case phaseVerdict:
		return report.Verdict(m.last) + "\n\n" + hintStyle.Render("press any key to continue")
	case phaseDone:
		return report.Final(m.final) + "\n\n" + hintStyle.Render("press any key to exit")
	case phaseError:
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + hintStyle.Render("press any key to exit")
	}
	return ""
}

// Run starts the program and returns the final model state.
func Run(ctx context.Context, engine Engine, userID string) (Model, error) {
	p := tea.NewProgram(New(ctx, engine, userID), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return Model{}, err
	}
	return final.(Model), nil
}
