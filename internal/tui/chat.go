// Package tui is the terminal chat front-end for the dialog engine.
//
// It follows the bubbletea model/update/view loop: every submitted line is
// one dialog turn, and the transcript keeps both sides of the conversation.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/octobees/tablemate/internal/dialog"
	"github.com/octobees/tablemate/internal/entity"
)

const greeting = "Hi! Tell me where and what you'd like to eat. Type 'quit' to leave."

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	botStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
)

type speaker int

const (
	speakerBot speaker = iota
	speakerUser
)

type line struct {
	who  speaker
	text string
}

// Chat is the bubbletea model for one local conversation.
type Chat struct {
	engine *dialog.Manager
	state  *dialog.State
	venues []entity.Venue

	input      textinput.Model
	transcript []line
	lastStep   dialog.Step
	quitting   bool
	width      int
}

// NewChat builds a chat model. The venues slice is shared read-only.
func NewChat(engine *dialog.Manager, owner string, venues []entity.Venue) Chat {
	input := textinput.New()
	input.Placeholder = "e.g. Italian in Berlin for 4 at 7pm"
	input.CharLimit = 500
	input.Width = 60
	input.Focus()

	return Chat{
		engine:     engine,
		state:      &dialog.State{Owner: owner},
		venues:     venues,
		input:      input,
		transcript: []line{{who: speakerBot, text: greeting}},
	}
}

// Init implements tea.Model.
func (c Chat) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (c Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		if msg.Width > 4 {
			c.input.Width = msg.Width - 4
		}
		return c, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			c.quitting = true
			return c, tea.Quit
		case tea.KeyEnter:
			return c.submit()
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c Chat) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(c.input.Value())
	c.input.Reset()
	if text == "" {
		return c, nil
	}
	switch strings.ToLower(text) {
	case "quit", "exit":
		c.quitting = true
		return c, tea.Quit
	}

	c.transcript = append(c.transcript, line{who: speakerUser, text: text})
	reply := c.engine.HandleTurn(context.Background(), c.state, text, c.venues)
	c.transcript = append(c.transcript, line{who: speakerBot, text: reply.Text})
	c.lastStep = reply.Step
	return c, nil
}

// View implements tea.Model.
func (c Chat) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tablemate"))
	b.WriteString("\n\n")
	for _, l := range c.transcript {
		if l.who == speakerUser {
			b.WriteString(userStyle.Render("you › " + l.text))
		} else {
			b.WriteString(botStyle.Render("bot › " + l.text))
		}
		b.WriteString("\n")
	}
	if c.quitting {
		b.WriteString("\nBye!\n")
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString(c.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter to send · esc to quit"))
	b.WriteString("\n")
	return b.String()
}

// State returns the conversation state the chat is driving.
func (c Chat) State() dialog.State {
	return *c.state
}
