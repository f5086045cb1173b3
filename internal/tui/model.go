// Package tui implements the interactive prediction prompt.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
)

// historyLimit bounds how many kept predictions the prompt shows.
const historyLimit = 10

var errInvalidAmount = errors.New("amount must be a number")

// Predictor classifies a single title.
type Predictor interface {
	Predict(title string, amount float64) (string, error)
}

type field int

const (
	fieldTitle field = iota
	fieldAmount
)

// Entry is a prediction the user kept with enter.
type Entry struct {
	Title    string
	Category string
	Amount   float64
}

// Model predicts a category for the title as it is typed.
type Model struct {
	predictor Predictor
	err       error
	keymap    KeyMap
	title     textinput.Model
	amount    textinput.Model
	category  string
	history   []Entry
	focus     field
	width     int
	quitting  bool
}

// NewModel returns a prompt backed by p.
func NewModel(p Predictor) Model {
	title := textinput.New()
	title.Placeholder = "Describe an expense, e.g. starbucks coffee"
	title.CharLimit = 200
	title.Prompt = "Title  › "
	title.Focus()

	amount := textinput.New()
	amount.Placeholder = "0.00"
	amount.CharLimit = 16
	amount.Prompt = "Amount › "

	return Model{
		predictor: p,
		keymap:    DefaultKeyMap(),
		title:     title,
		amount:    amount,
	}
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses and re-predicts after every edit.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.SwitchField):
			return m.switchField(), textinput.Blink
		case key.Matches(msg, m.keymap.Record):
			m.record()
			return m, nil
		case key.Matches(msg, m.keymap.Clear):
			m.title.Reset()
			m.amount.Reset()
			m.focus = fieldAmount
			m = m.switchField()
			m.predict()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.focus == fieldTitle {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.amount, cmd = m.amount.Update(msg)
	}
	m.predict()
	return m, cmd
}

func (m Model) switchField() Model {
	if m.focus == fieldTitle {
		m.focus = fieldAmount
		m.title.Blur()
		m.amount.Focus()
	} else {
		m.focus = fieldTitle
		m.amount.Blur()
		m.title.Focus()
	}
	return m
}

func (m *Model) parseAmount() (float64, error) {
	raw := strings.TrimSpace(m.amount.Value())
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errInvalidAmount
	}
	return v, nil
}

func (m *Model) predict() {
	m.category = ""
	m.err = nil

	if strings.TrimSpace(m.title.Value()) == "" {
		return
	}
	amount, err := m.parseAmount()
	if err != nil {
		m.err = err
		return
	}
	category, err := m.predictor.Predict(m.title.Value(), amount)
	if err != nil {
		m.err = err
		return
	}
	m.category = category
}

func (m *Model) record() {
	if m.category == "" {
		return
	}
	amount, _ := m.parseAmount()
	m.history = append(m.history, Entry{
		Title:    strings.TrimSpace(m.title.Value()),
		Amount:   amount,
		Category: m.category,
	})
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
	m.title.Reset()
	m.amount.Reset()
	m.category = ""
	if m.focus == fieldAmount {
		*m = m.switchField()
	}
}

// Category returns the prediction for the current input, if any.
func (m Model) Category() string {
	return m.category
}

// History returns the kept predictions, oldest first.
func (m Model) History() []Entry {
	return m.history
}

// Err returns the error for the current input, if any.
func (m Model) Err() error {
	return m.err
}

// View renders the prompt.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Expense categorizer"))
	b.WriteString("\n")
	b.WriteString(m.title.View())
	b.WriteString("\n")
	b.WriteString(m.amount.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil && errors.Is(m.err, common.ErrEmptyTitle):
		b.WriteString(cli.SubtleStyle.Render("Start typing to see a category."))
	case m.err != nil:
		b.WriteString(cli.FormatError(m.err.Error()))
	case m.category != "":
		b.WriteString("Category: " + cli.FormatCategory(m.category))
	default:
		b.WriteString(cli.SubtleStyle.Render("Start typing to see a category."))
	}
	b.WriteString("\n")

	if len(m.history) > 0 {
		b.WriteString("\n")
		b.WriteString(cli.BoldStyle.Render("Kept"))
		b.WriteString("\n")
		for i := len(m.history) - 1; i >= 0; i-- {
			e := m.history[i]
			fmt.Fprintf(&b, "  %s %s %s\n",
				e.Title,
				cli.SubtleStyle.Render(fmt.Sprintf("(%.2f)", e.Amount)),
				cli.FormatCategory(e.Category))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.helpView())

	if m.width > 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
	}
	return b.String()
}

func (m Model) helpView() string {
	parts := make([]string, 0, len(m.keymap.ShortHelp()))
	for _, k := range m.keymap.ShortHelp() {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return cli.SubtleStyle.Render(strings.Join(parts, " • "))
}
