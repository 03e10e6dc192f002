package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/n0ko/message-feed/internal/ledger"
)

const placeholder = "Say something nice…"

// InputKeyMap defines the key bindings for the input component
type InputKeyMap struct {
	Send    key.Binding
	Compose key.Binding
}

// DefaultInputKeyMap returns the default key bindings
func DefaultInputKeyMap() InputKeyMap {
	return InputKeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "post"),
		),
		Compose: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "editor"),
		),
	}
}

// SubmitMsg is sent when Enter is pressed in the input. The input keeps its
// text until the post is confirmed.
type SubmitMsg struct {
	Text string
}

// OpenEditorMsg is sent when the user wants to compose in the external editor
type OpenEditorMsg struct {
	InitialContent string
}

// InputModel is the new message input
type InputModel struct {
	textInput textinput.Model
	width     int
	focused   bool
	styles    *Styles
	keyMap    InputKeyMap
}

// NewInputModel creates a new input model
func NewInputModel(styles *Styles) InputModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	// leave room past the limit so the counter can show an overlong draft
	ti.CharLimit = ledger.MaxTextLength * 2
	ti.Width = 50
	ti.Prompt = "> "

	return InputModel{
		textInput: ti,
		styles:    styles,
		keyMap:    DefaultInputKeyMap(),
	}
}

// Update handles messages for the input component
func (m InputModel) Update(msg tea.Msg) (InputModel, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keyMap.Send):
			text := m.textInput.Value()
			return m, func() tea.Msg {
				return SubmitMsg{Text: text}
			}

		case key.Matches(msg, m.keyMap.Compose):
			content := m.textInput.Value()
			return m, func() tea.Msg {
				return OpenEditorMsg{InitialContent: content}
			}
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View renders the input component
func (m InputModel) View() string {
	style := m.styles.Input
	if m.focused {
		style = m.styles.InputFocused
	}

	m.textInput.PromptStyle = m.styles.InputPrompt
	m.textInput.TextStyle = m.styles.InputText
	m.textInput.PlaceholderStyle = m.styles.InputPlaceholder

	n := len(strings.TrimSpace(m.textInput.Value()))
	counterStyle := m.styles.InputCounter
	if n > ledger.MaxTextLength {
		counterStyle = m.styles.InputOverLimit
	}
	counter := counterStyle.Render(fmt.Sprintf(" %d/%d", n, ledger.MaxTextLength))

	inputView := m.textInput.View()
	spacing := m.width - 4 - lipgloss.Width(inputView) - lipgloss.Width(counter)
	if spacing < 0 {
		spacing = 0
	}

	return style.Width(m.width).Render(inputView + strings.Repeat(" ", spacing) + counter)
}

// SetKeyMap replaces the bindings, used to apply configured keys
func (m *InputModel) SetKeyMap(km InputKeyMap) {
	m.keyMap = km
}

// SetWidth sets the input width
func (m *InputModel) SetWidth(width int) {
	m.width = width
	m.textInput.Width = width - 16 // borders, padding and counter
}

// SetFocused sets the focus state
func (m *InputModel) SetFocused(focused bool) {
	m.focused = focused
	if focused {
		m.textInput.Focus()
	} else {
		m.textInput.Blur()
	}
}

// Value returns the current input value
func (m InputModel) Value() string {
	return m.textInput.Value()
}

// SetValue replaces the input text and moves the cursor to the end
func (m *InputModel) SetValue(value string) {
	m.textInput.SetValue(value)
	m.textInput.CursorEnd()
}

// Reset clears the input
func (m *InputModel) Reset() {
	m.textInput.Reset()
}

// IsFocused returns whether the input is focused
func (m InputModel) IsFocused() bool {
	return m.focused
}
