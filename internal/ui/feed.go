package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/n0ko/message-feed/internal/feed"
	"github.com/n0ko/message-feed/internal/ledger"
)

// FeedKeyMap adds jump bindings on top of the viewport's own scrolling keys
type FeedKeyMap struct {
	Top    key.Binding
	Bottom key.Binding
}

// DefaultFeedKeyMap returns the default key bindings
func DefaultFeedKeyMap() FeedKeyMap {
	return FeedKeyMap{
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g/home", "newest"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G/end", "oldest"),
		),
	}
}

// FeedModel renders the messages newest first in a scrollable panel
type FeedModel struct {
	viewport viewport.Model
	messages []feed.Message
	poster   ledger.PublicKey
	width    int
	height   int
	focused  bool
	styles   *Styles
	keyMap   FeedKeyMap
}

// NewFeedModel creates a new feed panel model
func NewFeedModel(styles *Styles, poster ledger.PublicKey) FeedModel {
	return FeedModel{
		viewport: viewport.New(0, 0),
		poster:   poster,
		styles:   styles,
		keyMap:   DefaultFeedKeyMap(),
	}
}

// Update handles scrolling while the panel is focused
func (m FeedModel) Update(msg tea.Msg) (FeedModel, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keyMap.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keyMap.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the feed panel
func (m FeedModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.PanelTitleText.Render(fmt.Sprintf("Messages (%d)", len(m.messages))))
	b.WriteString("\n")
	if len(m.messages) == 0 {
		b.WriteString(m.styles.Empty.Render("No messages yet"))
	} else {
		b.WriteString(m.viewport.View())
	}

	style := m.styles.Panel
	if m.focused {
		style = m.styles.PanelActive
	}
	return style.Width(m.width).Height(m.height).Render(b.String())
}

// SetMessages replaces the rendered messages. The view stays pinned to the
// newest message unless the user has scrolled away from it.
func (m *FeedModel) SetMessages(messages []feed.Message) {
	pinned := m.viewport.AtTop()
	offset := m.viewport.YOffset
	m.messages = messages
	m.render()
	if pinned {
		m.viewport.GotoTop()
	} else {
		m.viewport.SetYOffset(offset)
	}
}

func (m *FeedModel) render() {
	cardWidth := m.width - 4
	if cardWidth < 10 {
		cardWidth = 10
	}

	cards := make([]string, 0, len(m.messages))
	for i := len(m.messages) - 1; i >= 0; i-- {
		cards = append(cards, m.renderCard(m.messages[i], cardWidth))
	}
	m.viewport.SetContent(strings.Join(cards, "\n"))
}

func (m FeedModel) renderCard(msg feed.Message, width int) string {
	style := m.styles.Card
	from := msg.From.Short()
	if !m.poster.IsZero() && msg.From == m.poster {
		style = m.styles.CardMine
		from = "you"
	}

	header := m.styles.CardFrom.Render(from) + " " +
		m.styles.CardTime.Render(msg.Created.Local().Format("Jan 2 15:04"))
	return style.Width(width).Render(header + "\n" + sanitize(msg.Text))
}

// Messages returns the rendered messages, oldest first
func (m FeedModel) Messages() []feed.Message {
	return m.messages
}

// SetSize sets the panel dimensions
func (m *FeedModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 2
	m.viewport.Height = max(1, height-1)
	m.render()
}

// SetFocused sets the focus state
func (m *FeedModel) SetFocused(focused bool) {
	m.focused = focused
}
