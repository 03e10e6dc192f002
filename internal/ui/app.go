package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/n0ko/message-feed/internal/client"
	"github.com/n0ko/message-feed/internal/config"
	"github.com/n0ko/message-feed/internal/feed"
	"github.com/n0ko/message-feed/internal/idle"
	"github.com/n0ko/message-feed/internal/ledger"
)

const (
	title = "Message Feed"

	loadRetryDelay = time.Second
	snackTimeout   = 4 * time.Second

	snackPosted     = "Message posted"
	snackPostFailed = "An error occurred when posting the message"
	snackBusy       = "Unable to post message, please retry when not busy"
	snackNotLoaded  = "The feed has not loaded yet, please retry shortly"
)

// FocusedPanel represents which panel is currently focused
type FocusedPanel int

const (
	PanelInput FocusedPanel = iota
	PanelFeed
)

// FeedClient is what the app needs from the ledger side
type FeedClient interface {
	Connect(ctx context.Context) (feed.Config, error)
	Refresh(ctx context.Context, messages []feed.Message) ([]feed.Message, error)
	Post(ctx context.Context, text string, messages []feed.Message) ([]feed.Message, error)
	Cached() ([]feed.Message, ledger.PublicKey)
	EventChannel() <-chan client.Event
	ConfigURL() string
	Poster() ledger.PublicKey
}

// AppKeyMap defines the global key bindings
type AppKeyMap struct {
	Quit    key.Binding
	Tab     key.Binding
	Refresh key.Binding
	Share   key.Binding
	Close   key.Binding
}

// KeyMapFromConfig builds an AppKeyMap from the configuration
func KeyMapFromConfig(cfg *config.Config) AppKeyMap {
	kb := cfg.Keybinds.Global
	return AppKeyMap{
		Quit: key.NewBinding(
			key.WithKeys(kb.Quit, "ctrl+c"),
			key.WithHelp(kb.Quit, "quit"),
		),
		Tab: key.NewBinding(
			key.WithKeys(kb.NextPanel),
			key.WithHelp(kb.NextPanel, "switch panel"),
		),
		Refresh: key.NewBinding(
			key.WithKeys(kb.Refresh),
			key.WithHelp(kb.Refresh, "refresh"),
		),
		Share: key.NewBinding(
			key.WithKeys(kb.Share),
			key.WithHelp(kb.Share, "share"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
	}
}

// App is the main application model
type App struct {
	cfg    *config.Config
	styles *Styles
	keyMap AppKeyMap

	focusedPanel FocusedPanel
	width        int
	height       int

	// Feed state. busy is held while a refresh or post is in flight.
	busy       bool
	loaded     bool
	live       bool
	messages   []feed.Message
	first      ledger.PublicKey
	generation int
	idle       *idle.Detector

	snack   string
	snackID int
	sharing bool

	spinner spinner.Model
	feed    FeedModel
	input   InputModel

	client FeedClient
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a new application instance. The last cached feed is shown
// until the node answers.
func NewApp(cfg *config.Config, cl FeedClient) *App {
	ctx, cancel := context.WithCancel(context.Background())
	styles := StylesFromTheme(cfg.Theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	input := NewInputModel(styles)
	input.SetKeyMap(InputKeyMap{
		Send: DefaultInputKeyMap().Send,
		Compose: key.NewBinding(
			key.WithKeys(cfg.Keybinds.Global.Compose),
			key.WithHelp(cfg.Keybinds.Global.Compose, "editor"),
		),
	})
	input.SetFocused(true)

	a := &App{
		cfg:     cfg,
		styles:  styles,
		keyMap:  KeyMapFromConfig(cfg),
		busy:    true,
		idle:    idle.New(cfg.IdleTimeout, idle.DefaultDebounce, time.Now()),
		spinner: sp,
		feed:    NewFeedModel(styles, cl.Poster()),
		input:   input,
		client:  cl,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}

	a.messages, a.first = cl.Cached()
	a.feed.SetMessages(a.messages)
	return a
}

// Init starts loading the feed
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.spinner.Tick,
		a.load(),
		a.checkIdle(),
		a.listenForEvents(),
	)
}

// Update handles all application messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		cmds = append(cmds, a.activity())

	case tea.KeyMsg:
		cmds = append(cmds, a.activity())
		if cmd, handled := a.handleKey(msg); handled {
			return a, tea.Batch(append(cmds, cmd)...)
		}

	case loadMsg:
		return a, a.load()

	case loadedMsg:
		return a, a.handleLoaded(msg)

	case refreshTickMsg:
		return a, a.handleRefreshTick(msg)

	case refreshedMsg:
		return a, a.handleRefreshed(msg)

	case SubmitMsg:
		return a, a.handleSubmit(msg.Text)

	case postedMsg:
		return a, a.handlePosted(msg)

	case idleCheckMsg:
		if a.idle.Check(a.now()) {
			log.Info().Msg("user is idle")
			return a, nil
		}
		if a.idle.Idle() {
			return a, nil
		}
		return a, a.checkIdle()

	case snackTimeoutMsg:
		if msg.id == a.snackID {
			a.snack = ""
		}
		return a, nil

	case client.Event:
		return a, tea.Batch(a.handleClientEvent(msg), a.listenForEvents())

	case OpenEditorMsg:
		return a, StartEditorCmd(a.cfg, msg.InitialContent)

	case EditorResultMsg:
		if msg.Err != nil {
			log.Error().Err(msg.Err).Msg("editor failed")
			return a, a.showSnack(fmt.Sprintf("Editor error: %v", msg.Err))
		}
		a.input.SetValue(msg.Content)
		a.focusPanel(PanelInput)
		return a, nil

	case EditorCancelledMsg:
		return a, a.showSnack("Message cancelled")
	}

	switch a.focusedPanel {
	case PanelInput:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		cmds = append(cmds, cmd)
	case PanelFeed:
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// handleKey handles keys that are not meant for the focused component
func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, a.keyMap.Quit) {
		a.cancel()
		return tea.Quit, true
	}

	if a.sharing {
		if key.Matches(msg, a.keyMap.Close, a.keyMap.Share) {
			a.sharing = false
		}
		return nil, true
	}

	switch {
	case key.Matches(msg, a.keyMap.Tab):
		if a.focusedPanel == PanelInput {
			a.focusPanel(PanelFeed)
		} else {
			a.focusPanel(PanelInput)
		}
		return nil, true

	case key.Matches(msg, a.keyMap.Refresh):
		return a.nudge(), true

	case key.Matches(msg, a.keyMap.Share):
		a.sharing = true
		return nil, true

	case key.Matches(msg, a.keyMap.Close):
		if a.snack != "" {
			a.snack = ""
			return nil, true
		}
	}
	return nil, false
}

func (a *App) load() tea.Cmd {
	return func() tea.Msg {
		cfg, err := a.client.Connect(a.ctx)
		return loadedMsg{cfg: cfg, err: err}
	}
}

func (a *App) handleLoaded(msg loadedMsg) tea.Cmd {
	if msg.err != nil {
		log.Error().Err(msg.err).Msg("failed to load")
		return tea.Tick(loadRetryDelay, func(time.Time) tea.Msg {
			return loadMsg{}
		})
	}

	log.Info().Str("url", msg.cfg.URL).Msg("cluster rpc url")
	if msg.cfg.FirstMessage != a.first {
		a.setMessages(nil)
	}
	a.first = msg.cfg.FirstMessage
	a.loaded = true
	a.busy = false
	return a.periodicRefresh()
}

// periodicRefresh starts a new refresh loop. Ticks of older loops are ignored.
func (a *App) periodicRefresh() tea.Cmd {
	a.generation++
	gen := a.generation
	return func() tea.Msg {
		return refreshTickMsg{generation: gen}
	}
}

func (a *App) scheduleRefresh() tea.Cmd {
	if a.idle.Idle() {
		return nil
	}
	gen := a.generation
	return tea.Tick(a.cfg.PollInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{generation: gen}
	})
}

func (a *App) handleRefreshTick(msg refreshTickMsg) tea.Cmd {
	if msg.generation != a.generation {
		return nil
	}
	if a.busy {
		return a.scheduleRefresh()
	}
	a.busy = true
	return a.refresh(true)
}

// nudge refreshes outside the timer loop, e.g. on a ledger notification
func (a *App) nudge() tea.Cmd {
	if !a.loaded || a.busy {
		return nil
	}
	a.busy = true
	return a.refresh(false)
}

func (a *App) refresh(scheduled bool) tea.Cmd {
	gen := a.generation
	messages := a.messages
	return func() tea.Msg {
		updated, err := a.client.Refresh(a.ctx, messages)
		return refreshedMsg{
			messages:   updated,
			err:        err,
			generation: gen,
			scheduled:  scheduled,
		}
	}
}

func (a *App) handleRefreshed(msg refreshedMsg) tea.Cmd {
	a.busy = false
	if msg.err != nil {
		log.Error().Err(msg.err).Msg("periodic refresh failed")
	}
	if len(msg.messages) > len(a.messages) {
		a.setMessages(msg.messages)
	}
	if msg.scheduled && msg.generation == a.generation {
		return a.scheduleRefresh()
	}
	return nil
}

func (a *App) handleSubmit(text string) tea.Cmd {
	if a.busy {
		return a.showSnack(snackBusy)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(a.messages) == 0 {
		return a.showSnack(snackNotLoaded)
	}

	a.busy = true
	messages := a.messages
	return func() tea.Msg {
		updated, err := a.client.Post(a.ctx, text, messages)
		return postedMsg{messages: updated, err: err}
	}
}

func (a *App) handlePosted(msg postedMsg) tea.Cmd {
	a.busy = false
	if len(msg.messages) > len(a.messages) {
		a.setMessages(msg.messages)
	}
	if msg.err != nil {
		log.Error().Err(msg.err).Msg("failed to post message")
		return a.showSnack(snackPostFailed)
	}
	a.input.Reset()
	return a.showSnack(snackPosted)
}

// activity records user input and resumes polling after an idle period
func (a *App) activity() tea.Cmd {
	if !a.idle.Activity(a.now()) {
		return nil
	}
	log.Info().Msg("user is active")
	cmds := []tea.Cmd{a.checkIdle()}
	if a.loaded {
		cmds = append(cmds, a.periodicRefresh())
	}
	return tea.Batch(cmds...)
}

func (a *App) checkIdle() tea.Cmd {
	wait := a.idle.Remaining(a.now())
	if wait <= 0 {
		wait = time.Millisecond
	}
	return tea.Tick(wait, func(time.Time) tea.Msg {
		return idleCheckMsg{}
	})
}

func (a *App) showSnack(text string) tea.Cmd {
	a.snack = text
	a.snackID++
	id := a.snackID
	return tea.Tick(snackTimeout, func(time.Time) tea.Msg {
		return snackTimeoutMsg{id: id}
	})
}

func (a *App) setMessages(messages []feed.Message) {
	a.messages = messages
	a.feed.SetMessages(messages)
}

// handleClientEvent handles events from the client
func (a *App) handleClientEvent(evt client.Event) tea.Cmd {
	switch evt.Type {
	case client.EventTypeConnected:
		a.live = true
	case client.EventTypeDisconnected:
		a.live = false
	case client.EventTypeNewMessages:
		return a.nudge()
	case client.EventTypeError:
		log.Error().Err(evt.Error).Msg("client error")
	}
	return nil
}

// listenForEvents waits for the next client event
func (a *App) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.ctx.Done():
			return nil
		case evt, ok := <-a.client.EventChannel():
			if !ok {
				return nil
			}
			return evt
		}
	}
}

func (a *App) focusPanel(panel FocusedPanel) {
	a.focusedPanel = panel
	a.input.SetFocused(panel == PanelInput)
	a.feed.SetFocused(panel == PanelFeed)
}

func (a *App) updateSizes() {
	// status bar, input box and help line take five rows, panel borders two
	a.input.SetWidth(a.width - 2)
	a.feed.SetSize(a.width-2, a.height-7)
}

// View renders the application
func (a *App) View() string {
	if a.sharing {
		return a.renderShare()
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		a.renderStatusBar(),
		a.input.View(),
		a.feed.View(),
		a.renderBottomBar(),
	)

	return lipgloss.NewStyle().
		MaxHeight(a.height).
		MaxWidth(a.width).
		Render(content)
}

func (a *App) renderStatusBar() string {
	left := a.styles.Title.Render(title)

	var indicators []string
	if a.idle.Idle() {
		indicators = append(indicators, a.styles.Paused.Render("⏸ paused"))
	}
	if a.busy && !a.idle.Idle() {
		indicators = append(indicators, a.spinner.View())
	}
	switch {
	case !a.loaded:
		indicators = append(indicators, a.styles.Offline.Render("connecting…"))
	case a.live:
		indicators = append(indicators, a.styles.Live.Render("● live"))
	default:
		indicators = append(indicators, a.styles.Offline.Render("○ polling"))
	}
	right := strings.Join(indicators, " ")

	spacing := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if spacing < 1 {
		spacing = 1
	}
	return a.styles.StatusBar.Width(a.width).Render(left + strings.Repeat(" ", spacing) + right)
}

func (a *App) renderBottomBar() string {
	if a.snack != "" {
		return a.styles.Snack.Width(a.width).Render(a.snack)
	}

	km := a.keyMap
	var help string
	switch a.focusedPanel {
	case PanelInput:
		help = fmt.Sprintf("enter: post | %s: editor | %s: feed | %s: refresh | %s: share | %s: quit",
			a.cfg.Keybinds.Global.Compose, km.Tab.Help().Key, km.Refresh.Help().Key, km.Share.Help().Key, km.Quit.Help().Key)
	case PanelFeed:
		help = fmt.Sprintf("↑/k ↓/j: scroll | g/G: newest/oldest | %s: input | %s: refresh | %s: quit",
			km.Tab.Help().Key, km.Refresh.Help().Key, km.Quit.Help().Key)
	}
	return a.styles.HelpBar.Width(a.width).Render(help)
}

// Close stops the app's background commands
func (a *App) Close() {
	a.cancel()
}

// Message types for internal communication
type loadMsg struct{}

type loadedMsg struct {
	cfg feed.Config
	err error
}

type refreshTickMsg struct {
	generation int
}

type refreshedMsg struct {
	messages   []feed.Message
	err        error
	generation int
	scheduled  bool
}

type postedMsg struct {
	messages []feed.Message
	err      error
}

type idleCheckMsg struct{}

type snackTimeoutMsg struct {
	id int
}
