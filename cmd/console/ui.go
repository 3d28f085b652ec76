package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/boardgame-console/internal/logger"
	"github.com/jwebster45206/boardgame-console/pkg/gateway"
	"github.com/jwebster45206/boardgame-console/pkg/match"
)

// Selector form fields, in tab order.
const (
	fieldPlayers = iota
	fieldDuration
	fieldCategory
	fieldMechanics
	fieldBackground
	fieldSubmit
	fieldCount
)

type keyMap struct {
	Quit     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Left     key.Binding
	Right    key.Binding
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Submit   key.Binding
	Continue key.Binding
	Select   key.Binding
	Copy     key.Binding
	Retry    key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
	Left:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "less")),
	Right:    key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "more")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Submit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
	Continue: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "choose characters")),
	Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy log")),
	Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry start")),
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	session  *match.Session
	logger   *slog.Logger
	copyText func(string) error
	tick     func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
	now      func() time.Time

	width  int
	height int
	ready  bool

	// Selector state
	form        match.SelectorForm
	field       int
	categoryIdx int // -1 until a category is picked
	mechanicIdx int
	duration    textinput.Model
	background  textarea.Model

	// Optimize state
	rulesViewport viewport.Model
	feedback      textarea.Model

	// Character select state
	rosterIdx int

	// Gameplay state
	logViewport viewport.Model
	spinner     spinner.Model

	loading bool
	banner  *match.Transient

	showQuitModal bool
}

type generatedMsg struct{ err error }

type optimizedMsg struct{ err error }

type gameplayStartedMsg struct{ err error }

type roundPlayedMsg struct {
	outcome match.Outcome
	err     error
}

type restartMsg struct{}

type bannerExpiredMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	focusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // grey

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	myPlayerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // teal
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")). // bright green
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Strikethrough(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

func NewConsoleUI(session *match.Session, logger *slog.Logger) ConsoleUI {
	duration := textinput.New()
	duration.Placeholder = "minutes"
	duration.CharLimit = 3
	duration.Width = 6
	duration.SetValue(strconv.Itoa(match.NewSelectorForm().DurationMinutes))

	background := textarea.New()
	background.Placeholder = "Describe the world your game is set in..."
	background.CharLimit = 1000
	background.ShowLineNumbers = false
	background.SetWidth(60)
	background.SetHeight(4)

	feedback := textarea.New()
	feedback.Placeholder = "What should change about these rules?"
	feedback.CharLimit = 1000
	feedback.ShowLineNumbers = false
	feedback.SetWidth(60)
	feedback.SetHeight(3)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	rulesVp := viewport.New(60, 20)
	rulesVp.MouseWheelEnabled = true
	logVp := viewport.New(60, 20)
	logVp.MouseWheelEnabled = true

	return ConsoleUI{
		session:       session,
		logger:        logger,
		copyText:      clipboard.WriteAll,
		tick:          tea.Tick,
		now:           time.Now,
		form:          match.NewSelectorForm(),
		categoryIdx:   -1,
		duration:      duration,
		background:    background,
		rulesViewport: rulesVp,
		feedback:      feedback,
		logViewport:   logVp,
		spinner:       sp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textinput.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bannerExpiredMsg:
		return m, nil

	case generatedMsg:
		m.loading = false
		if msg.err != nil {
			return m, m.showError(msg.err)
		}
		m.field = fieldPlayers
		m.background.Blur()
		m.feedback.Reset()
		m.feedback.Focus()
		m.refreshRules()
		return m, textarea.Blink

	case optimizedMsg:
		m.loading = false
		if msg.err != nil {
			return m, m.showError(msg.err)
		}
		m.feedback.Reset()
		m.refreshRules()
		return m, m.showInfo("Rules updated")

	case gameplayStartedMsg:
		m.loading = false
		m.resize()
		m.refreshLog()
		m.warnUnreachableActions()
		if msg.err != nil {
			return m, m.showError(msg.err)
		}
		return m, nil

	case roundPlayedMsg:
		m.loading = false
		m.refreshLog()
		m.warnUnreachableActions()
		if msg.err != nil {
			return m, m.showError(msg.err)
		}
		if msg.outcome.Restart {
			m.logger.Info("Match finished, restarting", "round", msg.outcome.Round)
			return m, m.tick(msg.outcome.RestartAfter, func(time.Time) tea.Msg { return restartMsg{} })
		}
		return m, m.tick(match.TransientTTL, func(time.Time) tea.Msg { return bannerExpiredMsg{} })

	case restartMsg:
		m.session.Restart()
		m.resetSelector()
		return m, textinput.Blink

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.showQuitModal = true
			return m, nil
		}
	}

	switch m.session.View() {
	case match.ViewSelector:
		return m.updateSelector(msg)
	case match.ViewOptimize:
		return m.updateOptimize(msg)
	case match.ViewCharacterSelect:
		return m.updateCharacterSelect(msg)
	default:
		return m.updateGameplay(msg)
	}
}

func (m ConsoleUI) updateSelector(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateSelectorInputs(msg)
	}

	switch {
	case key.Matches(keyMsg, keys.Next):
		m.focusField((m.field + 1) % fieldCount)
		return m, nil
	case key.Matches(keyMsg, keys.Prev):
		m.focusField((m.field + fieldCount - 1) % fieldCount)
		return m, nil
	case key.Matches(keyMsg, keys.Submit):
		return m.submitSelector()
	}

	switch m.field {
	case fieldPlayers:
		switch {
		case key.Matches(keyMsg, keys.Left) && m.form.Players > 2:
			m.form.Players--
		case key.Matches(keyMsg, keys.Right) && m.form.Players < 5:
			m.form.Players++
		}
		return m, nil

	case fieldCategory:
		n := len(match.GameCategories)
		switch {
		case key.Matches(keyMsg, keys.Left):
			if m.categoryIdx <= 0 {
				m.categoryIdx = n - 1
			} else {
				m.categoryIdx--
			}
		case key.Matches(keyMsg, keys.Right):
			m.categoryIdx = (m.categoryIdx + 1) % n
		}
		return m, nil

	case fieldMechanics:
		n := len(match.GameMechanics)
		switch {
		case key.Matches(keyMsg, keys.Left):
			m.mechanicIdx = (m.mechanicIdx + n - 1) % n
		case key.Matches(keyMsg, keys.Right):
			m.mechanicIdx = (m.mechanicIdx + 1) % n
		case key.Matches(keyMsg, keys.Toggle):
			m.form.ToggleMechanic(match.GameMechanics[m.mechanicIdx])
		}
		return m, nil

	case fieldSubmit:
		if key.Matches(keyMsg, keys.Select) {
			return m.submitSelector()
		}
		return m, nil
	}

	return m.updateSelectorInputs(msg)
}

func (m ConsoleUI) updateSelectorInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var diCmd, bgCmd tea.Cmd
	m.duration, diCmd = m.duration.Update(msg)
	m.background, bgCmd = m.background.Update(msg)
	return m, tea.Batch(diCmd, bgCmd)
}

func (m ConsoleUI) submitSelector() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	form := m.form
	minutes, err := strconv.Atoi(strings.TrimSpace(m.duration.Value()))
	if err != nil {
		return m, m.showError(&gateway.ValidationError{Field: "game_duration", Reason: "must be a whole number of minutes"})
	}
	form.DurationMinutes = minutes
	if m.categoryIdx >= 0 {
		form.Category = match.GameCategories[m.categoryIdx]
	}
	form.Background = m.background.Value()

	if err := form.Validate(); err != nil {
		return m, m.showError(err)
	}

	m.form = form
	m.loading = true
	session := m.session
	return m, tea.Batch(
		func() tea.Msg {
			return generatedMsg{err: session.Generate(context.Background(), form)}
		},
		m.spinner.Tick,
	)
}

func (m ConsoleUI) updateOptimize(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.loading {
		switch {
		case key.Matches(keyMsg, keys.Submit):
			feedback := m.feedback.Value()
			if strings.TrimSpace(feedback) == "" {
				return m, m.showError(&gateway.ValidationError{Field: "feedback", Reason: "required"})
			}
			m.loading = true
			session := m.session
			return m, tea.Batch(
				func() tea.Msg {
					return optimizedMsg{err: session.Optimize(context.Background(), feedback)}
				},
				m.spinner.Tick,
			)

		case key.Matches(keyMsg, keys.Continue):
			if err := m.session.Continue(); err != nil {
				return m, m.showError(err)
			}
			m.feedback.Blur()
			m.rosterIdx = 0
			return m, nil
		}
	}

	var taCmd, vpCmd tea.Cmd
	m.feedback, taCmd = m.feedback.Update(msg)
	m.rulesViewport, vpCmd = m.rulesViewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

func (m ConsoleUI) updateCharacterSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.loading {
		return m, nil
	}

	roster := m.session.Roster()
	switch {
	case key.Matches(keyMsg, keys.Up):
		if m.rosterIdx > 0 {
			m.rosterIdx--
		}
	case key.Matches(keyMsg, keys.Down):
		if m.rosterIdx < len(roster)-1 {
			m.rosterIdx++
		}
	case key.Matches(keyMsg, keys.Select):
		if len(roster) == 0 {
			return m, nil
		}
		if err := m.session.SelectCharacter(roster[m.rosterIdx].Name); err != nil {
			return m, m.showError(err)
		}
		m.loading = true
		session := m.session
		return m, tea.Batch(
			func() tea.Msg {
				return gameplayStartedMsg{err: session.BeginGameplay(context.Background())}
			},
			m.spinner.Tick,
		)
	}
	return m, nil
}

func (m ConsoleUI) updateGameplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}

	engine := m.session.Engine()
	if engine == nil {
		// BeginGameplay failed before the engine existed.
		return m, nil
	}
	snap := engine.Snapshot()

	switch {
	case key.Matches(keyMsg, keys.Copy):
		if err := m.copyText(logText(snap.Log)); err != nil {
			logger.WithError(m.logger, err).Warn("Failed to copy match log")
			return m, m.showError(fmt.Errorf("failed to copy log: %w", err))
		}
		return m, m.showInfo("Match log copied")

	case key.Matches(keyMsg, keys.Retry) && !snap.Started && !m.loading:
		m.loading = true
		session := m.session
		return m, tea.Batch(
			func() tea.Msg {
				return gameplayStartedMsg{err: session.RetryStart(context.Background())}
			},
			m.spinner.Tick,
		)
	}

	if idx, ok := actionIndex(keyMsg); ok && idx < len(snap.Actions) {
		if m.loading || snap.Busy || snap.Over {
			return m, nil
		}
		action := snap.Actions[idx]
		m.loading = true
		session := m.session
		return m, tea.Batch(
			func() tea.Msg {
				out, err := session.Advance(context.Background(), action.Key, action.Label)
				return roundPlayedMsg{outcome: out, err: err}
			},
			m.spinner.Tick,
		)
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

// actionKeys picks actions by position: digits first, then letters.
const actionKeys = "123456789abcdefghijklmnopqrstuvwxyz"

// actionIndex maps an action key to its position in the action set.
func actionIndex(msg tea.KeyMsg) (int, bool) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return 0, false
	}
	i := strings.IndexRune(actionKeys, msg.Runes[0])
	return i, i >= 0
}

// actionKey is the key that picks action i, or "" when there are more
// actions than keys.
func actionKey(i int) string {
	if i < 0 || i >= len(actionKeys) {
		return ""
	}
	return actionKeys[i : i+1]
}

func (m *ConsoleUI) warnUnreachableActions() {
	engine := m.session.Engine()
	if engine == nil {
		return
	}
	if n := len(engine.Snapshot().Actions); n > len(actionKeys) {
		m.logger.Warn("More actions than action keys", "actions", n, "keys", len(actionKeys))
	}
}

func (m *ConsoleUI) focusField(field int) {
	m.field = field
	m.duration.Blur()
	m.background.Blur()
	switch field {
	case fieldDuration:
		m.duration.Focus()
	case fieldBackground:
		m.background.Focus()
	}
}

func (m *ConsoleUI) resetSelector() {
	m.form = match.NewSelectorForm()
	m.categoryIdx = -1
	m.mechanicIdx = 0
	m.duration.SetValue(strconv.Itoa(m.form.DurationMinutes))
	m.background.Reset()
	m.feedback.Reset()
	m.rosterIdx = 0
	m.loading = false
	m.focusField(fieldPlayers)
}

// showError logs err and shows it as a banner. Failures never reach the
// match log. Responses dropped by a restart are only logged.
func (m *ConsoleUI) showError(err error) tea.Cmd {
	var ve *gateway.ValidationError
	switch {
	case errors.Is(err, match.ErrRestarted):
		m.logger.Debug("Dropped response from before restart", "view", m.session.View().String())
		return nil
	case errors.As(err, &ve):
		m.logger.Debug("Rejected input", "field", ve.Field, "reason", ve.Reason)
	default:
		logger.WithError(m.logger, err).Error("Request failed", "view", m.session.View().String())
	}
	return m.setBanner(err.Error(), true)
}

func (m *ConsoleUI) showInfo(text string) tea.Cmd {
	return m.setBanner(text, false)
}

func (m *ConsoleUI) setBanner(text string, isError bool) tea.Cmd {
	m.banner = &match.Transient{
		Text:      text,
		IsError:   isError,
		ExpiresAt: m.now().Add(match.TransientTTL),
	}
	return m.tick(match.TransientTTL, func(time.Time) tea.Msg { return bannerExpiredMsg{} })
}

// resize lays out the viewports for the current window and view.
func (m *ConsoleUI) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	inner := m.width - 6
	if inner < 20 {
		inner = 20
	}
	m.background.SetWidth(min(inner, 80))
	m.feedback.SetWidth(min(inner, 80))

	m.rulesViewport.Width = inner
	m.rulesViewport.Height = max(m.height-14, 5)
	if m.session.View() == match.ViewGameplay {
		m.rulesViewport.Width = sidebarWidth(m.width) - 4
		m.rulesViewport.Height = max(m.height-6, 5)
	}

	m.logViewport.Width = m.width - sidebarWidth(m.width) - 6
	m.logViewport.Height = max(m.height/2-4, 5)

	m.refreshRules()
	m.refreshLog()
}

func (m *ConsoleUI) refreshRules() {
	doc := m.session.Document()
	if doc == nil {
		m.rulesViewport.SetContent("")
		return
	}
	m.rulesViewport.SetContent(renderDocument(doc, m.rulesViewport.Width))
}

func (m *ConsoleUI) refreshLog() {
	engine := m.session.Engine()
	if engine == nil {
		m.logViewport.SetContent("")
		return
	}
	m.logViewport.SetContent(renderLog(engine.Snapshot().Log, m.logViewport.Width))
	m.logViewport.GotoBottom()
}
