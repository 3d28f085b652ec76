package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/boardgame-console/pkg/match"
	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// actionGlyphs decorate the action buttons in order, wrapping after twelve.
var actionGlyphs = []string{"🌟", "🌿", "♟️", "🎴", "💎", "🎳", "🎭", "🩸", "🏬", "🧙", "🪙", "🎨"}

var titleCaser = cases.Title(language.English)

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	var body string
	switch m.session.View() {
	case match.ViewSelector:
		body = m.renderSelector()
	case match.ViewOptimize:
		body = m.renderOptimize()
	case match.ViewCharacterSelect:
		body = m.renderCharacterSelect()
	default:
		body = m.renderGameplay()
	}

	if banner := m.renderBanner(); banner != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, banner, body)
	}
	return body
}

func (m ConsoleUI) renderBanner() string {
	now := m.now()
	if engine := m.session.Engine(); engine != nil && m.session.View() == match.ViewGameplay {
		if t := engine.Transient(); t != nil {
			return bannerText(t)
		}
	}
	if m.banner.Live(now) {
		return bannerText(m.banner)
	}
	return ""
}

func bannerText(t *match.Transient) string {
	if t.IsError {
		return errorStyle.Render("✖ " + t.Text)
	}
	return successStyle.Render("✔ " + t.Text)
}

func (m ConsoleUI) renderSelector() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BOARD GAME GENERATOR") + "\n\n")

	row := func(field int, label, value string) {
		l := labelStyle.Render(fmt.Sprintf("%-12s", label))
		if m.field == field {
			l = focusedStyle.Render(fmt.Sprintf("%-12s", label))
		}
		b.WriteString(l + " " + value + "\n\n")
	}

	row(fieldPlayers, "Players", fmt.Sprintf("◀ %d ▶", m.form.Players))
	row(fieldDuration, "Duration", m.duration.View()+promptStyle.Render(fmt.Sprintf(" (%d-%d minutes)", match.MinDurationMinutes, match.MaxDurationMinutes)))

	category := promptStyle.Render("select a game type")
	if m.categoryIdx >= 0 {
		category = fmt.Sprintf("◀ %s ▶", titleCaser.String(match.GameCategories[m.categoryIdx]))
	}
	row(fieldCategory, "Game type", category)

	var mech []string
	for i, name := range match.GameMechanics {
		box := "[ ]"
		if m.form.HasMechanic(name) {
			box = "[x]"
		}
		item := box + " " + titleCaser.String(name)
		if m.field == fieldMechanics && i == m.mechanicIdx {
			item = focusedStyle.Render(item)
		}
		mech = append(mech, item)
	}
	row(fieldMechanics, "Mechanics", strings.Join(mech, "\n             "))

	row(fieldBackground, "Background", "\n"+m.background.View())

	submit := "[ Generate ]"
	if m.field == fieldSubmit {
		submit = focusedStyle.Render(submit)
	}
	b.WriteString(submit)
	if m.loading {
		b.WriteString("  " + m.spinner.View() + " Generating rules...")
	}
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render("tab/shift+tab: move • ←/→: change • space: toggle mechanic • ctrl+s: generate • esc: quit"))
	return b.String()
}

func (m ConsoleUI) renderOptimize() string {
	doc := m.session.Document()
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(doc.Name)) + "\n")
	b.WriteString(promptStyle.Render(fmt.Sprintf("rule %s", doc.RuleID)) + "\n\n")
	b.WriteString(panelStyle.Render(m.rulesViewport.View()) + "\n\n")
	b.WriteString(labelStyle.Render("Feedback") + "\n")
	b.WriteString(m.feedback.View() + "\n")
	if m.loading {
		b.WriteString(m.spinner.View() + " Optimizing rules...\n")
	}
	b.WriteString(promptStyle.Render("ctrl+s: optimize • ctrl+n: choose characters • ↑/↓: scroll • esc: quit"))
	return b.String()
}

func (m ConsoleUI) renderCharacterSelect() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CHOOSE YOUR CHARACTER") + "\n\n")

	for i, role := range m.session.Roster() {
		line := fmt.Sprintf("%-14s %s", "["+iconName(role.Icon)+"]", role.Name)
		if i == m.rosterIdx {
			line = focusedStyle.Render("▶ " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
		if role.Ability != "" {
			b.WriteString(promptStyle.Render("    "+role.Ability) + "\n")
		}
	}

	b.WriteString("\n")
	if m.loading {
		b.WriteString(m.spinner.View() + " Starting game...\n")
	}
	b.WriteString(promptStyle.Render("↑/↓: move • enter: play as this character • esc: quit"))
	return b.String()
}

func (m ConsoleUI) renderGameplay() string {
	engine := m.session.Engine()
	if engine == nil {
		return m.spinner.View() + " Setting up the table..."
	}
	snap := engine.Snapshot()
	role, _ := m.session.Selected()

	sideW := sidebarWidth(m.width)
	mainW := m.width - sideW - 4

	var header strings.Builder
	header.WriteString(titleStyle.Render(fmt.Sprintf("You are %s", role.Name)))
	header.WriteString(promptStyle.Render(fmt.Sprintf("   Round %d/%d", snap.Round, match.MaxRounds)))
	if m.loading || snap.Busy {
		header.WriteString("  " + m.spinner.View())
	}

	var main strings.Builder
	main.WriteString(header.String() + "\n\n")
	main.WriteString(renderBoard(m.session.Seats(), max(mainW-4, 20), 9) + "\n\n")

	switch {
	case !snap.Started && !m.loading:
		main.WriteString(errorStyle.Render("The game has not started.") + " " + promptStyle.Render("Press r to retry.") + "\n")
	case !snap.Started:
		main.WriteString(m.spinner.View() + " Starting game...\n")
	default:
		if snap.Prompt != "" {
			main.WriteString(labelStyle.Render(snap.Prompt) + "\n")
		}
		main.WriteString(renderActions(snap.Actions, m.loading || snap.Busy || snap.Over) + "\n")
	}

	main.WriteString("\n" + m.logViewport.View() + "\n")
	main.WriteString(promptStyle.Render("1-9, a-z: choose • ctrl+y: copy log • ↑/↓: scroll log • esc: quit"))

	sidebar := panelStyle.Width(sideW).Render(
		labelStyle.Render("RULES") + "\n" + m.rulesViewport.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", lipgloss.NewStyle().Width(mainW).Render(main.String()))
}

func renderActions(actions []match.Action, disabled bool) string {
	var lines []string
	for i, a := range actions {
		k := actionKey(i)
		if k == "" {
			k = "-"
		}
		line := fmt.Sprintf("%s %s %s", k, actionGlyphs[i%len(actionGlyphs)], a.Label)
		if disabled {
			line = disabledStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderBoard draws the seats on a width x height character grid using their
// percentage positions.
func renderBoard(seats []match.PlayerSeat, width, height int) string {
	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
	}

	for _, seat := range seats {
		label := []rune(seatLabel(seat))
		if len(label) > width {
			label = label[:width]
		}
		row := int(seat.Y * float64(height-1) / 100)
		col := int(seat.X * float64(width) / 100)
		if col+len(label) > width {
			col = width - len(label)
		}
		copy(grid[row][col:], label)
	}

	lines := make([]string, height)
	for y, r := range grid {
		lines[y] = strings.TrimRight(string(r), " ")
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func seatLabel(seat match.PlayerSeat) string {
	if seat.IsHuman() {
		return fmt.Sprintf("[%s] You (%s)", iconName(seat.Icon), seat.Character)
	}
	return fmt.Sprintf("[%s] %s", iconName(seat.Icon), seat.Name)
}

func iconName(icon string) string {
	return strings.TrimSuffix(icon, ".png")
}

func renderDocument(doc *ruledoc.GameDocument, width int) string {
	var b strings.Builder
	if doc.Background != "" {
		b.WriteString(wordwrap.String(doc.Background, max(width, 10)) + "\n\n")
	}
	b.WriteString(labelStyle.Render("Players") + fmt.Sprintf(": %d\n", doc.Players.NumberOfPlayers))
	for _, r := range doc.Players.Roles {
		b.WriteString(wordwrap.String(fmt.Sprintf("• %s: %s", r.Name, r.Ability), max(width, 10)) + "\n")
	}
	b.WriteString("\n" + labelStyle.Render("Rules") + "\n")
	b.WriteString(ruledoc.Render(doc.Rules, width))
	return b.String()
}

func renderLog(entries []match.LogEntry, width int) string {
	var b strings.Builder
	for _, e := range entries {
		line := wordwrap.String(fmt.Sprintf("[%s] %s", e.At.Format("15:04:05"), e.Message), max(width, 10))
		b.WriteString(logStyle(e.Type).Render(line) + "\n")
	}
	return b.String()
}

func logStyle(t match.LogType) lipgloss.Style {
	switch t {
	case match.LogEvent:
		return eventStyle
	case match.LogResult:
		return resultStyle
	case match.LogMyPlayer:
		return myPlayerStyle
	default:
		return systemStyle
	}
}

// logText is the plain-text form of the match log used for the clipboard.
func logText(entries []match.LogEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] (%s) %s\n", e.At.Format("15:04:05"), e.Type, e.Message)
	}
	return b.String()
}

func sidebarWidth(total int) int {
	return max(total/3, 24)
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the table?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}
