// Package tui provides an interactive conversation browser using Bubble Tea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joss/ohc/internal/api"
	ohcstrings "github.com/joss/ohc/internal/strings"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	stoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// View represents the current view mode
type View int

const (
	ViewList View = iota
	ViewDetails
	ViewHelp
)

// Model is the browser model
type Model struct {
	browser *Browser

	// State
	view        View
	convs       []api.Conversation
	selectedIdx int
	pageStack   []string // page IDs leading to the current page
	nextPageID  string
	loading     bool
	err         error
	notice      string
	ready       bool
	quitting    bool

	// Details view
	detail  *api.Conversation
	changes []api.FileChange

	// Components
	spinner spinner.Model
	width   int
	height  int
}

// New creates a browser model backed by the given client.
func New(b *Browser) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		browser: b,
		view:    ViewList,
		spinner: s,
		loading: true,
	}
}

// Init initializes the browser
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.browser.fetchPage("", m.pageSize()),
	)
}

func (m Model) pageSize() int {
	available := m.height - 10
	if available < 5 {
		available = 5
	}
	if available > 20 {
		available = 20
	}
	return available
}

// currentPageID is the page the visible listing was fetched with.
func (m Model) currentPageID() string {
	if len(m.pageStack) == 0 {
		return ""
	}
	return m.pageStack[len(m.pageStack)-1]
}

// pageOffset is the listing offset of the first visible row.
func (m Model) pageOffset() int {
	return len(m.pageStack) * m.pageSize()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.loading && msg.String() != "ctrl+c" && msg.String() != "q" {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			if m.view == ViewList {
				m.quitting = true
				return m, tea.Quit
			}
			m.view = ViewList
			return m, nil
		case "?":
			if m.view == ViewHelp {
				m.view = ViewList
			} else {
				m.view = ViewHelp
			}
			return m, nil
		case "esc":
			m.view = ViewList
			m.notice = ""
			return m, nil
		case "up", "k":
			if m.view == ViewList && m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "down", "j":
			if m.view == ViewList && m.selectedIdx < len(m.convs)-1 {
				m.selectedIdx++
			}
		case "n", "right":
			if m.view == ViewList && m.nextPageID != "" {
				m.loading = true
				m.err = nil
				m.pageStack = append(m.pageStack, m.nextPageID)
				return m, m.browser.fetchPage(m.nextPageID, m.pageSize())
			}
		case "p", "left":
			if m.view == ViewList && len(m.pageStack) > 0 {
				m.loading = true
				m.err = nil
				m.pageStack = m.pageStack[:len(m.pageStack)-1]
				return m, m.browser.fetchPage(m.currentPageID(), m.pageSize())
			}
		case "r":
			if m.view == ViewList {
				m.loading = true
				m.err = nil
				m.notice = ""
				return m, m.browser.fetchPage(m.currentPageID(), m.pageSize())
			}
		case "enter":
			if m.view == ViewList && len(m.convs) > 0 {
				m.loading = true
				m.err = nil
				return m, m.browser.fetchDetails(m.convs[m.selectedIdx].ID)
			}
		case "w":
			if conv := m.selected(); conv != nil && !conv.IsActive() {
				m.loading = true
				m.notice = ""
				return m, m.browser.wake(conv.ID)
			}
		case "d":
			if conv := m.selected(); conv != nil && conv.IsActive() {
				m.loading = true
				m.notice = ""
				return m, m.browser.downloadArchive(conv)
			}
			m.notice = "workspace download needs a running conversation (w to wake)"
		case "t":
			if conv := m.selected(); conv != nil && conv.IsActive() {
				m.loading = true
				m.notice = ""
				return m, m.browser.downloadTrajectory(conv)
			}
			m.notice = "trajectory needs a running conversation (w to wake)"
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case pageMsg:
		m.loading = false
		m.convs = msg.results
		m.nextPageID = msg.nextPageID
		if m.selectedIdx >= len(m.convs) {
			m.selectedIdx = 0
		}

	case detailsMsg:
		m.loading = false
		m.detail = msg.conv
		m.changes = msg.changes
		m.view = ViewDetails

	case wokeMsg:
		m.loading = false
		m.notice = fmt.Sprintf("conversation %s starting", ohcstrings.TruncateNoEllipsis(msg.id, 8))
		// Status changes take a moment; refresh the visible page.
		return m, m.browser.fetchPage(m.currentPageID(), m.pageSize())

	case savedMsg:
		m.loading = false
		m.notice = fmt.Sprintf("saved %s (%d bytes)", msg.path, msg.size)

	case errMsg:
		m.loading = false
		m.err = msg

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) selected() *api.Conversation {
	if m.view == ViewDetails && m.detail != nil {
		return m.detail
	}
	if m.view == ViewList && m.selectedIdx < len(m.convs) {
		return &m.convs[m.selectedIdx]
	}
	return nil
}

// View renders the browser
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready || (m.loading && len(m.convs) == 0) {
		return fmt.Sprintf("\n  %s Loading conversations...", m.spinner.View())
	}

	switch m.view {
	case ViewDetails:
		return m.viewDetails()
	case ViewHelp:
		return m.viewHelp()
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("OpenHands Conversations") + "\n\n")

	if m.loading {
		b.WriteString(fmt.Sprintf("  %s Loading...\n", m.spinner.View()))
	}

	if len(m.convs) == 0 && !m.loading {
		b.WriteString(infoStyle.Render("  No conversations found\n"))
	}

	titleWidth := m.width - 30
	if titleWidth < 20 {
		titleWidth = 20
	}
	for i, conv := range m.convs {
		cursor := "  "
		style := infoStyle
		if i == m.selectedIdx {
			cursor = "> "
			style = activeStyle
		}

		marker := stoppedStyle.Render("●")
		if conv.IsActive() {
			marker = activeStyle.Render("●")
		}

		line := fmt.Sprintf("%s%3d. %s %-8s %s",
			cursor,
			m.pageOffset()+i+1,
			conv.ShortID(),
			conv.DisplayStatus(),
			ohcstrings.Truncate(conv.DisplayTitle(), titleWidth),
		)
		b.WriteString(marker + " " + style.Render(line) + "\n")
	}

	b.WriteString("\n" + infoStyle.Render(fmt.Sprintf("  page %d", len(m.pageStack)+1)))
	if m.nextPageID != "" {
		b.WriteString(infoStyle.Render("  (more available)"))
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render("  "+m.notice) + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("  error: "+m.err.Error()) + "\n")
	}

	b.WriteString(helpStyle.Render("  enter: details │ n/p: page │ w: wake │ d: workspace │ t: trajectory │ r: refresh │ ?: help │ q: quit"))
	return b.String()
}

func (m Model) viewDetails() string {
	var b strings.Builder

	conv := m.detail
	b.WriteString(titleStyle.Render("Conversation") + "\n\n")
	b.WriteString(fmt.Sprintf("  ID:             %s\n", conv.ID))
	b.WriteString(fmt.Sprintf("  Title:          %s\n", conv.DisplayTitle()))

	statusStyle := stoppedStyle
	if conv.IsActive() {
		statusStyle = activeStyle
	}
	b.WriteString(fmt.Sprintf("  Status:         %s\n", statusStyle.Render(conv.DisplayStatus())))
	b.WriteString(fmt.Sprintf("  Runtime:        %s\n", orDash(conv.RuntimeID())))
	b.WriteString(fmt.Sprintf("  Created:        %s\n", orDash(conv.CreatedAt)))
	b.WriteString(fmt.Sprintf("  Last updated:   %s\n", orDash(conv.LastUpdatedAt)))

	b.WriteString("\n" + titleStyle.Render("Changes") + "\n\n")
	if len(m.changes) == 0 {
		b.WriteString(infoStyle.Render("  workspace clean (or runtime stopped)\n"))
	} else {
		shown := m.changes
		limit := m.height - 16
		if limit < 5 {
			limit = 5
		}
		if len(shown) > limit {
			shown = shown[:limit]
		}
		for _, ch := range shown {
			b.WriteString(fmt.Sprintf("  %s %s\n", ch.Status, ch.Path))
		}
		if len(m.changes) > len(shown) {
			b.WriteString(infoStyle.Render(fmt.Sprintf("  … and %d more\n", len(m.changes)-len(shown))))
		}
	}

	if m.notice != "" {
		b.WriteString(noticeStyle.Render("\n  "+m.notice) + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("\n  error: "+m.err.Error()) + "\n")
	}

	b.WriteString(helpStyle.Render("  w: wake │ d: workspace │ t: trajectory │ esc: back │ q: quit"))
	return b.String()
}

func (m Model) viewHelp() string {
	help := `
  NAVIGATION
    j/k, arrows   Move selection
    n/p           Next / previous page
    enter         Conversation details
    r             Refresh listing
    esc           Back to listing

  ACTIONS
    w             Wake (start) the selected conversation
    d             Download the workspace archive
    t             Download the trajectory

  Downloads land in the current directory, named after the
  conversation title.
`
	return titleStyle.Render("Help") + "\n" + infoStyle.Render(help) + helpStyle.Render("\n  press esc to return")
}

func orDash(s string) string {
	if s == "" {
		return "─"
	}
	return s
}

// Run starts the interactive browser.
func Run(b *Browser) error {
	p := tea.NewProgram(New(b), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
