// Package tui provides a terminal notification browser for MamaLink using
// Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mamalink/mamalink-go/internal/loadstate"
	"github.com/mamalink/mamalink-go/internal/service"
	"github.com/mamalink/mamalink-go/internal/stringutil"
)

const (
	pageSize       = 20
	debounceDelay  = 300 * time.Millisecond
	searchLimit    = 10
	visibleItems   = 10
	requestTimeout = 10 * time.Second
)

// Color constants to avoid duplication (DRY).
const (
	colorPrimary = "#E56B9E"
	colorDim     = "#666666"
	colorError   = "#FF5F87"
	colorHelp    = "#626262"
	colorWhite   = "#FFFFFF"
	colorGreen   = "#87D787"
	colorBlue    = "#87CEEB"
	colorYellow  = "#FFD787"
)

// Styles for the TUI (SST - single source of truth for styling).
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPrimary)).
			MarginBottom(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPrimary)).
			Bold(true)

	itemNormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorWhite))

	itemDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorDim))

	checkboxCheckedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorPrimary)).
				Bold(true)

	checkboxUncheckedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorDim))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorError)).
			MarginTop(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorHelp)).
			MarginTop(1)

	unreadBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorYellow)).
				Bold(true)

	readStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorDim))

	typeLikeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPrimary))
	typeCommentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	typeFollowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen))
	typeMilestoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow))

	followingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGreen))
)

// Key string constants.
const (
	keyCtrlC = "ctrl+c"
	keyEsc   = "esc"
)

// State represents the current UI state.
type State int

// State constants for the TUI lifecycle.
const (
	StateFeed State = iota
	StateSearch
	StateQuitting
)

// ErrTUIUnexpectedModel is returned when the TUI returns an unexpected model type.
var ErrTUIUnexpectedModel = errors.New("unexpected TUI model type")

// ErrNoServices is returned when the model is constructed without services.
var ErrNoServices = errors.New("no services configured")

// Model is the Bubble Tea model for the notification browser.
type Model struct {
	services *service.Services
	tracker  *loadstate.Tracker

	spinner   spinner.Model
	textInput textinput.Model

	state       State
	page        *service.NotificationPage
	pageNum     int
	cursorIndex int
	selected    map[string]bool // notification IDs marked for read
	unread      int

	searchResults *service.UserPage
	searchCursor  int
	lastQuery     string
	debounceID    int

	loading bool
	err     error
	width   int
	height  int
}

// feedMsg carries one fetched notification page plus the unread count.
type feedMsg struct {
	page   *service.NotificationPage
	unread int
	err    error
}

// markedMsg reports the outcome of a mark-as-read mutation.
type markedMsg struct {
	unread int
	err    error
}

// searchMsg carries user search results.
type searchMsg struct {
	page *service.UserPage
	err  error
}

// followedMsg reports the outcome of a follow toggle.
type followedMsg struct {
	userID string
	follow bool
	err    error
}

// debounceMsg is sent after the search debounce delay.
type debounceMsg struct {
	query string
	id    int
}

// New creates a new TUI model.
func New(svcs *service.Services) Model {
	ti := textinput.New()
	ti.Placeholder = "Search mothers..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPrimary))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWhite))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPrimary))

	return Model{
		services:  svcs,
		tracker:   loadstate.NewTracker(),
		spinner:   sp,
		textInput: ti,
		state:     StateFeed,
		pageNum:   1,
		selected:  make(map[string]bool),
		loading:   true,
		width:     80,
		height:    24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.fetchFeed(m.pageNum),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case feedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.page = msg.page
		m.unread = msg.unread
		if m.cursorIndex >= len(m.page.Notifications) {
			m.cursorIndex = 0
		}
		return m, nil

	case markedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.unread = msg.unread
		clear(m.selected)
		// Re-read the patched page from the service cache.
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.fetchFeed(m.pageNum))

	case searchMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.searchResults = msg.page
		if m.searchResults != nil && m.searchCursor >= len(m.searchResults.Users) {
			m.searchCursor = 0
		}
		return m, nil

	case followedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		// The user service cache was patched optimistically; reflect it here.
		if m.searchResults != nil {
			for i := range m.searchResults.Users {
				if m.searchResults.Users[i].ID == msg.userID {
					m.searchResults.Users[i].IsFollowing = msg.follow
				}
			}
		}
		return m, nil

	case debounceMsg:
		if msg.id == m.debounceID {
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchSearch(msg.query))
		}
		return m, nil
	}

	return m, nil
}

// handleKeyMsg processes keyboard input based on current state.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == keyCtrlC {
		m.state = StateQuitting
		return m, tea.Quit
	}

	if m.state == StateSearch {
		return m.handleSearchKeys(msg)
	}
	return m.handleFeedKeys(msg)
}

// handleFeedKeys handles keyboard input in the feed view.
func (m Model) handleFeedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEsc, "q":
		m.state = StateQuitting
		return m, tea.Quit

	case "up", "k":
		if m.cursorIndex > 0 {
			m.cursorIndex--
		}
		return m, nil

	case "down", "j":
		if m.page != nil && m.cursorIndex < len(m.page.Notifications)-1 {
			m.cursorIndex++
		}
		return m, nil

	case " ": // Space - toggle selection
		if m.page == nil || m.cursorIndex >= len(m.page.Notifications) {
			return m, nil
		}
		n := m.page.Notifications[m.cursorIndex]
		if n.IsRead {
			return m, nil
		}
		if m.selected[n.ID] {
			delete(m.selected, n.ID)
		} else {
			m.selected[n.ID] = true
		}
		return m, nil

	case "enter", "r": // Mark selected (or current) as read
		ids := m.selectedIDs()
		if len(ids) == 0 && m.page != nil && m.cursorIndex < len(m.page.Notifications) {
			n := m.page.Notifications[m.cursorIndex]
			if !n.IsRead {
				ids = []string{n.ID}
			}
		}
		if len(ids) == 0 {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.markRead(ids))

	case "a": // Mark everything read
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.markAllRead())

	case "n", "right":
		if m.page != nil && m.pageNum*m.page.Limit < m.page.Total {
			m.pageNum++
			m.cursorIndex = 0
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchFeed(m.pageNum))
		}
		return m, nil

	case "p", "left":
		if m.pageNum > 1 {
			m.pageNum--
			m.cursorIndex = 0
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchFeed(m.pageNum))
		}
		return m, nil

	case "/": // Switch to user search
		m.state = StateSearch
		m.textInput.SetValue("")
		m.lastQuery = ""
		m.searchResults = nil
		m.searchCursor = 0
		m.err = nil
		return m, m.textInput.Focus()

	case "g": // Refresh
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.fetchFeed(m.pageNum))
	}

	return m, nil
}

// handleSearchKeys handles keyboard input in the search view.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		// Back to the feed; a second Esc from the feed quits.
		m.state = StateFeed
		m.textInput.Blur()
		m.err = nil
		return m, nil

	case "up":
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case "down":
		if m.searchResults != nil && m.searchCursor < len(m.searchResults.Users)-1 {
			m.searchCursor++
		}
		return m, nil

	case "enter": // Toggle follow on the highlighted user
		if m.searchResults == nil || m.searchCursor >= len(m.searchResults.Users) {
			return m, nil
		}
		u := m.searchResults.Users[m.searchCursor]
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.toggleFollow(u.ID, !u.IsFollowing))
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)

	newQuery := m.textInput.Value()
	if newQuery != m.lastQuery {
		m.lastQuery = newQuery
		m.debounceID++
		return m, tea.Batch(cmd, m.debounceSearch(newQuery, m.debounceID))
	}

	return m, cmd
}

// selectedIDs returns the IDs toggled for mark-as-read.
func (m Model) selectedIDs() []string {
	ids := make([]string, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	return ids
}

// View renders the UI.
func (m Model) View() string {
	if m.state == StateQuitting {
		return ""
	}
	if m.state == StateSearch {
		return m.viewSearch()
	}
	return m.viewFeed()
}

// viewFeed renders the notification feed.
func (m Model) viewFeed() string {
	var b strings.Builder

	title := "MamaLink Notifications"
	if m.unread > 0 {
		title += unreadBadgeStyle.Render(fmt.Sprintf("  (%d unread)", m.unread))
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View())
		b.WriteString(itemDimStyle.Render(" Loading..."))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + userFacing(m.err)))
		b.WriteString("\n")
	case m.page == nil || len(m.page.Notifications) == 0:
		b.WriteString(itemDimStyle.Render("No notifications"))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderFeedList())
	}

	if m.page != nil && m.page.Total > m.page.Limit {
		totalPages := (m.page.Total + m.page.Limit - 1) / m.page.Limit
		b.WriteString("\n")
		b.WriteString(itemDimStyle.Render(fmt.Sprintf("Page %d/%d", m.pageNum, totalPages)))
	}

	if len(m.selected) > 0 {
		b.WriteString("\n")
		b.WriteString(checkboxCheckedStyle.Render(fmt.Sprintf("Selected: %d", len(m.selected))))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("up/down: navigate | Space: select | r: mark read | a: mark all | n/p: page | /: search | Esc: quit"))

	return b.String()
}

// renderFeedList renders the notification rows around the cursor.
func (m Model) renderFeedList() string {
	var b strings.Builder

	start, end := visibleRange(len(m.page.Notifications), m.cursorIndex)

	if start > 0 {
		b.WriteString(itemDimStyle.Render(fmt.Sprintf("  %d more above", start)))
		b.WriteString("\n")
	}

	now := time.Now()
	for i := start; i < end; i++ {
		n := m.page.Notifications[i]

		var checkbox string
		switch {
		case m.selected[n.ID]:
			checkbox = checkboxCheckedStyle.Render("[x]")
		case n.IsRead:
			checkbox = readStyle.Render("   ")
		default:
			checkbox = checkboxUncheckedStyle.Render("[ ]")
		}

		line := fmt.Sprintf("%s %s %s %s  %s",
			checkbox,
			renderType(n.Type),
			n.ActorName,
			stringutil.Truncate(n.Message, 48),
			itemDimStyle.Render(stringutil.RelativeTime(n.CreatedAt, now)),
		)

		if i == m.cursorIndex {
			b.WriteString(cursorStyle.Render("> ") + line)
		} else if n.IsRead {
			b.WriteString("  " + readStyle.Render(fmt.Sprintf("%s %s", n.ActorName, stringutil.Truncate(n.Message, 48))))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if remaining := len(m.page.Notifications) - end; remaining > 0 {
		b.WriteString(itemDimStyle.Render(fmt.Sprintf("  %d more below", remaining)))
		b.WriteString("\n")
	}

	return b.String()
}

// viewSearch renders the user search view.
func (m Model) viewSearch() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Find mothers to follow"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View())
		b.WriteString(itemDimStyle.Render(" Searching..."))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + userFacing(m.err)))
		b.WriteString("\n")
	case m.searchResults == nil:
		b.WriteString(itemDimStyle.Render("Type to search"))
		b.WriteString("\n")
	case len(m.searchResults.Users) == 0:
		b.WriteString(itemDimStyle.Render("No results found"))
		b.WriteString("\n")
	default:
		for i, u := range m.searchResults.Users {
			badge := ""
			if u.IsFollowing {
				badge = "  " + followingStyle.Render("[following]")
			}
			line := fmt.Sprintf("%s  %s (@%s)  %s%s",
				checkboxUncheckedStyle.Render(stringutil.Initials(u.DisplayName)),
				u.DisplayName,
				u.Username,
				itemDimStyle.Render(fmt.Sprintf("%d followers", u.FollowerCount)),
				badge,
			)
			if i == m.searchCursor {
				b.WriteString(cursorStyle.Render("> " + line))
			} else {
				b.WriteString(itemNormalStyle.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("up/down: navigate | Enter: follow/unfollow | Esc: back"))

	return b.String()
}

// visibleRange returns the window of rows keeping cursor visible.
func visibleRange(total, cursor int) (start, end int) {
	if total == 0 {
		return 0, 0
	}
	if total <= visibleItems {
		return 0, total
	}

	half := visibleItems / 2
	start = cursor - half
	if start < 0 {
		start = 0
	}
	end = start + visibleItems
	if end > total {
		end = total
		start = end - visibleItems
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// renderType renders the per-type notification glyph.
func renderType(kind string) string {
	switch kind {
	case service.NotificationLike:
		return typeLikeStyle.Render("[like]")
	case service.NotificationComment:
		return typeCommentStyle.Render("[comment]")
	case service.NotificationFollow:
		return typeFollowStyle.Render("[follow]")
	case service.NotificationMilestone:
		return typeMilestoneStyle.Render("[milestone]")
	default:
		return itemDimStyle.Render("[" + kind + "]")
	}
}

// userFacing prefers the tracker's friendly message over raw error text.
func userFacing(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// fetchFeed loads one feed page and the unread count through the tracker.
func (m Model) fetchFeed(page int) tea.Cmd {
	svcs := m.services
	tracker := m.tracker
	return func() tea.Msg {
		if svcs == nil {
			return feedMsg{err: ErrNoServices}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		v, err := tracker.Do(ctx, fmt.Sprintf("feed:%d", page), func(ctx context.Context) (any, error) {
			return svcs.Notifications.List(ctx, page, pageSize)
		})
		if err != nil {
			return feedMsg{err: errors.New(tracker.State().UserMessage)}
		}

		unread, err := svcs.Notifications.GetUnreadCount(ctx)
		if err != nil {
			unread = 0
		}
		return feedMsg{page: v.(*service.NotificationPage), unread: unread}
	}
}

// markRead marks the given notifications read.
func (m Model) markRead(ids []string) tea.Cmd {
	svcs := m.services
	tracker := m.tracker
	return func() tea.Msg {
		if svcs == nil {
			return markedMsg{err: ErrNoServices}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := tracker.Do(ctx, "mark-read", func(ctx context.Context) (any, error) {
			return nil, svcs.Notifications.MarkAsRead(ctx, ids)
		})
		if err != nil {
			return markedMsg{err: errors.New(tracker.State().UserMessage)}
		}

		unread, _ := svcs.Notifications.GetUnreadCount(ctx)
		return markedMsg{unread: unread}
	}
}

// markAllRead marks the whole feed read.
func (m Model) markAllRead() tea.Cmd {
	svcs := m.services
	tracker := m.tracker
	return func() tea.Msg {
		if svcs == nil {
			return markedMsg{err: ErrNoServices}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := tracker.Do(ctx, "mark-all-read", func(ctx context.Context) (any, error) {
			return nil, svcs.Notifications.MarkAllAsRead(ctx)
		})
		if err != nil {
			return markedMsg{err: errors.New(tracker.State().UserMessage)}
		}
		return markedMsg{unread: 0}
	}
}

// fetchSearch searches users by the given query.
func (m Model) fetchSearch(query string) tea.Cmd {
	svcs := m.services
	tracker := m.tracker
	return func() tea.Msg {
		if svcs == nil {
			return searchMsg{err: ErrNoServices}
		}
		if strings.TrimSpace(query) == "" {
			return searchMsg{page: nil}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		v, err := tracker.Do(ctx, "search:"+query, func(ctx context.Context) (any, error) {
			return svcs.Users.SearchUsers(ctx, query, 1, searchLimit)
		})
		if err != nil {
			return searchMsg{err: errors.New(tracker.State().UserMessage)}
		}
		return searchMsg{page: v.(*service.UserPage)}
	}
}

// toggleFollow follows or unfollows the given user.
func (m Model) toggleFollow(userID string, follow bool) tea.Cmd {
	svcs := m.services
	tracker := m.tracker
	return func() tea.Msg {
		if svcs == nil {
			return followedMsg{err: ErrNoServices}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := tracker.Do(ctx, "follow:"+userID, func(ctx context.Context) (any, error) {
			if follow {
				return nil, svcs.Follows.FollowUser(ctx, userID)
			}
			return nil, svcs.Follows.UnfollowUser(ctx, userID)
		})
		if err != nil {
			return followedMsg{err: errors.New(tracker.State().UserMessage)}
		}
		return followedMsg{userID: userID, follow: follow}
	}
}

// debounceSearch returns a command that triggers a search after a delay.
func (m Model) debounceSearch(query string, id int) tea.Cmd {
	return tea.Tick(debounceDelay, func(_ time.Time) tea.Msg {
		return debounceMsg{query: query, id: id}
	})
}

// Run starts the TUI.
func Run(svcs *service.Services) error {
	model := New(svcs)
	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if _, ok := finalModel.(Model); !ok {
		return ErrTUIUnexpectedModel
	}
	return nil
}
