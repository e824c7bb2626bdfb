package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamalink/mamalink-go/internal/service"
)

// updateModel is a helper that handles the Update return type.
func updateModel(m Model, msg tea.Msg) (Model, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	return newModel.(Model), cmd
}

// keyRunes builds a plain character key message.
func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testPage() *service.NotificationPage {
	return &service.NotificationPage{
		Notifications: []service.Notification{
			{ID: "n-1", Type: service.NotificationLike, ActorName: "Priya", Message: "liked your post", IsRead: false, CreatedAt: time.Now()},
			{ID: "n-2", Type: service.NotificationComment, ActorName: "Dana", Message: "commented", IsRead: true, CreatedAt: time.Now()},
			{ID: "n-3", Type: service.NotificationFollow, ActorName: "Amira", Message: "started following you", IsRead: false, CreatedAt: time.Now()},
		},
		UnreadCount: 2,
		Page:        1,
		Limit:       20,
		Total:       3,
	}
}

// loadFeed loads a page into the model via feedMsg.
func loadFeed(m Model, page *service.NotificationPage, unread int) Model {
	m, _ = updateModel(m, feedMsg{page: page, unread: unread})
	return m
}

func TestModel_FeedLoaded(t *testing.T) {
	model := New(nil)
	assert.True(t, model.loading)

	model = loadFeed(model, testPage(), 2)
	assert.False(t, model.loading)
	require.NotNil(t, model.page)
	assert.Equal(t, 2, model.unread)
	assert.NoError(t, model.err)
}

func TestModel_FeedError(t *testing.T) {
	model := New(nil)
	model, _ = updateModel(model, feedMsg{err: errors.New("connection problem")})
	assert.False(t, model.loading)
	require.Error(t, model.err)
	assert.Contains(t, model.View(), "connection problem")
}

func TestModel_Navigation(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	assert.Equal(t, 0, model.cursorIndex)

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, model.cursorIndex)

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, model.cursorIndex)

	// Bounded at the last row
	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, model.cursorIndex)

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, model.cursorIndex)

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyUp})
	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, model.cursorIndex)
}

func TestModel_SelectToggle(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	assert.Empty(t, model.selected)

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeySpace})
	assert.True(t, model.selected["n-1"])

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeySpace})
	assert.False(t, model.selected["n-1"])
}

func TestModel_SelectSkipsReadNotifications(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	// n-2 is already read; Space must be a no-op there.
	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyDown})
	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeySpace})
	assert.Empty(t, model.selected)
}

func TestModel_MarkReadStartsMutation(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeySpace})
	model, cmd := updateModel(model, keyRunes("r"))
	assert.True(t, model.loading)
	assert.NotNil(t, cmd)
}

func TestModel_MarkReadWithoutSelectionUsesCursor(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	// Cursor on unread n-1, nothing toggled
	model, cmd := updateModel(model, keyRunes("r"))
	assert.True(t, model.loading)
	assert.NotNil(t, cmd)
}

func TestModel_MarkReadOnReadRowIsNoop(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyDown}) // n-2, read
	model, cmd := updateModel(model, keyRunes("r"))
	assert.False(t, model.loading)
	assert.Nil(t, cmd)
}

func TestModel_MarkedRefreshesFeed(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)
	model.selected["n-1"] = true

	model, cmd := updateModel(model, markedMsg{unread: 1})
	assert.Empty(t, model.selected)
	assert.Equal(t, 1, model.unread)
	assert.True(t, model.loading, "feed should reload from the patched cache")
	assert.NotNil(t, cmd)
}

func TestModel_Pagination(t *testing.T) {
	model := New(nil)
	page := testPage()
	page.Total = 50
	model = loadFeed(model, page, 2)

	model, cmd := updateModel(model, keyRunes("n"))
	assert.Equal(t, 2, model.pageNum)
	assert.NotNil(t, cmd)

	model = loadFeed(model, page, 2)
	model, cmd = updateModel(model, keyRunes("p"))
	assert.Equal(t, 1, model.pageNum)
	assert.NotNil(t, cmd)

	// Already on page 1
	model, cmd = updateModel(model, keyRunes("p"))
	assert.Equal(t, 1, model.pageNum)
	assert.Nil(t, cmd)
}

func TestModel_SearchStateSwitch(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	model, _ = updateModel(model, keyRunes("/"))
	assert.Equal(t, StateSearch, model.state)

	model, _ = updateModel(model, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StateFeed, model.state)
}

func TestModel_SearchResults(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)
	model, _ = updateModel(model, keyRunes("/"))

	results := &service.UserPage{
		Users: []service.User{
			{ID: "u-1", Username: "priya_m", DisplayName: "Priya M", FollowerCount: 120},
			{ID: "u-2", Username: "dana_k", DisplayName: "Dana K", FollowerCount: 45, IsFollowing: true},
		},
		Page:  1,
		Limit: 10,
		Total: 2,
	}
	model, _ = updateModel(model, searchMsg{page: results})
	require.NotNil(t, model.searchResults)

	view := model.View()
	assert.Contains(t, view, "Priya M")
	assert.Contains(t, view, "[following]")
}

func TestModel_FollowToggleReflectedInResults(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)
	model, _ = updateModel(model, keyRunes("/"))
	model, _ = updateModel(model, searchMsg{page: &service.UserPage{
		Users: []service.User{{ID: "u-1", DisplayName: "Priya M"}},
	}})

	model, _ = updateModel(model, followedMsg{userID: "u-1", follow: true})
	assert.True(t, model.searchResults.Users[0].IsFollowing)
}

func TestModel_DebounceIgnoresStaleSearches(t *testing.T) {
	model := New(nil)
	model.state = StateSearch
	model.debounceID = 5

	_, cmd := updateModel(model, debounceMsg{query: "old", id: 3})
	assert.Nil(t, cmd, "stale debounce id must not search")

	m2, cmd := updateModel(model, debounceMsg{query: "current", id: 5})
	assert.True(t, m2.loading)
	assert.NotNil(t, cmd)
}

func TestModel_QuitKeys(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	m2, cmd := updateModel(model, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StateQuitting, m2.state)
	assert.NotNil(t, cmd)

	m3, cmd := updateModel(model, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, StateQuitting, m3.state)
	assert.NotNil(t, cmd)
	assert.Empty(t, m3.View())
}

func TestModel_ViewFeed(t *testing.T) {
	model := New(nil)
	model = loadFeed(model, testPage(), 2)

	view := model.View()
	assert.Contains(t, view, "MamaLink Notifications")
	assert.Contains(t, view, "2 unread")
	assert.Contains(t, view, "Priya")
	assert.Contains(t, view, "mark read")
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		cursor    int
		wantStart int
		wantEnd   int
	}{
		{"empty", 0, 0, 0, 0},
		{"fits", 5, 2, 0, 5},
		{"cursor at top", 30, 0, 0, 10},
		{"cursor centered", 30, 15, 10, 20},
		{"cursor at bottom", 30, 29, 20, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := visibleRange(tt.total, tt.cursor)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
