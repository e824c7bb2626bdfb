package service

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Mock generators used when mock mode is active and no mock endpoint is
// registered. Shapes are deterministic, content is randomized, so consumers
// cannot tell the modes apart.

var notificationTypes = []string{
	NotificationLike,
	NotificationComment,
	NotificationFollow,
	NotificationMilestone,
}

func mockNotificationID(page, i int) string {
	return fmt.Sprintf("ntf-%03d%03d", page, i)
}

func mockNotificationPage(page, limit int) *NotificationPage {
	notifications := make([]Notification, limit)
	unread := 0
	for i := range notifications {
		kind := notificationTypes[gofakeit.Number(0, len(notificationTypes)-1)]
		isRead := gofakeit.Bool()
		if !isRead {
			unread++
		}
		notifications[i] = Notification{
			ID:        mockNotificationID(page, i),
			Type:      kind,
			ActorID:   gofakeit.UUID(),
			ActorName: gofakeit.Name(),
			Message:   mockNotificationMessage(kind),
			IsRead:    isRead,
			CreatedAt: gofakeit.DateRange(time.Now().Add(-72*time.Hour), time.Now()),
		}
	}
	return &NotificationPage{
		Notifications: notifications,
		UnreadCount:   unread,
		Page:          page,
		Limit:         limit,
		Total:         limit * 5,
	}
}

func mockNotificationMessage(kind string) string {
	switch kind {
	case NotificationLike:
		return "liked your post"
	case NotificationComment:
		return "commented: " + gofakeit.Sentence(6)
	case NotificationFollow:
		return "started following you"
	default:
		return "celebrated a milestone: " + gofakeit.Sentence(4)
	}
}

func mockAvatarURL() string {
	return fmt.Sprintf("https://cdn.mamalink.app/avatars/%s.png", gofakeit.UUID())
}

func mockUser(id string) *User {
	u := mockMyProfile()
	u.ID = id
	u.IsFollowing = gofakeit.Bool()
	return u
}

func mockMyProfile() *User {
	ages := make([]string, gofakeit.Number(1, 3))
	for i := range ages {
		ages[i] = fmt.Sprintf("%dy", gofakeit.Number(0, 12))
	}
	return &User{
		ID:             gofakeit.UUID(),
		Username:       gofakeit.Username(),
		DisplayName:    gofakeit.Name(),
		Bio:            gofakeit.Sentence(10),
		AvatarURL:      mockAvatarURL(),
		ChildAges:      ages,
		FollowerCount:  gofakeit.Number(0, 2000),
		FollowingCount: gofakeit.Number(0, 800),
		CreatedAt:      gofakeit.DateRange(time.Now().AddDate(-3, 0, 0), time.Now()),
	}
}

func mockUserPage(page, limit int) *UserPage {
	users := make([]User, limit)
	for i := range users {
		users[i] = *mockUser(gofakeit.UUID())
	}
	return &UserPage{
		Users: users,
		Page:  page,
		Limit: limit,
		Total: limit * 3,
	}
}

var suggestionReasons = []string{
	"followed by people you follow",
	"kids the same age",
	"active in your groups",
	"lives nearby",
}

func mockSuggestions(limit int) *SuggestionList {
	suggestions := make([]FollowSuggestion, limit)
	for i := range suggestions {
		u := mockUser(gofakeit.UUID())
		u.IsFollowing = false
		suggestions[i] = FollowSuggestion{
			User:        *u,
			Reason:      suggestionReasons[gofakeit.Number(0, len(suggestionReasons)-1)],
			MutualCount: gofakeit.Number(0, 12),
		}
	}
	return &SuggestionList{Suggestions: suggestions}
}
