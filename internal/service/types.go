package service

import "time"

// Notification types produced by the backend.
const (
	NotificationLike      = "like"
	NotificationComment   = "comment"
	NotificationFollow    = "follow"
	NotificationMilestone = "milestone"
)

// Notification is one entry in a user's notification feed.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationPage is one page of the notification feed.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	Total         int            `json:"total"`
}

// Clone returns a deep copy. Optimistic updates patch a clone so rollback
// snapshots stay exact.
func (p *NotificationPage) Clone() *NotificationPage {
	out := *p
	out.Notifications = make([]Notification, len(p.Notifications))
	copy(out.Notifications, p.Notifications)
	return &out
}

// UnreadCount is the standalone unread-count payload.
type UnreadCount struct {
	Count int `json:"unreadCount"`
}

// Clone returns a copy.
func (u *UnreadCount) Clone() *UnreadCount {
	out := *u
	return &out
}

// User is a MamaLink profile.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"displayName"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatarUrl"`
	ChildAges      []string  `json:"childAges"`
	FollowerCount  int       `json:"followerCount"`
	FollowingCount int       `json:"followingCount"`
	IsFollowing    bool      `json:"isFollowing"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	out := *u
	out.ChildAges = make([]string, len(u.ChildAges))
	copy(out.ChildAges, u.ChildAges)
	return &out
}

// UserPage is one page of user search or follow-list results.
type UserPage struct {
	Users []User `json:"users"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int    `json:"total"`
}

// Clone returns a deep copy.
func (p *UserPage) Clone() *UserPage {
	out := *p
	out.Users = make([]User, len(p.Users))
	copy(out.Users, p.Users)
	return &out
}

// ProfileUpdate is the patch body for UpdateProfile. Zero-valued fields are
// omitted from the wire request and left unchanged by the server.
type ProfileUpdate struct {
	DisplayName string   `json:"displayName,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	ChildAges   []string `json:"childAges,omitempty"`
}

// FollowSuggestion pairs a suggested user with the reason they surfaced.
type FollowSuggestion struct {
	User        User   `json:"user"`
	Reason      string `json:"reason"`
	MutualCount int    `json:"mutualCount"`
}

// SuggestionList is the follow-suggestions payload.
type SuggestionList struct {
	Suggestions []FollowSuggestion `json:"suggestions"`
}

// Clone returns a deep copy.
func (l *SuggestionList) Clone() *SuggestionList {
	out := *l
	out.Suggestions = make([]FollowSuggestion, len(l.Suggestions))
	copy(out.Suggestions, l.Suggestions)
	return &out
}
