package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mamalink/mamalink-go/internal/apierr"
	"github.com/mamalink/mamalink-go/internal/cache"
	"github.com/mamalink/mamalink-go/internal/transport"
)

// User cache TTLs. Profiles are stable; search results churn with the feed.
const (
	profileTTL = 5 * time.Minute
	searchTTL  = 60 * time.Second
)

// Cache operation names.
const (
	opMyProfile  = "my-profile"
	opUser       = "user"
	opUserSearch = "user-search"
)

// UserService exposes profile and user-directory operations.
type UserService struct {
	core
}

// GetMyProfile returns the authenticated user's profile.
func (s *UserService) GetMyProfile(ctx context.Context) (*User, error) {
	return fetchJSON(ctx, &s.core, cache.K(opMyProfile), profileTTL, true,
		func(ctx context.Context) (*transport.Response, error) {
			return s.deps.Dispatcher.Get(ctx, "/users/me")
		},
		mockMyProfile,
	)
}

// UpdateProfile applies a partial profile update, then refreshes the cached
// profile from the response. On failure the cache is left untouched.
func (s *UserService) UpdateProfile(ctx context.Context, patch ProfileUpdate) (*User, error) {
	resp, err := callWrite(&s.core, func() (*transport.Response, error) {
		return s.deps.Dispatcher.Put(ctx, "/users/me", patch)
	})
	if err != nil {
		return nil, err
	}

	key := cache.K(opMyProfile)
	if resp == nil {
		// Mock fallback: synthesize the updated profile locally.
		updated := mockMyProfile()
		applyPatch(updated, patch)
		s.store.Set(key, updated)
		s.syncRemoteProfile(ctx, updated)
		return updated, nil
	}

	updated, decErr := decode[*User](resp.Data)
	if decErr != nil {
		// The write landed but the response is unreadable; drop the stale
		// cached profile so the next read refetches.
		s.store.Delete(key)
		return nil, apierr.Classify(decErr)
	}

	s.store.Set(key, updated)
	s.syncRemoteProfile(ctx, updated)
	return updated, nil
}

// GetUserByID returns a user profile by ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*User, error) {
	return fetchJSON(ctx, &s.core, cache.K(opUser, id), profileTTL, false,
		func(ctx context.Context) (*transport.Response, error) {
			return s.deps.Dispatcher.Get(ctx, "/users/"+url.PathEscape(id))
		},
		func() *User { return mockUser(id) },
	)
}

// SearchUsers returns one page of users matching q.
func (s *UserService) SearchUsers(ctx context.Context, q string, page, limit int) (*UserPage, error) {
	key := cache.K(opUserSearch, q, strconv.Itoa(page), strconv.Itoa(limit))
	path := fmt.Sprintf("/users/search?q=%s&page=%d&limit=%d", url.QueryEscape(q), page, limit)

	return fetchJSON(ctx, &s.core, key, searchTTL, false,
		func(ctx context.Context) (*transport.Response, error) {
			return s.deps.Dispatcher.Get(ctx, path)
		},
		func() *UserPage { return mockUserPage(page, limit) },
	)
}

// ClearUserCache drops cached profiles. With no arguments it drops the
// authenticated user's profile; otherwise the listed user IDs.
func (s *UserService) ClearUserCache(ids ...string) {
	if len(ids) == 0 {
		s.store.Delete(cache.K(opMyProfile))
		return
	}
	for _, id := range ids {
		s.store.Delete(cache.K(opUser, id))
	}
}

// snapshotUser captures the cached entry for one user, for cross-service
// optimistic updates (follow/unfollow).
func (s *UserService) snapshotUser(id string) cache.Snapshot {
	return s.store.Snapshot(cache.K(opUser, id))
}

// restore undoes a snapshot taken with snapshotUser.
func (s *UserService) restore(snap cache.Snapshot) {
	s.store.Restore(snap)
}

// patchUser applies fn to a clone of the cached user, if present.
func (s *UserService) patchUser(id string, fn func(*User)) {
	key := cache.K(opUser, id)
	v, ok := s.store.Get(key, profileTTL)
	if !ok {
		return
	}
	u := v.(*User).Clone()
	fn(u)
	s.store.Set(key, u)
}

// syncRemoteProfile mirrors the profile into the shared cache, best effort.
func (s *UserService) syncRemoteProfile(ctx context.Context, u *User) {
	if s.deps.Remote == nil {
		return
	}
	key := cache.K(opMyProfile).String()
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := s.deps.Remote.Set(ctx, key, data, profileTTL); err != nil {
		s.deps.Logger.Warn("shared cache set failed", "key", key, "err", err)
	}
}

// applyPatch copies the non-zero fields of patch onto u.
func applyPatch(u *User, patch ProfileUpdate) {
	if patch.DisplayName != "" {
		u.DisplayName = patch.DisplayName
	}
	if patch.Bio != "" {
		u.Bio = patch.Bio
	}
	if patch.AvatarURL != "" {
		u.AvatarURL = patch.AvatarURL
	}
	if patch.ChildAges != nil {
		u.ChildAges = patch.ChildAges
	}
}
