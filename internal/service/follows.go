package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mamalink/mamalink-go/internal/cache"
	"github.com/mamalink/mamalink-go/internal/transport"
)

// Follow cache TTLs.
const (
	followListTTL = 60 * time.Second
	suggestTTL    = 5 * time.Minute
)

// Cache operation names.
const (
	opFollowing   = "following"
	opFollowers   = "followers"
	opSuggestions = "follow-suggestions"
)

// FollowService exposes the follow-graph operations. Follow and Unfollow
// are optimistic: the cached target user is patched before the write, and
// rolled back if it fails.
type FollowService struct {
	core
	users *UserService
}

// GetFollowing returns one page of the users userID follows.
func (s *FollowService) GetFollowing(ctx context.Context, userID string, page, limit int) (*UserPage, error) {
	return s.followList(ctx, opFollowing, userID, page, limit)
}

// GetFollowers returns one page of userID's followers.
func (s *FollowService) GetFollowers(ctx context.Context, userID string, page, limit int) (*UserPage, error) {
	return s.followList(ctx, opFollowers, userID, page, limit)
}

func (s *FollowService) followList(ctx context.Context, op, userID string, page, limit int) (*UserPage, error) {
	key := cache.K(op, userID, strconv.Itoa(page), strconv.Itoa(limit))
	path := fmt.Sprintf("/users/%s/%s?page=%d&limit=%d", url.PathEscape(userID), op, page, limit)

	return fetchJSON(ctx, &s.core, key, followListTTL, false,
		func(ctx context.Context) (*transport.Response, error) {
			return s.deps.Dispatcher.Get(ctx, path)
		},
		func() *UserPage { return mockUserPage(page, limit) },
	)
}

// FollowUser follows userID. The cached target profile is optimistically
// marked as followed and its follower count bumped; a failed write restores
// the pre-mutation state and re-throws the classified error.
func (s *FollowService) FollowUser(ctx context.Context, userID string) error {
	return s.toggleFollow(ctx, userID, true)
}

// UnfollowUser unfollows userID with the same optimistic protocol.
func (s *FollowService) UnfollowUser(ctx context.Context, userID string) error {
	return s.toggleFollow(ctx, userID, false)
}

func (s *FollowService) toggleFollow(ctx context.Context, userID string, follow bool) error {
	userSnap := s.users.snapshotUser(userID)
	suggKeys := s.store.KeysByOp(opSuggestions)
	listSnap := s.store.Snapshot(suggKeys...)

	s.users.patchUser(userID, func(u *User) {
		if u.IsFollowing == follow {
			return
		}
		u.IsFollowing = follow
		if follow {
			u.FollowerCount++
		} else {
			u.FollowerCount = max(0, u.FollowerCount-1)
		}
	})
	if follow {
		// A just-followed user no longer belongs in the suggestions.
		for _, key := range suggKeys {
			v, ok := s.store.Get(key, suggestTTL)
			if !ok {
				continue
			}
			list := v.(*SuggestionList).Clone()
			kept := list.Suggestions[:0]
			for _, sg := range list.Suggestions {
				if sg.User.ID != userID {
					kept = append(kept, sg)
				}
			}
			list.Suggestions = kept
			s.store.Set(key, list)
		}
	}

	path := "/follows/" + url.PathEscape(userID)
	_, err := callWrite(&s.core, func() (*transport.Response, error) {
		if follow {
			return s.deps.Dispatcher.Post(ctx, path, nil)
		}
		return s.deps.Dispatcher.Delete(ctx, path)
	})
	if err != nil {
		s.users.restore(userSnap)
		s.store.Restore(listSnap)
		return err
	}

	// Follow lists for the current user are now stale in an unknown way.
	for _, op := range []string{opFollowing, opFollowers} {
		for _, key := range s.store.KeysByOp(op) {
			s.store.Delete(key)
		}
	}
	return nil
}

// GetFollowSuggestions returns up to limit suggested users to follow.
func (s *FollowService) GetFollowSuggestions(ctx context.Context, limit int) ([]FollowSuggestion, error) {
	key := cache.K(opSuggestions, strconv.Itoa(limit))
	path := fmt.Sprintf("/follows/suggestions?limit=%d", limit)

	list, err := fetchJSON(ctx, &s.core, key, suggestTTL, false,
		func(ctx context.Context) (*transport.Response, error) {
			return s.deps.Dispatcher.Get(ctx, path)
		},
		func() *SuggestionList { return mockSuggestions(limit) },
	)
	if err != nil {
		return nil, err
	}
	return list.Suggestions, nil
}
