package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mamalink/mamalink-go/internal/cache"
	"github.com/mamalink/mamalink-go/internal/transport"
)

// Notification cache TTLs. Feed pages move quickly; the unread badge even
// more so.
const (
	notifListTTL = 60 * time.Second
	unreadTTL    = 30 * time.Second
)

// Cache operation names.
const (
	opNotifications = "notifications"
	opUnreadCount   = "unread-count"
)

// NotificationService exposes the notification feed operations.
type NotificationService struct {
	core
}

// List returns one page of the notification feed, from cache when fresh.
func (s *NotificationService) List(ctx context.Context, page, limit int) (*NotificationPage, error) {
	key := cache.K(opNotifications, strconv.Itoa(page), strconv.Itoa(limit))
	path := fmt.Sprintf("/notifications?page=%d&limit=%d", page, limit)

	return fetchJSON(ctx, &s.core, key, notifListTTL, false,
		func(ctx context.Context) (*transport.Response, error) {
			return s.deps.Dispatcher.Get(ctx, path)
		},
		func() *NotificationPage { return mockNotificationPage(page, limit) },
	)
}

// GetUnreadCount returns the unread-badge count.
func (s *NotificationService) GetUnreadCount(ctx context.Context) (int, error) {
	uc, err := fetchJSON(ctx, &s.core, cache.K(opUnreadCount), unreadTTL, true,
		func(ctx context.Context) (*transport.Response, error) {
			return s.deps.Dispatcher.Get(ctx, "/notifications/unread-count")
		},
		func() *UnreadCount { return &UnreadCount{Count: 0} },
	)
	if err != nil {
		return 0, err
	}
	return uc.Count, nil
}

// markReadRequest is the wire body for MarkAsRead.
type markReadRequest struct {
	IDs []string `json:"ids"`
}

// MarkAsRead flips the given notifications to read, optimistically: every
// cached feed page and the unread count are patched before the write is
// issued. If the write fails, the exact pre-mutation cache state is
// restored and the classified error is re-thrown.
func (s *NotificationService) MarkAsRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	listKeys := s.store.KeysByOp(opNotifications)
	unreadKey := cache.K(opUnreadCount)
	affected := append(listKeys, unreadKey)
	snap := s.store.Snapshot(affected...)

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	// Apply the patch to clones; the snapshot must keep the originals.
	flipped := 0
	for _, key := range listKeys {
		v, ok := s.store.Get(key, notifListTTL)
		if !ok {
			continue
		}
		page := v.(*NotificationPage).Clone()
		pageFlips := 0
		for i := range page.Notifications {
			n := &page.Notifications[i]
			if idSet[n.ID] && !n.IsRead {
				n.IsRead = true
				pageFlips++
			}
		}
		page.UnreadCount = max(0, page.UnreadCount-pageFlips)
		flipped += pageFlips
		s.store.Set(key, page)
	}
	if v, ok := s.store.Get(unreadKey, unreadTTL); ok {
		uc := v.(*UnreadCount).Clone()
		uc.Count = max(0, uc.Count-flipped)
		s.store.Set(unreadKey, uc)
	}

	_, err := callWrite(&s.core, func() (*transport.Response, error) {
		return s.deps.Dispatcher.Put(ctx, "/notifications/read", markReadRequest{IDs: ids})
	})
	if err != nil {
		s.store.Restore(snap)
		return err
	}

	s.syncRemoteUnread(ctx)
	return nil
}

// MarkAllAsRead marks the whole feed read. The affected set is unknown, so
// instead of patching, all feed pages are dropped and the unread count is
// zeroed after the write succeeds.
func (s *NotificationService) MarkAllAsRead(ctx context.Context) error {
	_, err := callWrite(&s.core, func() (*transport.Response, error) {
		return s.deps.Dispatcher.Put(ctx, "/notifications/read-all", nil)
	})
	if err != nil {
		return err
	}

	for _, key := range s.store.KeysByOp(opNotifications) {
		s.store.Delete(key)
	}
	s.store.Set(cache.K(opUnreadCount), &UnreadCount{Count: 0})
	s.syncRemoteUnread(ctx)
	return nil
}

// syncRemoteUnread mirrors the locally cached unread count into the shared
// cache, best effort.
func (s *NotificationService) syncRemoteUnread(ctx context.Context) {
	if s.deps.Remote == nil {
		return
	}
	key := cache.K(opUnreadCount)
	if v, ok := s.store.Get(key, unreadTTL); ok {
		if data, err := json.Marshal(v); err == nil {
			if err := s.deps.Remote.Set(ctx, key.String(), data, unreadTTL); err != nil {
				s.deps.Logger.Warn("shared cache set failed", "key", key.String(), "err", err)
			}
			return
		}
	}
	if err := s.deps.Remote.Delete(ctx, key.String()); err != nil {
		s.deps.Logger.Warn("shared cache delete failed", "key", key.String(), "err", err)
	}
}
