package conversation

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/Yasuhisa-O/SNS/internal/cache"
	"github.com/Yasuhisa-O/SNS/internal/connections"
	"github.com/Yasuhisa-O/SNS/internal/logger"
	"github.com/Yasuhisa-O/SNS/internal/messaging"
	"github.com/Yasuhisa-O/SNS/internal/models"
)

// ErrNotFriends is returned when the viewer and peer have no accepted
// connection. Handlers translate it into a redirect to the home page so
// nothing about the peer leaks to non-friends.
var ErrNotFriends = errors.New("users are not friends")

const unreadCountTTL = time.Hour

// View is one rendered conversation page plus the flag transitions that
// opening it caused.
type View struct {
	Messages []models.Message

	// ReadIDs are the peer's messages that this open marked read.
	ReadIDs []uint

	// CheckedIDs are the viewer's own messages that this open marked
	// checked, i.e. the viewer just learned the peer read them.
	CheckedIDs []uint
}

// PollResult is the payload of one client poll.
type PollResult struct {
	// NewMessages are incoming messages that were unread before this
	// poll. They are marked read as a side effect of being returned.
	NewMessages []models.Message

	// CheckedIDs are the viewer's sent messages that just transitioned
	// to checked.
	CheckedIDs []uint
}

// Service orchestrates the connection ledger and the message store to
// serve conversation views, polling updates and history pages. Every
// operation that exposes a conversation is gated on friendship first.
type Service struct {
	ledger *connections.Ledger
	store  *messaging.Store
	cache  *cache.RedisCache
}

// NewService creates a conversation service. cache may be nil, in which
// case unread counts always hit the database.
func NewService(db *gorm.DB, c *cache.RedisCache) *Service {
	return &Service{
		ledger: connections.NewLedger(db),
		store:  messaging.NewStore(db),
		cache:  c,
	}
}

func (s *Service) gate(ctx context.Context, viewerID, peerID uint) error {
	ok, err := s.ledger.IsFriend(ctx, viewerID, peerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFriends
	}
	return nil
}

// Open loads the newest conversation page for (viewer, peer) and applies
// the two receipt transitions that viewing causes: the peer's unread
// messages in the page become read, and the viewer's own read-but-
// unchecked messages become checked.
func (s *Service) Open(ctx context.Context, viewerID, peerID uint) (*View, error) {
	if err := s.gate(ctx, viewerID, peerID); err != nil {
		return nil, err
	}

	msgs, err := s.store.Conversation(ctx, viewerID, peerID, 0, messaging.DefaultPageSize)
	if err != nil {
		return nil, err
	}

	var readIDs, checkedIDs []uint
	for _, m := range msgs {
		if m.FromUserID == peerID && !m.IsRead {
			readIDs = append(readIDs, m.ID)
		}
		if m.FromUserID == viewerID && m.IsRead && !m.IsChecked {
			checkedIDs = append(checkedIDs, m.ID)
		}
	}

	if err := s.store.MarkChecked(ctx, checkedIDs); err != nil {
		return nil, err
	}
	if err := s.store.MarkRead(ctx, readIDs); err != nil {
		return nil, err
	}
	s.invalidateUnread(ctx, viewerID)

	// Reflect the transitions in the returned page.
	for i := range msgs {
		if msgs[i].FromUserID == peerID {
			msgs[i].IsRead = true
		}
		if msgs[i].FromUserID == viewerID && msgs[i].IsRead {
			msgs[i].IsChecked = true
		}
	}

	return &View{Messages: msgs, ReadIDs: readIDs, CheckedIDs: checkedIDs}, nil
}

// Poll returns the viewer's newly arrived messages from peer, marking
// them read, plus the ids of the viewer's own messages that just became
// checked. Clients call this repeatedly; both marks are idempotent so
// concurrent polls from multiple tabs cause at worst redundant writes.
func (s *Service) Poll(ctx context.Context, viewerID, peerID uint) (*PollResult, error) {
	if err := s.gate(ctx, viewerID, peerID); err != nil {
		return nil, err
	}

	incoming, err := s.store.UnreadFrom(ctx, peerID, viewerID)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkRead(ctx, messageIDs(incoming)); err != nil {
		return nil, err
	}
	if len(incoming) > 0 {
		s.invalidateUnread(ctx, viewerID)
	}
	for i := range incoming {
		incoming[i].IsRead = true
	}

	unchecked, err := s.store.UncheckedSentBy(ctx, viewerID, peerID)
	if err != nil {
		return nil, err
	}
	checkedIDs := messageIDs(unchecked)
	if err := s.store.MarkChecked(ctx, checkedIDs); err != nil {
		return nil, err
	}

	return &PollResult{NewMessages: incoming, CheckedIDs: checkedIDs}, nil
}

// LoadOlder returns the page that skips offset*pageSize newest messages.
// It only supplies history: no read or checked flags change.
func (s *Service) LoadOlder(ctx context.Context, viewerID, peerID uint, offset int) ([]models.Message, error) {
	if err := s.gate(ctx, viewerID, peerID); err != nil {
		return nil, err
	}
	return s.store.Conversation(ctx, viewerID, peerID, offset, messaging.DefaultPageSize)
}

// Send appends a message from viewer to peer. The recipient's unread
// badge is invalidated so their next count query sees it.
func (s *Service) Send(ctx context.Context, viewerID, peerID uint, body string) (*models.Message, error) {
	if err := s.gate(ctx, viewerID, peerID); err != nil {
		return nil, err
	}
	msg, err := s.store.Append(ctx, viewerID, peerID, body)
	if err != nil {
		return nil, err
	}
	s.invalidateUnread(ctx, peerID)
	return msg, nil
}

// UnreadCount returns the user's total unread message count,
// cache-aside with a TTL. Cache failures fall back to the database.
func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	if s.cache != nil {
		key := s.cache.KeyForUnreadCount(userID)
		if cached, err := s.cache.Get(ctx, key); err == nil {
			if n, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				return n, nil
			}
		}
	}

	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		key := s.cache.KeyForUnreadCount(userID)
		if err := s.cache.Set(ctx, key, strconv.FormatInt(count, 10), unreadCountTTL); err != nil {
			logger.Warn("failed to cache unread count", "user_id", userID, "err", err)
		}
	}
	return count, nil
}

func (s *Service) invalidateUnread(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.KeyForUnreadCount(userID)); err != nil {
		logger.Warn("failed to invalidate unread count", "user_id", userID, "err", err)
	}
}

func messageIDs(msgs []models.Message) []uint {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]uint, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
