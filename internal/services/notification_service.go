package services

import (
	"context"
	"log"
	"strconv"
	"time"

	"sweep-backend/internal/cache"
	"sweep-backend/internal/clients"
	"sweep-backend/internal/metrics"
	"sweep-backend/internal/models"
)

// Notifier fire-and-forget delivery of bridge events. Failures are logged,
// never propagated; a lost notification must not fail a leg.
type Notifier interface {
	Notify(ctx context.Context, n *models.BridgeNotification)
}

// notificationListTTL how long the per-user notification index lives
const (
	notificationTTL     = 7 * 24 * time.Hour
	notificationListTTL = 30 * 24 * time.Hour
	notificationLimit   = 100
)

// NotificationService publishes bridge events on NATS, pushes them to
// connected WebSocket clients and keeps a bounded per-user list in the
// cache for polling clients
type NotificationService struct {
	nats  *clients.NATSClient
	push  *WebSocketPushService
	store cache.PlanStore
}

// NewNotificationService creates the notification fan-out. nats may be nil
// when running without a broker.
func NewNotificationService(nats *clients.NATSClient, push *WebSocketPushService, store cache.PlanStore) *NotificationService {
	return &NotificationService{
		nats:  nats,
		push:  push,
		store: store,
	}
}

// Notify fans the event out to every channel, best-effort
func (s *NotificationService) Notify(ctx context.Context, n *models.BridgeNotification) {
	log.Printf("🔔 [BridgeNotification] %s for %s", n.Type, n.BridgeID)

	if s.nats != nil {
		if err := s.nats.PublishBridgeUpdate(n.UserID, n.Type, n); err != nil {
			log.Printf("⚠️ [BridgeNotification] NATS publish failed for %s: %v", n.BridgeID, err)
		} else {
			metrics.NATSMessagesPublished.WithLabelValues("bridge").Inc()
		}
	}

	if s.push != nil {
		s.push.Broadcast(n.UserID, n.Type, n)
	}

	s.storeNotification(ctx, n)
}

// storeNotification keeps the most recent events retrievable per user
func (s *NotificationService) storeNotification(ctx context.Context, n *models.BridgeNotification) {
	key := notificationKey(n.UserID, n.Timestamp)
	if err := s.store.SetJSON(ctx, key, n, notificationTTL); err != nil {
		log.Printf("⚠️ [BridgeNotification] Failed to cache notification: %v", err)
		return
	}

	listKey := notificationListKey(n.UserID)
	var keys []string
	if _, err := s.store.GetJSON(ctx, listKey, &keys); err != nil {
		log.Printf("⚠️ [BridgeNotification] Failed to load notification index: %v", err)
		return
	}
	keys = append([]string{key}, keys...)
	if len(keys) > notificationLimit {
		keys = keys[:notificationLimit]
	}
	if err := s.store.SetJSON(ctx, listKey, keys, notificationListTTL); err != nil {
		log.Printf("⚠️ [BridgeNotification] Failed to update notification index: %v", err)
	}
}

// ListNotifications resolves a user's recent notifications, newest first
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, limit int) ([]*models.BridgeNotification, error) {
	if limit <= 0 || limit > notificationLimit {
		limit = notificationLimit
	}

	var keys []string
	if _, err := s.store.GetJSON(ctx, notificationListKey(userID), &keys); err != nil {
		return nil, err
	}

	notifications := make([]*models.BridgeNotification, 0, len(keys))
	for _, key := range keys {
		if len(notifications) >= limit {
			break
		}
		var n models.BridgeNotification
		found, err := s.store.GetJSON(ctx, key, &n)
		if err != nil || !found {
			continue
		}
		notifications = append(notifications, &n)
	}
	return notifications, nil
}

func notificationKey(userID string, ts int64) string {
	return "bridge:notification:" + userID + ":" + strconv.FormatInt(ts, 10)
}

func notificationListKey(userID string) string {
	return "bridge:notifications:" + userID
}
