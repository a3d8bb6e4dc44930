// Package notifications creates notification records for qualifying
// engagement events and pushes live inbox snapshots to subscribers.
package notifications

import (
	"sync"
	"sync/atomic"

	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/metrics"
	"github.com/memora/backend/internal/models"
	"go.uber.org/zap"
)

// subscriptionBuffer is the per-subscription channel depth. Snapshots
// are whole-inbox replacements, so a slow consumer only ever misses
// intermediate states, never the latest one.
const subscriptionBuffer = 8

// Broker maintains the set of active inbox subscriptions and delivers
// snapshots to them. Safe for concurrent use.
type Broker struct {
	// Active subscriptions by recipient user ID
	subs map[string]map[*Subscription]struct{}

	// Mutex for subscription map access
	mu sync.RWMutex

	// Metrics
	metrics *BrokerMetrics
}

// BrokerMetrics tracks subscription statistics
type BrokerMetrics struct {
	TotalSubscriptions  atomic.Int64
	ActiveSubscriptions atomic.Int64
	SnapshotsSent       atomic.Int64
	SnapshotsDropped    atomic.Int64
}

// Subscription is a live feed of inbox snapshots for one recipient.
// Callers must Cancel when done.
type Subscription struct {
	UserID string

	ch     chan []models.Notification
	broker *Broker
	once   sync.Once
}

// Updates returns the channel snapshots are delivered on. The channel
// is closed after Cancel.
func (s *Subscription) Updates() <-chan []models.Notification {
	return s.ch
}

// Cancel detaches the subscription from the broker and closes its
// channel. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.ch)
	})
}

// NewBroker creates a new Broker instance
func NewBroker() *Broker {
	return &Broker{
		subs:    make(map[string]map[*Subscription]struct{}),
		metrics: &BrokerMetrics{},
	}
}

// Subscribe registers a live subscription for the given recipient
func (b *Broker) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		UserID: userID,
		ch:     make(chan []models.Notification, subscriptionBuffer),
		broker: b,
	}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*Subscription]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	b.metrics.TotalSubscriptions.Add(1)
	b.metrics.ActiveSubscriptions.Add(1)
	metrics.Get().ActiveSubscriptions.Inc()

	logger.Log.Debug("notification subscription opened",
		logger.WithUserID(userID),
		zap.Int64("active", b.metrics.ActiveSubscriptions.Load()),
	)
	return sub
}

// remove detaches a subscription from the broker maps
func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	if subs, ok := b.subs[sub.UserID]; ok {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(b.subs, sub.UserID)
			}
			b.metrics.ActiveSubscriptions.Add(-1)
			metrics.Get().ActiveSubscriptions.Dec()
		}
	}
	b.mu.Unlock()

	logger.Log.Debug("notification subscription closed",
		logger.WithUserID(sub.UserID),
		zap.Int64("active", b.metrics.ActiveSubscriptions.Load()),
	)
}

// Publish delivers an inbox snapshot to every live subscription for
// the recipient. If a subscription's buffer is full, the oldest queued
// snapshot is discarded in favor of the new one.
func (b *Broker) Publish(userID string, snapshot []models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[userID] {
		select {
		case sub.ch <- snapshot:
			b.metrics.SnapshotsSent.Add(1)
		default:
			// Buffer full: evict the stalest snapshot and retry once
			select {
			case <-sub.ch:
				b.metrics.SnapshotsDropped.Add(1)
			default:
			}
			select {
			case sub.ch <- snapshot:
				b.metrics.SnapshotsSent.Add(1)
			default:
				b.metrics.SnapshotsDropped.Add(1)
			}
		}
	}
}

// SubscriberCount returns the number of live subscriptions for a user
func (b *Broker) SubscriberCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// Metrics returns a point-in-time snapshot of broker statistics
func (b *Broker) Metrics() BrokerMetricsSnapshot {
	return BrokerMetricsSnapshot{
		TotalSubscriptions:  b.metrics.TotalSubscriptions.Load(),
		ActiveSubscriptions: b.metrics.ActiveSubscriptions.Load(),
		SnapshotsSent:       b.metrics.SnapshotsSent.Load(),
		SnapshotsDropped:    b.metrics.SnapshotsDropped.Load(),
	}
}

// BrokerMetricsSnapshot is a point-in-time snapshot of broker metrics
type BrokerMetricsSnapshot struct {
	TotalSubscriptions  int64 `json:"total_subscriptions"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	SnapshotsSent       int64 `json:"snapshots_sent"`
	SnapshotsDropped    int64 `json:"snapshots_dropped"`
}
