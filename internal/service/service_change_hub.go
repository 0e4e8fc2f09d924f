package service

import (
	"sync"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
)

const defaultChangeBuffer = 256

// ChangeSubscription receives changes for one (collection, owner) pair.
type ChangeSubscription struct {
	id         uint64
	collection string
	ownerID    string

	ch     chan models.DocumentChange
	mu     sync.Mutex
	closed bool
}

// C returns the change channel. It is closed when the subscription ends.
func (s *ChangeSubscription) C() <-chan models.DocumentChange {
	return s.ch
}

func (s *ChangeSubscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// ChangeHub fans document changes out to subscribers. Publishing never
// blocks: a subscriber whose buffer is full is disconnected, which makes its
// client reconnect and pull what it missed.
type ChangeHub struct {
	mu     sync.RWMutex
	subs   map[uint64]*ChangeSubscription
	nextID uint64
	buffer int

	logger *logger.Logger
}

func NewChangeHub(buffer int, logger *logger.Logger) *ChangeHub {
	if buffer <= 0 {
		buffer = defaultChangeBuffer
	}
	return &ChangeHub{subs: make(map[uint64]*ChangeSubscription), buffer: buffer, logger: logger}
}

func (h *ChangeHub) Subscribe(collection, ownerID string) *ChangeSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &ChangeSubscription{
		id:         h.nextID,
		collection: collection,
		ownerID:    ownerID,
		ch:         make(chan models.DocumentChange, h.buffer),
	}
	h.subs[sub.id] = sub
	return sub
}

func (h *ChangeHub) Unsubscribe(sub *ChangeSubscription) {
	h.mu.Lock()
	_, ok := h.subs[sub.id]
	delete(h.subs, sub.id)
	h.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Publish delivers change to every subscriber of its collection and owner.
func (h *ChangeHub) Publish(ownerID string, change models.DocumentChange) {
	var lagging []*ChangeSubscription

	h.mu.RLock()
	for _, sub := range h.subs {
		if sub.collection != change.Collection || sub.ownerID != ownerID {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			lagging = append(lagging, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range lagging {
		h.logger.Warn().
			Str("collection", sub.collection).
			Str("owner_id", sub.ownerID).
			Msg("change subscriber lagging, disconnecting")
		h.Unsubscribe(sub)
	}
}

// Count returns the number of live subscriptions.
func (h *ChangeHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
