// Package notifier tracks principal revisions and broadcasts changes.
//
// Every account (principal) has a monotonically increasing revision
// counter. Any write that changes data another account's session may have
// cached — most notably an ACL grant — bumps the revision counter for
// every affected account and publishes a ChangedPrincipals batch to
// subscribers. Sessions use the revision counter to decide whether their
// local view of an account's permissions is stale and needs refreshing.
package notifier

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reason identifies why a principal's revision changed.
type Reason string

const (
	ReasonAcl         Reason = "acl"
	ReasonDirectory   Reason = "directory"
	ReasonMailboxList Reason = "mailbox_list"
)

// ChangedPrincipals describes a single account whose revision advanced.
type ChangedPrincipals struct {
	ID        string
	AccountID uint32
	Reason    Reason
	Timestamp time.Time
}

// Subscriber receives batches of ChangedPrincipals notifications.
type Subscriber chan []ChangedPrincipals

// Notifier maintains per-account revision counters and fans out batches of
// ChangedPrincipals to subscribers. The zero value is not usable; construct
// with New.
type Notifier struct {
	mu          sync.RWMutex
	revisions   map[uint32]uint64
	subscribers map[Subscriber]bool

	batchCh chan []ChangedPrincipals
	stopCh  chan struct{}
}

// New creates a Notifier. Call Start before publishing.
func New() *Notifier {
	return &Notifier{
		revisions:   make(map[uint32]uint64),
		subscribers: make(map[Subscriber]bool),
		batchCh:     make(chan []ChangedPrincipals, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the notifier's distribution loop.
func (n *Notifier) Start() {
	go n.run()
}

// Stop stops the distribution loop. Subsequent Notify calls still bump
// revision counters, but their batches are never broadcast.
func (n *Notifier) Stop() {
	close(n.stopCh)
}

// Subscribe creates a new subscription.
func (n *Notifier) Subscribe() Subscriber {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := make(Subscriber, 50)
	n.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (n *Notifier) Unsubscribe(sub Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subscribers[sub] {
		delete(n.subscribers, sub)
		close(sub)
	}
}

// SubscriberCount returns the number of active subscribers.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

// Revision returns the current revision counter for an account. Accounts
// that have never changed report revision 0.
func (n *Notifier) Revision(accountID uint32) uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.revisions[accountID]
}

// Notify bumps the revision counter for each distinct account in
// accountIDs and publishes a ChangedPrincipals batch describing the bump.
// Duplicate account ids are bumped once. A nil or empty accountIDs is a
// no-op.
func (n *Notifier) Notify(reason Reason, accountIDs ...uint32) {
	if len(accountIDs) == 0 {
		return
	}

	seen := make(map[uint32]bool, len(accountIDs))
	batch := make([]ChangedPrincipals, 0, len(accountIDs))

	n.mu.Lock()
	now := time.Now()
	for _, id := range accountIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		n.revisions[id]++
		batch = append(batch, ChangedPrincipals{
			ID:        uuid.NewString(),
			AccountID: id,
			Reason:    reason,
			Timestamp: now,
		})
	}
	n.mu.Unlock()

	select {
	case n.batchCh <- batch:
	case <-n.stopCh:
	}
}

func (n *Notifier) run() {
	for {
		select {
		case batch := <-n.batchCh:
			n.broadcast(batch)
		case <-n.stopCh:
			return
		}
	}
}

func (n *Notifier) broadcast(batch []ChangedPrincipals) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for sub := range n.subscribers {
		select {
		case sub <- batch:
		default:
			// subscriber buffer full, drop the batch for it
		}
	}
}
