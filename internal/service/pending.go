package service

import (
	"context"
	"sync"
	"time"
)

// PendingAction is what the next free-text message of an admin will be used for
type PendingAction string

const PendingBroadcast PendingAction = "broadcast"

// PendingActions stores short-lived per-admin pending actions. Take is atomic:
// at most one caller gets a given armed action.
type PendingActions interface {
	Arm(ctx context.Context, adminID int64, action PendingAction) error
	Take(ctx context.Context, adminID int64) (PendingAction, bool, error)
}

type pendingEntry struct {
	action    PendingAction
	expiresAt time.Time
}

// MemoryPending keeps pending actions in process memory
type MemoryPending struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[int64]pendingEntry
}

// NewMemoryPending creates an in-memory store whose entries expire after ttl
func NewMemoryPending(ttl time.Duration) *MemoryPending {
	return &MemoryPending{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[int64]pendingEntry),
	}
}

func (p *MemoryPending) Arm(_ context.Context, adminID int64, action PendingAction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for id, e := range p.items {
		if !now.Before(e.expiresAt) {
			delete(p.items, id)
		}
	}
	p.items[adminID] = pendingEntry{action: action, expiresAt: now.Add(p.ttl)}
	return nil
}

func (p *MemoryPending) Take(_ context.Context, adminID int64) (PendingAction, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.items[adminID]
	if !ok {
		return "", false, nil
	}
	delete(p.items, adminID)
	if !p.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.action, true, nil
}
