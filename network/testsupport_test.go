package network

import (
	"context"
	"sync"

	"github.com/rsleiman/souqly_backend/models"
)

// memDirectory is an in-memory Directory with the same atomicity
// guarantees as the MongoDB implementation: slot claims and ledger
// writes are conditional, applied under one lock.
type memDirectory struct {
	mu      sync.Mutex
	members map[string]*models.Member
	bonuses []models.PairBonus
}

func newMemDirectory() *memDirectory {
	return &memDirectory{members: make(map[string]*models.Member)}
}

// seed inserts a member directly, bypassing the registration flow.
func (d *memDirectory) seed(m *models.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *m
	d.members[m.ReferralCode] = &copied
}

func (d *memDirectory) get(code string) models.Member {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.members[code]
}

func (d *memDirectory) FindByCode(ctx context.Context, code string) (*models.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[code]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (d *memDirectory) Insert(ctx context.Context, member *models.Member) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *member
	d.members[member.ReferralCode] = &copied
	return nil
}

func (d *memDirectory) ClaimSlot(ctx context.Context, parentCode string, side Side, childCode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	parent, ok := d.members[parentCode]
	if !ok {
		return ErrNotFound
	}
	if side == SideLeft {
		if parent.LeftChildCode != "" {
			return ErrSlotOccupied
		}
		parent.LeftChildCode = childCode
		return nil
	}
	if parent.RightChildCode != "" {
		return ErrSlotOccupied
	}
	parent.RightChildCode = childCode
	return nil
}

func (d *memDirectory) SetUpline(ctx context.Context, code, uplineCode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[code]
	if !ok {
		return ErrNotFound
	}
	m.UplineCode = uplineCode
	return nil
}

func (d *memDirectory) ApplyLedger(ctx context.Context, code string, guard LedgerGuard, update LedgerUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[code]
	if !ok {
		return ErrNotFound
	}
	if m.LeftCount != guard.LeftCount || m.RightCount != guard.RightCount || m.PairsCount != guard.PairsCount {
		return ErrConflict
	}
	m.LeftCount = update.LeftCount
	m.RightCount = update.RightCount
	m.PairsCount = update.PairsCount
	m.PromotionalIncome += update.IncomeDelta
	m.TotalIncome += update.IncomeDelta
	return nil
}

func (d *memDirectory) InsertPairBonus(ctx context.Context, entry *models.PairBonus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bonuses = append(d.bonuses, *entry)
	return nil
}

// conflictDirectory wraps memDirectory and fails the first n ledger
// writes with ErrConflict, to exercise the retry path.
type conflictDirectory struct {
	*memDirectory
	mu        sync.Mutex
	conflicts int
}

func (d *conflictDirectory) ApplyLedger(ctx context.Context, code string, guard LedgerGuard, update LedgerUpdate) error {
	d.mu.Lock()
	if d.conflicts > 0 {
		d.conflicts--
		d.mu.Unlock()
		return ErrConflict
	}
	d.mu.Unlock()
	return d.memDirectory.ApplyLedger(ctx, code, guard, update)
}
