// network/directory.go
package network

import (
	"context"

	"github.com/rsleiman/souqly_backend/models"
)

// Side identifies one of the two legs under a member.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Valid reports whether s is one of the two recognized sides.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// LedgerGuard carries the counter values read at the start of an ancestor
// update. The write only applies if the stored document still matches,
// which makes the counter-and-pair update one atomic unit per ancestor.
type LedgerGuard struct {
	LeftCount  int
	RightCount int
	PairsCount int
}

// LedgerUpdate is the reconciled state written back to an ancestor:
// fresh subtree counts, the new credited pair total, and the income to
// add for newly completed pairs (zero when no pair completed).
type LedgerUpdate struct {
	LeftCount   int
	RightCount  int
	PairsCount  int
	IncomeDelta float64
}

// Directory is the keyed store of member nodes. All tree relationships
// are addressed by referral code. Implementations must make ClaimSlot a
// single conditional write (empty -> occupied) and ApplyLedger a guarded
// compare-and-set, returning ErrSlotOccupied / ErrConflict respectively
// when the condition fails.
type Directory interface {
	// FindByCode returns the member with the given referral code, or
	// ErrNotFound.
	FindByCode(ctx context.Context, code string) (*models.Member, error)

	// Insert stores a new bare member record.
	Insert(ctx context.Context, member *models.Member) error

	// ClaimSlot sets parent's child slot on the given side to childCode,
	// only if the slot is currently empty. Returns ErrSlotOccupied if it
	// is not, ErrNotFound if the parent does not exist.
	ClaimSlot(ctx context.Context, parentCode string, side Side, childCode string) error

	// SetUpline records the immediate parent of a member. Called exactly
	// once, right after the slot claim succeeds.
	SetUpline(ctx context.Context, code, uplineCode string) error

	// ApplyLedger writes counters, pairs and income for one member in a
	// single conditional update guarded by the values previously read.
	// Returns ErrConflict when the guard no longer matches.
	ApplyLedger(ctx context.Context, code string, guard LedgerGuard, update LedgerUpdate) error

	// InsertPairBonus appends one audit ledger entry for a credit.
	InsertPairBonus(ctx context.Context, entry *models.PairBonus) error
}
