// network/propagator.go
package network

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rsleiman/souqly_backend/models"
)

const (
	defaultLedgerRetries = 5
	defaultRetryBackoff  = 25 * time.Millisecond

	// DefaultPairBonusRate is the bonus credited per completed pair when
	// no rate is configured.
	DefaultPairBonusRate = 500
)

// Notifier receives pair-bonus credits as they happen. Implementations
// must not block; the propagator calls it inline on the request path.
type Notifier interface {
	NotifyPairBonus(referralCode string, pairs int, amount float64)
}

// Event identifies one registration whose placement is being propagated
// up the ancestor chain. ID ties ledger entries back to the event.
type Event struct {
	ID         string
	MemberCode string
	ParentCode string
	Side       Side
}

// Propagator walks the ancestor chain of a newly placed member, bottom
// up, reconciling counters and crediting newly completed pairs at each
// ancestor. Each ancestor's update is an independent atomic unit, so a
// failed run can be replayed: already-credited ancestors see zero new
// pairs and are left untouched.
type Propagator struct {
	dir        Directory
	agg        *Aggregator
	bonusRate  float64
	maxDepth   int
	maxRetries int
	backoff    time.Duration
	notifier   Notifier
}

func NewPropagator(dir Directory, agg *Aggregator, bonusRate float64) *Propagator {
	if bonusRate <= 0 {
		bonusRate = DefaultPairBonusRate
	}
	return &Propagator{
		dir:        dir,
		agg:        agg,
		bonusRate:  bonusRate,
		maxDepth:   defaultMaxDepth,
		maxRetries: defaultLedgerRetries,
		backoff:    defaultRetryBackoff,
	}
}

// SetNotifier attaches an optional credit notifier.
func (p *Propagator) SetNotifier(n Notifier) {
	p.notifier = n
}

// Propagate applies the event to every ancestor, starting at the
// immediate parent. One ancestor is fully committed before the next is
// read; there is no lock across the chain.
func (p *Propagator) Propagate(ctx context.Context, ev Event) error {
	code := ev.ParentCode
	side := ev.Side

	for depth := 0; code != ""; depth++ {
		if depth >= p.maxDepth {
			log.Printf("propagation: event %s exceeded max depth at ancestor %s", ev.ID, code)
			return ErrMaxDepthExceeded
		}

		ancestor, err := p.creditAncestor(ctx, code, side, ev)
		if err != nil {
			return err
		}
		if ancestor.UplineCode == "" {
			return nil
		}

		upline, err := p.dir.FindByCode(ctx, ancestor.UplineCode)
		if err != nil {
			return err
		}
		switch ancestor.ReferralCode {
		case upline.LeftChildCode:
			side = SideLeft
		case upline.RightChildCode:
			side = SideRight
		default:
			log.Printf("propagation: event %s: member %s missing from children of upline %s", ev.ID, ancestor.ReferralCode, upline.ReferralCode)
			return ErrDetachedAncestor
		}
		code = upline.ReferralCode
	}
	return nil
}

// creditAncestor applies the counter-and-pair update for one ancestor
// as a single guarded write, retrying on conflict with bounded backoff.
// Never restarts the chain walk; only this ancestor is retried.
func (p *Propagator) creditAncestor(ctx context.Context, code string, side Side, ev Event) (*models.Member, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * p.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		member, err := p.dir.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		guard := LedgerGuard{
			LeftCount:  member.LeftCount,
			RightCount: member.RightCount,
			PairsCount: member.PairsCount,
		}

		// Optimistic view of the side counter after this event.
		expected := member.LeftCount + 1
		if side == SideRight {
			expected = member.RightCount + 1
		}

		// Ground truth from a full re-walk; this overwrites the stored
		// counters and reconciles any drift.
		left, right, err := p.agg.CountSubtree(ctx, code)
		if err != nil {
			return nil, err
		}
		actual := left
		if side == SideRight {
			actual = right
		}
		if actual != expected {
			log.Printf("propagation: event %s: reconciled %s counter drift on %s (stored+1=%d, actual=%d)", ev.ID, side, code, expected, actual)
		}

		totalPairs := min(left, right)
		newPairs := totalPairs - member.PairsCount
		if newPairs < 0 {
			// Counts can lag behind credits mid-flight elsewhere in the
			// tree; credited pairs never regress.
			totalPairs = member.PairsCount
			newPairs = 0
		}

		update := LedgerUpdate{
			LeftCount:   left,
			RightCount:  right,
			PairsCount:  totalPairs,
			IncomeDelta: float64(newPairs) * p.bonusRate,
		}
		if err := p.dir.ApplyLedger(ctx, code, guard, update); err != nil {
			if errors.Is(err, ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		if newPairs > 0 {
			p.recordCredit(ctx, member, ev, newPairs, update.IncomeDelta)
		}

		member.LeftCount = left
		member.RightCount = right
		member.PairsCount = totalPairs
		return member, nil
	}
	return nil, lastErr
}

// recordCredit writes the audit ledger row and pushes the notification.
// Neither failure aborts the propagation; the income update above is
// the source of truth.
func (p *Propagator) recordCredit(ctx context.Context, member *models.Member, ev Event, pairs int, amount float64) {
	entry := &models.PairBonus{
		MemberID:     member.ID,
		ReferralCode: member.ReferralCode,
		EventID:      ev.ID,
		Pairs:        pairs,
		Amount:       amount,
		CreatedAt:    time.Now(),
	}
	if err := p.dir.InsertPairBonus(ctx, entry); err != nil {
		log.Printf("propagation: event %s: failed to record pair bonus for %s: %v", ev.ID, member.ReferralCode, err)
	}
	if p.notifier != nil {
		p.notifier.NotifyPairBonus(member.ReferralCode, pairs, amount)
	}
}
