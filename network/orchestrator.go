// network/orchestrator.go
package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rsleiman/souqly_backend/models"
)

// Orchestrator sequences a registration: create the bare member record,
// resolve its tree slot, then propagate commissions up the ancestor
// chain. It is deliberately thin; all tree logic lives in the resolver
// and the propagator.
type Orchestrator struct {
	dir        Directory
	resolver   *PlacementResolver
	propagator *Propagator

	// RequireReferrer hard-fails registration when a supplied referrer
	// code does not resolve. When false (the default) the member simply
	// becomes a tree root.
	RequireReferrer bool
}

func NewOrchestrator(dir Directory, resolver *PlacementResolver, propagator *Propagator) *Orchestrator {
	return &Orchestrator{dir: dir, resolver: resolver, propagator: propagator}
}

// RegistrationInput is what the account system hands over: the bare
// member (with its freshly generated unique referral code) and where it
// asked to be attached.
type RegistrationInput struct {
	Member       *models.Member
	ReferrerCode string
	UplineCode   string
	Side         Side
}

// Register creates the member and attaches it to the network. On a
// placement rejection the created member is still returned alongside
// the error: the account exists but stays an unplaced root, and the
// caller decides what to tell the user.
func (o *Orchestrator) Register(ctx context.Context, in RegistrationInput) (*models.Member, error) {
	if in.Member == nil || in.Member.ReferralCode == "" {
		return nil, fmt.Errorf("network: registration requires a member with a referral code")
	}

	if o.RequireReferrer && in.ReferrerCode != "" && in.UplineCode == "" {
		if _, err := o.dir.FindByCode(ctx, in.ReferrerCode); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("network: referrer code %s: %w", in.ReferrerCode, ErrUplineNotFound)
			}
			return nil, err
		}
	}

	now := time.Now()
	in.Member.CreatedAt = now
	in.Member.UpdatedAt = now
	if err := o.dir.Insert(ctx, in.Member); err != nil {
		return nil, err
	}

	placement, err := o.resolver.Place(ctx, PlacementRequest{
		MemberCode:   in.Member.ReferralCode,
		ReferrerCode: in.ReferrerCode,
		UplineCode:   in.UplineCode,
		Side:         in.Side,
	})
	if err != nil {
		return in.Member, err
	}
	if placement == nil {
		// Rootless member: no upline, nothing to propagate.
		return in.Member, nil
	}
	in.Member.UplineCode = placement.ParentCode

	event := Event{
		ID:         uuid.NewString(),
		MemberCode: in.Member.ReferralCode,
		ParentCode: placement.ParentCode,
		Side:       placement.Side,
	}
	if err := o.propagator.Propagate(ctx, event); err != nil {
		// The slot is claimed; counters catch up on the next event that
		// touches the same chain, or on a replay of this one.
		log.Printf("registration: propagation for event %s (member %s) failed: %v", event.ID, in.Member.ReferralCode, err)
		return in.Member, err
	}
	return in.Member, nil
}
