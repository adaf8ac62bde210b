// network/placement.go
package network

import (
	"context"
	"errors"
	"fmt"
	"log"
)

const (
	// defaultMaxDepth bounds every recursive traversal. A well-formed
	// tree never gets close to this; hitting it means malformed data.
	defaultMaxDepth = 64

	// defaultClaimRetries bounds how many times an automatic placement
	// re-runs its search after losing a slot race.
	defaultClaimRetries = 5
)

// PlacementRequest describes where a new member asked to be attached.
// Either UplineCode+Side are set (manual placement) or ReferrerCode is
// set on its own (automatic placement).
type PlacementRequest struct {
	MemberCode   string
	ReferrerCode string
	UplineCode   string
	Side         Side
}

// Placement is the slot actually assigned.
type Placement struct {
	ParentCode string
	Side       Side
}

// PlacementResolver finds or validates the tree slot for a new member.
type PlacementResolver struct {
	dir          Directory
	maxDepth     int
	claimRetries int
}

func NewPlacementResolver(dir Directory) *PlacementResolver {
	return &PlacementResolver{
		dir:          dir,
		maxDepth:     defaultMaxDepth,
		claimRetries: defaultClaimRetries,
	}
}

// Place resolves the slot for req.MemberCode. A nil placement with a nil
// error means the member becomes a tree root (referrer code did not
// resolve); whether that is acceptable is the orchestrator's policy.
func (r *PlacementResolver) Place(ctx context.Context, req PlacementRequest) (*Placement, error) {
	if req.UplineCode != "" {
		if !req.Side.Valid() {
			return nil, fmt.Errorf("network: invalid side %q", req.Side)
		}
		return r.placeManual(ctx, req)
	}
	if req.ReferrerCode == "" {
		return nil, nil
	}
	return r.placeAuto(ctx, req)
}

// placeManual attaches the member at the exact slot requested. An
// occupied slot is a hard rejection; it must reach the caller so the
// account is never left silently unattached.
func (r *PlacementResolver) placeManual(ctx context.Context, req PlacementRequest) (*Placement, error) {
	upline, err := r.dir.FindByCode(ctx, req.UplineCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUplineNotFound
		}
		return nil, err
	}

	occupant := upline.LeftChildCode
	if req.Side == SideRight {
		occupant = upline.RightChildCode
	}
	if occupant != "" {
		return nil, ErrSlotOccupied
	}

	// The claim itself can still lose to a concurrent registration that
	// grabbed the slot after the read above; that also surfaces as
	// ErrSlotOccupied in manual mode.
	if err := r.dir.ClaimSlot(ctx, req.UplineCode, req.Side, req.MemberCode); err != nil {
		return nil, err
	}
	if err := r.dir.SetUpline(ctx, req.MemberCode, req.UplineCode); err != nil {
		return nil, err
	}
	return &Placement{ParentCode: req.UplineCode, Side: req.Side}, nil
}

// placeAuto searches from the referrer for the first empty slot in
// left-biased pre-order and claims it. Losing the claim race re-runs
// the search from scratch, a bounded number of times.
func (r *PlacementResolver) placeAuto(ctx context.Context, req PlacementRequest) (*Placement, error) {
	if _, err := r.dir.FindByCode(ctx, req.ReferrerCode); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Unknown referrer: the member becomes a tree root.
			log.Printf("placement: referrer code %s not found, %s registers as root", req.ReferrerCode, req.MemberCode)
			return nil, nil
		}
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < r.claimRetries; attempt++ {
		parentCode, side, err := r.findOpenSlot(ctx, req.ReferrerCode, 0, map[string]bool{})
		if err != nil {
			return nil, err
		}

		err = r.dir.ClaimSlot(ctx, parentCode, side, req.MemberCode)
		if errors.Is(err, ErrSlotOccupied) {
			// Lost the race for this slot; re-resolve.
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := r.dir.SetUpline(ctx, req.MemberCode, parentCode); err != nil {
			return nil, err
		}
		return &Placement{ParentCode: parentCode, Side: side}, nil
	}
	return nil, fmt.Errorf("network: placement search exhausted retries: %w", lastErr)
}

// findOpenSlot walks the subtree rooted at code in pre-order, left leg
// first, and returns the first member with an empty slot. The visited
// set and depth counter are explicit so cycle handling stays testable.
func (r *PlacementResolver) findOpenSlot(ctx context.Context, code string, depth int, visited map[string]bool) (string, Side, error) {
	if depth > r.maxDepth {
		return "", "", ErrMaxDepthExceeded
	}
	if visited[code] {
		return "", "", ErrCycleDetected
	}
	visited[code] = true

	member, err := r.dir.FindByCode(ctx, code)
	if err != nil {
		return "", "", err
	}
	if member.LeftChildCode == "" {
		return code, SideLeft, nil
	}
	if member.RightChildCode == "" {
		return code, SideRight, nil
	}
	if parent, side, err := r.findOpenSlot(ctx, member.LeftChildCode, depth+1, visited); err == nil {
		return parent, side, nil
	} else if !errors.Is(err, ErrMaxDepthExceeded) {
		return "", "", err
	}
	return r.findOpenSlot(ctx, member.RightChildCode, depth+1, visited)
}
