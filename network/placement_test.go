package network

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsleiman/souqly_backend/models"
)

func bareMember(code string) *models.Member {
	return &models.Member{ReferralCode: code, FullName: "Member " + code}
}

func TestAutomaticPlacementFillsLeftFirst(t *testing.T) {
	dir := newMemDirectory()
	dir.seed(bareMember("MBR-ROOT"))
	dir.seed(bareMember("MBR-NEW"))
	resolver := NewPlacementResolver(dir)

	placement, err := resolver.Place(context.Background(), PlacementRequest{
		MemberCode:   "MBR-NEW",
		ReferrerCode: "MBR-ROOT",
	})
	require.NoError(t, err)
	require.NotNil(t, placement)
	assert.Equal(t, "MBR-ROOT", placement.ParentCode)
	assert.Equal(t, SideLeft, placement.Side)

	root := dir.get("MBR-ROOT")
	assert.Equal(t, "MBR-NEW", root.LeftChildCode)
	assert.Empty(t, root.RightChildCode)
	assert.Equal(t, "MBR-ROOT", dir.get("MBR-NEW").UplineCode)
}

func TestAutomaticPlacementPreOrder(t *testing.T) {
	// Root has both slots filled; the search must descend into the left
	// subtree before touching the right one.
	dir := newMemDirectory()
	root := bareMember("MBR-ROOT")
	root.LeftChildCode = "MBR-L"
	root.RightChildCode = "MBR-R"
	dir.seed(root)
	left := bareMember("MBR-L")
	left.UplineCode = "MBR-ROOT"
	dir.seed(left)
	right := bareMember("MBR-R")
	right.UplineCode = "MBR-ROOT"
	dir.seed(right)
	dir.seed(bareMember("MBR-NEW"))
	resolver := NewPlacementResolver(dir)

	placement, err := resolver.Place(context.Background(), PlacementRequest{
		MemberCode:   "MBR-NEW",
		ReferrerCode: "MBR-ROOT",
	})
	require.NoError(t, err)
	require.NotNil(t, placement)
	assert.Equal(t, "MBR-L", placement.ParentCode)
	assert.Equal(t, SideLeft, placement.Side)
}

func TestManualPlacement(t *testing.T) {
	dir := newMemDirectory()
	dir.seed(bareMember("MBR-UP"))
	dir.seed(bareMember("MBR-NEW"))
	resolver := NewPlacementResolver(dir)

	placement, err := resolver.Place(context.Background(), PlacementRequest{
		MemberCode: "MBR-NEW",
		UplineCode: "MBR-UP",
		Side:       SideRight,
	})
	require.NoError(t, err)
	assert.Equal(t, SideRight, placement.Side)
	assert.Equal(t, "MBR-NEW", dir.get("MBR-UP").RightChildCode)
	assert.Equal(t, "MBR-UP", dir.get("MBR-NEW").UplineCode)
}

func TestManualPlacementSlotOccupied(t *testing.T) {
	dir := newMemDirectory()
	upline := bareMember("MBR-UP")
	upline.LeftChildCode = "MBR-KID"
	dir.seed(upline)
	dir.seed(bareMember("MBR-NEW"))
	resolver := NewPlacementResolver(dir)

	placement, err := resolver.Place(context.Background(), PlacementRequest{
		MemberCode: "MBR-NEW",
		UplineCode: "MBR-UP",
		Side:       SideLeft,
	})
	require.ErrorIs(t, err, ErrSlotOccupied)
	assert.Nil(t, placement)

	// Rejection must not alter any tree state.
	after := dir.get("MBR-UP")
	assert.Equal(t, "MBR-KID", after.LeftChildCode)
	assert.Empty(t, after.RightChildCode)
	assert.Empty(t, dir.get("MBR-NEW").UplineCode)
}

func TestManualPlacementUplineNotFound(t *testing.T) {
	dir := newMemDirectory()
	dir.seed(bareMember("MBR-NEW"))
	resolver := NewPlacementResolver(dir)

	_, err := resolver.Place(context.Background(), PlacementRequest{
		MemberCode: "MBR-NEW",
		UplineCode: "MBR-GHOST",
		Side:       SideLeft,
	})
	require.ErrorIs(t, err, ErrUplineNotFound)
}

func TestUnknownReferrerBecomesRoot(t *testing.T) {
	dir := newMemDirectory()
	dir.seed(bareMember("MBR-NEW"))
	resolver := NewPlacementResolver(dir)

	placement, err := resolver.Place(context.Background(), PlacementRequest{
		MemberCode:   "MBR-NEW",
		ReferrerCode: "MBR-GHOST",
	})
	require.NoError(t, err)
	assert.Nil(t, placement)
	assert.Empty(t, dir.get("MBR-NEW").UplineCode)
}

func TestPlacementCycleDetected(t *testing.T) {
	// Malformed data: two full members pointing at each other.
	dir := newMemDirectory()
	a := bareMember("MBR-A")
	a.LeftChildCode = "MBR-B"
	a.RightChildCode = "MBR-B"
	dir.seed(a)
	b := bareMember("MBR-B")
	b.LeftChildCode = "MBR-A"
	b.RightChildCode = "MBR-A"
	dir.seed(b)
	dir.seed(bareMember("MBR-NEW"))
	resolver := NewPlacementResolver(dir)

	_, err := resolver.Place(context.Background(), PlacementRequest{
		MemberCode:   "MBR-NEW",
		ReferrerCode: "MBR-A",
	})
	require.ErrorIs(t, err, ErrCycleDetected)
}

func TestPlacementMaxDepthExceeded(t *testing.T) {
	// A complete binary tree one level deeper than the bound: every
	// reachable slot sits past the depth limit.
	dir := newMemDirectory()
	resolver := NewPlacementResolver(dir)
	resolver.maxDepth = 3

	const nodes = 31 // complete tree of depth 4, heap indexing
	for i := 1; i <= nodes; i++ {
		m := bareMember(fmt.Sprintf("MBR-T%02d", i))
		if 2*i <= nodes {
			m.LeftChildCode = fmt.Sprintf("MBR-T%02d", 2*i)
			m.RightChildCode = fmt.Sprintf("MBR-T%02d", 2*i+1)
		}
		dir.seed(m)
	}
	dir.seed(bareMember("MBR-NEW"))

	_, err := resolver.Place(context.Background(), PlacementRequest{
		MemberCode:   "MBR-NEW",
		ReferrerCode: "MBR-T01",
	})
	require.ErrorIs(t, err, ErrMaxDepthExceeded)
}

func TestConcurrentAutomaticPlacement(t *testing.T) {
	dir := newMemDirectory()
	dir.seed(bareMember("MBR-ROOT"))
	resolver := NewPlacementResolver(dir)
	// Heavy contention on a small tree; give losers room to re-resolve.
	resolver.claimRetries = 32

	const n = 8
	codes := make([]string, n)
	for i := range codes {
		codes[i] = fmt.Sprintf("MBR-N%02d", i)
		dir.seed(bareMember(codes[i]))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = resolver.Place(context.Background(), PlacementRequest{
				MemberCode:   codes[i],
				ReferrerCode: "MBR-ROOT",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "placement %d", i)
	}

	// Every member landed in exactly one slot, and parent/child links
	// agree in both directions.
	slotOwners := make(map[string]string)
	for _, code := range codes {
		m := dir.get(code)
		require.NotEmpty(t, m.UplineCode, "member %s has no upline", code)
		parent := dir.get(m.UplineCode)
		var side string
		switch code {
		case parent.LeftChildCode:
			side = "left"
		case parent.RightChildCode:
			side = "right"
		default:
			t.Fatalf("member %s not a child of its upline %s", code, m.UplineCode)
		}
		slot := m.UplineCode + "/" + side
		if owner, taken := slotOwners[slot]; taken {
			t.Fatalf("slot %s claimed by both %s and %s", slot, owner, code)
		}
		slotOwners[slot] = code
	}
	assert.Len(t, slotOwners, n)
}
