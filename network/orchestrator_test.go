package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(dir Directory) *Orchestrator {
	resolver := NewPlacementResolver(dir)
	prop := NewPropagator(dir, NewAggregator(dir), testBonusRate)
	return NewOrchestrator(dir, resolver, prop)
}

func TestRegisterAttachesAndPropagates(t *testing.T) {
	dir := newMemDirectory()
	dir.seed(bareMember("MBR-ROOT"))
	orch := newTestOrchestrator(dir)

	left, err := orch.Register(context.Background(), RegistrationInput{
		Member:       bareMember("MBR-B"),
		ReferrerCode: "MBR-ROOT",
	})
	require.NoError(t, err)
	assert.Equal(t, "MBR-ROOT", left.UplineCode)

	_, err = orch.Register(context.Background(), RegistrationInput{
		Member:       bareMember("MBR-C"),
		ReferrerCode: "MBR-ROOT",
	})
	require.NoError(t, err)

	root := dir.get("MBR-ROOT")
	assert.Equal(t, "MBR-B", root.LeftChildCode)
	assert.Equal(t, "MBR-C", root.RightChildCode)
	assert.Equal(t, 1, root.PairsCount)
	assert.Equal(t, float64(testBonusRate), root.TotalIncome)
}

func TestRegisterUnknownReferrerPermissive(t *testing.T) {
	dir := newMemDirectory()
	orch := newTestOrchestrator(dir)

	member, err := orch.Register(context.Background(), RegistrationInput{
		Member:       bareMember("MBR-X"),
		ReferrerCode: "MBR-GHOST",
	})
	require.NoError(t, err)
	assert.Empty(t, member.UplineCode)
	assert.Empty(t, dir.get("MBR-X").UplineCode)
}

func TestRegisterUnknownReferrerRequired(t *testing.T) {
	dir := newMemDirectory()
	orch := newTestOrchestrator(dir)
	orch.RequireReferrer = true

	_, err := orch.Register(context.Background(), RegistrationInput{
		Member:       bareMember("MBR-X"),
		ReferrerCode: "MBR-GHOST",
	})
	require.ErrorIs(t, err, ErrUplineNotFound)

	// Hard-fail happens before the record is created.
	_, err = dir.FindByCode(context.Background(), "MBR-X")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterRejectionLeavesUnplacedRoot(t *testing.T) {
	dir := newMemDirectory()
	upline := bareMember("MBR-UP")
	upline.LeftChildCode = "MBR-KID"
	dir.seed(upline)
	orch := newTestOrchestrator(dir)

	member, err := orch.Register(context.Background(), RegistrationInput{
		Member:     bareMember("MBR-NEW"),
		UplineCode: "MBR-UP",
		Side:       SideLeft,
	})
	require.ErrorIs(t, err, ErrSlotOccupied)

	// The account exists but stays outside the tree.
	require.NotNil(t, member)
	stored := dir.get("MBR-NEW")
	assert.Empty(t, stored.UplineCode)
	assert.Equal(t, "MBR-KID", dir.get("MBR-UP").LeftChildCode)
}

func TestRegisterRequiresReferralCode(t *testing.T) {
	orch := newTestOrchestrator(newMemDirectory())
	_, err := orch.Register(context.Background(), RegistrationInput{})
	require.Error(t, err)
}
