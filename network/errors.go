// network/errors.go
package network

import "errors"

var (
	// ErrNotFound means a referral code did not resolve to any member.
	ErrNotFound = errors.New("network: member not found")

	// ErrUplineNotFound means an explicit upline code did not resolve.
	ErrUplineNotFound = errors.New("network: upline not found")

	// ErrSlotOccupied means the requested child slot is already filled.
	// This is surfaced to the caller, never swallowed.
	ErrSlotOccupied = errors.New("network: slot already occupied")

	// ErrMaxDepthExceeded means a traversal ran past the safety bound.
	// Treated as a fatal consistency condition, not retried.
	ErrMaxDepthExceeded = errors.New("network: max tree depth exceeded")

	// ErrCycleDetected means the slot graph loops back on itself.
	ErrCycleDetected = errors.New("network: cycle detected in tree")

	// ErrDetachedAncestor means a member's upline does not list it as a
	// child on either side. Fatal consistency condition.
	ErrDetachedAncestor = errors.New("network: ancestor not linked under its upline")

	// ErrConflict means a guarded write lost a race with a concurrent
	// update. Transient; retried with bounded backoff.
	ErrConflict = errors.New("network: concurrent update conflict")
)
