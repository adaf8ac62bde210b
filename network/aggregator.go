// network/aggregator.go
package network

import (
	"context"
)

// Aggregator computes whole-subtree member counts from live slot
// pointers. It carries no cached state and has no side effects: every
// call is a full re-walk. Commission propagation calls it once per
// ancestor, which keeps the counters honest at the cost of traversal
// time proportional to subtree size.
type Aggregator struct {
	dir      Directory
	maxDepth int
}

func NewAggregator(dir Directory) *Aggregator {
	return &Aggregator{dir: dir, maxDepth: defaultMaxDepth}
}

// CountSubtree returns the total number of members in the left and
// right subtrees of the given member. Each count includes the child
// itself plus all of its descendants.
func (a *Aggregator) CountSubtree(ctx context.Context, code string) (int, int, error) {
	member, err := a.dir.FindByCode(ctx, code)
	if err != nil {
		return 0, 0, err
	}

	visited := map[string]bool{code: true}

	left, err := a.countFrom(ctx, member.LeftChildCode, 1, visited)
	if err != nil {
		return 0, 0, err
	}
	right, err := a.countFrom(ctx, member.RightChildCode, 1, visited)
	if err != nil {
		return 0, 0, err
	}
	return left, right, nil
}

// countFrom returns the size of the subtree rooted at code, failing
// closed on cycles and on runaway depth.
func (a *Aggregator) countFrom(ctx context.Context, code string, depth int, visited map[string]bool) (int, error) {
	if code == "" {
		return 0, nil
	}
	if depth > a.maxDepth {
		return 0, ErrMaxDepthExceeded
	}
	if visited[code] {
		return 0, ErrCycleDetected
	}
	visited[code] = true

	member, err := a.dir.FindByCode(ctx, code)
	if err != nil {
		return 0, err
	}

	left, err := a.countFrom(ctx, member.LeftChildCode, depth+1, visited)
	if err != nil {
		return 0, err
	}
	right, err := a.countFrom(ctx, member.RightChildCode, depth+1, visited)
	if err != nil {
		return 0, err
	}
	return 1 + left + right, nil
}
