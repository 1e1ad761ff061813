package cidr

import (
	"errors"
	"fmt"
)

// ErrSplitExhausted means a subtraction could not be completed by
// bisection down to single addresses.
var ErrSplitExhausted = errors.New("split exhausted")

// Subtract returns the minimal set of CIDR blocks covering exactly the
// addresses of n that are not in hole, in ascending address order.
//
// n is bisected repeatedly: a half disjoint from hole is kept, a half inside
// hole is dropped, and a half that still overlaps hole is split again.
// Depth is bounded by hole.Bits() - n.Bits().
func Subtract(n, hole Network) ([]Network, error) {
	if n.family != hole.family {
		return nil, &FamilyMismatchError{A: n, B: hole}
	}

	var out []Network
	stack := []Network{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case !cur.Overlaps(hole):
			out = append(out, cur)
		case hole.Contains(cur):
		case cur.bits >= cur.Width():
			return nil, fmt.Errorf("%w: %s minus %s stuck at %s", ErrSplitExhausted, n, hole, cur)
		default:
			lo, hi := cur.halves()
			// lo is popped first, keeping the output sorted.
			stack = append(stack, hi, lo)
		}
	}
	return out, nil
}
