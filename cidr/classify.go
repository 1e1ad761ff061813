package cidr

import "fmt"

// Relationship describes how two networks of the same family relate,
// seen from the first argument of Classify.
type Relationship int

const (
	Disjoint Relationship = iota
	Equal
	SubsetOf
	SupersetOf
	PartialOverlap
)

func (r Relationship) String() string {
	switch r {
	case Disjoint:
		return "disjoint"
	case Equal:
		return "equal"
	case SubsetOf:
		return "subset"
	case SupersetOf:
		return "superset"
	case PartialOverlap:
		return "partial"
	}
	return fmt.Sprintf("Relationship(%d)", int(r))
}

// FamilyMismatchError is returned when an IPv4 and an IPv6 network are
// compared. Callers partition by family first, so seeing it is a bug.
type FamilyMismatchError struct {
	A, B Network
}

func (e *FamilyMismatchError) Error() string {
	return fmt.Sprintf("cannot compare %s network %s with %s network %s", e.A.family, e.A, e.B.family, e.B)
}

// Classify returns the relationship of a to b.
func Classify(a, b Network) (Relationship, error) {
	if a.family != b.family {
		return Disjoint, &FamilyMismatchError{A: a, B: b}
	}

	aLo, aHi := a.base, a.Broadcast()
	bLo, bHi := b.base, b.Broadcast()

	if aHi.Cmp(bLo) < 0 || bHi.Cmp(aLo) < 0 {
		return Disjoint, nil
	}
	if aLo.Equals(bLo) && aHi.Equals(bHi) {
		return Equal, nil
	}
	// Aligned blocks either nest or stay apart, so the prefix length
	// check decides containment.
	if a.bits > b.bits && b.Contains(a) {
		return SubsetOf, nil
	}
	if b.bits > a.bits && a.Contains(b) {
		return SupersetOf, nil
	}
	return PartialOverlap, nil
}
