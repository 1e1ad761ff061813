package resolver

import (
	"fmt"
	"net/netip"

	"github.com/gaissmai/bart"

	"project/cidrfold/cidr"
)

// OverlapError reports two networks that were expected to be disjoint.
type OverlapError struct {
	A, B cidr.Network
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("networks %s and %s overlap", e.A, e.B)
}

// Verify checks that nets is pairwise disjoint using a routing table as an
// independent oracle. It returns an *OverlapError for the first clash.
func Verify(nets []cidr.Network) error {
	var tbl bart.Table[cidr.Network]
	for _, n := range nets {
		pfx := n.Prefix()
		if tbl.OverlapsPrefix(pfx) {
			return &OverlapError{A: clashWith(&tbl, pfx), B: n}
		}
		tbl.Insert(pfx, n)
	}
	return nil
}

func clashWith(tbl *bart.Table[cidr.Network], pfx netip.Prefix) cidr.Network {
	for _, v := range tbl.Supernets(pfx) {
		return v
	}
	for _, v := range tbl.Subnets(pfx) {
		return v
	}
	return cidr.Network{}
}

// Intersection is one containment pair among the input networks.
type Intersection struct {
	Inner cidr.Network
	Outer cidr.Network
}

// Intersections lists every pair (inner, outer) of distinct networks in nets
// where outer contains inner, in input order of inner. Networks are
// deduplicated first.
func Intersections(nets []cidr.Network) []Intersection {
	unique, _ := cidr.Deduplicate(nets)

	var tbl bart.Table[cidr.Network]
	for _, n := range unique {
		tbl.Insert(n.Prefix(), n)
	}

	var out []Intersection
	for _, n := range unique {
		pfx := n.Prefix()
		for sup, v := range tbl.Supernets(pfx) {
			if sup == pfx {
				continue
			}
			out = append(out, Intersection{Inner: n, Outer: v})
		}
	}
	return out
}
