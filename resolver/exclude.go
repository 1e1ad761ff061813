package resolver

import (
	"fmt"

	"project/cidrfold/cidr"
)

// Exclude removes every address covered by holes from nets. Networks inside
// a hole are dropped, networks that contain a hole are split around it.
// nets is expected to be disjoint; the result is disjoint and sorted.
func Exclude(nets, holes []cidr.Network) ([]cidr.Network, []Entry) {
	if len(holes) == 0 {
		return nets, nil
	}

	var log []Entry
	out := make([]cidr.Network, 0, len(nets))
	for _, n := range nets {
		pieces := []cidr.Network{n}
		for _, h := range holes {
			if h.Family() != n.Family() || !h.Overlaps(n) {
				continue
			}
			var next []cidr.Network
			for _, p := range pieces {
				if !p.Overlaps(h) {
					next = append(next, p)
					continue
				}
				frags, err := cidr.Subtract(p, h)
				if err != nil {
					next = append(next, p)
					log = append(log, Entry{
						Input: p, Against: h, Relation: relationOf(p, h), Action: ActionKeep, Warning: true,
						Reason: fmt.Sprintf("could not exclude %s from %s: %v", h, p, err),
					})
					continue
				}
				reason := fmt.Sprintf("%s inside excluded %s", p, h)
				if len(frags) > 0 {
					reason = fmt.Sprintf("excluded %s from %s, %d parts remain", h, p, len(frags))
				}
				log = append(log, Entry{
					Input: p, Against: h, Relation: relationOf(p, h), Action: ActionExclude,
					Fragments: frags, Reason: reason,
				})
				next = append(next, frags...)
			}
			pieces = next
		}
		out = append(out, pieces...)
	}

	cidr.Sort(out)
	return cidr.Compact(out), log
}

func relationOf(a, b cidr.Network) cidr.Relationship {
	rel, _ := cidr.Classify(a, b)
	return rel
}
