// Fichier: cidr/sort.go

package cidr

import "sort"

// Sort orders nets in place: IPv4 before IPv6, then numerically by base
// address, then larger blocks before smaller ones.
func Sort(nets []Network) {
	sort.Slice(nets, func(i, j int) bool {
		return nets[i].Compare(nets[j]) < 0
	})
}

// SortByPrefixLen orders nets by prefix length, shortest first. Networks
// of equal length keep their relative order.
func SortByPrefixLen(nets []Network) {
	sort.SliceStable(nets, func(i, j int) bool {
		return nets[i].bits < nets[j].bits
	})
}

// Partition splits nets by family, preserving order within each family.
// Invalid networks are left out.
func Partition(nets []Network) (v4, v6 []Network) {
	for _, n := range nets {
		switch n.family {
		case IPv4:
			v4 = append(v4, n)
		case IPv6:
			v6 = append(v6, n)
		}
	}
	return v4, v6
}

// Compact removes consecutive repeats from sorted nets.
func Compact(nets []Network) []Network {
	if len(nets) < 2 {
		return nets
	}
	out := nets[:1]
	for _, n := range nets[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}

// Strings returns the canonical form of every network.
func Strings(nets []Network) []string {
	out := make([]string, len(nets))
	for i, n := range nets {
		out[i] = n.String()
	}
	return out
}
