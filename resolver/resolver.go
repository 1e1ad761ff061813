// Package resolver turns a list of possibly overlapping networks into a
// pairwise-disjoint cover. Where one block contains another the larger one
// wins; partial overlaps are cut apart with cidr.Subtract.
package resolver

import (
	"fmt"
	"slices"

	"project/cidrfold/cidr"
)

// Policy selects how partial overlaps are handled.
type Policy int

const (
	// PolicySplit subtracts the previous block from the overlapping one.
	PolicySplit Policy = iota
	// PolicyKeepPartial keeps partially overlapping blocks as they are,
	// trading disjointness for fewer blocks.
	PolicyKeepPartial
)

func (p Policy) String() string {
	switch p {
	case PolicySplit:
		return "split"
	case PolicyKeepPartial:
		return "keep-partial"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps a config value to a Policy. An empty string is the
// default split policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "split":
		return PolicySplit, nil
	case "keep-partial":
		return PolicyKeepPartial, nil
	}
	return PolicySplit, fmt.Errorf("unknown overlap policy %q", s)
}

type options struct {
	policy   Policy
	classify func(a, b cidr.Network) (cidr.Relationship, error)
	subtract func(n, hole cidr.Network) ([]cidr.Network, error)
}

// Option configures Resolve.
type Option func(*options)

// WithPolicy sets the partial overlap policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// Outcome is the result of Resolve.
type Outcome struct {
	// Networks is disjoint and sorted, IPv4 first.
	Networks []cidr.Network
	// Log holds one entry per overlap found.
	Log []Entry
}

// Overlaps is the number of non-disjoint pairs the resolver acted on.
func (o Outcome) Overlaps() int { return len(o.Log) }

// Resolve builds a disjoint cover of nets. Each family is resolved on its
// own; the input slice is not modified.
func Resolve(nets []cidr.Network, opts ...Option) Outcome {
	o := options{policy: PolicySplit, classify: cidr.Classify, subtract: cidr.Subtract}
	for _, opt := range opts {
		opt(&o)
	}

	var out Outcome
	v4, v6 := cidr.Partition(nets)
	for _, family := range [][]cidr.Network{v4, v6} {
		sorted := slices.Clone(family)
		cidr.Sort(sorted)
		res, log := o.scan(sorted)
		out.Networks = append(out.Networks, res...)
		out.Log = append(out.Log, log...)
	}
	return out
}

// scan walks one family in sorted order, comparing each network with the
// last block accepted so far.
func (o *options) scan(sorted []cidr.Network) ([]cidr.Network, []Entry) {
	if len(sorted) == 0 {
		return nil, nil
	}

	var (
		result []cidr.Network
		log    []Entry
	)
	for _, n := range sorted {
		if len(result) == 0 {
			result = append(result, n)
			continue
		}

		last := result[len(result)-1]
		rel := o.relation(n, last)
		switch rel {
		case cidr.Disjoint:
			result = append(result, n)

		case cidr.Equal:
			log = append(log, Entry{
				Input: n, Against: last, Relation: rel, Action: ActionDrop,
				Reason: fmt.Sprintf("%s already present", n),
			})

		case cidr.SubsetOf:
			log = append(log, Entry{
				Input: n, Against: last, Relation: rel, Action: ActionDrop,
				Reason: fmt.Sprintf("%s fully inside %s", n, last),
			})

		case cidr.SupersetOf:
			// n takes the place of last and of any earlier blocks it covers.
			for len(result) > 0 && n.Contains(result[len(result)-1]) {
				prev := result[len(result)-1]
				result = result[:len(result)-1]
				log = append(log, Entry{
					Input: n, Against: prev, Relation: cidr.SupersetOf, Action: ActionReplace,
					Reason: fmt.Sprintf("%s fully inside %s, replaced", prev, n),
				})
			}
			result = append(result, n)

		case cidr.PartialOverlap:
			if o.policy == PolicyKeepPartial {
				result = append(result, n)
				log = append(log, Entry{
					Input: n, Against: last, Relation: rel, Action: ActionKeep,
					Reason: fmt.Sprintf("%s partially overlaps %s, kept unsplit by policy", n, last),
				})
				continue
			}

			frags, err := o.subtract(n, last)
			if err != nil {
				result = append(result, n)
				log = append(log, Entry{
					Input: n, Against: last, Relation: rel, Action: ActionKeep, Warning: true,
					Reason: fmt.Sprintf("could not split %s against %s: %v", n, last, err),
				})
				continue
			}
			result = append(result, frags...)
			log = append(log, Entry{
				Input: n, Against: last, Relation: rel, Action: ActionSplit, Fragments: frags,
				Reason: fmt.Sprintf("%s partially overlaps %s, %d parts remain", n, last, len(frags)),
			})
		}
	}

	cidr.Sort(result)
	return cidr.Compact(result), log
}

func (o *options) relation(a, b cidr.Network) cidr.Relationship {
	rel, err := o.classify(a, b)
	if err != nil {
		// Families are partitioned before resolving.
		panic(err)
	}
	return rel
}
