package resolver

import (
	"fmt"
	"strings"

	"project/cidrfold/cidr"
)

// Action is what the resolver did with an input network.
type Action string

const (
	ActionKeep    Action = "keep"
	ActionDrop    Action = "drop"
	ActionReplace Action = "replace"
	ActionSplit   Action = "split-into"
	ActionExclude Action = "exclude"
)

// Entry records one resolution decision. Against is the network the input
// was compared with; Fragments is set for ActionSplit and ActionExclude.
type Entry struct {
	Input     cidr.Network
	Against   cidr.Network
	Relation  cidr.Relationship
	Action    Action
	Fragments []cidr.Network
	Reason    string
	Warning   bool
}

func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s %s): %s", e.Action, e.Input, e.Relation, e.Against, e.Reason)
	if len(e.Fragments) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(cidr.Strings(e.Fragments), ", "))
		b.WriteString("]")
	}
	return b.String()
}

// Count returns how many entries in log took action a.
func Count(log []Entry, a Action) int {
	n := 0
	for _, e := range log {
		if e.Action == a {
			n++
		}
	}
	return n
}

// Warnings returns the entries flagged as degraded results.
func Warnings(log []Entry) []Entry {
	var out []Entry
	for _, e := range log {
		if e.Warning {
			out = append(out, e)
		}
	}
	return out
}
