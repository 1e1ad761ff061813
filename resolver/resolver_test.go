package resolver

import (
	"math/rand/v2"
	"net/netip"
	"testing"

	"github.com/gaissmai/bart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project/cidrfold/cidr"
)

func parse(t *testing.T, ss ...string) []cidr.Network {
	t.Helper()
	nets, errs := cidr.ParseAll(ss)
	require.Empty(t, errs)
	return nets
}

func defaultOptions() *options {
	return &options{policy: PolicySplit, classify: cidr.Classify, subtract: cidr.Subtract}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		actions []Action
	}{
		{
			name: "empty",
		},
		{
			name:    "subset absorbed",
			in:      []string{"10.0.0.0/8", "10.1.0.0/16"},
			want:    []string{"10.0.0.0/8"},
			actions: []Action{ActionDrop},
		},
		{
			name:    "subset absorbed regardless of input order",
			in:      []string{"10.1.0.0/16", "10.0.0.0/8"},
			want:    []string{"10.0.0.0/8"},
			actions: []Action{ActionDrop},
		},
		{
			name:    "contained /24 is not split",
			in:      []string{"10.0.0.0/23", "10.0.1.0/24"},
			want:    []string{"10.0.0.0/23"},
			actions: []Action{ActionDrop},
		},
		{
			name:    "exact repeat dropped",
			in:      []string{"192.168.0.0/16", "192.168.0.0/16"},
			want:    []string{"192.168.0.0/16"},
			actions: []Action{ActionDrop},
		},
		{
			name: "disjoint kept and sorted",
			in:   []string{"192.168.0.0/16", "10.0.0.0/8", "172.16.0.0/12"},
			want: []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		},
		{
			name:    "nested chain",
			in:      []string{"10.1.2.0/24", "10.1.0.0/16", "10.0.0.0/8", "10.1.2.3"},
			want:    []string{"10.0.0.0/8"},
			actions: []Action{ActionDrop, ActionDrop, ActionDrop},
		},
		{
			name:    "families resolved independently",
			in:      []string{"2001:db8::/32", "0.0.0.1/32", "::1/128", "2001:db8:1::/48", "10.0.0.0/8"},
			want:    []string{"0.0.0.1/32", "10.0.0.0/8", "::1/128", "2001:db8::/32"},
			actions: []Action{ActionDrop},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resolve(parse(t, tt.in...))
			assert.Equal(t, tt.want, nonNil(cidr.Strings(out.Networks)))

			var actions []Action
			for _, e := range out.Log {
				actions = append(actions, e.Action)
			}
			assert.Equal(t, tt.actions, actions)
			assert.Equal(t, len(tt.actions), out.Overlaps())
			assert.NoError(t, Verify(out.Networks))
		})
	}
}

func nonNil(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	return ss
}

func TestResolveDoesNotModifyInput(t *testing.T) {
	in := parse(t, "10.1.0.0/16", "10.0.0.0/8")
	before := cidr.Strings(in)
	Resolve(in)
	assert.Equal(t, before, cidr.Strings(in))
}

func TestResolveIgnoresInvalidNetworks(t *testing.T) {
	in := []cidr.Network{cidr.MustParse("2001:db8::/32"), {}, cidr.MustParse("2001:db8:1::/48")}

	var out Outcome
	require.NotPanics(t, func() { out = Resolve(in) })
	assert.Equal(t, []string{"2001:db8::/32"}, cidr.Strings(out.Networks))
}

func TestResolveIsIdempotent(t *testing.T) {
	prng := rand.New(rand.NewPCG(7, 7))
	for range 50 {
		first := Resolve(randomNetworks(prng, 200))
		second := Resolve(first.Networks)
		assert.Equal(t, first.Networks, second.Networks)
		assert.Empty(t, second.Log)
	}
}

func TestResolveInvariants(t *testing.T) {
	prng := rand.New(rand.NewPCG(42, 42))
	for range 50 {
		in := randomNetworks(prng, 300)
		out := Resolve(in)

		require.NoError(t, Verify(out.Networks))
		for i, a := range out.Networks {
			for _, b := range out.Networks[i+1:] {
				if a.Family() != b.Family() {
					continue
				}
				rel, err := cidr.Classify(a, b)
				require.NoError(t, err)
				require.Equal(t, cidr.Disjoint, rel, "%s vs %s", a, b)
			}
		}

		// Every output block comes from the input.
		inputs := map[cidr.Network]bool{}
		for _, n := range in {
			inputs[n] = true
		}
		for _, n := range out.Networks {
			assert.True(t, inputs[n], "%s not an input network", n)
		}

		// Every input address is still covered.
		for _, n := range in {
			assert.Empty(t, uncovered(t, n, out.Networks), "%s lost addresses", n)
		}

		// Spot check against a routing table holding the raw input.
		var tbl, res bart.Table[struct{}]
		for _, n := range in {
			tbl.Insert(n.Prefix(), struct{}{})
		}
		for _, n := range out.Networks {
			res.Insert(n.Prefix(), struct{}{})
		}
		for range 500 {
			ip := randomAddr(prng)
			assert.Equal(t, tbl.Contains(ip), res.Contains(ip), "address %s", ip)
		}
	}
}

// uncovered returns the parts of n not covered by any of nets.
func uncovered(t *testing.T, n cidr.Network, nets []cidr.Network) []cidr.Network {
	pieces := []cidr.Network{n}
	for _, c := range nets {
		if c.Family() != n.Family() {
			continue
		}
		var next []cidr.Network
		for _, p := range pieces {
			frags, err := cidr.Subtract(p, c)
			require.NoError(t, err)
			next = append(next, frags...)
		}
		pieces = next
	}
	return pieces
}

func randomAddr(prng *rand.Rand) netip.Addr {
	if prng.IntN(2) == 0 {
		ip := 0x0A000000 | prng.Uint32()&0x00FFFFFF
		return netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)})
	}
	var a [16]byte
	a[0], a[1], a[2], a[3] = 0x20, 0x01, 0x0d, 0xb8
	a[4] = byte(prng.IntN(4))
	for i := 5; i < 16; i++ {
		a[i] = byte(prng.Uint32())
	}
	return netip.AddrFrom16(a)
}

func randomNetworks(prng *rand.Rand, n int) []cidr.Network {
	out := make([]cidr.Network, 0, n)
	for range n {
		addr := randomAddr(prng)
		var bits int
		if addr.Is4() {
			bits = 8 + prng.IntN(25)
		} else {
			bits = 32 + prng.IntN(97)
		}
		out = append(out, cidr.FromPrefix(netip.PrefixFrom(addr, bits)))
	}
	return out
}

func TestScanReplacesCoveredBlocks(t *testing.T) {
	// Out of order on purpose: a later superset must replace what came before.
	res, log := defaultOptions().scan(parse(t, "10.1.0.0/16", "10.2.0.0/16", "10.0.0.0/8"))

	assert.Equal(t, []string{"10.0.0.0/8"}, cidr.Strings(res))
	require.Len(t, log, 2)
	for _, e := range log {
		assert.Equal(t, ActionReplace, e.Action)
		assert.Equal(t, cidr.SupersetOf, e.Relation)
		assert.Equal(t, "10.0.0.0/8", e.Input.String())
	}
	assert.Equal(t, "10.2.0.0/16", log[0].Against.String())
	assert.Equal(t, "10.1.0.0/16", log[1].Against.String())
}

func alwaysPartial(a, b cidr.Network) (cidr.Relationship, error) {
	return cidr.PartialOverlap, nil
}

func TestScanSplitsPartialOverlap(t *testing.T) {
	o := defaultOptions()
	o.classify = alwaysPartial

	// Scanning the larger block after the smaller one forces a subtraction.
	res, log := o.scan(parse(t, "10.0.0.128/25", "10.0.0.0/24"))

	assert.Equal(t, []string{"10.0.0.0/25", "10.0.0.128/25"}, cidr.Strings(res))
	require.Len(t, log, 1)
	assert.Equal(t, ActionSplit, log[0].Action)
	assert.Equal(t, []string{"10.0.0.0/25"}, cidr.Strings(log[0].Fragments))
	assert.NoError(t, Verify(res))
}

func TestScanKeepsPartialOverlapByPolicy(t *testing.T) {
	o := defaultOptions()
	o.policy = PolicyKeepPartial
	o.classify = alwaysPartial

	res, log := o.scan(parse(t, "10.0.0.128/25", "10.0.0.0/24"))
	assert.Len(t, res, 2)
	require.Len(t, log, 1)
	assert.Equal(t, ActionKeep, log[0].Action)
	assert.False(t, log[0].Warning)
}

func TestScanFallsBackWhenSplitFails(t *testing.T) {
	o := defaultOptions()
	o.classify = alwaysPartial
	o.subtract = func(n, hole cidr.Network) ([]cidr.Network, error) {
		return nil, cidr.ErrSplitExhausted
	}

	res, log := o.scan(parse(t, "10.0.0.128/25", "10.0.0.0/24"))
	assert.Equal(t, []string{"10.0.0.0/24", "10.0.0.128/25"}, cidr.Strings(res))
	require.Len(t, log, 1)
	assert.Equal(t, ActionKeep, log[0].Action)
	assert.True(t, log[0].Warning)
	assert.Len(t, Warnings(log), 1)
	assert.Contains(t, log[0].Reason, cidr.ErrSplitExhausted.Error())
}

func TestCrossFamilyComparisonPanics(t *testing.T) {
	o := defaultOptions()
	assert.Panics(t, func() {
		o.relation(cidr.MustParse("10.0.0.0/8"), cidr.MustParse("::/0"))
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySplit, p)

	p, err = ParsePolicy("keep-partial")
	require.NoError(t, err)
	assert.Equal(t, PolicyKeepPartial, p)
	assert.Equal(t, "keep-partial", p.String())

	_, err = ParsePolicy("merge")
	assert.Error(t, err)
}

func TestWithPolicy(t *testing.T) {
	out := Resolve(parse(t, "10.0.0.0/8", "10.1.0.0/16"), WithPolicy(PolicyKeepPartial))
	assert.Equal(t, []string{"10.0.0.0/8"}, cidr.Strings(out.Networks))
}

func TestEntryString(t *testing.T) {
	e := Entry{
		Input:     cidr.MustParse("10.0.0.0/8"),
		Against:   cidr.MustParse("10.1.0.0/16"),
		Relation:  cidr.SupersetOf,
		Action:    ActionExclude,
		Fragments: parse(t, "10.0.0.0/16", "10.2.0.0/15"),
		Reason:    "excluded",
	}
	assert.Equal(t, "exclude 10.0.0.0/8 (superset 10.1.0.0/16): excluded [10.0.0.0/16, 10.2.0.0/15]", e.String())
	assert.Equal(t, 1, Count([]Entry{e}, ActionExclude))
	assert.Zero(t, Count([]Entry{e}, ActionDrop))
}
