package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project/cidrfold/cidr"
)

func TestVerify(t *testing.T) {
	assert.NoError(t, Verify(nil))
	assert.NoError(t, Verify(parse(t, "10.0.0.0/8", "11.0.0.0/8", "0.0.0.1", "::1")))

	tests := []struct {
		name string
		in   []string
		a, b string
	}{
		{"subnet after supernet", []string{"10.0.0.0/8", "10.1.0.0/16"}, "10.0.0.0/8", "10.1.0.0/16"},
		{"supernet after subnet", []string{"10.1.0.0/16", "10.0.0.0/8"}, "10.1.0.0/16", "10.0.0.0/8"},
		{"repeat", []string{"2001:db8::/32", "2001:db8::/32"}, "2001:db8::/32", "2001:db8::/32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(parse(t, tt.in...))
			var oe *OverlapError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.a, oe.A.String())
			assert.Equal(t, tt.b, oe.B.String())
			assert.Contains(t, err.Error(), "overlap")
		})
	}
}

func TestIntersections(t *testing.T) {
	in := parse(t,
		"10.0.0.0/8",
		"10.1.0.0/16",
		"10.1.2.0/24",
		"10.1.0.0/16",
		"192.168.0.0/16",
		"2001:db8::/32",
		"2001:db8:1::/48",
	)

	got := Intersections(in)
	want := []Intersection{
		{Inner: cidr.MustParse("10.1.0.0/16"), Outer: cidr.MustParse("10.0.0.0/8")},
		{Inner: cidr.MustParse("10.1.2.0/24"), Outer: cidr.MustParse("10.1.0.0/16")},
		{Inner: cidr.MustParse("10.1.2.0/24"), Outer: cidr.MustParse("10.0.0.0/8")},
		{Inner: cidr.MustParse("2001:db8:1::/48"), Outer: cidr.MustParse("2001:db8::/32")},
	}
	assert.ElementsMatch(t, want, got)
}

func TestIntersectionsNone(t *testing.T) {
	assert.Empty(t, Intersections(parse(t, "10.0.0.0/8", "11.0.0.0/8", "0.0.0.10", "::a")))
}
