package cidr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeduplicate(t *testing.T) {
	nets, errs := ParseAll([]string{"10.0.0.0/8", "10.0.0.0/8", "10.0.0.0/8", "192.168.0.0/16"})
	assert.Empty(t, errs)

	unique, dups := Deduplicate(nets)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, Strings(unique))
	assert.Equal(t, map[Network]int{MustParse("10.0.0.0/8"): 3}, dups)

	found, occurrences := DuplicateStats(dups)
	assert.Equal(t, 1, found)
	assert.Equal(t, 2, occurrences)
}

func TestDeduplicateKeepsFirstSeenOrder(t *testing.T) {
	nets, _ := ParseAll([]string{"192.168.0.0/16", "10.0.0.5/8", "::1", "10.0.0.0/8", "192.168.0.0/16", "0:0::1/128"})

	unique, dups := Deduplicate(nets)
	assert.Equal(t, []string{"192.168.0.0/16", "10.0.0.0/8", "::1/128"}, Strings(unique))
	assert.Len(t, dups, 3)

	found, occurrences := DuplicateStats(dups)
	assert.Equal(t, 3, found)
	assert.Equal(t, 3, occurrences)
}

func TestDeduplicateEmpty(t *testing.T) {
	unique, dups := Deduplicate(nil)
	assert.Empty(t, unique)
	assert.Empty(t, dups)

	found, occurrences := DuplicateStats(dups)
	assert.Zero(t, found)
	assert.Zero(t, occurrences)
}
