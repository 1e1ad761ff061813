package cidr

// Deduplicate removes repeated networks while keeping the position of each
// first occurrence. The returned map counts occurrences of every network
// seen more than once.
func Deduplicate(nets []Network) ([]Network, map[Network]int) {
	seen := make(map[Network]int, len(nets))
	unique := make([]Network, 0, len(nets))
	for _, n := range nets {
		seen[n]++
		if seen[n] == 1 {
			unique = append(unique, n)
		}
	}

	dups := make(map[Network]int)
	for n, count := range seen {
		if count > 1 {
			dups[n] = count
		}
	}
	return unique, dups
}

// DuplicateStats summarizes a duplicate map: found is the number of
// distinct networks that repeat, occurrences the number of extra copies.
func DuplicateStats(dups map[Network]int) (found, occurrences int) {
	for _, count := range dups {
		found++
		occurrences += count - 1
	}
	return found, occurrences
}
