package cidr

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("empty prefix")

	// ErrSyntax is returned when the address or length cannot be parsed.
	ErrSyntax = errors.New("malformed prefix")

	// ErrPrefixRange is returned when the prefix length does not fit the
	// address family.
	ErrPrefixRange = errors.New("prefix length out of range")
)

// ParseError records one rejected input string.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid prefix %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse converts a CIDR string or a bare address into a Network. Host bits
// are masked off, so "10.0.0.5/8" and "10.0.0.0/8" parse to the same value.
// A bare address becomes a /32 or /128.
func Parse(s string) (Network, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return Network{}, &ParseError{Input: s, Err: ErrEmpty}
	}

	addrPart, bitsPart, hasBits := strings.Cut(in, "/")
	addr, err := netip.ParseAddr(addrPart)
	if err != nil {
		return Network{}, &ParseError{Input: s, Err: fmt.Errorf("%w: %v", ErrSyntax, err)}
	}
	if addr.Zone() != "" {
		return Network{}, &ParseError{Input: s, Err: fmt.Errorf("%w: zoned address", ErrSyntax)}
	}

	bits := addr.BitLen()
	if hasBits {
		if bitsPart == "" || strings.TrimLeft(bitsPart, "0123456789") != "" {
			return Network{}, &ParseError{Input: s, Err: fmt.Errorf("%w: bad length %q", ErrSyntax, bitsPart)}
		}
		n, err := strconv.Atoi(bitsPart)
		if err != nil || n > addr.BitLen() {
			return Network{}, &ParseError{Input: s, Err: fmt.Errorf("%w: /%s for %d-bit address", ErrPrefixRange, bitsPart, addr.BitLen())}
		}
		bits = n
	}

	return FromPrefix(netip.PrefixFrom(addr, bits)), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constant tables.
func MustParse(s string) Network {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseAll parses every string in raw, in order. Entries that fail are
// skipped and their errors returned alongside the successful results.
func ParseAll(raw []string) ([]Network, []error) {
	nets := make([]Network, 0, len(raw))
	var errs []error
	for _, s := range raw {
		n, err := Parse(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nets = append(nets, n)
	}
	return nets, errs
}
