// Fichier: cidr/cidr.go

package cidr

import (
	"encoding/binary"
	"net/netip"

	"lukechampine.com/uint128"
)

// Family is the address family of a network.
type Family uint8

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

// Width returns the address width of the family in bits.
func (f Family) Width() int {
	if f == IPv6 {
		return 128
	}
	return 32
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	}
	return "invalid"
}

// Network is one canonical CIDR block. The base address is stored as a
// 128-bit integer for both families and is always masked to the prefix
// length, so two Networks describe the same block iff they are ==.
type Network struct {
	family Family
	base   uint128.Uint128
	bits   int
}

// FromPrefix converts p into a Network, clearing any host bits.
// It returns the zero Network if p is not valid.
func FromPrefix(p netip.Prefix) Network {
	if !p.IsValid() {
		return Network{}
	}
	p = p.Masked()
	addr := p.Addr()
	if addr.Is4() {
		a := addr.As4()
		return Network{
			family: IPv4,
			base:   uint128.From64(uint64(binary.BigEndian.Uint32(a[:]))),
			bits:   p.Bits(),
		}
	}
	a := addr.As16()
	return Network{
		family: IPv6,
		base:   uint128.FromBytesBE(a[:]),
		bits:   p.Bits(),
	}
}

// newNetwork builds a Network from raw parts, masking base to bits.
func newNetwork(family Family, base uint128.Uint128, bits int) Network {
	return Network{
		family: family,
		base:   base.And(netMask(family.Width(), bits)),
		bits:   bits,
	}
}

// IsValid reports whether n was produced by the parser or FromPrefix.
func (n Network) IsValid() bool { return n.family == IPv4 || n.family == IPv6 }

func (n Network) Family() Family        { return n.family }
func (n Network) Width() int            { return n.family.Width() }
func (n Network) Bits() int             { return n.bits }
func (n Network) Base() uint128.Uint128 { return n.base }

// HostMask has a one bit for every host position of n.
func (n Network) HostMask() uint128.Uint128 { return hostMask(n.Width(), n.bits) }

// Broadcast is the last address of the block.
func (n Network) Broadcast() uint128.Uint128 { return n.base.Or(n.HostMask()) }

// Size returns the number of addresses in n. The count for ::/0 does not
// fit in 128 bits and saturates at uint128.Max.
func (n Network) Size() uint128.Uint128 {
	host := n.Width() - n.bits
	if host >= 128 {
		return uint128.Max
	}
	return uint128.From64(1).Lsh(uint(host))
}

// Contains reports whether o lies entirely inside n.
// Blocks are bit-aligned, so containment is a prefix length check plus a
// comparison of the top n.bits bits.
func (n Network) Contains(o Network) bool {
	if n.family != o.family || n.bits > o.bits {
		return false
	}
	return o.base.And(netMask(n.Width(), n.bits)).Equals(n.base)
}

// Overlaps reports whether n and o share at least one address.
func (n Network) Overlaps(o Network) bool {
	if n.family != o.family {
		return false
	}
	return n.base.Cmp(o.Broadcast()) <= 0 && o.base.Cmp(n.Broadcast()) <= 0
}

// Compare orders IPv4 before IPv6, then by base address, then by prefix
// length with shorter (larger) blocks first.
func (n Network) Compare(o Network) int {
	if n.family != o.family {
		if n.family < o.family {
			return -1
		}
		return 1
	}
	if c := n.base.Cmp(o.base); c != 0 {
		return c
	}
	switch {
	case n.bits < o.bits:
		return -1
	case n.bits > o.bits:
		return 1
	}
	return 0
}

// halves splits n into its two child blocks of length bits+1.
// The caller must ensure n.bits < n.Width().
func (n Network) halves() (lo, hi Network) {
	lo = Network{family: n.family, base: n.base, bits: n.bits + 1}
	bit := uint128.From64(1).Lsh(uint(n.Width() - n.bits - 1))
	hi = Network{family: n.family, base: n.base.Or(bit), bits: n.bits + 1}
	return lo, hi
}

// Addr returns the base address as a netip.Addr.
func (n Network) Addr() netip.Addr {
	if n.family == IPv4 {
		var a [4]byte
		binary.BigEndian.PutUint32(a[:], uint32(n.base.Lo))
		return netip.AddrFrom4(a)
	}
	var a [16]byte
	n.base.PutBytesBE(a[:])
	return netip.AddrFrom16(a)
}

// Prefix returns n as a netip.Prefix.
func (n Network) Prefix() netip.Prefix {
	if !n.IsValid() {
		return netip.Prefix{}
	}
	return netip.PrefixFrom(n.Addr(), n.bits)
}

// String returns the canonical "<address>/<bits>" form.
func (n Network) String() string {
	if !n.IsValid() {
		return "invalid Network"
	}
	return n.Prefix().String()
}

func hostMask(width, bits int) uint128.Uint128 {
	if bits >= width {
		return uint128.Zero
	}
	return uint128.Max.Rsh(uint(128 - width + bits))
}

func fullMask(width int) uint128.Uint128 {
	return uint128.Max.Rsh(uint(128 - width))
}

func netMask(width, bits int) uint128.Uint128 {
	return fullMask(width).Xor(hostMask(width, bits))
}
