// Fichier: formatter/output.go

package formatter

import (
	"fmt"
	"strings"

	"project/cidrfold/cidr"
)

const maxTXTLength = 255
const finalDirective = "~all"

// FormatSegments packs nets into SPF TXT records of at most 255 bytes.
// Every record but the last ends with an include of the next one
// (spf1.<sld>, spf2.<sld>, ...); the last one ends with ~all.
func FormatSegments(nets []cidr.Network, sld string) []string {
	var segments []string
	current := []string{"v=spf1"}
	currentLength := len("v=spf1")

	for _, n := range nets {
		term := Mechanism(n)
		include := fmt.Sprintf("include:spf%d.%s", len(segments)+1, sld)

		// Room must stay for the include that closes this record.
		if len(current) > 1 && currentLength+1+len(term)+1+len(include) > maxTXTLength {
			current = append(current, include)
			segments = append(segments, strings.Join(current, " "))
			current = []string{"v=spf1"}
			currentLength = len("v=spf1")
		}
		current = append(current, term)
		currentLength += 1 + len(term)
	}

	current = append(current, finalDirective)
	return append(segments, strings.Join(current, " "))
}

// Mechanism renders n as an ip4: or ip6: SPF mechanism.
func Mechanism(n cidr.Network) string {
	if n.Family() == cidr.IPv6 {
		return "ip6:" + n.String()
	}
	return "ip4:" + n.String()
}

// RecordName returns the owner name of the i-th segment: the first one is
// published at _spf, the following ones at spf1, spf2, ...
func RecordName(i int) string {
	if i == 0 {
		return "_spf"
	}
	return fmt.Sprintf("spf%d", i)
}

// TXTLines renders segments as zone file lines.
func TXTLines(segments []string) []string {
	lines := make([]string, len(segments))
	for i, s := range segments {
		lines[i] = fmt.Sprintf("%s 600 IN TXT \"%s\"", RecordName(i), s)
	}
	return lines
}
