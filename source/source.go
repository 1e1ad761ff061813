// Package source reads raw prefix strings from the input formats the CLI
// accepts: provider JSON documents and plain text lists.
package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	simplejson "github.com/bitly/go-simplejson"
)

// prefixKeys are the object keys whose string values are taken as prefixes
// when a document has no known top-level layout.
var prefixKeys = map[string]bool{
	"ip_prefix":   true,
	"ipv4_prefix": true,
	"ipv6_prefix": true,
	"cidr":        true,
}

// ExtractJSON pulls prefix strings out of a JSON document. The AWS style
// layouts ("prefixes" with "ip_prefix", "ipv4_prefixes", "ipv6_prefixes")
// are read directly in document order; anything else is walked recursively,
// visiting object keys in sorted order. Empty values are dropped.
func ExtractJSON(data []byte) ([]string, error) {
	js, err := simplejson.NewJson(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var out []string
	known := false
	for _, layout := range []struct{ list, key string }{
		{"prefixes", "ip_prefix"},
		{"ipv4_prefixes", "ip_prefix"},
		{"ipv6_prefixes", "ipv6_prefix"},
	} {
		list, ok := js.CheckGet(layout.list)
		if !ok {
			continue
		}
		known = true
		for i := range list.MustArray() {
			if s := strings.TrimSpace(list.GetIndex(i).Get(layout.key).MustString()); s != "" {
				out = append(out, s)
			}
		}
	}
	if known {
		return out, nil
	}

	walk(js.Interface(), &out)
	return out, nil
}

func walk(v interface{}, out *[]string) {
	switch t := v.(type) {
	case map[string]interface{}:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			if s, ok := t[k].(string); ok && prefixKeys[k] {
				if s = strings.TrimSpace(s); s != "" {
					*out = append(*out, s)
				}
				continue
			}
			walk(t[k], out)
		}
	case []interface{}:
		for _, item := range t {
			walk(item, out)
		}
	}
}

// ReadLines reads one prefix per line. Blank lines and everything after a
// '#' are ignored.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines: %w", err)
	}
	return out, nil
}

// LoadFile reads path and extracts prefixes from it. Content starting with
// '{' or '[' is treated as JSON, anything else as a line list.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		out, err := ExtractJSON(trimmed)
		if err != nil {
			return nil, fmt.Errorf("failed to extract prefixes from %s: %w", path, err)
		}
		return out, nil
	}
	return ReadLines(bytes.NewReader(data))
}

// LoadFiles concatenates the prefixes of every file in order.
func LoadFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		raw, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}
	return out, nil
}
