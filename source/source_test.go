package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "aws layout",
			doc: `{"syncToken":"1","prefixes":[
				{"ip_prefix":"3.5.140.0/22","region":"ap-northeast-2"},
				{"ip_prefix":""},
				{"region":"no prefix"},
				{"ip_prefix":"3.5.140.0/22"}],
				"ipv6_prefixes":[{"ipv6_prefix":"2600:1f14::/35"}]}`,
			want: []string{"3.5.140.0/22", "3.5.140.0/22", "2600:1f14::/35"},
		},
		{
			name: "ipv4_prefixes layout",
			doc:  `{"ipv4_prefixes":[{"ip_prefix":"8.8.8.0/24"},{"ip_prefix":" 8.8.4.0/24 "}]}`,
			want: []string{"8.8.8.0/24", "8.8.4.0/24"},
		},
		{
			name: "recursive",
			doc: `{"b":{"cidr":"10.0.0.0/8","nested":[{"ipv4_prefix":"192.168.0.0/16"}]},
				"a":[{"ip_prefix":"172.16.0.0/12"},{"cidr":42},"loose string"],
				"c":{"name":"ignored"}}`,
			want: []string{"172.16.0.0/12", "10.0.0.0/8", "192.168.0.0/16"},
		},
		{
			name: "top level array",
			doc:  `[{"cidr":"1.1.1.0/24"},{"cidr":"1.0.0.0/24"}]`,
			want: []string{"1.1.1.0/24", "1.0.0.0/24"},
		},
		{
			name: "nothing found",
			doc:  `{"hello":"world"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONInvalid(t *testing.T) {
	_, err := ExtractJSON([]byte(`{"prefixes": [`))
	assert.Error(t, err)
}

func TestReadLines(t *testing.T) {
	in := `# provider list
10.0.0.0/8
  192.168.0.0/16   # office

2001:db8::/32
`
	got, err := ReadLines(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16", "2001:db8::/32"}, got)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "ranges.json")
	textPath := filepath.Join(dir, "extra.txt")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`  {"prefixes":[{"ip_prefix":"10.0.0.0/8"}]}`), 0o644))
	require.NoError(t, os.WriteFile(textPath, []byte("10.1.0.0/16\n"), 0o644))

	got, err := LoadFiles([]string{jsonPath, textPath})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "10.1.0.0/16"}, got)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
