package formatter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"project/cidrfold/cidr"
)

// StampLayout formats the timestamp embedded in result file names.
const StampLayout = "20060102_150405"

// WriteSingle writes nets to cidr_all_<stamp>.txt and, ordered by prefix
// length, to cidr_sorted_<stamp>.txt. It returns both paths.
func WriteSingle(dir, stamp string, nets []cidr.Network) (all, sorted string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	all = filepath.Join(dir, fmt.Sprintf("cidr_all_%s.txt", stamp))
	if err := writeLines(all, cidr.Strings(nets)); err != nil {
		return "", "", err
	}

	bySize := slices.Clone(nets)
	cidr.SortByPrefixLen(bySize)
	sorted = filepath.Join(dir, fmt.Sprintf("cidr_sorted_%s.txt", stamp))
	if err := writeLines(sorted, cidr.Strings(bySize)); err != nil {
		return "", "", err
	}
	return all, sorted, nil
}

// WriteChunks splits nets into files of at most size entries named
// cidr_chunk_NNN_of_MMM.txt and returns their paths. Nothing is written
// for an empty list.
func WriteChunks(dir string, nets []cidr.Network, size int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if len(nets) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	total := (len(nets) + size - 1) / size
	paths := make([]string, 0, total)
	for i, chunk := range slices.Collect(slices.Chunk(nets, size)) {
		path := filepath.Join(dir, fmt.Sprintf("cidr_chunk_%03d_of_%03d.txt", i+1, total))
		if err := writeLines(path, cidr.Strings(chunk)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
