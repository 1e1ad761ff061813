package formatter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"project/cidrfold/cidr"
	"project/cidrfold/processor"
)

// Info describes where a run read from and wrote to.
type Info struct {
	Inputs    []string
	OutputDir string
	Generated time.Time
}

// PrefixCount is the number of networks of one family and prefix length.
type PrefixCount struct {
	Family cidr.Family
	Bits   int
	Count  int
}

// PrefixDistribution counts nets per family and prefix length, IPv4 first
// and shorter prefixes first.
func PrefixDistribution(nets []cidr.Network) []PrefixCount {
	type key struct {
		family cidr.Family
		bits   int
	}
	counts := make(map[key]int)
	for _, n := range nets {
		counts[key{n.Family(), n.Bits()}]++
	}

	out := make([]PrefixCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, PrefixCount{Family: k.family, Bits: k.bits, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		return out[i].Bits < out[j].Bits
	})
	return out
}

// WriteLog writes processing_log.txt: general information, the summary
// counters and every message of the run.
func WriteLog(info Info, res *processor.Result) (string, error) {
	path := filepath.Join(info.OutputDir, "processing_log.txt")
	err := writeReport(path, func(w *bufio.Writer) {
		title(w, "CIDR PROCESSING LOG", 60)
		section(w, "GENERAL INFORMATION", 40)
		writeInfo(w, info, res.RunID)
		section(w, "STATISTICS", 40)
		s := res.Stats
		fmt.Fprintf(w, "Total prefixes (input): %d\n", s.TotalInput)
		fmt.Fprintf(w, "Skipped entries: %d\n", s.Skipped)
		fmt.Fprintf(w, "Unique prefixes: %d\n", s.TotalUnique)
		fmt.Fprintf(w, "Duplicates found: %d\n", s.DuplicatesFound)
		fmt.Fprintf(w, "Repeats removed: %d\n", s.DuplicateOccurrences)
		fmt.Fprintf(w, "Overlaps found: %d\n", s.OverlapsFound)
		fmt.Fprintf(w, "Prefixes after processing: %d\n\n", s.TotalOutput)
		section(w, "DETAILED LOG", 40)
		for _, m := range res.Messages {
			fmt.Fprintln(w, m)
		}
	})
	return path, err
}

// WriteReport writes detailed_report.txt: the counters as a table, the 20
// most repeated prefixes, the first 50 results and the prefix length
// distribution.
func WriteReport(info Info, res *processor.Result) (string, error) {
	path := filepath.Join(info.OutputDir, "detailed_report.txt")
	err := writeReport(path, func(w *bufio.Writer) {
		title(w, "DETAILED CIDR PROCESSING REPORT", 80)
		section(w, "GENERAL INFORMATION", 60)
		writeInfo(w, info, res.RunID)

		section(w, "PROCESSING STATISTICS", 60)
		s := res.Stats
		for _, row := range []struct {
			label string
			value int
		}{
			{"Total prefixes in input", s.TotalInput},
			{"Skipped entries", s.Skipped},
			{"Unique prefixes", s.TotalUnique},
			{"Duplicates found", s.DuplicatesFound},
			{"Repeats removed", s.DuplicateOccurrences},
			{"Overlaps found", s.OverlapsFound},
			{"Dropped as contained", s.Dropped},
			{"Replaced by a superset", s.Replaced},
			{"Split on partial overlap", s.Split},
			{"Affected by exclusions", s.Excluded},
			{"Warnings", s.Warnings},
			{"Prefixes after processing", s.TotalOutput},
		} {
			fmt.Fprintf(w, "%-50s: %10d\n", row.label, row.value)
		}
		fmt.Fprintf(w, "%-50s: %10s\n\n", "Processing time", s.Duration().Round(time.Millisecond))

		if dups := res.TopDuplicates(20); len(dups) > 0 {
			section(w, "DUPLICATES (top 20)", 60)
			for i, d := range dups {
				fmt.Fprintf(w, "%3d. %-20s - %3d times\n", i+1, d.Network, d.Count)
			}
			fmt.Fprintln(w)
		}

		section(w, "PREFIXES AFTER PROCESSING (first 50)", 60)
		for i, n := range res.Networks {
			if i == 50 {
				fmt.Fprintf(w, "... and %d more\n", len(res.Networks)-50)
				break
			}
			fmt.Fprintf(w, "%3d. %s\n", i+1, n)
		}
		fmt.Fprintln(w)

		section(w, "PREFIX LENGTH DISTRIBUTION", 60)
		for _, pc := range PrefixDistribution(res.Networks) {
			fmt.Fprintf(w, "  %s /%-4d: %5d\n", pc.Family, pc.Bits, pc.Count)
		}
	})
	return path, err
}

func writeInfo(w *bufio.Writer, info Info, runID string) {
	fmt.Fprintf(w, "Run: %s\n", runID)
	fmt.Fprintf(w, "Inputs: %s\n", strings.Join(info.Inputs, ", "))
	fmt.Fprintf(w, "Output directory: %s\n", info.OutputDir)
	fmt.Fprintf(w, "Date: %s\n\n", info.Generated.Format("2006-01-02 15:04:05"))
}

func title(w *bufio.Writer, text string, width int) {
	fmt.Fprintln(w, text)
	fmt.Fprintln(w, strings.Repeat("=", width))
	fmt.Fprintln(w)
}

func section(w *bufio.Writer, text string, width int) {
	fmt.Fprintf(w, "%s:\n", text)
	fmt.Fprintln(w, strings.Repeat("-", width))
}

func writeReport(path string, body func(w *bufio.Writer)) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	body(w)
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
