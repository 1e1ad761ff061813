package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"project/cidrfold/cidr"
	"project/cidrfold/config"
	"project/cidrfold/dns"
	"project/cidrfold/formatter"
	"project/cidrfold/processor"
	"project/cidrfold/resolver"
	"project/cidrfold/source"
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Deduplicate and resolve prefix lists into disjoint CIDR blocks",
	Long: `Loads every input (files given as arguments or listed in the
configuration, plus the SPF records of spf.domains), resolves duplicates
and overlaps and writes the result files:

  cidr_all_<stamp>.txt      result in address order
  cidr_sorted_<stamp>.txt   result ordered by prefix length
  cidr_chunk_NNN_of_MMM.txt result split into chunks (--chunks)
  processing_log.txt        every decision taken
  detailed_report.txt       statistics and distributions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyProcessFlags(cmd, cfg); err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Inputs = args
		}
		return runProcess(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
	},
}

func init() {
	f := processCmd.Flags()
	f.StringP("output-dir", "o", "", "directory receiving the result files")
	f.Int("chunk-size", 0, "prefixes per chunk file")
	f.Bool("chunks", false, "also split the result into chunk files")
	f.String("format", "", `printed result format: "text" or "spf"`)
	f.String("policy", "", `partial overlap policy: "split" or "keep-partial"`)
	f.StringSlice("exclude", nil, "prefixes removed from the result")
	f.String("txt-domain", "", "domain used in include: chains of the spf format")
}

// applyProcessFlags overrides cfg with every flag set on the command line.
func applyProcessFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("output-dir") {
		cfg.OutputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("chunk-size") {
		cfg.ChunkSize, _ = f.GetInt("chunk-size")
	}
	if f.Changed("chunks") {
		cfg.SaveChunks, _ = f.GetBool("chunks")
	}
	if f.Changed("format") {
		cfg.Format, _ = f.GetString("format")
	}
	if f.Changed("policy") {
		cfg.Policy, _ = f.GetString("policy")
	}
	if f.Changed("exclude") {
		cfg.Exclude, _ = f.GetStringSlice("exclude")
	}
	if f.Changed("txt-domain") {
		cfg.SPF.TXTDomain, _ = f.GetString("txt-domain")
	}
	return cfg.Validate()
}

// collectInputs loads every configured file and flattens every configured
// SPF domain. Each domain gets its own lookup budget.
func collectInputs(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]string, error) {
	raw, err := source.LoadFiles(cfg.Inputs)
	if err != nil {
		return nil, err
	}
	for _, domain := range cfg.SPF.Domains {
		r := dns.NewResolver(cfg.SPF.Nameserver, cfg.SPF.ConcurrencyLimit, cfg.SPF.MaxLookups, logger)
		prefixes, err := r.FlattenSPF(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to flatten SPF for %s: %w", domain, err)
		}
		logger.Sugar().Infof("Found %d network addresses from the SPF chain of %s (%d lookups)", len(prefixes), domain, r.GetLookupCount())
		raw = append(raw, prefixes...)
	}
	return raw, nil
}

func runProcess(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.Logger) error {
	if len(cfg.Inputs) == 0 && len(cfg.SPF.Domains) == 0 {
		return errors.New("no inputs: pass files as arguments or set inputs or spf.domains")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.Sugar()

	raw, err := collectInputs(ctx, cfg, logger)
	if err != nil {
		return err
	}

	policy, err := resolver.ParsePolicy(cfg.Policy)
	if err != nil {
		return err
	}
	exclude, errs := cidr.ParseAll(cfg.Exclude)
	if len(errs) > 0 {
		return fmt.Errorf("invalid exclude list: %w", errors.Join(errs...))
	}

	res := processor.New(logger, processor.WithPolicy(policy), processor.WithExclude(exclude)).Process(raw)

	now := time.Now()
	all, sorted, err := formatter.WriteSingle(cfg.OutputDir, now.Format(formatter.StampLayout), res.Networks)
	if err != nil {
		return err
	}
	log.Infof("All prefixes saved to %s", all)
	log.Infof("Prefixes sorted by size saved to %s", sorted)
	files := 2

	if cfg.SaveChunks {
		paths, err := formatter.WriteChunks(cfg.OutputDir, res.Networks, cfg.ChunkSize)
		if err != nil {
			return err
		}
		log.Infof("Saved %d chunk files of up to %d prefixes", len(paths), cfg.ChunkSize)
		files += len(paths)
	}

	info := formatter.Info{Inputs: cfg.Inputs, OutputDir: cfg.OutputDir, Generated: now}
	if _, err := formatter.WriteLog(info, res); err != nil {
		return err
	}
	if _, err := formatter.WriteReport(info, res); err != nil {
		return err
	}
	files += 2

	printSummary(out, res, files)
	if cfg.Format == "spf" {
		fmt.Fprintln(out)
		for _, line := range formatter.TXTLines(formatter.FormatSegments(res.Networks, cfg.SPF.TXTDomain)) {
			fmt.Fprintln(out, line)
		}
	}
	if abs, err := filepath.Abs(cfg.OutputDir); err == nil {
		log.Infof("Results saved to %s", abs)
	}
	return nil
}

func printSummary(out io.Writer, res *processor.Result, files int) {
	s := res.Stats
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "CIDR PROCESSING SUMMARY")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "%-30s %10d\n", "Input prefixes:", s.TotalInput)
	if s.Skipped > 0 {
		fmt.Fprintf(out, "%-30s %10d\n", "Skipped entries:", s.Skipped)
	}
	fmt.Fprintf(out, "%-30s %10d\n", "Unique prefixes:", s.TotalUnique)
	if s.DuplicatesFound > 0 {
		fmt.Fprintf(out, "%-30s %10d\n", "Duplicates found:", s.DuplicatesFound)
		fmt.Fprintf(out, "%-30s %10d\n", "Repeats removed:", s.DuplicateOccurrences)
	}
	fmt.Fprintf(out, "%-30s %10d\n", "Overlaps found:", s.OverlapsFound)
	fmt.Fprintf(out, "%-30s %10d\n", "Prefixes after processing:", s.TotalOutput)
	fmt.Fprintf(out, "%-30s %10d\n", "Files created:", files)
	fmt.Fprintf(out, "%-30s %10s\n", "Processing time:", s.Duration().Round(time.Millisecond))
	fmt.Fprintln(out, rule)

	if len(res.Networks) > 0 {
		fmt.Fprintln(out, "\nPrefixes after processing (first 10):")
		for i, n := range res.Networks[:min(10, len(res.Networks))] {
			fmt.Fprintf(out, "  %2d. %s\n", i+1, n)
		}
	}
}
