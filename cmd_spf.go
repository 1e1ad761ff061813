package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"project/cidrfold/config"
	"project/cidrfold/dns"
	"project/cidrfold/formatter"
	"project/cidrfold/processor"
)

var spfCmd = &cobra.Command{
	Use:   "spf <domain>",
	Short: "Flatten the SPF record of a domain into disjoint prefixes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if ns, _ := cmd.Flags().GetString("nameserver"); ns != "" {
			cfg.SPF.Nameserver = ns
		}
		if d, _ := cmd.Flags().GetString("txt-domain"); d != "" {
			cfg.SPF.TXTDomain = d
		}
		return runSPF(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), logger)
	},
}

func init() {
	spfCmd.Flags().String("nameserver", "", `DNS server used for lookups, "host:port"`)
	spfCmd.Flags().String("txt-domain", "", "print the result as SPF TXT records chained under this domain")
}

func runSPF(ctx context.Context, cfg *config.Config, domain string, out io.Writer, logger *zap.Logger) error {
	r := dns.NewResolver(cfg.SPF.Nameserver, cfg.SPF.ConcurrencyLimit, cfg.SPF.MaxLookups, logger)
	prefixes, err := r.FlattenSPF(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to flatten SPF for %s: %w", domain, err)
	}

	res := processor.New(logger).Process(prefixes)
	printSPF(out, domain, r.GetLookupCount(), cfg.SPF.MaxLookups, res)
	if cfg.SPF.TXTDomain != "" {
		fmt.Fprintln(out)
		for _, line := range formatter.TXTLines(formatter.FormatSegments(res.Networks, cfg.SPF.TXTDomain)) {
			fmt.Fprintln(out, line)
		}
	}
	return nil
}

func printSPF(out io.Writer, domain string, lookups, maxLookups int, res *processor.Result) {
	fmt.Fprintf(out, "Initial Domain: %s\n", domain)
	fmt.Fprintf(out, "Total DNS Lookups Used (Recursive Includes): %d / %d\n", lookups, maxLookups)
	fmt.Fprintf(out, "Total Unique CIDRs Generated: %d\n", res.Stats.TotalOutput)
	for _, s := range res.Strings() {
		fmt.Fprintln(out, s)
	}
}
