package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"project/cidrfold/cidr"
	"project/cidrfold/resolver"
	"project/cidrfold/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "List prefixes contained in other prefixes without resolving them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Inputs = args
		}
		raw, err := source.LoadFiles(cfg.Inputs)
		if err != nil {
			return err
		}
		runCheck(raw, cmd.OutOrStdout(), logger)
		return nil
	},
}

func runCheck(raw []string, out io.Writer, logger *zap.Logger) int {
	nets, errs := cidr.ParseAll(raw)
	for _, err := range errs {
		logger.Sugar().Warnf("Skipping entry: %v", err)
	}

	found := resolver.Intersections(nets)
	for _, x := range found {
		fmt.Fprintf(out, "%s inside %s\n", x.Inner, x.Outer)
	}
	fmt.Fprintf(out, "%d prefixes checked, %d intersections found\n", len(nets), len(found))
	return len(found)
}
