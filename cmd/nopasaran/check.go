package main

import (
	"fmt"

	"github.com/BenIlies/NoPASARAN-sub000/primitives"
	"github.com/BenIlies/NoPASARAN-sub000/tools"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var checkCmd = &cobra.Command{
	Use:   "check CHART",
	Short: "Analyze a chart",
	Long: `Parses and validates a chart, then reports its terminal and unreachable
states, the events it handles, and any action or condition names that
aren't standard primitives.  Unknown names or unparsable lines exit 1.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := readChart(args[0])
		if err != nil {
			return err
		}
		a, err := tools.Analyze(c, primitives.Standard())
		if err != nil {
			return err
		}
		bs, err := yaml.Marshal(a)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s", bs)

		if 0 < len(a.Errors) || 0 < len(a.Unknown) {
			return fmt.Errorf("%s: %d bad lines, %d unknown primitives", args[0], len(a.Errors), len(a.Unknown))
		}
		return nil
	},
}

var primitivesCmd = &cobra.Command{
	Use:   "primitives",
	Short: "List the standard primitives and conditions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		reg := primitives.Standard()
		ps, cs := reg.Names()
		out := cmd.OutOrStdout()
		for _, name := range ps {
			fmt.Fprintf(out, "%-40s %s\n", name, reg.Find(name).Doc)
		}
		for _, name := range cs {
			fmt.Fprintf(out, "%-40s condition: %s\n", name, reg.FindCondition(name).Doc)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(primitivesCmd)
}
