package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BenIlies/NoPASARAN-sub000/config"
	"github.com/BenIlies/NoPASARAN-sub000/control"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [CHART]",
	Short: "Run a chart as a test worker",
	Long: `Loads the worker configuration and the chart, starts the configured
observers, and runs the chart's machine until its queue is empty.  A fatal
error (a malformed chart, a bad action line, a failing primitive) exits 1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runConfig(cmd, args)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		w, err := NewWorker(ctx, cfg, newLogger(cmd, cfg.Level()))
		if err != nil {
			return err
		}
		defer w.Close()

		rep, err := w.Run(ctx)
		if rep != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", rep.Id, rep.Chart, rep.State)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "worker configuration (YAML)")
	runCmd.Flags().String("chart", "", "chart filename (overrides the config)")
	runCmd.Flags().String("charts", "", "directory for nested charts (overrides the config)")
	runCmd.Flags().StringArray("var", nil, "initial variable as name=value (repeatable)")
	runCmd.Flags().BoolP("verbose", "v", false, "log every action")
	runCmd.Flags().String("role", "", "control channel role: listen or connect (overrides the config)")
	runCmd.Flags().String("address", "", "control channel address (overrides the config)")
}

// runConfig reads the config file (if any) and applies flags.
func runConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var (
		cfg = &config.Config{}
		err error
	)
	if filename, _ := cmd.Flags().GetString("config"); filename != "" {
		if cfg, err = config.Load(filename); err != nil {
			return nil, err
		}
	}

	fs := cmd.Flags()
	if 0 < len(args) {
		cfg.Chart = args[0]
	}
	if s, _ := fs.GetString("chart"); s != "" {
		cfg.Chart = s
	}
	if s, _ := fs.GetString("charts"); s != "" {
		cfg.Charts = s
	}
	if v, _ := fs.GetBool("verbose"); v {
		cfg.Verbose = true
	}
	vars, _ := fs.GetStringArray("var")
	for _, v := range vars {
		if err := cfg.SetVar(v); err != nil {
			return nil, err
		}
	}
	role, _ := fs.GetString("role")
	addr, _ := fs.GetString("address")
	if role != "" || addr != "" {
		if cfg.Control == nil {
			cfg.Control = &control.Config{}
		}
		if role != "" {
			cfg.Control.Role = role
		}
		if addr != "" {
			cfg.Control.Address = addr
		}
	}

	if cfg.Chart == "" {
		return nil, fmt.Errorf("no chart given")
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
