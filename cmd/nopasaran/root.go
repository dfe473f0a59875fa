package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nopasaran",
	Short: "nopasaran runs network test charts",
	Long: `nopasaran is a test worker.  It runs a state machine chart whose
actions open a control channel to a peer worker, synchronize values with it,
and watch packets.`,
	SilenceUsage: true,
}

// Execute runs the command line.  Any error exits with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("nopasaran failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides the config)")
	rootCmd.PersistentFlags().Bool("log-json", false, "log JSON instead of text")
}

// newLogger makes the process's logger.
func newLogger(cmd *cobra.Command, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.Out = cmd.ErrOrStderr()
	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		if parsed, err := logrus.ParseLevel(s); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)
	if j, _ := cmd.Flags().GetBool("log-json"); j {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}
