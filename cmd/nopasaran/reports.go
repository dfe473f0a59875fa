package main

import (
	"encoding/json"
	"fmt"

	"github.com/BenIlies/NoPASARAN-sub000/storage/bolt"

	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports [ID]",
	Short: "List stored run reports or print one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("db")
		s, err := bolt.NewStorage(filename)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err = s.Open(ctx); err != nil {
			return err
		}
		defer s.Close(ctx)

		out := cmd.OutOrStdout()

		if 0 < len(args) {
			r, err := s.GetReport(ctx, args[0])
			if err != nil {
				return err
			}
			js, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", js)
			return nil
		}

		rs, err := s.ListReports(ctx)
		if err != nil {
			return err
		}
		for _, r := range rs {
			outcome := "ok"
			if r.Error != "" {
				outcome = "error"
			}
			fmt.Fprintf(out, "%s %s %s %s %s %s\n",
				r.Id, r.Started.Format("2006-01-02T15:04:05Z07:00"), r.Chart, r.State, outcome, r.Finished.Sub(r.Started))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)

	reportsCmd.Flags().String("db", "runs.db", "bbolt report database")
}
