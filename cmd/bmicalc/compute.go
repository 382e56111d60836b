package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bmicalc/internal/domain"
	"bmicalc/internal/view"
)

func newComputeCmd() *cobra.Command {
	var (
		date    string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "compute <weight-kg> <height-m>",
		Short: "Compute a single BMI",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := parseDate(date)
			if err != nil {
				return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
			}

			ls, err := startLocalSession(ctx, cliLogger(verbose))
			if err != nil {
				return err
			}
			defer ls.close(ctx)

			rec, err := ls.bmi.Calculate(ctx, ls.id, args[0], args[1], d)
			if errors.Is(err, domain.ErrInvalidInput) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", view.AlertTitle, view.AlertMessage)
				return err
			}
			if err != nil {
				return err
			}

			v := view.FromRecord(rec)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Date: %s\nBMI: %s\nCategory: %s\n", v.Date, v.BMI, v.Category)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Measurement date (YYYY-MM-DD), defaults to today")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	return cmd
}
