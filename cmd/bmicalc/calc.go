package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bmicalc/internal/adapter/memory"
	"bmicalc/internal/app"
	"bmicalc/internal/domain"
	"bmicalc/internal/logging"
	"bmicalc/internal/view"
)

func cliLogger(verbose bool) *slog.Logger {
	if verbose {
		return logging.Setup(os.Stderr, "debug")
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// localSession is a single in-memory session for terminal use.
type localSession struct {
	bmi      *app.BMIService
	sessions *app.SessionService
	id       string
}

func startLocalSession(ctx context.Context, logger *slog.Logger) (*localSession, error) {
	db := memory.New()
	sessions := app.NewSessionService(db, 24*time.Hour, logger, nil)
	sess, err := sessions.Start(ctx)
	if err != nil {
		return nil, err
	}
	return &localSession{
		bmi:      app.NewBMIService(db, logger, nil),
		sessions: sessions,
		id:       sess.ID,
	}, nil
}

func (l *localSession) close(ctx context.Context) {
	_ = l.sessions.End(ctx, l.id)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}

func newCalcCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Interactive BMI session; the history is discarded on exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cliLogger(verbose))
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	return cmd
}

func runCalc(ctx context.Context, in io.Reader, out io.Writer, logger *slog.Logger) error {
	ls, err := startLocalSession(ctx, logger)
	if err != nil {
		return err
	}
	defer ls.close(ctx)

	sc := bufio.NewScanner(in)
	prompt := func(label string) (string, bool) {
		fmt.Fprint(out, label)
		if !sc.Scan() {
			return "", false
		}
		return strings.TrimSpace(sc.Text()), true
	}

	fmt.Fprintln(out, "BMI Calculator")
	for {
		weight, ok := prompt("Weight (kg): ")
		if !ok {
			break
		}
		height, ok := prompt("Height (m): ")
		if !ok {
			break
		}
		dateIn, ok := prompt("Date (YYYY-MM-DD, empty for today): ")
		if !ok {
			break
		}

		date, err := parseDate(dateIn)
		if err != nil {
			fmt.Fprintln(out, "Date must be YYYY-MM-DD.")
			continue
		}

		rec, err := ls.bmi.Calculate(ctx, ls.id, weight, height, date)
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			fmt.Fprintf(out, "%s: %s\n", view.AlertTitle, view.AlertMessage)
			continue
		case errors.Is(err, app.ErrFutureDate):
			fmt.Fprintln(out, "Date cannot be in the future.")
			continue
		case err != nil:
			return err
		}

		fmt.Fprintf(out, "Your BMI: %s\nCategory: %s\n", view.FormatBMI(rec.BMI), rec.Category)

		recs, err := ls.bmi.History(ctx, ls.id, 0)
		if err != nil {
			return err
		}
		printRecords(out, view.List(recs))
	}
	fmt.Fprintln(out)
	return sc.Err()
}

func printRecords(out io.Writer, recs []view.Record) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintln(out, "\nBMI Records")
	for _, r := range recs {
		fmt.Fprintf(out, "  Date: %s\n  BMI: %s\n  Category: %s\n", r.Date, r.BMI, r.Category)
		if r.Change != "" {
			fmt.Fprintf(out, "  Change: %s\n", r.Change)
		}
		fmt.Fprintln(out)
	}
}
