package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/application/service"
)

// AnalyzeFlags are the flags shared by the analyze subcommands
type AnalyzeFlags struct {
	From            string
	To              string
	CardIDs         []int64
	VehicleIDs      []int64
	OrganizationIDs []int64
	JSON            bool
}

func newAnalyzeCmd(global *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze transactions and store the results",
	}
	cmd.AddCommand(
		newAnalyzeTransactionCmd(global),
		newAnalyzeCardCmd(global),
		newAnalyzePeriodCmd(global),
	)
	return cmd
}

func newAnalyzeTransactionCmd(global *GlobalFlags) *cobra.Command {
	flags := &AnalyzeFlags{}
	cmd := &cobra.Command{
		Use:   "transaction <id>",
		Short: "Analyze a single transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			e, err := openEnv(global, "analyze")
			if err != nil {
				return err
			}
			defer e.Close()

			result, err := e.engine.AnalyzeTransaction(cmd.Context(), id, e.params())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.JSON {
				return PrintJSON(out, result)
			}
			PrintResult(out, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the stored result as JSON")
	return cmd
}

func newAnalyzeCardCmd(global *GlobalFlags) *cobra.Command {
	flags := &AnalyzeFlags{}
	cmd := &cobra.Command{
		Use:   "card <id>",
		Short: "Analyze every transaction of a card (default: last 30 days)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			from, err := parseOptionalDate(flags.From, false)
			if err != nil {
				return err
			}
			to, err := parseOptionalDate(flags.To, true)
			if err != nil {
				return err
			}

			e, err := openEnv(global, "analyze")
			if err != nil {
				return err
			}
			defer e.Close()

			results, err := e.engine.AnalyzeCard(cmd.Context(), id, from, to, e.params())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.JSON {
				return PrintJSON(out, results)
			}
			PrintResults(out, results)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.From, "from", "", "Start date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&flags.To, "to", "", "End date, inclusive")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print results as JSON")
	return cmd
}

func newAnalyzePeriodCmd(global *GlobalFlags) *cobra.Command {
	flags := &AnalyzeFlags{}
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Analyze all transactions in a date range and record the run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := parseDate(flags.From, false)
			if err != nil {
				return err
			}
			to, err := parseDate(flags.To, true)
			if err != nil {
				return err
			}

			e, err := openEnv(global, "analyze")
			if err != nil {
				return err
			}
			defer e.Close()

			job, err := runPeriod(cmd.Context(), e, service.ScanRequest{
				From: from,
				To:   to,
				Filters: reconcile.PeriodFilters{
					CardIDs:         flags.CardIDs,
					VehicleIDs:      flags.VehicleIDs,
					OrganizationIDs: flags.OrganizationIDs,
				},
				Trigger: "cli",
			})
			if err != nil {
				return err
			}

			if job.Status == service.StatusFailed {
				return fmt.Errorf("scan %s failed: %s", job.ID, job.Error)
			}

			out := cmd.OutOrStdout()
			if flags.JSON {
				return PrintJSON(out, job.Stats)
			}
			PrintScanJob(out, job)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.From, "from", "", "Start date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&flags.To, "to", "", "End date, inclusive")
	cmd.Flags().Int64SliceVar(&flags.CardIDs, "card", nil, "Restrict to card IDs")
	cmd.Flags().Int64SliceVar(&flags.VehicleIDs, "vehicle", nil, "Restrict to vehicle IDs")
	cmd.Flags().Int64SliceVar(&flags.OrganizationIDs, "org", nil, "Restrict to organization IDs")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the period stats as JSON")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// runPeriod runs the scan through the scan service so the run is recorded.
// An interrupt cancels the scan and still returns its partial stats.
func runPeriod(ctx context.Context, e *env, req service.ScanRequest) (*service.ScanJob, error) {
	scans := service.NewScanService(e.engine, e.store, e.logger,
		service.WithDefaultParams(e.params()),
		service.WithMaxDuration(e.cfg.Scans.MaxDuration()),
	)

	jobID, err := scans.StartScan(ctx, req)
	if err != nil {
		return nil, err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := scans.Wait(sigCtx, jobID)
	if err == nil {
		return job, nil
	}

	e.logger.Warn("interrupted, cancelling scan", "job_id", jobID)
	if cerr := scans.CancelScan(jobID); cerr != nil {
		e.logger.Debug("cancel after finish", "job_id", jobID, "error", cerr)
	}
	return scans.Wait(context.Background(), jobID)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseDate accepts RFC 3339 or YYYY-MM-DD. A bare date used as an upper
// bound covers the whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func parseOptionalDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
