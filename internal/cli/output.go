package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fleetops/fuelrecon/internal/application/service"
	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintResult prints one analysis result
func PrintResult(w io.Writer, r *fleet.AnalysisResult) {
	fmt.Fprintf(w, "Transaction %d: %s (confidence %d)", r.TransactionID, r.Status, r.Confidence)
	if r.AnomalyType != nil {
		fmt.Fprintf(w, " ANOMALY=%s", *r.AnomalyType)
	}
	fmt.Fprintln(w)

	if r.VehicleID != nil {
		fmt.Fprintf(w, "  Vehicle: %d", *r.VehicleID)
		if r.FuelCardID != nil {
			fmt.Fprintf(w, " | Card: %d", *r.FuelCardID)
		}
		fmt.Fprintln(w)
	}
	if r.RefuelID != nil {
		fmt.Fprintf(w, "  Refuel: %d", *r.RefuelID)
		if r.TimeDiffSeconds != nil {
			fmt.Fprintf(w, " | Δt=%s", time.Duration(*r.TimeDiffSeconds)*time.Second)
		}
		if r.QuantityDiff != nil {
			fmt.Fprintf(w, " | Δq=%s", r.QuantityDiff.String())
		}
		fmt.Fprintln(w)
	} else if r.Diagnostics.CandidateCount > 1 {
		fmt.Fprintf(w, "  Candidates: %d\n", r.Diagnostics.CandidateCount)
	}

	fmt.Fprintf(w, "  Geofence: %s", r.Diagnostics.Geofence)
	if r.DistanceMeters != nil {
		fmt.Fprintf(w, " (%.0f m)", *r.DistanceMeters)
	}
	if r.Diagnostics.UnresolvedReason != "" {
		fmt.Fprintf(w, " [%s]", r.Diagnostics.UnresolvedReason)
	}
	fmt.Fprintln(w)
}

// PrintResults prints a result list followed by a one-line summary
func PrintResults(w io.Writer, results []*fleet.AnalysisResult) {
	anomalies := 0
	for _, r := range results {
		PrintResult(w, r)
		if r.IsAnomaly {
			anomalies++
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Analyzed=%d Anomalies=%d\n", len(results), anomalies)
}

// PrintScanJob prints the outcome of a period scan
func PrintScanJob(w io.Writer, job *service.ScanJob) {
	fmt.Fprintf(w, "Scan %s (run %d): %s\n", job.ID, job.RunID, job.Status)
	if job.Error != "" {
		fmt.Fprintf(w, "  %s\n", job.Error)
	}
	if job.Stats != nil {
		PrintPeriodStats(w, job.Stats)
	}
}

// PrintPeriodStats prints batch counters, statuses, anomalies and errors
func PrintPeriodStats(w io.Writer, stats *fleet.PeriodStats) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Total=%d Analyzed=%d Errors=%d\n", stats.Total, stats.Analyzed, stats.Errored)
	if stats.Cancelled {
		fmt.Fprintln(w, "Stopped early; counts are partial.")
	}

	fmt.Fprint(w, "Statuses:")
	for _, s := range fleet.MatchStatuses {
		fmt.Fprintf(w, " %s=%d", s, stats.ByStatus[s])
	}
	fmt.Fprint(w, "\nAnomalies:")
	for _, a := range fleet.AnomalyTypes {
		fmt.Fprintf(w, " %s=%d", a, stats.ByAnomaly[a])
	}
	fmt.Fprintln(w)

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range stats.Errors {
			fmt.Fprintf(w, "  - transaction %d: %s\n", e.TransactionID, e.Message)
		}
	}
}
