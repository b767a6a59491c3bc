package reconcile

import (
	"context"
	"fmt"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// saveResult upserts the result and logs the verdict
func (o *Orchestrator) saveResult(ctx context.Context, result *fleet.AnalysisResult) error {
	if err := o.store.UpsertResult(ctx, result); err != nil {
		o.logger.Error("Failed to save result", "transaction_id", result.TransactionID, "error", err)
		return fmt.Errorf("failed to save result for transaction %d: %w", result.TransactionID, err)
	}

	attrs := []any{
		"transaction_id", result.TransactionID,
		"status", result.Status,
		"confidence", result.Confidence,
		"candidates", result.Diagnostics.CandidateCount,
		"geofence", result.Diagnostics.Geofence,
	}
	if result.DistanceMeters != nil {
		attrs = append(attrs, "distance_m", fmt.Sprintf("%.1f", *result.DistanceMeters))
	}

	if result.IsAnomaly {
		attrs = append(attrs, "anomaly_type", *result.AnomalyType)
		o.logger.Info("Transaction flagged", attrs...)
		return nil
	}
	o.logger.Debug("Transaction matched", attrs...)
	return nil
}
