package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// AnalyzeCard reconciles every transaction of a card within [from, to].
// A nil from or to defaults to the trailing 30 days ending now. Transactions
// that fail are logged and skipped; the successful results are returned in
// transaction order.
func (o *Orchestrator) AnalyzeCard(ctx context.Context, cardID int64, from, to *time.Time, params Params) ([]*fleet.AnalysisResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	start, end := o.cardRange(from, to)
	if err := validatePeriod(start, end); err != nil {
		return nil, err
	}

	card, err := o.store.GetFuelCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("card %d: %w", cardID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load card %d: %w", cardID, err)
	}

	txs, err := o.store.ListTransactions(ctx, storage.TransactionFilter{
		From:    start,
		To:      end,
		CardIDs: []int64{card.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for card %d: %w", cardID, err)
	}

	o.logger.Info("Analyzing card",
		"card_id", card.ID,
		"from", start.Format(time.RFC3339),
		"to", end.Format(time.RFC3339),
		"transactions", len(txs),
	)

	slots := make([]*fleet.AnalysisResult, len(txs))
	batchErr := o.runBatch(ctx, txs, params, func(i int, tx *fleet.Transaction, r *fleet.AnalysisResult, err error) {
		if err != nil {
			o.logger.Warn("Skipping transaction", "card_id", card.ID, "transaction_id", tx.ID, "error", err)
			return
		}
		slots[i] = r
	})

	results := make([]*fleet.AnalysisResult, 0, len(txs))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	return results, batchErr
}

func (o *Orchestrator) cardRange(from, to *time.Time) (time.Time, time.Time) {
	end := o.now()
	if to != nil {
		end = *to
	}
	start := end.Add(-DefaultCardLookback)
	if from != nil {
		start = *from
	}
	return start, end
}

// AnalyzePeriod reconciles every transaction in [from, to] matching the
// filters and aggregates the outcome. One transaction failing never aborts
// the scan; it is recorded in the stats instead.
//
// Cancelling ctx stops the scan between transactions. Analyses already
// started run to completion, so every stored result stays valid and the scan
// can be resumed by re-issuing it. The partial stats are returned with
// Cancelled set, together with the context error.
func (o *Orchestrator) AnalyzePeriod(ctx context.Context, from, to time.Time, filters PeriodFilters, params Params) (*fleet.PeriodStats, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := validatePeriod(from, to); err != nil {
		return nil, err
	}

	txs, err := o.store.ListTransactions(ctx, storage.TransactionFilter{
		From:            from,
		To:              to,
		CardIDs:         filters.CardIDs,
		VehicleIDs:      filters.VehicleIDs,
		OrganizationIDs: filters.OrganizationIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	o.logger.Info("Analyzing period",
		"from", from.Format(time.RFC3339),
		"to", to.Format(time.RFC3339),
		"transactions", len(txs),
		"workers", o.workers,
	)

	stats := fleet.NewPeriodStats()
	stats.Total = len(txs)

	var mu sync.Mutex
	batchErr := o.runBatch(ctx, txs, params, func(_ int, tx *fleet.Transaction, r *fleet.AnalysisResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			o.logger.Warn("Transaction analysis failed", "transaction_id", tx.ID, "error", err)
			stats.RecordError(tx.ID, err)
			return
		}
		stats.Record(r)
	})
	if batchErr != nil {
		stats.Cancelled = true
	}

	o.logger.Info("Period analysis complete",
		"total", stats.Total,
		"analyzed", stats.Analyzed,
		"errored", stats.Errored,
		"cancelled", stats.Cancelled,
	)
	return stats, batchErr
}

// visitFunc receives the outcome of one transaction. It may be called
// concurrently.
type visitFunc func(i int, tx *fleet.Transaction, r *fleet.AnalysisResult, err error)

// runBatch analyzes txs on a bounded worker pool. Cancellation is observed
// between transactions only; each analysis runs detached from ctx so no
// write is cut short. Returns ctx.Err() if any transaction was skipped.
func (o *Orchestrator) runBatch(ctx context.Context, txs []*fleet.Transaction, params Params, visit visitFunc) error {
	var g errgroup.Group
	g.SetLimit(o.workers)

	var done atomic.Int64

	work := context.WithoutCancel(ctx)
	for i, tx := range txs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r, err := o.analyzeSafely(work, tx, params)
			visit(i, tx, r, err)
			done.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if int(done.Load()) < len(txs) {
		return ctx.Err()
	}
	return nil
}

// analyzeSafely turns a panic in one analysis into an error for that
// transaction only
func (o *Orchestrator) analyzeSafely(ctx context.Context, tx *fleet.Transaction, params Params) (r *fleet.AnalysisResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("Panic during analysis", "transaction_id", tx.ID, "panic", p)
			r, err = nil, fmt.Errorf("transaction %d: unexpected failure: %v", tx.ID, p)
		}
	}()
	return o.analyze(ctx, tx, params)
}
