package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/raphaelgruber/legtrack/internal/metrics"
	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/raphaelgruber/legtrack/internal/scraper"
)

// Outcome classifies what reconciling one parsed bill did.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "errored"
	}
}

// Reconciler upserts parsed bills into the store by natural key. Persistence
// errors are counted and logged, never raised past this boundary: one bad
// record must not abort the run.
type Reconciler struct {
	store     Store
	collector *metrics.Collector
}

// NewReconciler creates a reconciler. collector may be nil.
func NewReconciler(store Store, collector *metrics.Collector) *Reconciler {
	return &Reconciler{store: store, collector: collector}
}

// Reconcile ensures the session row exists, then creates or updates the bill
// record for parsed.BillNumber().
func (r *Reconciler) Reconcile(ctx context.Context, sessionCode, sessionName string, parsed *scraper.ParsedBill) Outcome {
	start := time.Now()
	outcome := r.reconcile(ctx, sessionCode, sessionName, parsed)
	if r.collector != nil {
		r.collector.Record(metrics.OpReconcile, time.Since(start), outcome == OutcomeErrored)
	}
	return outcome
}

func (r *Reconciler) reconcile(ctx context.Context, sessionCode, sessionName string, parsed *scraper.ParsedBill) Outcome {
	billNumber := parsed.BillNumber()

	if err := r.store.EnsureSession(ctx, sessionCode, sessionName); err != nil {
		slog.Warn("ensure session failed", "session", sessionCode, "bill", billNumber, "error", err)
		return OutcomeErrored
	}

	existing, err := r.store.FindBill(ctx, billNumber)
	if err != nil {
		slog.Warn("bill lookup failed", "bill", billNumber, "error", err)
		return OutcomeErrored
	}

	if existing != nil {
		existing.Description = parsed.Description
		existing.Authors = parsed.Authors
		existing.Status = parsed.Status
		existing.LastAction = parsed.LastAction
		existing.LastActionDate = parsed.LastActionDate
		if err := r.store.UpdateBill(ctx, existing); err != nil {
			slog.Warn("bill update failed", "bill", billNumber, "error", err)
			return OutcomeErrored
		}
		return OutcomeUpdated
	}

	bill := &models.Bill{
		BillNumber:     billNumber,
		BillType:       parsed.BillType,
		Number:         parsed.Number,
		SessionCode:    sessionCode,
		Description:    parsed.Description,
		Authors:        parsed.Authors,
		Status:         parsed.Status,
		LastAction:     parsed.LastAction,
		LastActionDate: parsed.LastActionDate,
		Filename:       models.BillFilename(parsed.BillType, parsed.Number),
	}
	if err := r.store.CreateBill(ctx, bill); err != nil {
		slog.Warn("bill create failed", "bill", billNumber, "error", err)
		return OutcomeErrored
	}
	return OutcomeCreated
}
