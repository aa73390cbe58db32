package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/raphaelgruber/legtrack/internal/metrics"
	"github.com/raphaelgruber/legtrack/internal/models"
)

// ParsedBill is the ephemeral result of parsing one bill detail page. Only
// the type and number are guaranteed; every other field is best-effort and
// absence is represented, never fabricated.
type ParsedBill struct {
	BillType       string
	Number         int
	Description    string
	Authors        []string
	Status         string
	LastAction     string
	LastActionDate *time.Time
}

// BillNumber returns the natural key for the parsed bill.
func (p *ParsedBill) BillNumber() string {
	return models.NaturalKey(p.BillType, p.Number)
}

// BillDetail retrieves and parses one bill's detail page. The second return
// value is false when the page could not be fetched (transport failure or
// non-success response), so the caller can count it as an error and
// continue; fetch problems are never raised as errors.
func (f *Fetcher) BillDetail(ctx context.Context, sessionCode, billType string, number int) (*ParsedBill, bool) {
	start := time.Now()
	url := f.detailURL(sessionCode, billType, number)

	body, err := f.get(ctx, url)
	if err != nil {
		f.record(metrics.OpDetailFetch, start, true)
		slog.Warn("detail fetch failed", "bill", models.NaturalKey(billType, number), "error", err)
		return nil, false
	}
	f.record(metrics.OpDetailFetch, start, false)

	page := string(body)
	lastAction, lastActionDate := f.extractor.LastAction(page)

	return &ParsedBill{
		BillType:       billType,
		Number:         number,
		Description:    f.extractor.Description(page, billType, number),
		Authors:        f.extractor.Authors(page),
		Status:         f.extractor.Status(page),
		LastAction:     lastAction,
		LastActionDate: lastActionDate,
	}, true
}
