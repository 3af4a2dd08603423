package vipps

import (
	"context"
	"time"

	"stregsystem/internal/core/kroner"
	"stregsystem/internal/domain/payment"
	"stregsystem/pkg/logger"
)

// cutoffDate is when this iteration of the MobilePay API went live.
// Transactions before it were imported by hand and must not re-ingest.
var cutoffDate = time.Date(2024, time.April, 9, 0, 0, 0, 0, time.UTC)

// maxDaysBack caps the historic lookback the report API allows.
const maxDaysBack = 31

// DefaultDaysBack is the lookback the scheduled import uses.
const DefaultDaysBack = 7

// Importer pulls transactions from the Vipps report API into the
// mobile-payment reconciliation queue.
type Importer struct {
	client   *Client
	payments *payment.Service
	now      func() time.Time
}

// NewImporter creates an importer over the given client and payment
// service.
func NewImporter(client *Client, payments *payment.Service) *Importer {
	return &Importer{client: client, payments: payments, now: time.Now}
}

// Run fetches the live feed plus daysBack days of settled history and
// ingests every capture. Out-of-range daysBack falls back to the
// default. Returns the number of rows created; duplicates are counted
// separately by the ingest dedupe.
func (i *Importer) Run(ctx context.Context, daysBack int) (int, error) {
	if daysBack <= 0 || daysBack > maxDaysBack {
		daysBack = DefaultDaysBack
	}

	transactions, err := i.client.FeedTransactions(ctx)
	if err != nil {
		return 0, err
	}
	today := i.now()
	for d := 0; d < daysBack; d++ {
		day := today.AddDate(0, 0, -d)
		if day.Before(cutoffDate) {
			break
		}
		historic, err := i.client.HistoricTransactions(ctx, day)
		if err != nil {
			return 0, err
		}
		transactions = append(transactions, historic...)
	}

	if len(transactions) == 0 {
		logger.Info(ctx, "vipps import ran, no transactions found")
		return 0, nil
	}

	imported := 0
	for _, t := range transactions {
		created, err := i.ingestOne(ctx, t)
		if err != nil {
			return imported, err
		}
		if created {
			imported++
		}
	}
	logger.Info(ctx, "vipps import finished", "fetched", len(transactions), "imported", imported)
	return imported, nil
}

// ingestOne filters a single ledger entry and hands it to the payment
// service. Only DKK captures on or after the cutoff date are eligible.
func (i *Importer) ingestOne(ctx context.Context, t Transaction) (bool, error) {
	if t.EntryType != "capture" {
		return false, nil
	}
	if t.Time.Before(cutoffDate) {
		logger.Debug(ctx, "skipping pre-cutoff transaction", "transaction_id", t.PSPReference)
		return false, nil
	}
	if t.Currency != "DKK" {
		logger.Warn(ctx, "only DKK transactions are supported",
			"transaction_id", t.PSPReference, "currency", t.Currency)
		return false, nil
	}

	created, err := i.payments.Ingest(ctx, &payment.MobilePayment{
		Amount:        kroner.Oere(t.Amount),
		Timestamp:     t.Time,
		CustomerName:  t.Name,
		Comment:       t.Message,
		TransactionID: t.PSPReference,
	})
	if err != nil {
		return false, err
	}
	if created {
		logger.Info(ctx, "imported transaction", "transaction_id", t.PSPReference, "amount", t.Amount)
	}
	return created, nil
}
