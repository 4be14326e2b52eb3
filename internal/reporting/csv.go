// Package reporting renders the per-recipient ledger of an airdrop run.
package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"solana-airdrop/internal/domain"
)

// TransferRow is one CSV line of a transfer report.
type TransferRow struct {
	Index         int    `csv:"index"`
	Address       string `csv:"address"`
	Amount        string `csv:"amount"`
	BaseUnits     uint64 `csv:"base_units"`
	Method        string `csv:"method"`
	Status        string `csv:"status"`
	Signature     string `csv:"signature"`
	FailureReason string `csv:"failure_reason"`
	CreatedAt     string `csv:"created_at"`
}

// TransferRows converts ledger records into report rows, keeping their order.
func TransferRows(records []*domain.TransferRecord) []TransferRow {
	rows := make([]TransferRow, 0, len(records))
	for _, r := range records {
		row := TransferRow{
			Index:     r.RecipientIndex,
			Address:   r.Address,
			Amount:    r.Amount,
			BaseUnits: r.BaseUnits,
			Method:    r.Method.String(),
			Status:    string(r.Status),
			CreatedAt: time.UnixMilli(r.CreatedAt).UTC().Format(time.RFC3339),
		}
		if r.Signature != nil {
			row.Signature = *r.Signature
		}
		if r.FailureReason != nil {
			row.FailureReason = *r.FailureReason
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteTransfersCSV writes records as CSV with a header line.
func WriteTransfersCSV(w io.Writer, records []*domain.TransferRecord) error {
	if err := gocsv.Marshal(TransferRows(records), w); err != nil {
		return fmt.Errorf("write transfers csv: %w", err)
	}
	return nil
}

// FileName returns the attachment name used for a run's transfer report.
func FileName(runID string) string {
	return fmt.Sprintf("airdrop_%s_transfers.csv", runID)
}
