package sheets

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"fintrack/internal/core"
)

// MirrorRow is one ledger transaction as written to the spreadsheet mirror.
type MirrorRow struct {
	TransactionID string
	OccurredAt    time.Time
	Account       string
	Category      string
	Description   string
	Amount        core.Money
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		Append(ctx context.Context, row MirrorRow) (rowRef string, err error)
	}

	// LedgerDeleter removes a previously appended row. Deleting a row that is
	// not present is not an error.
	LedgerDeleter interface {
		Delete(ctx context.Context, row MirrorRow) error
	}

	RowLister interface {
		Rows(ctx context.Context, year int) ([]MirrorRow, error)
	}

	Mirror interface {
		LedgerWriter
		LedgerDeleter
		RowLister
	}
)

var markerRe = regexp.MustCompile(`\[id:([^\]]+)\]`)

// Marker returns the tag appended to the description so the row can be
// found again for deletion.
func Marker(transactionID string) string {
	return fmt.Sprintf("[id:%s]", transactionID)
}

// TaggedDescription is the description cell: text followed by the marker.
func (r MirrorRow) TaggedDescription() string {
	if r.Description == "" {
		return Marker(r.TransactionID)
	}
	return r.Description + " " + Marker(r.TransactionID)
}

// ExtractID returns the transaction id embedded in a description cell.
func ExtractID(cell string) (string, bool) {
	m := markerRe.FindStringSubmatch(cell)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (r MirrorRow) Validate() error {
	if r.TransactionID == "" {
		return fmt.Errorf("mirror row without transaction id")
	}
	if r.OccurredAt.IsZero() {
		return fmt.Errorf("mirror row %s without date", r.TransactionID)
	}
	return r.Amount.Validate()
}
