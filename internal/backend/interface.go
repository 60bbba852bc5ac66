package backend

import (
	"context"

	"fintrack/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// MirrorResult contains the mirror instance and optional cleanup function
type MirrorResult struct {
	Mirror  sheets.Mirror
	Cleanup CleanupFunc
}

// Factory creates ledger mirrors based on configuration
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
}

// Config holds configuration for mirror creation
type Config struct {
	Type MirrorType

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// MirrorType represents the type of mirror
type MirrorType string

const (
	SheetsMirror MirrorType = "sheets"
	MemoryMirror MirrorType = "memory"
)

// String implements fmt.Stringer
func (mt MirrorType) String() string {
	return string(mt)
}

// IsValid returns true if the mirror type is valid
func (mt MirrorType) IsValid() bool {
	switch mt {
	case SheetsMirror, MemoryMirror:
		return true
	default:
		return false
	}
}
