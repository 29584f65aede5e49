// Package store persists derived invoices and seller profiles. Dates
// cross this boundary in ISO form (YYYY-MM-DD); the rest of the
// application works with the German display form (DD.MM.YYYY), so every
// read and write passes through the conversion adapter below.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/faktorino/faktorino/pkg/models"
)

// ChunkSize bounds the number of invoices written per batch insert.
const ChunkSize = 10

var (
	// ErrNotFound is returned when an invoice or profile does not exist
	// for the given user.
	ErrNotFound = errors.New("record not found")

	// ErrPartialPersist is returned when a batch insert failed after
	// some chunks were already written. The persisted count in the
	// CreateMany result remains valid.
	ErrPartialPersist = errors.New("batch persisted only partially")
)

// InvoiceStore stores and retrieves invoices keyed by user.
type InvoiceStore interface {
	// CreateMany persists invoices in chunks, deduplicating against
	// already-persisted ids. It returns the stored invoices (with
	// server-assigned ids) and the number actually persisted; on a
	// chunk failure the remaining chunks are aborted and
	// ErrPartialPersist is returned alongside the partial result.
	CreateMany(ctx context.Context, userID string, invoices []models.Invoice) ([]models.Invoice, int, error)

	// List returns all invoices of a user, newest first.
	List(ctx context.Context, userID string) ([]models.Invoice, error)

	// Update replaces the mutable fields of an invoice and recomputes
	// the totals from the (possibly edited) item list.
	Update(ctx context.Context, userID, id string, inv models.Invoice) (*models.Invoice, error)

	// Delete removes one invoice. Reports whether it existed.
	Delete(ctx context.Context, userID, id string) (bool, error)

	// DeleteAll removes every invoice of a user.
	DeleteAll(ctx context.Context, userID string) (bool, error)
}

// ProfileStore stores the per-user seller profile.
type ProfileStore interface {
	SaveProfile(ctx context.Context, profile models.SellerProfile) error
	GetProfile(ctx context.Context, userID string) (*models.SellerProfile, error)
}

const (
	isoDateFormat     = "2006-01-02"
	displayDateFormat = "02.01.2006"
)

// isoFromDisplay converts DD.MM.YYYY to YYYY-MM-DD. Unparseable values
// pass through unchanged so a defective date never blocks persistence.
func isoFromDisplay(value string) string {
	date, err := time.Parse(displayDateFormat, value)
	if err != nil {
		return value
	}
	return date.Format(isoDateFormat)
}

// displayFromISO converts YYYY-MM-DD back to DD.MM.YYYY.
func displayFromISO(value string) string {
	date, err := time.Parse(isoDateFormat, value)
	if err != nil {
		return value
	}
	return date.Format(displayDateFormat)
}
