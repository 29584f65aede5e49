package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/faktorino/faktorino/internal/logger"
	"github.com/faktorino/faktorino/pkg/models"
)

// InvoiceRecord is the database row for one invoice. Items are stored
// as a JSON column; dates are ISO strings per the boundary contract.
type InvoiceRecord struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"index"`
	InvoiceNumber  string
	OrderDate      string // YYYY-MM-DD
	ServiceDate    string // YYYY-MM-DD
	BuyerName      string
	BuyerAddress   string
	Country        string
	Classification string
	TaxNote        string
	Items          []models.LineItem `gorm:"serializer:json"`
	NetTotal       float64
	VATTotal       float64
	GrossTotal     float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileRecord is the database row for a seller profile.
type ProfileRecord struct {
	UserID           string `gorm:"primaryKey"`
	Name             string
	Street           string
	City             string
	ZipCode          string
	Country          string
	TaxNumber        string
	VATID            string
	Kleinunternehmer bool
	UpdatedAt        time.Time
}

// SequenceRecord tracks the next invoice sequence number per year.
type SequenceRecord struct {
	Year int `gorm:"primaryKey"`
	Next int
}

// Open connects to Postgres when a DSN is configured, otherwise to a
// local SQLite file, and migrates the schema.
func Open(databaseURL, sqlitePath string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
	case databaseURL != "":
		// Assume postgres DSN even without schema prefix
		dialector = postgres.Open(databaseURL)
	default:
		dialector = sqlite.Open(sqlitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(&InvoiceRecord{}, &ProfileRecord{}, &SequenceRecord{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

// GormStore implements InvoiceStore and ProfileStore on GORM.
type GormStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewGormStore wraps an open database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, log: logger.WithComponent("store")}
}

// CreateMany persists invoices in chunks of ChunkSize. Invoices whose
// id is already present are skipped; invoices without an id get one
// assigned. A failing chunk aborts the remaining ones.
func (s *GormStore) CreateMany(ctx context.Context, userID string, invoices []models.Invoice) ([]models.Invoice, int, error) {
	if len(invoices) == 0 {
		return nil, 0, nil
	}

	// Dedup against already-persisted ids.
	var incomingIDs []string
	for _, inv := range invoices {
		if inv.ID != "" {
			incomingIDs = append(incomingIDs, inv.ID)
		}
	}
	existing := make(map[string]struct{})
	if len(incomingIDs) > 0 {
		var ids []string
		if err := s.db.WithContext(ctx).Model(&InvoiceRecord{}).
			Where("user_id = ? AND id IN ?", userID, incomingIDs).
			Pluck("id", &ids).Error; err != nil {
			return nil, 0, fmt.Errorf("checking existing invoices: %w", err)
		}
		for _, id := range ids {
			existing[id] = struct{}{}
		}
	}

	var records []InvoiceRecord
	for _, inv := range invoices {
		if _, ok := existing[inv.ID]; ok {
			continue
		}
		if inv.ID == "" {
			inv.ID = uuid.NewString()
		}
		records = append(records, recordFromInvoice(userID, inv))
	}

	persisted := 0
	var stored []models.Invoice
	for start := 0; start < len(records); start += ChunkSize {
		end := start + ChunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if err := s.db.WithContext(ctx).Create(&chunk).Error; err != nil {
			s.log.Error().Err(err).
				Int("persisted", persisted).
				Int("total", len(records)).
				Msg("Chunk insert failed, aborting remaining chunks")
			return stored, persisted, fmt.Errorf("%w: %d of %d stored: %v",
				ErrPartialPersist, persisted, len(records), err)
		}
		for _, rec := range chunk {
			stored = append(stored, invoiceFromRecord(rec))
		}
		persisted += len(chunk)
	}

	return stored, persisted, nil
}

// List returns all invoices of a user, newest first.
func (s *GormStore) List(ctx context.Context, userID string) ([]models.Invoice, error) {
	var records []InvoiceRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	invoices := make([]models.Invoice, 0, len(records))
	for _, rec := range records {
		invoices = append(invoices, invoiceFromRecord(rec))
	}
	return invoices, nil
}

// Update replaces the mutable invoice fields and recomputes the totals
// from the edited item list.
func (s *GormStore) Update(ctx context.Context, userID, id string, inv models.Invoice) (*models.Invoice, error) {
	var rec InvoiceRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading invoice: %w", err)
	}

	inv.ID = id
	// Edited items arrive with net and rate only; per-line VAT and gross
	// and the invoice totals are recomputed here authoritatively, so a
	// stale line amount from the client can never be persisted.
	for i := range inv.Items {
		inv.Items[i].Recompute()
	}
	inv.RecomputeTotals()

	updated := recordFromInvoice(userID, inv)
	updated.CreatedAt = rec.CreatedAt
	if err := s.db.WithContext(ctx).Save(&updated).Error; err != nil {
		return nil, fmt.Errorf("updating invoice: %w", err)
	}

	result := invoiceFromRecord(updated)
	return &result, nil
}

// Delete removes one invoice of a user.
func (s *GormStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&InvoiceRecord{})
	if res.Error != nil {
		return false, fmt.Errorf("deleting invoice: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteAll removes every invoice of a user.
func (s *GormStore) DeleteAll(ctx context.Context, userID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&InvoiceRecord{})
	if res.Error != nil {
		return false, fmt.Errorf("deleting invoices: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SaveProfile upserts the seller profile.
func (s *GormStore) SaveProfile(ctx context.Context, profile models.SellerProfile) error {
	rec := ProfileRecord{
		UserID:           profile.UserID,
		Name:             profile.Name,
		Street:           profile.Street,
		City:             profile.City,
		ZipCode:          profile.ZipCode,
		Country:          profile.Country,
		TaxNumber:        profile.TaxNumber,
		VATID:            profile.VATID,
		Kleinunternehmer: profile.Kleinunternehmer,
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// GetProfile loads the seller profile of a user.
func (s *GormStore) GetProfile(ctx context.Context, userID string) (*models.SellerProfile, error) {
	var rec ProfileRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return &models.SellerProfile{
		UserID:           rec.UserID,
		Name:             rec.Name,
		Street:           rec.Street,
		City:             rec.City,
		ZipCode:          rec.ZipCode,
		Country:          rec.Country,
		TaxNumber:        rec.TaxNumber,
		VATID:            rec.VATID,
		Kleinunternehmer: rec.Kleinunternehmer,
	}, nil
}

// DBSequence is the database-backed invoice number sequence. Numbers
// stay unique across runs and concurrent users.
type DBSequence struct {
	db *gorm.DB
}

// NewDBSequence creates a sequence on the given handle.
func NewDBSequence(db *gorm.DB) *DBSequence {
	return &DBSequence{db: db}
}

// Next increments and returns the sequence for the year in one
// transaction. The row is locked for the duration so concurrent
// requests never hand out the same number (Postgres; SQLite serializes
// writers anyway).
func (s *DBSequence) Next(year int) (int, error) {
	var seq int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rec SequenceRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ?", year).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rec = SequenceRecord{Year: year}
		} else if err != nil {
			return err
		}

		rec.Next++
		seq = rec.Next
		return tx.Save(&rec).Error
	})
	if err != nil {
		return 0, fmt.Errorf("advancing sequence for %d: %w", year, err)
	}
	return seq, nil
}

func recordFromInvoice(userID string, inv models.Invoice) InvoiceRecord {
	return InvoiceRecord{
		ID:             inv.ID,
		UserID:         userID,
		InvoiceNumber:  inv.InvoiceNumber,
		OrderDate:      isoFromDisplay(inv.OrderDate),
		ServiceDate:    isoFromDisplay(inv.ServiceDate),
		BuyerName:      inv.BuyerName,
		BuyerAddress:   inv.BuyerAddress,
		Country:        inv.Country,
		Classification: string(inv.Classification),
		TaxNote:        inv.TaxNote,
		Items:          inv.Items,
		NetTotal:       inv.NetTotal,
		VATTotal:       inv.VATTotal,
		GrossTotal:     inv.GrossTotal,
	}
}

func invoiceFromRecord(rec InvoiceRecord) models.Invoice {
	return models.Invoice{
		ID:             rec.ID,
		InvoiceNumber:  rec.InvoiceNumber,
		OrderDate:      displayFromISO(rec.OrderDate),
		ServiceDate:    displayFromISO(rec.ServiceDate),
		BuyerName:      rec.BuyerName,
		BuyerAddress:   rec.BuyerAddress,
		Country:        rec.Country,
		Classification: models.CountryClassification(rec.Classification),
		TaxNote:        rec.TaxNote,
		Items:          rec.Items,
		NetTotal:       rec.NetTotal,
		VATTotal:       rec.VATTotal,
		GrossTotal:     rec.GrossTotal,
	}
}
