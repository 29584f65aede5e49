// Package credits meters invoice generation. One credit entitles the
// user to generate one invoice; credits are purchased in packages and
// never expire. Every balance change is a ledger row.
package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/faktorino/faktorino/internal/logger"
)

// ErrInsufficientCredits is returned when a decrement would push the
// balance below zero. The balance is left untouched.
var ErrInsufficientCredits = errors.New("nicht genügend Guthaben vorhanden")

// BalanceRecord is the per-user credit balance.
type BalanceRecord struct {
	UserID    string `gorm:"primaryKey"`
	Balance   int
	UpdatedAt time.Time
}

// LedgerRecord is one balance change.
type LedgerRecord struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	Delta       int
	Balance     int // balance after applying Delta
	Description string
	CreatedAt   time.Time
}

// Service is the credit-metering interface the rest of the application
// consumes.
type Service interface {
	// UseCredits decrements the balance by count in one transaction.
	// Fails cleanly with ErrInsufficientCredits when count exceeds the
	// balance; no partial decrement happens.
	UseCredits(ctx context.Context, userID string, count int, description string) (int, error)

	// AddCredits credits a purchased package to the balance.
	AddCredits(ctx context.Context, userID string, count int, description string) (int, error)

	// Balance returns the current balance, seeding new users with the
	// configured free credits.
	Balance(ctx context.Context, userID string) (int, error)
}

// GormService implements Service on GORM.
type GormService struct {
	db          *gorm.DB
	freeCredits int
	log         zerolog.Logger
}

// NewGormService creates the service. freeCredits is granted to users
// without an existing balance row.
func NewGormService(db *gorm.DB, freeCredits int) (*GormService, error) {
	if err := db.AutoMigrate(&BalanceRecord{}, &LedgerRecord{}); err != nil {
		return nil, fmt.Errorf("migrating credit schema: %w", err)
	}
	return &GormService{
		db:          db,
		freeCredits: freeCredits,
		log:         logger.WithComponent("credits"),
	}, nil
}

// UseCredits performs the read-check-decrement atomically so concurrent
// requests from the same user cannot overspend.
func (s *GormService) UseCredits(ctx context.Context, userID string, count int, description string) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("credit count must be positive, got %d", count)
	}
	return s.apply(ctx, userID, -count, description)
}

// AddCredits books a purchased package onto the balance.
func (s *GormService) AddCredits(ctx context.Context, userID string, count int, description string) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("credit count must be positive, got %d", count)
	}
	return s.apply(ctx, userID, count, description)
}

// Balance returns the current balance, creating the seeded row for
// first-time users.
func (s *GormService) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.loadOrSeed(tx, userID)
		if err != nil {
			return err
		}
		balance = rec.Balance
		return nil
	})
	return balance, err
}

func (s *GormService) apply(ctx context.Context, userID string, delta int, description string) (int, error) {
	var newBalance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.loadOrSeed(tx, userID)
		if err != nil {
			return err
		}

		if rec.Balance+delta < 0 {
			return ErrInsufficientCredits
		}
		rec.Balance += delta
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("saving balance: %w", err)
		}

		entry := LedgerRecord{
			UserID:      userID,
			Delta:       delta,
			Balance:     rec.Balance,
			Description: description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("writing ledger: %w", err)
		}

		newBalance = rec.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("user_id", userID).
		Int("delta", delta).
		Int("balance", newBalance).
		Str("description", description).
		Msg("Credit balance changed")

	return newBalance, nil
}

// loadOrSeed reads the balance row under a row lock so that concurrent
// transactions on the same user serialize; without it, two decrements
// under READ COMMITTED could both pass the balance check.
func (s *GormService) loadOrSeed(tx *gorm.DB, userID string) (*BalanceRecord, error) {
	var rec BalanceRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = BalanceRecord{UserID: userID, Balance: s.freeCredits}
		if err := tx.Create(&rec).Error; err != nil {
			return nil, fmt.Errorf("seeding balance: %w", err)
		}
		return &rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading balance: %w", err)
	}
	return &rec, nil
}
