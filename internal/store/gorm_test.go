package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faktorino/faktorino/pkg/models"
)

func testStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := Open("", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return NewGormStore(db)
}

func sampleInvoice(number string) models.Invoice {
	inv := models.Invoice{
		InvoiceNumber:  number,
		OrderDate:      "15.01.2026",
		ServiceDate:    "15.01.2026",
		BuyerName:      "Max Mustermann",
		BuyerAddress:   "Musterweg 1\n10115 Berlin\nDE",
		Country:        "DE",
		Classification: models.ClassificationDomestic,
		TaxNote:        "Im Betrag sind 19 % Umsatzsteuer enthalten.",
		Items: []models.LineItem{
			{Quantity: 1, Name: "Kerze", NetAmount: 10, VATRate: 19, VATAmount: 1.90, GrossAmount: 11.90},
		},
	}
	inv.RecomputeTotals()
	return inv
}

func TestCreateManyAndList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, persisted, err := s.CreateMany(ctx, "user-1", []models.Invoice{
		sampleInvoice("RE-2026-0001"),
		sampleInvoice("RE-2026-0002"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, persisted)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)

	invoices, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, invoices, 2)

	// Display dates survive the ISO round-trip through the store.
	assert.Equal(t, "15.01.2026", invoices[0].OrderDate)
}

func TestCreateMany_ChunksLargeBatches(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	batch := make([]models.Invoice, 25)
	for i := range batch {
		batch[i] = sampleInvoice(fmt.Sprintf("RE-2026-%04d", i+1))
	}

	_, persisted, err := s.CreateMany(ctx, "user-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 25, persisted)

	invoices, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, invoices, 25)
}

func TestCreateMany_DeduplicatesByID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, _, err := s.CreateMany(ctx, "user-1", []models.Invoice{sampleInvoice("RE-2026-0001")})
	require.NoError(t, err)

	// Re-inserting the persisted invoice is a no-op.
	again, persisted, err := s.CreateMany(ctx, "user-1", stored)
	require.NoError(t, err)
	assert.Zero(t, persisted)
	assert.Empty(t, again)

	invoices, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestCreateMany_Empty(t *testing.T) {
	s := testStore(t)
	stored, persisted, err := s.CreateMany(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Zero(t, persisted)
	assert.Empty(t, stored)
}

func TestList_ScopedByUser(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, _, err := s.CreateMany(ctx, "user-1", []models.Invoice{sampleInvoice("RE-2026-0001")})
	require.NoError(t, err)

	invoices, err := s.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestUpdate_RecomputesTotals(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, _, err := s.CreateMany(ctx, "user-1", []models.Invoice{sampleInvoice("RE-2026-0001")})
	require.NoError(t, err)

	edited := stored[0]
	edited.Items = []models.LineItem{
		{Quantity: 2, Name: "Kerze", NetAmount: 10, VATRate: 19, VATAmount: 3.80, GrossAmount: 23.80},
	}
	// Stale totals must be overridden by the recompute.
	edited.NetTotal = 0
	edited.GrossTotal = 0

	updated, err := s.Update(ctx, "user-1", stored[0].ID, edited)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, updated.NetTotal, 0.01)
	assert.InDelta(t, 3.80, updated.VATTotal, 0.01)
	assert.InDelta(t, 23.80, updated.GrossTotal, 0.01)
}

func TestUpdate_RecomputesLineAmounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, _, err := s.CreateMany(ctx, "user-1", []models.Invoice{sampleInvoice("RE-2026-0001")})
	require.NoError(t, err)

	// Edited net with line amounts left over from before the edit: VAT
	// and gross per line must be derived from the new net and rate.
	edited := stored[0]
	edited.Items = []models.LineItem{
		{Quantity: 1, Name: "Kerze", NetAmount: 20, VATRate: 19, VATAmount: 1.90, GrossAmount: 11.90},
	}

	updated, err := s.Update(ctx, "user-1", stored[0].ID, edited)
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.InDelta(t, 3.80, updated.Items[0].VATAmount, 0.01)
	assert.InDelta(t, 23.80, updated.Items[0].GrossAmount, 0.01)
	assert.InDelta(t, 20.0, updated.NetTotal, 0.01)
	assert.InDelta(t, 3.80, updated.VATTotal, 0.01)
	assert.InDelta(t, 23.80, updated.GrossTotal, 0.01)
	assert.InDelta(t, updated.GrossTotal, updated.NetTotal+updated.VATTotal, 0.01)
}

func TestUpdate_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Update(context.Background(), "user-1", "missing", sampleInvoice("RE-2026-0001"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_OtherUsersInvoiceNotVisible(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, _, err := s.CreateMany(ctx, "user-1", []models.Invoice{sampleInvoice("RE-2026-0001")})
	require.NoError(t, err)

	_, err = s.Update(ctx, "user-2", stored[0].ID, stored[0])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, _, err := s.CreateMany(ctx, "user-1", []models.Invoice{sampleInvoice("RE-2026-0001")})
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, "user-1", stored[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "user-1", stored[0].ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteAll(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, _, err := s.CreateMany(ctx, "user-1", []models.Invoice{
		sampleInvoice("RE-2026-0001"),
		sampleInvoice("RE-2026-0002"),
	})
	require.NoError(t, err)

	deleted, err := s.DeleteAll(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	invoices, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestProfileRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	profile := models.SellerProfile{
		UserID:           "user-1",
		Name:             "Muster GmbH",
		Street:           "Musterweg 1",
		City:             "Berlin",
		ZipCode:          "10115",
		Country:          "DE",
		TaxNumber:        "12/345/67890",
		VATID:            "DE123456789",
		Kleinunternehmer: true,
	}
	require.NoError(t, s.SaveProfile(ctx, profile))

	loaded, err := s.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, &profile, loaded)

	_, err = s.GetProfile(ctx, "user-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDBSequence(t *testing.T) {
	db, err := Open("", filepath.Join(t.TempDir(), "seq.db"))
	require.NoError(t, err)
	seq := NewDBSequence(db)

	n, err := seq.Next(2026)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = seq.Next(2026)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = seq.Next(2027)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A second handle on the same database continues the sequence.
	seq2 := NewDBSequence(db)
	n, err = seq2.Next(2026)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDBSequence_ConcurrentCallersGetUniqueNumbers(t *testing.T) {
	db, err := Open("", filepath.Join(t.TempDir(), "seq.db"))
	require.NoError(t, err)
	seq := NewDBSequence(db)

	// Seed the year row so every concurrent call takes the locked path.
	_, err = seq.Next(2026)
	require.NoError(t, err)

	const callers = 8
	var mu sync.Mutex
	var numbers []int
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(2026)
			if err != nil {
				return
			}
			mu.Lock()
			numbers = append(numbers, n)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.NotEmpty(t, numbers)
	seen := make(map[int]struct{})
	for _, n := range numbers {
		_, dup := seen[n]
		assert.False(t, dup, "number %d handed out twice", n)
		seen[n] = struct{}{}
	}
}

func TestDateAdapter(t *testing.T) {
	assert.Equal(t, "2026-01-15", isoFromDisplay("15.01.2026"))
	assert.Equal(t, "15.01.2026", displayFromISO("2026-01-15"))
	// Unparseable values pass through unchanged.
	assert.Equal(t, "kaputt", isoFromDisplay("kaputt"))
	assert.Equal(t, "kaputt", displayFromISO("kaputt"))
}
