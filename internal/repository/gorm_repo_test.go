package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedProvider(t *testing.T, db *gorm.DB, externalID int64) domain.Provider {
	t.Helper()
	p := domain.Provider{Name: "Reza", Phone: "09120000000", ExternalID: externalID, CardNumber: "6037000000000000"}
	_, err := NewGormProviderRepository(db).Upsert(context.Background(), &p)
	require.NoError(t, err)
	return p
}

func seedSlots(t *testing.T, db *gorm.DB, providerID int64, date string, times ...string) {
	t.Helper()
	keys := make([]domain.SlotKey, 0, len(times))
	for _, tm := range times {
		keys = append(keys, domain.SlotKey{ProviderID: providerID, Date: date, Time: tm})
	}
	_, err := NewGormSlotRepository(db).InsertMissing(context.Background(), keys)
	require.NoError(t, err)
}

func TestGormProviderRepository_Upsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProviderRepository(db)
	ctx := context.Background()

	p := domain.Provider{Name: "Ali", ExternalID: 100, CardNumber: "1"}
	created, err := repo.Upsert(ctx, &p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, p.ID)

	again := domain.Provider{Name: "Ali Reza", ExternalID: 100, CardNumber: "2"}
	created, err = repo.Upsert(ctx, &again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ali Reza", list[0].Name)
	assert.Equal(t, "2", list[0].CardNumber)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGormSlotRepository_InsertMissingAndPrune(t *testing.T) {
	db := newTestDB(t)
	p := seedProvider(t, db, 1)
	repo := NewGormSlotRepository(db)
	ctx := context.Background()

	keys := []domain.SlotKey{
		{ProviderID: p.ID, Date: "1403-01-01", Time: "08:00"},
		{ProviderID: p.ID, Date: "1403-01-01", Time: "09:00"},
		{ProviderID: p.ID, Date: "1403-01-02", Time: "08:00"},
	}
	n, err := repo.InsertMissing(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.InsertMissing(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	deleted, err := repo.DeleteOutside(ctx, []string{"1403-01-02"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	slots, err := repo.ListByProvider(ctx, p.ID, []string{"1403-01-01", "1403-01-02"})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, domain.SlotStatusEmpty, slots[0].Status)
	assert.Equal(t, "1403-01-02", slots[0].Date)
}

func TestGormBookingRepository_ReserveAndCancel(t *testing.T) {
	db := newTestDB(t)
	p := seedProvider(t, db, 1)
	seedSlots(t, db, p.ID, "1403-01-01", "08:00", "09:00")
	bookings := NewGormBookingRepository(db)
	slots := NewGormSlotRepository(db)
	ctx := context.Background()

	b := &domain.Booking{UserID: 7, ProviderID: p.ID, Date: "1403-01-01", Time: "08:00", Service: domain.ServiceHaircut, Name: "Sara", Phone: "09123456789"}
	require.NoError(t, bookings.Reserve(ctx, b))
	assert.NotZero(t, b.ID)
	assert.Equal(t, domain.BookingStatusActive, b.Status)

	reserved, err := slots.ListByStatus(ctx, domain.SlotStatusReserved)
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, int64(7), reserved[0].UserID)
	assert.Equal(t, "Sara", reserved[0].Name)

	second := &domain.Booking{UserID: 7, ProviderID: p.ID, Date: "1403-01-01", Time: "09:00", Service: domain.ServiceHaircut}
	assert.ErrorIs(t, bookings.Reserve(ctx, second), domain.ErrActiveBookingExists)

	other := &domain.Booking{UserID: 8, ProviderID: p.ID, Date: "1403-01-01", Time: "08:00", Service: domain.ServiceHaircut}
	assert.ErrorIs(t, bookings.Reserve(ctx, other), domain.ErrReservationConflict)

	cancelled, err := bookings.CancelActive(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)

	_, err = bookings.CancelActive(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	empty, err := slots.ListByStatus(ctx, domain.SlotStatusEmpty)
	require.NoError(t, err)
	assert.Len(t, empty, 2)
	for _, s := range empty {
		assert.Zero(t, s.UserID)
		assert.Empty(t, s.Name)
	}

	history, err := bookings.ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGormBookingRepository_ReservePairIsAtomic(t *testing.T) {
	db := newTestDB(t)
	p := seedProvider(t, db, 1)
	seedSlots(t, db, p.ID, "1403-01-01", "10:00", "11:00")
	bookings := NewGormBookingRepository(db)
	slots := NewGormSlotRepository(db)
	ctx := context.Background()

	single := &domain.Booking{UserID: 1, ProviderID: p.ID, Date: "1403-01-01", Time: "11:00", Service: domain.ServiceHaircut}
	require.NoError(t, bookings.Reserve(ctx, single))

	pair := &domain.Booking{UserID: 2, ProviderID: p.ID, Date: "1403-01-01", Time: "10:00", PairTime: "11:00", Service: domain.ServiceVIP}
	assert.ErrorIs(t, bookings.Reserve(ctx, pair), domain.ErrReservationConflict)

	empty, err := slots.ListByStatus(ctx, domain.SlotStatusEmpty)
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Equal(t, "10:00", empty[0].Time)

	_, err = bookings.GetActive(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGormBookingRepository_ConcurrentReserve(t *testing.T) {
	db := newTestDB(t)
	p := seedProvider(t, db, 1)
	seedSlots(t, db, p.ID, "1403-01-01", "12:00")
	bookings := NewGormBookingRepository(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = bookings.Reserve(ctx, &domain.Booking{
				UserID: int64(100 + i), ProviderID: p.ID, Date: "1403-01-01", Time: "12:00", Service: domain.ServiceHaircut,
			})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrReservationConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestGormBookingRepository_PaymentAndTracking(t *testing.T) {
	db := newTestDB(t)
	p := seedProvider(t, db, 1)
	seedSlots(t, db, p.ID, "1403-01-01", "16:00", "17:00")
	bookings := NewGormBookingRepository(db)
	slots := NewGormSlotRepository(db)
	ctx := context.Background()

	_, err := bookings.SetPaymentStatus(ctx, 5, domain.PaymentStatusPaid)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b := &domain.Booking{UserID: 5, ProviderID: p.ID, Date: "1403-01-01", Time: "16:00", PairTime: "17:00", Service: domain.ServiceVIP}
	require.NoError(t, bookings.Reserve(ctx, b))

	require.NoError(t, bookings.SetTrackingCode(ctx, b.ID, "code-1"))
	found, err := bookings.GetByTrackingCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	paid, err := bookings.SetPaymentStatus(ctx, 5, domain.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, domain.BookingStatusActive, paid.Status)

	reserved, err := slots.ListByStatus(ctx, domain.SlotStatusReserved)
	require.NoError(t, err)
	require.Len(t, reserved, 2)
	for _, s := range reserved {
		assert.Equal(t, domain.PaymentStatusPaid, s.PaymentStatus)
		assert.Equal(t, "code-1", s.TrackingCode)
	}

	_, err = bookings.GetByTrackingCode(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGormBookingRepository_SettleByTrackingCode_TargetsOwningBooking(t *testing.T) {
	db := newTestDB(t)
	p := seedProvider(t, db, 1)
	seedSlots(t, db, p.ID, "1403-01-01", "08:00", "10:00")
	bookings := NewGormBookingRepository(db)
	slots := NewGormSlotRepository(db)
	ctx := context.Background()

	old := &domain.Booking{UserID: 5, ProviderID: p.ID, Date: "1403-01-01", Time: "08:00", Service: domain.ServiceHaircut}
	require.NoError(t, bookings.Reserve(ctx, old))
	require.NoError(t, bookings.SetTrackingCode(ctx, old.ID, "code-old"))
	_, err := bookings.CancelActive(ctx, 5)
	require.NoError(t, err)

	current := &domain.Booking{UserID: 5, ProviderID: p.ID, Date: "1403-01-01", Time: "10:00", Service: domain.ServiceHaircut}
	require.NoError(t, bookings.Reserve(ctx, current))

	settled, err := bookings.SettleByTrackingCode(ctx, "code-old")
	require.NoError(t, err)
	assert.Equal(t, old.ID, settled.ID)
	assert.Equal(t, domain.PaymentStatusPaid, settled.PaymentStatus)
	assert.Equal(t, domain.BookingStatusCancelled, settled.Status)

	active, err := bookings.GetActive(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, current.ID, active.ID)
	assert.Equal(t, domain.PaymentStatusUnpaid, active.PaymentStatus)

	reserved, err := slots.ListByStatus(ctx, domain.SlotStatusReserved)
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, "10:00", reserved[0].Time)
	assert.Equal(t, domain.PaymentStatusUnpaid, reserved[0].PaymentStatus)

	_, err = bookings.SettleByTrackingCode(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGormBookingRepository_SettleByTrackingCode_MarksHeldSlots(t *testing.T) {
	db := newTestDB(t)
	p := seedProvider(t, db, 1)
	seedSlots(t, db, p.ID, "1403-01-01", "16:00", "17:00")
	bookings := NewGormBookingRepository(db)
	slots := NewGormSlotRepository(db)
	ctx := context.Background()

	b := &domain.Booking{UserID: 6, ProviderID: p.ID, Date: "1403-01-01", Time: "16:00", PairTime: "17:00", Service: domain.ServiceVIP}
	require.NoError(t, bookings.Reserve(ctx, b))
	require.NoError(t, bookings.SetTrackingCode(ctx, b.ID, "code-vip"))

	_, err := bookings.SettleByTrackingCode(ctx, "code-vip")
	require.NoError(t, err)

	reserved, err := slots.ListByStatus(ctx, domain.SlotStatusReserved)
	require.NoError(t, err)
	require.Len(t, reserved, 2)
	for _, s := range reserved {
		assert.Equal(t, domain.PaymentStatusPaid, s.PaymentStatus)
	}
}

func TestGormBookingRepository_CompleteBefore(t *testing.T) {
	db := newTestDB(t)
	p := seedProvider(t, db, 1)
	seedSlots(t, db, p.ID, "1403-01-01", "08:00")
	seedSlots(t, db, p.ID, "1403-01-03", "08:00")
	bookings := NewGormBookingRepository(db)
	ctx := context.Background()

	require.NoError(t, bookings.Reserve(ctx, &domain.Booking{UserID: 1, ProviderID: p.ID, Date: "1403-01-01", Time: "08:00", Service: domain.ServiceHaircut}))
	require.NoError(t, bookings.Reserve(ctx, &domain.Booking{UserID: 2, ProviderID: p.ID, Date: "1403-01-03", Time: "08:00", Service: domain.ServiceHaircut}))

	n, err := bookings.CompleteBefore(ctx, "1403-01-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = bookings.GetActive(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = bookings.GetActive(ctx, 2)
	assert.NoError(t, err)
}
