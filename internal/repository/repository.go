package repository

import (
	"context"

	"github.com/Domenick1991/barberbooking/internal/domain"
)

type ProviderRepository interface {
	List(ctx context.Context) ([]domain.Provider, error)
	GetByID(ctx context.Context, id int64) (*domain.Provider, error)
	// Upsert inserts or updates the provider keyed by ExternalID.
	Upsert(ctx context.Context, p *domain.Provider) (created bool, err error)
}

type SlotRepository interface {
	// DeleteOutside removes every slot whose date is not in dates.
	DeleteOutside(ctx context.Context, dates []string) (int64, error)
	// InsertMissing inserts the given slots as empty, skipping keys that exist.
	InsertMissing(ctx context.Context, keys []domain.SlotKey) (int64, error)
	ListByProvider(ctx context.Context, providerID int64, dates []string) ([]domain.Slot, error)
	ListByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.Slot, error)
}

type BookingRepository interface {
	// Reserve flips every slot of b from empty to reserved and stores b as
	// active, all in one transaction.
	Reserve(ctx context.Context, b *domain.Booking) error
	// CancelActive frees the slots of the user's active booking and marks it cancelled.
	CancelActive(ctx context.Context, userID int64) (*domain.Booking, error)
	GetActive(ctx context.Context, userID int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	SetPaymentStatus(ctx context.Context, userID int64, status domain.PaymentStatus) (*domain.Booking, error)
	SetTrackingCode(ctx context.Context, bookingID int64, code string) error
	GetByTrackingCode(ctx context.Context, code string) (*domain.Booking, error)
	// SettleByTrackingCode marks the booking owning code as paid, together with
	// the slots still held under that code.
	SettleByTrackingCode(ctx context.Context, code string) (*domain.Booking, error)
	// CompleteBefore closes active bookings dated before date.
	CompleteBefore(ctx context.Context, date string) (int64, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}
