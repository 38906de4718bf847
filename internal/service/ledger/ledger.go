package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingLedger interface {
	Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error)
	Cancel(ctx context.Context, userID int64) (bool, error)
	SetPaymentStatus(ctx context.Context, userID int64, status domain.PaymentStatus) error
	Active(ctx context.Context, userID int64) (*domain.Booking, error)
	History(ctx context.Context, userID int64) ([]domain.Booking, error)
	IssueTrackingCode(ctx context.Context, userID int64) (*domain.Booking, error)
	SettlePayment(ctx context.Context, trackingCode string) (*domain.Booking, error)
}

type SlotLocker interface {
	AcquireSlotLock(ctx context.Context, key domain.SlotKey, ttl time.Duration) (token string, ok bool, err error)
	ReleaseSlotLock(ctx context.Context, key domain.SlotKey, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// PairResolver finds the second slot of a VIP booking.
type PairResolver interface {
	Next(t string) (string, bool)
}

type ReserveInput struct {
	UserID     int64
	ProviderID int64
	Date       string
	Time       string
	Service    domain.ServiceKind
	Name       string
	Phone      string
}

type Ledger struct {
	bookings repository.BookingRepository
	hours    PairResolver
	locker   SlotLocker
	producer Producer
	topic    string
	lockTTL  time.Duration
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Ledger)

func WithLocker(locker SlotLocker, ttl time.Duration) Option {
	return func(l *Ledger) {
		l.locker = locker
		l.lockTTL = ttl
	}
}

func WithProducer(producer Producer, topic string) Option {
	return func(l *Ledger) {
		l.producer = producer
		l.topic = topic
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		l.log = logger.OrNop(log)
	}
}

func New(bookings repository.BookingRepository, hours PairResolver, opts ...Option) *Ledger {
	l := &Ledger{
		bookings: bookings,
		hours:    hours,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error) {
	if !input.Service.Valid() {
		return nil, &domain.ValidationError{Field: "service", Reason: fmt.Sprintf("unknown service %q", input.Service)}
	}

	booking := &domain.Booking{
		UserID:     input.UserID,
		ProviderID: input.ProviderID,
		Date:       input.Date,
		Time:       input.Time,
		Service:    input.Service,
		Name:       input.Name,
		Phone:      input.Phone,
	}
	if input.Service == domain.ServiceVIP {
		pair, ok := l.hours.Next(input.Time)
		if !ok {
			return nil, domain.ErrReservationConflict
		}
		booking.PairTime = pair
	}

	keys := booking.Keys()
	if l.locker != nil {
		acquired := make(map[domain.SlotKey]string, len(keys))
		defer func() {
			for k, token := range acquired {
				if err := l.locker.ReleaseSlotLock(ctx, k, token); err != nil {
					l.log.Warn("release slot lock", zap.Error(err))
				}
			}
		}()
		for _, k := range keys {
			token, ok, err := l.locker.AcquireSlotLock(ctx, k, l.lockTTL)
			if err != nil {
				return nil, fmt.Errorf("acquire slot lock: %w", err)
			}
			if !ok {
				return nil, domain.ErrReservationConflict
			}
			acquired[k] = token
		}
	}

	if err := l.bookings.Reserve(ctx, booking); err != nil {
		return nil, err
	}

	l.log.Info("slot reserved",
		zap.Int64("user_id", booking.UserID),
		zap.Int64("provider_id", booking.ProviderID),
		zap.String("date", booking.Date),
		zap.String("time", booking.Time),
		zap.String("service", string(booking.Service)),
	)
	l.publish(ctx, kafka.EventBookingReserved, booking)
	return booking, nil
}

func (l *Ledger) Cancel(ctx context.Context, userID int64) (bool, error) {
	cancelled, err := l.bookings.CancelActive(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	l.log.Info("booking cancelled", zap.Int64("user_id", userID), zap.Int64("booking_id", cancelled.ID))
	l.publish(ctx, kafka.EventBookingCancelled, cancelled)
	return true, nil
}

func (l *Ledger) SetPaymentStatus(ctx context.Context, userID int64, status domain.PaymentStatus) error {
	updated, err := l.bookings.SetPaymentStatus(ctx, userID, status)
	if err != nil {
		return err
	}
	if status == domain.PaymentStatusPaid {
		l.publish(ctx, kafka.EventBookingPaid, updated)
	}
	return nil
}

func (l *Ledger) Active(ctx context.Context, userID int64) (*domain.Booking, error) {
	return l.bookings.GetActive(ctx, userID)
}

func (l *Ledger) History(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return l.bookings.ListByUser(ctx, userID)
}

// IssueTrackingCode attaches a fresh invoice payload to the user's active booking.
func (l *Ledger) IssueTrackingCode(ctx context.Context, userID int64) (*domain.Booking, error) {
	booking, err := l.bookings.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	code := uuid.NewString()
	if err := l.bookings.SetTrackingCode(ctx, booking.ID, code); err != nil {
		return nil, err
	}
	booking.TrackingCode = code
	return booking, nil
}

// SettlePayment marks the booking that owns trackingCode as paid.
func (l *Ledger) SettlePayment(ctx context.Context, trackingCode string) (*domain.Booking, error) {
	if trackingCode == "" {
		return nil, domain.ErrNotFound
	}
	booking, err := l.bookings.SettleByTrackingCode(ctx, trackingCode)
	if err != nil {
		return nil, err
	}
	l.log.Info("payment settled", zap.Int64("booking_id", booking.ID), zap.Int64("user_id", booking.UserID))
	l.publish(ctx, kafka.EventBookingPaid, booking)
	return booking, nil
}

func (l *Ledger) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if l.producer == nil || l.topic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		UserID:        b.UserID,
		ProviderID:    b.ProviderID,
		Date:          b.Date,
		Time:          b.Time,
		PairTime:      b.PairTime,
		Service:       string(b.Service),
		Name:          b.Name,
		Phone:         b.Phone,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		OccurredAt:    l.now(),
	}
	key := fmt.Sprintf("%d", b.UserID)
	if err := l.producer.Publish(ctx, l.topic, key, event); err != nil {
		l.log.Warn("failed to publish booking event",
			zap.String("type", eventType),
			zap.Int64("booking_id", b.ID),
			zap.Error(err),
		)
	}
}

var _ BookingLedger = (*Ledger)(nil)
