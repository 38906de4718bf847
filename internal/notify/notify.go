package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"go.uber.org/zap"
)

type Directory interface {
	GetByID(ctx context.Context, id int64) (*domain.Provider, error)
}

type Messenger interface {
	Send(ctx context.Context, msg domain.Outbound) error
}

// Sender tells providers about bookings made or dropped on their chairs.
type Sender struct {
	directory Directory
	messenger Messenger
	log       *zap.Logger
}

func NewSender(directory Directory, messenger Messenger, log *zap.Logger) *Sender {
	return &Sender{directory: directory, messenger: messenger, log: logger.OrNop(log)}
}

// Send delivers a notice for event to the provider's chat. Lookup and
// delivery failures are logged and swallowed so one bad event does not
// stall the consumer.
func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	text, ok := render(event)
	if !ok {
		return nil
	}

	p, err := s.directory.GetByID(ctx, event.ProviderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("notify: unknown provider", zap.Int64("provider_id", event.ProviderID))
			return nil
		}
		return s.swallow(ctx, "notify: provider lookup", event, err)
	}
	if p.ExternalID == 0 {
		return nil
	}

	if err := s.messenger.Send(ctx, domain.Outbound{ChatID: p.ExternalID, Text: text}); err != nil {
		return s.swallow(ctx, "notify: send", event, err)
	}
	s.log.Info("provider notified", zap.String("type", event.Type), zap.Int64("booking_id", event.BookingID))
	return nil
}

func (s *Sender) swallow(ctx context.Context, msg string, event kafka.BookingEvent, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.log.Warn(msg, zap.Int64("booking_id", event.BookingID), zap.Error(err))
	return nil
}

func render(e kafka.BookingEvent) (string, bool) {
	when := e.Time
	if e.PairTime != "" {
		when = e.Time + " و " + e.PairTime
	}
	service := "اصلاح"
	if e.Service == string(domain.ServiceVIP) {
		service = "خدمات VIP"
	}

	switch e.Type {
	case kafka.EventBookingReserved:
		return fmt.Sprintf("📌 نوبت جدید:\n%s ساعت %s\n👤 %s (%s)\n✂️ %s", e.Date, when, e.Name, e.Phone, service), true
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("❌ نوبت لغو شد:\n%s ساعت %s\n👤 %s (%s)", e.Date, when, e.Name, e.Phone), true
	case kafka.EventBookingPaid:
		return fmt.Sprintf("💳 پرداخت انجام شد:\n%s ساعت %s\n👤 %s", e.Date, when, e.Name), true
	default:
		return "", false
	}
}
