package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/barberbooking/internal/clock"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/repository"
	"go.uber.org/zap"
)

// Day is one date of the rolling window. Offset 0 is today.
type Day struct {
	Offset int
	Date   string
}

type RegenerateResult struct {
	Deleted   int64
	Inserted  int64
	Completed int64
}

// Calendar owns the providers x window dates x working hours slot grid.
type Calendar struct {
	providers repository.ProviderRepository
	slots     repository.SlotRepository
	bookings  repository.BookingRepository
	converter clock.CalendarConverter
	hours     WorkingHours
	days      int
	log       *zap.Logger
}

func New(
	providers repository.ProviderRepository,
	slots repository.SlotRepository,
	bookings repository.BookingRepository,
	converter clock.CalendarConverter,
	hours WorkingHours,
	days int,
	log *zap.Logger,
) *Calendar {
	if days <= 0 {
		days = 3
	}
	return &Calendar{
		providers: providers,
		slots:     slots,
		bookings:  bookings,
		converter: converter,
		hours:     hours,
		days:      days,
		log:       logger.OrNop(log),
	}
}

func (c *Calendar) Hours() WorkingHours {
	return c.hours
}

func (c *Calendar) Window(now time.Time) []Day {
	window := make([]Day, 0, c.days)
	for i := 0; i < c.days; i++ {
		window = append(window, Day{Offset: i, Date: c.converter.DisplayDate(now.AddDate(0, 0, i))})
	}
	return window
}

func (c *Calendar) windowDates(now time.Time) []string {
	window := c.Window(now)
	dates := make([]string, 0, len(window))
	for _, d := range window {
		dates = append(dates, d.Date)
	}
	return dates
}

// Regenerate prunes slots outside the window and fills every missing
// (provider, date, hour) with an empty slot. Reserved slots inside the
// window are left alone, so repeated runs are no-ops.
func (c *Calendar) Regenerate(ctx context.Context, now time.Time) (RegenerateResult, error) {
	var res RegenerateResult
	dates := c.windowDates(now)

	completed, err := c.bookings.CompleteBefore(ctx, dates[0])
	if err != nil {
		return res, fmt.Errorf("complete past bookings: %w", err)
	}
	res.Completed = completed

	deleted, err := c.slots.DeleteOutside(ctx, dates)
	if err != nil {
		return res, fmt.Errorf("prune slots: %w", err)
	}
	res.Deleted = deleted

	providers, err := c.providers.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list providers: %w", err)
	}

	keys := make([]domain.SlotKey, 0, len(providers)*len(dates)*len(c.hours.times))
	for _, p := range providers {
		for _, d := range dates {
			for _, t := range c.hours.times {
				keys = append(keys, domain.SlotKey{ProviderID: p.ID, Date: d, Time: t})
			}
		}
	}

	inserted, err := c.slots.InsertMissing(ctx, keys)
	if err != nil {
		return res, fmt.Errorf("insert slots: %w", err)
	}
	res.Inserted = inserted

	c.log.Info("calendar regenerated",
		zap.Strings("window", dates),
		zap.Int("providers", len(providers)),
		zap.Int64("deleted", res.Deleted),
		zap.Int64("inserted", res.Inserted),
		zap.Int64("completed", res.Completed),
	)
	return res, nil
}

func (c *Calendar) ListByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.Slot, error) {
	return c.slots.ListByStatus(ctx, status)
}
