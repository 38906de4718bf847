package calendar

import (
	"context"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
)

// FilterPastTimes returns the working hours still bookable on date. Only
// today's date is filtered; hours at or after now's HH:MM are kept.
func (c *Calendar) FilterPastTimes(date string, now time.Time) []string {
	if date != c.converter.DisplayDate(now) {
		return c.hours.Times()
	}
	cutoff := now.Format("15:04")
	var out []string
	for _, t := range c.hours.times {
		if t >= cutoff {
			out = append(out, t)
		}
	}
	return out
}

// ListAvailable returns the empty slots of the provider in date then time
// order. The 1-based position in the result is the number shown to users.
func (c *Calendar) ListAvailable(ctx context.Context, providerID int64, now time.Time) ([]domain.Candidate, error) {
	dates, empty, err := c.emptySlots(ctx, providerID, now)
	if err != nil {
		return nil, err
	}
	var out []domain.Candidate
	for _, d := range dates {
		for _, t := range c.FilterPastTimes(d, now) {
			if empty[d+" "+t] {
				out = append(out, domain.Candidate{Date: d, Time: t})
			}
		}
	}
	return out, nil
}

// ListConsecutiveAvailable returns pairs of adjacent empty slots.
func (c *Calendar) ListConsecutiveAvailable(ctx context.Context, providerID int64, now time.Time) ([]domain.Candidate, error) {
	dates, empty, err := c.emptySlots(ctx, providerID, now)
	if err != nil {
		return nil, err
	}
	var out []domain.Candidate
	for _, d := range dates {
		times := c.FilterPastTimes(d, now)
		for i := 0; i+1 < len(times); i++ {
			a, b := times[i], times[i+1]
			if !c.hours.Adjacent(a, b) {
				continue
			}
			if empty[d+" "+a] && empty[d+" "+b] {
				out = append(out, domain.Candidate{Date: d, Time: a, PairTime: b})
			}
		}
	}
	return out, nil
}

// ListFor picks the listing that matches the service.
func (c *Calendar) ListFor(ctx context.Context, providerID int64, service domain.ServiceKind, now time.Time) ([]domain.Candidate, error) {
	if service == domain.ServiceVIP {
		return c.ListConsecutiveAvailable(ctx, providerID, now)
	}
	return c.ListAvailable(ctx, providerID, now)
}

// FirstAvailable returns the earliest candidate for the service, or
// domain.ErrNoAvailability when the grid is full.
func (c *Calendar) FirstAvailable(ctx context.Context, providerID int64, service domain.ServiceKind, now time.Time) (domain.Candidate, error) {
	list, err := c.ListFor(ctx, providerID, service, now)
	if err != nil {
		return domain.Candidate{}, err
	}
	if len(list) == 0 {
		return domain.Candidate{}, domain.ErrNoAvailability
	}
	return list[0], nil
}

func (c *Calendar) emptySlots(ctx context.Context, providerID int64, now time.Time) ([]string, map[string]bool, error) {
	dates := c.windowDates(now)
	slots, err := c.slots.ListByProvider(ctx, providerID, dates)
	if err != nil {
		return nil, nil, err
	}
	empty := make(map[string]bool, len(slots))
	for _, s := range slots {
		if s.Status == domain.SlotStatusEmpty {
			empty[s.Date+" "+s.Time] = true
		}
	}
	return dates, empty, nil
}
