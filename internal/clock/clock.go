package clock

import (
	"fmt"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

type Clock interface {
	Now() time.Time
}

// Zoned reports the current time in a fixed civil zone.
type Zoned struct {
	loc *time.Location
}

func NewZoned(name string) (*Zoned, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %s: %w", name, err)
	}
	return &Zoned{loc: loc}, nil
}

func (z *Zoned) Now() time.Time {
	return time.Now().In(z.loc)
}

func (z *Zoned) Location() *time.Location {
	return z.loc
}

// Fixed always returns the same instant. Used by tests and replays.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

// CalendarConverter renders a civil date as the display date stored on slots.
type CalendarConverter interface {
	DisplayDate(t time.Time) string
}

// Jalali renders dates in the Solar Hijri calendar as YYYY-MM-DD.
type Jalali struct{}

func (Jalali) DisplayDate(t time.Time) string {
	pt := ptime.New(t)
	return fmt.Sprintf("%04d-%02d-%02d", pt.Year(), int(pt.Month()), pt.Day())
}

// ISO renders Gregorian YYYY-MM-DD.
type ISO struct{}

func (ISO) DisplayDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func NewConverter(kind string) (CalendarConverter, error) {
	switch kind {
	case "jalali", "":
		return Jalali{}, nil
	case "gregorian":
		return ISO{}, nil
	default:
		return nil, fmt.Errorf("unknown display calendar %q", kind)
	}
}
