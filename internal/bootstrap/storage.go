package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/clock"
	"github.com/Domenick1991/barberbooking/internal/repository"
	"github.com/Domenick1991/barberbooking/internal/service/calendar"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Storage struct {
	Providers repository.ProviderRepository
	Slots     repository.SlotRepository
	Bookings  repository.BookingRepository
	close     func()
}

func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects to the configured database and brings its schema up to date.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Storage{
			Providers: repository.NewGormProviderRepository(db),
			Slots:     repository.NewGormSlotRepository(db),
			Bookings:  repository.NewGormBookingRepository(db),
			close: func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			},
		}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := repository.MigratePG(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Storage{
			Providers: repository.NewProviderRepository(pool),
			Slots:     repository.NewSlotRepository(pool),
			Bookings:  repository.NewBookingRepository(pool),
			close:     pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", config.ErrConfiguration, cfg.Driver)
	}
}

// NewCalendar builds the slot calendar and the clock it is read against.
func NewCalendar(cfg config.CalendarConfig, st *Storage, log *zap.Logger) (*calendar.Calendar, clock.Clock, error) {
	clk, err := clock.NewZoned(cfg.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: timezone: %v", config.ErrConfiguration, err)
	}
	converter, err := clock.NewConverter(cfg.DisplayCalendar)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	hours, err := calendar.NewWorkingHours(cfg.WorkingHours, cfg.SlotLength())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: working hours: %v", config.ErrConfiguration, err)
	}
	return calendar.New(st.Providers, st.Slots, st.Bookings, converter, hours, cfg.WindowDays, log), clk, nil
}
