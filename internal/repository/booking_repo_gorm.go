package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"gorm.io/gorm"
)

type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) BookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Reserve(ctx context.Context, b *domain.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&bookingModel{}).
			Where("user_id = ? AND status = ?", b.UserID, string(domain.BookingStatusActive)).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrActiveBookingExists
		}

		for _, k := range b.Keys() {
			res := tx.Model(&slotModel{}).
				Where("provider_id = ? AND slot_date = ? AND slot_time = ? AND status = ?", k.ProviderID, k.Date, k.Time, string(domain.SlotStatusEmpty)).
				Updates(map[string]any{
					"status":         string(domain.SlotStatusReserved),
					"user_id":        b.UserID,
					"name":           b.Name,
					"phone":          b.Phone,
					"service":        string(b.Service),
					"payment_status": string(domain.PaymentStatusUnpaid),
					"tracking_code":  "",
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return domain.ErrReservationConflict
			}
		}

		b.Status = domain.BookingStatusActive
		b.PaymentStatus = domain.PaymentStatusUnpaid
		m := bookingModel{
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
		}
		if err := tx.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrActiveBookingExists
			}
			return err
		}
		b.ID = m.ID
		b.CreatedAt = m.CreatedAt
		b.UpdatedAt = m.UpdatedAt
		return nil
	})
}

func (r *GormBookingRepository) CancelActive(ctx context.Context, userID int64) (*domain.Booking, error) {
	var cancelled *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := activeBooking(tx, userID)
		if err != nil {
			return err
		}
		b := toBooking(*m)
		for _, k := range b.Keys() {
			if err := freeSlot(tx, k, userID); err != nil {
				return err
			}
		}
		if err := tx.Model(m).Update("status", string(domain.BookingStatusCancelled)).Error; err != nil {
			return err
		}
		m.Status = string(domain.BookingStatusCancelled)
		cancelled = toBooking(*m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (r *GormBookingRepository) GetActive(ctx context.Context, userID int64) (*domain.Booking, error) {
	m, err := activeBooking(r.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return toBooking(*m), nil
}

func (r *GormBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	var rows []bookingModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	bookings := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		bookings = append(bookings, *toBooking(m))
	}
	return bookings, nil
}

func (r *GormBookingRepository) SetPaymentStatus(ctx context.Context, userID int64, status domain.PaymentStatus) (*domain.Booking, error) {
	var updated *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := activeBooking(tx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			m = &bookingModel{}
			err = tx.Where("user_id = ?", userID).Order("id desc").First(m).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
		}
		if err != nil {
			return err
		}
		if err := tx.Model(m).Update("payment_status", string(status)).Error; err != nil {
			return err
		}
		m.PaymentStatus = string(status)
		b := toBooking(*m)
		for _, k := range b.Keys() {
			if err := tx.Model(&slotModel{}).
				Where("provider_id = ? AND slot_date = ? AND slot_time = ? AND user_id = ?", k.ProviderID, k.Date, k.Time, userID).
				Update("payment_status", string(status)).Error; err != nil {
				return err
			}
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *GormBookingRepository) SetTrackingCode(ctx context.Context, bookingID int64, code string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m bookingModel
		if err := tx.First(&m, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&m).Update("tracking_code", code).Error; err != nil {
			return err
		}
		for _, k := range toBooking(m).Keys() {
			if err := tx.Model(&slotModel{}).
				Where("provider_id = ? AND slot_date = ? AND slot_time = ? AND user_id = ?", k.ProviderID, k.Date, k.Time, m.UserID).
				Update("tracking_code", code).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormBookingRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Booking, error) {
	var m bookingModel
	if err := r.db.WithContext(ctx).Where("tracking_code = ?", code).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toBooking(m), nil
}

func (r *GormBookingRepository) SettleByTrackingCode(ctx context.Context, code string) (*domain.Booking, error) {
	var settled *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m bookingModel
		if err := tx.Where("tracking_code = ?", code).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&m).Update("payment_status", string(domain.PaymentStatusPaid)).Error; err != nil {
			return err
		}
		m.PaymentStatus = string(domain.PaymentStatusPaid)
		b := toBooking(m)
		for _, k := range b.Keys() {
			if err := tx.Model(&slotModel{}).
				Where("provider_id = ? AND slot_date = ? AND slot_time = ? AND user_id = ? AND tracking_code = ?", k.ProviderID, k.Date, k.Time, m.UserID, code).
				Update("payment_status", string(domain.PaymentStatusPaid)).Error; err != nil {
				return err
			}
		}
		settled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

func (r *GormBookingRepository) CompleteBefore(ctx context.Context, date string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("status = ? AND booking_date < ?", string(domain.BookingStatusActive), date).
		Update("status", string(domain.BookingStatusCompleted))
	return res.RowsAffected, res.Error
}

func activeBooking(tx *gorm.DB, userID int64) (*bookingModel, error) {
	var m bookingModel
	err := tx.Where("user_id = ? AND status = ?", userID, string(domain.BookingStatusActive)).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

var _ BookingRepository = (*GormBookingRepository)(nil)
