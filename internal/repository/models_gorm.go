package repository

import (
	"fmt"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type providerModel struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Phone      string
	Address    string
	ExternalID int64 `gorm:"uniqueIndex;not null"`
	CardNumber string
}

func (providerModel) TableName() string { return "providers" }

type slotModel struct {
	ID            int64  `gorm:"primaryKey"`
	ProviderID    int64  `gorm:"uniqueIndex:idx_slot_key;not null"`
	Date          string `gorm:"column:slot_date;uniqueIndex:idx_slot_key;not null"`
	Time          string `gorm:"column:slot_time;uniqueIndex:idx_slot_key;not null"`
	Status        string `gorm:"not null;default:empty;index"`
	UserID        int64  `gorm:"not null;default:0"`
	Name          string
	Phone         string
	Service       string
	PaymentStatus string `gorm:"not null;default:unpaid"`
	TrackingCode  string
}

func (slotModel) TableName() string { return "slots" }

type bookingModel struct {
	ID            int64  `gorm:"primaryKey"`
	UserID        int64  `gorm:"not null;index"`
	ProviderID    int64  `gorm:"not null"`
	Date          string `gorm:"column:booking_date;not null"`
	Time          string `gorm:"column:booking_time;not null"`
	PairTime      string
	Service       string `gorm:"not null"`
	Name          string
	Phone         string
	Status        string `gorm:"not null"`
	PaymentStatus string `gorm:"not null"`
	TrackingCode  string `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (bookingModel) TableName() string { return "bookings" }

// OpenSQLite opens the embedded store and migrates it. A single connection
// keeps sqlite writers serialized.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := MigrateGorm(db); err != nil {
		return nil, err
	}
	return db, nil
}

func MigrateGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&providerModel{}, &slotModel{}, &bookingModel{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_one_active ON bookings(user_id) WHERE status = 'active'`).Error
}

func toProvider(m providerModel) domain.Provider {
	return domain.Provider{
		ID:         m.ID,
		Name:       m.Name,
		Phone:      m.Phone,
		Address:    m.Address,
		ExternalID: m.ExternalID,
		CardNumber: m.CardNumber,
	}
}

func toSlot(m slotModel) domain.Slot {
	return domain.Slot{
		ProviderID:    m.ProviderID,
		Date:          m.Date,
		Time:          m.Time,
		Status:        domain.SlotStatus(m.Status),
		UserID:        m.UserID,
		Name:          m.Name,
		Phone:         m.Phone,
		Service:       domain.ServiceKind(m.Service),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		TrackingCode:  m.TrackingCode,
	}
}

func toBooking(m bookingModel) *domain.Booking {
	return &domain.Booking{
		ID:            m.ID,
		UserID:        m.UserID,
		ProviderID:    m.ProviderID,
		Date:          m.Date,
		Time:          m.Time,
		PairTime:      m.PairTime,
		Service:       domain.ServiceKind(m.Service),
		Name:          m.Name,
		Phone:         m.Phone,
		Status:        domain.BookingStatus(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		TrackingCode:  m.TrackingCode,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
