package domain

import "time"

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
	// BookingStatusCompleted marks an active booking whose date has left the window.
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type ServiceKind string

const (
	ServiceHaircut ServiceKind = "haircut"
	ServiceVIP     ServiceKind = "vip"
)

func (k ServiceKind) Valid() bool {
	return k == ServiceHaircut || k == ServiceVIP
}

// SlotCount is the number of consecutive slots the service occupies.
func (k ServiceKind) SlotCount() int {
	if k == ServiceVIP {
		return 2
	}
	return 1
}

type Booking struct {
	ID            int64
	UserID        int64
	ProviderID    int64
	Date          string
	Time          string
	PairTime      string // second slot of a VIP booking, empty otherwise
	Service       ServiceKind
	Name          string
	Phone         string
	Status        BookingStatus
	PaymentStatus PaymentStatus
	TrackingCode  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Keys returns the slots held by the booking.
func (b *Booking) Keys() []SlotKey {
	keys := []SlotKey{{ProviderID: b.ProviderID, Date: b.Date, Time: b.Time}}
	if b.PairTime != "" {
		keys = append(keys, SlotKey{ProviderID: b.ProviderID, Date: b.Date, Time: b.PairTime})
	}
	return keys
}
