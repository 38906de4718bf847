package domain

type SlotStatus string

const (
	SlotStatusEmpty    SlotStatus = "empty"
	SlotStatusReserved SlotStatus = "reserved"
)

type SlotKey struct {
	ProviderID int64
	Date       string
	Time       string
}

type Slot struct {
	ProviderID    int64
	Date          string
	Time          string
	Status        SlotStatus
	UserID        int64
	Name          string
	Phone         string
	Service       ServiceKind
	PaymentStatus PaymentStatus
	TrackingCode  string
}

func (s Slot) Key() SlotKey {
	return SlotKey{ProviderID: s.ProviderID, Date: s.Date, Time: s.Time}
}

// Candidate is one bookable offer shown to a user. PairTime is set for VIP pairs.
type Candidate struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	PairTime string `json:"pair_time,omitempty"`
}

type Provider struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	ExternalID int64  `json:"external_id"`
	CardNumber string `json:"card_number"`
}
