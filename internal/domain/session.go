package domain

import "time"

type State string

const (
	StateIdle             State = "idle"
	StateHasActiveBooking State = "has_active_booking"
	StateServiceChosen    State = "service_chosen"
	StateProviderChosen   State = "provider_chosen"
	StateSlotOffered      State = "slot_offered"
	StateSlotListed       State = "slot_listed"
	StateSlotChosen       State = "slot_chosen"
	StateNameEntered      State = "name_entered"
	StatePhoneEntered     State = "phone_entered"
	StateAwaitingRetry    State = "awaiting_retry"
)

// Session is the per-user dialog state plus the scratch values collected so far.
type Session struct {
	UserID     int64       `json:"user_id"`
	ChatID     int64       `json:"chat_id"`
	State      State       `json:"state"`
	Service    ServiceKind `json:"service,omitempty"`
	ProviderID int64       `json:"provider_id,omitempty"`
	Date       string      `json:"date,omitempty"`
	Time       string      `json:"time,omitempty"`
	PairTime   string      `json:"pair_time,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Name       string      `json:"name,omitempty"`
	Phone      string      `json:"phone,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func NewSession(userID, chatID int64) *Session {
	return &Session{UserID: userID, ChatID: chatID, State: StateIdle}
}

// ClearScratch drops everything collected during a booking flow.
func (s *Session) ClearScratch() {
	s.Service = ""
	s.ProviderID = 0
	s.Date = ""
	s.Time = ""
	s.PairTime = ""
	s.Candidates = nil
	s.Name = ""
	s.Phone = ""
}

func (s *Session) Reset() {
	s.ClearScratch()
	s.State = StateIdle
}

// Choose stores c as the selected slot.
func (s *Session) Choose(c Candidate) {
	s.Date = c.Date
	s.Time = c.Time
	s.PairTime = c.PairTime
}

func (s *Session) HasSelection() bool {
	return s.Service != "" && s.ProviderID != 0 && s.Date != "" && s.Time != ""
}
