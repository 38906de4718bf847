package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownCallback = errors.New("unknown callback data")

// Event is one inbound user action. The set of implementations is closed.
type Event interface {
	isEvent()
}

type (
	StartRequested          struct{}
	ServiceSelected         struct{ Service ServiceKind }
	ProviderSelected        struct{ ProviderID int64 }
	FirstAvailableRequested struct{}
	FirstAvailableConfirmed struct{}
	ShowTableRequested      struct{}
	TextEntered             struct{ Text string }
	ShowBookingRequested    struct{}
	CancelRequested         struct{}
	NewBookingRequested     struct{}
	PaymentMethodChosen     struct{ Method PaymentMethod }
	PaymentCompleted        struct{ TrackingCode string }
	AdminMenuRequested      struct{}
	AdminListEmpty          struct{}
	AdminListBooked         struct{}
	RosterReloadRequested   struct{}
)

func (StartRequested) isEvent()          {}
func (ServiceSelected) isEvent()         {}
func (ProviderSelected) isEvent()        {}
func (FirstAvailableRequested) isEvent() {}
func (FirstAvailableConfirmed) isEvent() {}
func (ShowTableRequested) isEvent()      {}
func (TextEntered) isEvent()             {}
func (ShowBookingRequested) isEvent()    {}
func (CancelRequested) isEvent()         {}
func (NewBookingRequested) isEvent()     {}
func (PaymentMethodChosen) isEvent()     {}
func (PaymentCompleted) isEvent()        {}
func (AdminMenuRequested) isEvent()      {}
func (AdminListEmpty) isEvent()          {}
func (AdminListBooked) isEvent()         {}
func (RosterReloadRequested) isEvent()   {}

type PaymentMethod string

const (
	PaymentOnline   PaymentMethod = "online"
	PaymentInPerson PaymentMethod = "in_person"
)

// Update is an event together with who sent it.
type Update struct {
	UserID int64
	ChatID int64
	Event  Event
}

const providerCallbackPrefix = "select_barber_"

var simpleCallbacks = map[string]Event{
	"start":               StartRequested{},
	"service_haircut":     ServiceSelected{Service: ServiceHaircut},
	"service_vip":         ServiceSelected{Service: ServiceVIP},
	"first_available":     FirstAvailableRequested{},
	"confirm_first":       FirstAvailableConfirmed{},
	"show_table":          ShowTableRequested{},
	"show_my_appointment": ShowBookingRequested{},
	"cancel_appointment":  CancelRequested{},
	"new_appointment":     NewBookingRequested{},
	"pay_online":          PaymentMethodChosen{Method: PaymentOnline},
	"pay_in_person":       PaymentMethodChosen{Method: PaymentInPerson},
	"show_empty":          AdminListEmpty{},
	"show_booked":         AdminListBooked{},
	"update_barbers":      RosterReloadRequested{},
}

// ParseCallback maps inline button data to its event.
func ParseCallback(data string) (Event, error) {
	if ev, ok := simpleCallbacks[data]; ok {
		return ev, nil
	}
	if rest, ok := strings.CutPrefix(data, providerCallbackPrefix); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
		}
		return ProviderSelected{ProviderID: id}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
}

// CallbackData is the inverse of ParseCallback. Events that never travel
// as button data return "".
func CallbackData(ev Event) string {
	switch e := ev.(type) {
	case StartRequested:
		return "start"
	case ServiceSelected:
		return "service_" + string(e.Service)
	case ProviderSelected:
		return providerCallbackPrefix + strconv.FormatInt(e.ProviderID, 10)
	case FirstAvailableRequested:
		return "first_available"
	case FirstAvailableConfirmed:
		return "confirm_first"
	case ShowTableRequested:
		return "show_table"
	case ShowBookingRequested:
		return "show_my_appointment"
	case CancelRequested:
		return "cancel_appointment"
	case NewBookingRequested:
		return "new_appointment"
	case PaymentMethodChosen:
		if e.Method == PaymentOnline {
			return "pay_online"
		}
		return "pay_in_person"
	case AdminListEmpty:
		return "show_empty"
	case AdminListBooked:
		return "show_booked"
	case RosterReloadRequested:
		return "update_barbers"
	case TextEntered, PaymentCompleted, AdminMenuRequested:
		return ""
	default:
		return ""
	}
}

// ParseText turns a plain message into a command event or free text.
func ParseText(text string) Event {
	switch strings.TrimSpace(text) {
	case "/start":
		return StartRequested{}
	case "/admin":
		return AdminMenuRequested{}
	case "/update_barbers":
		return RosterReloadRequested{}
	default:
		return TextEntered{Text: text}
	}
}

type Button struct {
	Text  string
	Event Event
}

type Invoice struct {
	Title         string
	Description   string
	Payload       string
	ProviderToken string
	Currency      string
	PriceLabel    string
	Amount        int
}

// Outbound is one message to deliver. Invoice, when set, replaces the text message.
type Outbound struct {
	ChatID   int64
	Text     string
	Keyboard [][]Button
	Invoice  *Invoice
}
