package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/Domenick1991/barberbooking/internal/clock"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/service/calendar"
	"github.com/Domenick1991/barberbooking/internal/service/ledger"
	"github.com/Domenick1991/barberbooking/internal/service/roster"
	"github.com/Domenick1991/barberbooking/internal/session"
	"go.uber.org/zap"
)

var phonePattern = regexp.MustCompile(`^09\d{9}$`)

// maxMessageLen is the bot API text limit, counted in UTF-16 code units.
const maxMessageLen = 4096

const (
	reasonNotANumber = "not a number"
	reasonOutOfRange = "out of range"
)

// Slots is the read side of the slot calendar.
type Slots interface {
	Window(now time.Time) []calendar.Day
	ListFor(ctx context.Context, providerID int64, service domain.ServiceKind, now time.Time) ([]domain.Candidate, error)
	FirstAvailable(ctx context.Context, providerID int64, service domain.ServiceKind, now time.Time) (domain.Candidate, error)
	ListByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.Slot, error)
}

type Directory interface {
	List(ctx context.Context) ([]domain.Provider, error)
	GetByID(ctx context.Context, id int64) (*domain.Provider, error)
}

type RosterReloader interface {
	Reload(ctx context.Context) (roster.Result, error)
}

type InvoiceSettings struct {
	Title      string
	PriceLabel string
	Currency   string
	Amount     int
}

type Option func(*Machine)

// WithAdmin enables the admin menu for userID.
func WithAdmin(userID int64, reloader RosterReloader) Option {
	return func(m *Machine) {
		m.adminID = userID
		m.roster = reloader
	}
}

func WithInvoice(settings InvoiceSettings) Option {
	return func(m *Machine) {
		m.invoice = settings
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Machine) {
		m.log = logger.OrNop(log)
	}
}

// Machine drives one dialog per user. Updates of the same user are
// serialized, different users proceed in parallel.
type Machine struct {
	store     session.Store
	locks     *session.KeyedMutex
	slots     Slots
	ledger    ledger.BookingLedger
	directory Directory
	clock     clock.Clock
	roster    RosterReloader
	adminID   int64
	invoice   InvoiceSettings
	log       *zap.Logger
}

func New(store session.Store, slots Slots, bookings ledger.BookingLedger, directory Directory, clk clock.Clock, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		locks:     session.NewKeyedMutex(),
		slots:     slots,
		ledger:    bookings,
		directory: directory,
		clock:     clk,
		invoice: InvoiceSettings{
			Title:      "پرداخت نوبت آرایشگاه",
			PriceLabel: "هزینه نوبت",
			Currency:   "IRR",
			Amount:     1800000,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// replies collects the outbound messages of one update.
type replies struct {
	chatID int64
	out    []domain.Outbound
}

// say appends a text message. Every message carries the home button.
func (r *replies) say(text string, keyboard ...[]domain.Button) {
	rows := make([][]domain.Button, 0, len(keyboard)+1)
	rows = append(rows, keyboard...)
	rows = append(rows, homeRow())
	r.out = append(r.out, domain.Outbound{ChatID: r.chatID, Text: text, Keyboard: rows})
}

func (r *replies) invoice(inv domain.Invoice) {
	r.out = append(r.out, domain.Outbound{ChatID: r.chatID, Invoice: &inv})
}

// Handle applies one update to the sender's session and returns what to send back.
func (m *Machine) Handle(ctx context.Context, upd domain.Update) []domain.Outbound {
	unlock := m.locks.Lock(upd.UserID)
	defer unlock()

	r := &replies{chatID: upd.ChatID}

	sess, err := m.store.Get(ctx, upd.UserID)
	if err != nil {
		m.log.Error("load session", zap.Int64("user_id", upd.UserID), zap.Error(err))
		r.say(promptTryAgain)
		return r.out
	}
	if sess == nil {
		sess = domain.NewSession(upd.UserID, upd.ChatID)
	}
	sess.ChatID = upd.ChatID

	m.apply(ctx, sess, upd.Event, r)

	sess.UpdatedAt = m.clock.Now()
	if err := m.store.Save(ctx, sess); err != nil {
		m.log.Error("save session", zap.Int64("user_id", upd.UserID), zap.Error(err))
	}
	return r.out
}

func (m *Machine) apply(ctx context.Context, s *domain.Session, ev domain.Event, r *replies) {
	switch e := ev.(type) {
	case domain.StartRequested:
		m.start(ctx, s, r)
	case domain.ServiceSelected:
		m.selectService(ctx, s, e.Service, r)
	case domain.ProviderSelected:
		m.selectProvider(ctx, s, e.ProviderID, r)
	case domain.FirstAvailableRequested:
		m.offerFirst(ctx, s, r)
	case domain.FirstAvailableConfirmed:
		m.confirmFirst(s, r)
	case domain.ShowTableRequested:
		if s.Service == "" || s.ProviderID == 0 {
			r.say(promptChooseProviderFirst, serviceMenu()...)
			return
		}
		m.listSlots(ctx, s, r)
	case domain.TextEntered:
		m.text(ctx, s, e.Text, r)
	case domain.ShowBookingRequested:
		m.showBooking(ctx, s, r)
	case domain.CancelRequested:
		m.cancel(ctx, s, r)
	case domain.NewBookingRequested:
		m.newBooking(ctx, s, r)
	case domain.PaymentMethodChosen:
		m.choosePayment(ctx, s, e.Method, r)
	case domain.PaymentCompleted:
		m.paymentCompleted(ctx, e.TrackingCode, r)
	case domain.AdminMenuRequested, domain.AdminListEmpty, domain.AdminListBooked, domain.RosterReloadRequested:
		if m.adminID == 0 || s.UserID != m.adminID {
			m.log.Warn("admin event from non-admin user", zap.Int64("user_id", s.UserID))
			return
		}
		m.admin(ctx, e, r)
	default:
		m.log.Warn("unhandled event", zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (m *Machine) start(ctx context.Context, s *domain.Session, r *replies) {
	s.Reset()

	b, err := m.ledger.Active(ctx, s.UserID)
	switch {
	case err == nil:
		s.State = domain.StateHasActiveBooking
		r.say(fmt.Sprintf(promptHasBooking, b.Date, bookingTime(b)), bookingMenu(true)...)
		return
	case !errors.Is(err, domain.ErrNotFound):
		m.log.Error("lookup active booking", zap.Int64("user_id", s.UserID), zap.Error(err))
	}
	r.say(promptChooseService, serviceMenu()...)
}

func (m *Machine) selectService(ctx context.Context, s *domain.Session, service domain.ServiceKind, r *replies) {
	if !service.Valid() {
		r.say(promptChooseService, serviceMenu()...)
		return
	}

	b, err := m.ledger.Active(ctx, s.UserID)
	switch {
	case err == nil:
		s.Reset()
		s.State = domain.StateHasActiveBooking
		r.say(promptActiveExists+"\n"+fmt.Sprintf(promptHasBooking, b.Date, bookingTime(b)), bookingMenu(false)...)
		return
	case !errors.Is(err, domain.ErrNotFound):
		m.log.Error("lookup active booking", zap.Int64("user_id", s.UserID), zap.Error(err))
		r.say(promptTryAgain)
		return
	}

	providers, err := m.directory.List(ctx)
	if err != nil {
		m.log.Error("list providers", zap.Error(err))
		r.say(promptTryAgain)
		return
	}
	if len(providers) == 0 {
		s.Reset()
		r.say(promptNoProviders)
		return
	}

	s.ClearScratch()
	s.Service = service
	s.State = domain.StateServiceChosen

	rows := make([][]domain.Button, 0, len(providers))
	for _, p := range providers {
		rows = append(rows, row(domain.Button{Text: providerLabel(p), Event: domain.ProviderSelected{ProviderID: p.ID}}))
	}
	r.say(promptChooseProvider, rows...)
}

func (m *Machine) selectProvider(ctx context.Context, s *domain.Session, providerID int64, r *replies) {
	if s.Service == "" {
		s.Reset()
		r.say(promptSessionExpired, serviceMenu()...)
		return
	}

	p, err := m.directory.GetByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.say(promptProviderNotFound)
			return
		}
		m.log.Error("get provider", zap.Int64("provider_id", providerID), zap.Error(err))
		r.say(promptTryAgain)
		return
	}

	service := s.Service
	s.ClearScratch()
	s.Service = service
	s.ProviderID = p.ID
	s.State = domain.StateProviderChosen
	r.say(promptChooseListing, listingMenu()...)
}

func (m *Machine) offerFirst(ctx context.Context, s *domain.Session, r *replies) {
	if s.Service == "" || s.ProviderID == 0 {
		r.say(promptChooseProviderFirst, serviceMenu()...)
		return
	}

	now := m.clock.Now()
	c, err := m.slots.FirstAvailable(ctx, s.ProviderID, s.Service, now)
	if err != nil {
		if errors.Is(err, domain.ErrNoAvailability) {
			s.State = domain.StateProviderChosen
			r.say(m.noSlotsPrompt(s.Service), listingMenu()...)
			return
		}
		m.log.Error("first available", zap.Int64("provider_id", s.ProviderID), zap.Error(err))
		r.say(promptTryAgain)
		return
	}

	s.Candidates = nil
	s.Choose(c)
	s.State = domain.StateSlotOffered
	r.say(fmt.Sprintf(promptFirstOffer, m.dayLabel(c.Date, now), candidateTime(c)),
		row(domain.Button{Text: btnConfirm, Event: domain.FirstAvailableConfirmed{}}))
}

func (m *Machine) confirmFirst(s *domain.Session, r *replies) {
	if s.State != domain.StateSlotOffered || !s.HasSelection() {
		s.Reset()
		r.say(promptSessionExpired, serviceMenu()...)
		return
	}
	s.State = domain.StateSlotChosen
	r.say(promptEnterName)
}

// listSlots sends the numbered table and moves to SlotListed, or back to
// ProviderChosen when nothing is free.
func (m *Machine) listSlots(ctx context.Context, s *domain.Session, r *replies) {
	now := m.clock.Now()
	list, err := m.slots.ListFor(ctx, s.ProviderID, s.Service, now)
	if err != nil {
		m.log.Error("list slots", zap.Int64("provider_id", s.ProviderID), zap.Error(err))
		r.say(promptTryAgain)
		return
	}

	s.Date, s.Time, s.PairTime = "", "", ""
	if len(list) == 0 {
		s.Candidates = nil
		s.State = domain.StateProviderChosen
		r.say(m.noSlotsPrompt(s.Service), listingMenu()...)
		return
	}

	s.Candidates = list
	s.State = domain.StateSlotListed
	r.say(m.renderTable(list, s.Service, now))
	r.say(promptEnterSlotIndex)
}

func (m *Machine) text(ctx context.Context, s *domain.Session, text string, r *replies) {
	switch s.State {
	case domain.StateSlotListed:
		idx, err := parseSlotIndex(text, len(s.Candidates))
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) && verr.Reason == reasonNotANumber {
				r.say(promptNotANumber)
			} else {
				r.say(promptIndexOutOfRange)
			}
			return
		}
		s.Choose(s.Candidates[idx-1])
		s.Candidates = nil
		s.State = domain.StateSlotChosen
		r.say(promptEnterName)
	case domain.StateSlotChosen:
		name := strings.TrimSpace(text)
		if name == "" {
			r.say(promptEnterName)
			return
		}
		s.Name = name
		s.State = domain.StateNameEntered
		r.say(promptEnterPhone)
	case domain.StateNameEntered:
		phone := normalizeDigits(strings.TrimSpace(text))
		if !phonePattern.MatchString(phone) {
			r.say(promptInvalidPhone)
			return
		}
		s.Phone = phone
		s.State = domain.StatePhoneEntered
		m.reserve(ctx, s, r)
	case domain.StateAwaitingRetry:
		s.State = domain.StatePhoneEntered
		m.reserve(ctx, s, r)
	default:
		m.log.Debug("text ignored", zap.Int64("user_id", s.UserID), zap.String("state", string(s.State)))
	}
}

func (m *Machine) reserve(ctx context.Context, s *domain.Session, r *replies) {
	if !s.HasSelection() || s.Name == "" || s.Phone == "" {
		s.Reset()
		r.say(promptSessionExpired, serviceMenu()...)
		return
	}

	b, err := m.ledger.Reserve(ctx, ledger.ReserveInput{
		UserID:     s.UserID,
		ProviderID: s.ProviderID,
		Date:       s.Date,
		Time:       s.Time,
		Service:    s.Service,
		Name:       s.Name,
		Phone:      s.Phone,
	})
	switch {
	case err == nil:
		s.ClearScratch()
		r.say(fmt.Sprintf(promptBooked, b.Date, bookingTime(b)), paymentMenu()...)
	case errors.Is(err, domain.ErrReservationConflict):
		r.say(promptSlotTaken)
		m.listSlots(ctx, s, r)
	case errors.Is(err, domain.ErrActiveBookingExists):
		s.Reset()
		s.State = domain.StateHasActiveBooking
		r.say(promptActiveExists, bookingMenu(false)...)
	default:
		m.log.Error("reserve", zap.Int64("user_id", s.UserID), zap.Int64("provider_id", s.ProviderID),
			zap.String("date", s.Date), zap.String("time", s.Time), zap.Error(err))
		s.State = domain.StateAwaitingRetry
		r.say(promptTryAgain + "\n" + promptRetryHint)
	}
}

func (m *Machine) showBooking(ctx context.Context, s *domain.Session, r *replies) {
	b, err := m.ledger.Active(ctx, s.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			m.log.Error("lookup active booking", zap.Int64("user_id", s.UserID), zap.Error(err))
			r.say(promptTryAgain)
			return
		}
		r.say(promptNoBookings, serviceMenu()...)
		return
	}

	providerName := labelUnknownProvider
	if p, err := m.directory.GetByID(ctx, b.ProviderID); err == nil {
		providerName = p.Name
	}
	r.say(promptBookingListHeader+"\n"+fmt.Sprintf(promptBookingEntry,
		b.Date, bookingTime(b), serviceLabel(b.Service), providerName, paymentLabel(b.PaymentStatus)),
		bookingMenu(false)...)
}

func (m *Machine) cancel(ctx context.Context, s *domain.Session, r *replies) {
	ok, err := m.ledger.Cancel(ctx, s.UserID)
	if err != nil {
		m.log.Error("cancel booking", zap.Int64("user_id", s.UserID), zap.Error(err))
		r.say(promptTryAgain)
		return
	}
	s.Reset()
	if !ok {
		r.say(promptNothingToCancel, serviceMenu()...)
		return
	}
	r.say(promptCancelled, serviceMenu()...)
}

func (m *Machine) newBooking(ctx context.Context, s *domain.Session, r *replies) {
	if _, err := m.ledger.Active(ctx, s.UserID); err == nil {
		s.Reset()
		s.State = domain.StateHasActiveBooking
		r.say(promptActiveExists, bookingMenu(false)...)
		return
	}
	s.Reset()
	r.say(promptChooseService, serviceMenu()...)
}

func (m *Machine) choosePayment(ctx context.Context, s *domain.Session, method domain.PaymentMethod, r *replies) {
	s.Reset()
	if method != domain.PaymentOnline {
		r.say(promptBackToMain, bookingMenu(false)...)
		return
	}

	b, err := m.ledger.IssueTrackingCode(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.say(promptNoBookings, serviceMenu()...)
			return
		}
		m.log.Error("issue tracking code", zap.Int64("user_id", s.UserID), zap.Error(err))
		r.say(promptTryAgain)
		return
	}

	p, err := m.directory.GetByID(ctx, b.ProviderID)
	if err != nil || p.CardNumber == "" {
		m.log.Error("provider payment token", zap.Int64("provider_id", b.ProviderID), zap.Error(err))
		r.say(promptProviderInfoMissing)
		return
	}

	r.invoice(domain.Invoice{
		Title:         m.invoice.Title,
		Description:   fmt.Sprintf(invoiceDescription, serviceLabel(b.Service), b.Date, bookingTime(b)),
		Payload:       b.TrackingCode,
		ProviderToken: p.CardNumber,
		Currency:      m.invoice.Currency,
		PriceLabel:    m.invoice.PriceLabel,
		Amount:        m.invoice.Amount,
	})
	r.say(promptPayViaInvoice)
}

func (m *Machine) paymentCompleted(ctx context.Context, code string, r *replies) {
	if _, err := m.ledger.SettlePayment(ctx, code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.log.Warn("payment for unknown tracking code", zap.String("tracking_code", code))
			r.say(promptPaymentUnknown)
			return
		}
		m.log.Error("settle payment", zap.String("tracking_code", code), zap.Error(err))
		r.say(promptTryAgain)
		return
	}
	r.say(fmt.Sprintf(promptPaymentReceived, code), bookingMenu(false)...)
}

func (m *Machine) admin(ctx context.Context, ev domain.Event, r *replies) {
	switch ev.(type) {
	case domain.AdminMenuRequested:
		r.say(promptAdminMenu, adminMenu()...)
	case domain.AdminListEmpty:
		m.adminTable(ctx, domain.SlotStatusEmpty, r)
	case domain.AdminListBooked:
		m.adminTable(ctx, domain.SlotStatusReserved, r)
	case domain.RosterReloadRequested:
		if m.roster == nil {
			r.say(promptRosterFailed)
			return
		}
		res, err := m.roster.Reload(ctx)
		if err != nil {
			m.log.Error("reload roster", zap.Error(err))
			r.say(promptRosterFailed)
			return
		}
		r.say(promptRosterUpdated + "\n" + fmt.Sprintf(promptRosterSummary, res.Created, res.Updated))
	}
}

func (m *Machine) adminTable(ctx context.Context, status domain.SlotStatus, r *replies) {
	slots, err := m.slots.ListByStatus(ctx, status)
	if err != nil {
		m.log.Error("list slots by status", zap.String("status", string(status)), zap.Error(err))
		r.say(promptTryAgain)
		return
	}

	empty := status == domain.SlotStatusEmpty
	if len(slots) == 0 {
		if empty {
			r.say(promptAdminNoEmpty, adminMenu()...)
		} else {
			r.say(promptAdminNoBooked, adminMenu()...)
		}
		return
	}

	names := make(map[int64]string)
	if providers, err := m.directory.List(ctx); err == nil {
		for _, p := range providers {
			names[p.ID] = p.Name
		}
	}
	name := func(id int64) string {
		if n, ok := names[id]; ok {
			return n
		}
		return labelUnknownProvider
	}

	header := promptAdminBooked
	if empty {
		header = promptAdminEmpty
	}
	lines := make([]string, 0, len(slots))
	for _, sl := range slots {
		if empty {
			lines = append(lines, fmt.Sprintf(adminEmptyLine, sl.Date, sl.Time, name(sl.ProviderID)))
			continue
		}
		lines = append(lines, fmt.Sprintf(adminBookedLine, sl.Date, sl.Time, sl.Name, sl.Phone,
			serviceLabel(sl.Service), paymentLabel(sl.PaymentStatus), name(sl.ProviderID)))
	}
	for _, chunk := range chunkLines(header, lines, maxMessageLen) {
		r.say(chunk)
	}
}

func (m *Machine) renderTable(list []domain.Candidate, service domain.ServiceKind, now time.Time) string {
	var b strings.Builder
	if service == domain.ServiceVIP {
		b.WriteString(promptPairTableHeader)
	} else {
		b.WriteString(promptTableHeader)
	}

	lastDate := ""
	for i, c := range list {
		if c.Date != lastDate {
			fmt.Fprintf(&b, "\n\n%s:", m.dayLabel(c.Date, now))
			lastDate = c.Date
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, candidateTime(c))
	}
	return b.String()
}

func (m *Machine) noSlotsPrompt(service domain.ServiceKind) string {
	if service == domain.ServiceVIP {
		return promptNoPairs
	}
	return promptNoSlots
}

// dayLabel renders a window date as "today (date)" etc.
func (m *Machine) dayLabel(date string, now time.Time) string {
	for _, d := range m.slots.Window(now) {
		if d.Date == date && d.Offset < len(dayLabels) {
			return fmt.Sprintf("%s (%s)", dayLabels[d.Offset], date)
		}
	}
	return date
}

func candidateTime(c domain.Candidate) string {
	if c.PairTime != "" {
		return c.Time + " و " + c.PairTime
	}
	return c.Time
}

func bookingTime(b *domain.Booking) string {
	if b.PairTime != "" {
		return b.Time + " و " + b.PairTime
	}
	return b.Time
}

// parseSlotIndex reads a 1-based row number out of text.
func parseSlotIndex(text string, n int) (int, error) {
	idx, err := strconv.Atoi(normalizeDigits(strings.TrimSpace(text)))
	if err != nil {
		return 0, &domain.ValidationError{Field: "slot_index", Reason: reasonNotANumber}
	}
	if idx < 1 || idx > n {
		return 0, &domain.ValidationError{Field: "slot_index", Reason: reasonOutOfRange}
	}
	return idx, nil
}

// normalizeDigits maps Persian and Arabic-Indic digits to ASCII.
func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

// chunkLines packs lines under header into as few texts as fit within limit.
func chunkLines(header string, lines []string, limit int) []string {
	var (
		chunks []string
		b      strings.Builder
		size   int
		filled bool
	)
	reset := func() {
		b.Reset()
		b.WriteString(header)
		size = utf16Len(header)
		filled = false
	}
	reset()
	for _, line := range lines {
		n := utf16Len(line) + 1
		if filled && size+n > limit {
			chunks = append(chunks, b.String())
			reset()
		}
		b.WriteByte('\n')
		b.WriteString(line)
		size += n
		filled = true
	}
	return append(chunks, b.String())
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := len(utf16.Encode([]rune{r})); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
