package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/barberbooking/internal/clock"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/service/calendar"
	"github.com/Domenick1991/barberbooking/internal/service/roster"
	"github.com/Domenick1991/barberbooking/internal/transport/bale"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSlotCalendar struct {
	mock.Mock
}

func (m *MockSlotCalendar) Regenerate(ctx context.Context, now time.Time) (calendar.RegenerateResult, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(calendar.RegenerateResult), args.Error(1)
}

func (m *MockSlotCalendar) ListByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.Slot, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

type MockRoster struct {
	mock.Mock
}

func (m *MockRoster) Reload(ctx context.Context) (roster.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(roster.Result), args.Error(1)
}

type MockAcceptor struct {
	mock.Mock
}

func (m *MockAcceptor) Accept(ctx context.Context, upd tgbotapi.Update, sink bale.Sink) {
	m.Called(ctx, upd, sink)
}

type nopSink struct{}

func (nopSink) Submit(context.Context, domain.Update) error { return nil }

var fixedNow = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

func newTestRouter(cal *MockSlotCalendar, rst *MockRoster, acc *MockAcceptor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(Handlers{
		Calendar:   NewCalendarHandler(cal, rst, clock.Fixed{T: fixedNow}),
		Webhook:    NewWebhookHandler(acc, nopSink{}, "s3cret"),
		AdminToken: "admin-token",
	}, nil)
}

func serve(r *gin.Engine, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set(adminTokenHeader, token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Healthz(t *testing.T) {
	r := newTestRouter(&MockSlotCalendar{}, &MockRoster{}, &MockAcceptor{})
	w := serve(r, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	cal := &MockSlotCalendar{}
	r := newTestRouter(cal, &MockRoster{}, &MockAcceptor{})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/admin/slots", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/admin/slots", "wrong", nil).Code)
	cal.AssertNotCalled(t, "ListByStatus", mock.Anything, mock.Anything)
}

func TestRouter_Slots(t *testing.T) {
	cal := &MockSlotCalendar{}
	cal.On("ListByStatus", mock.Anything, domain.SlotStatusReserved).Return([]domain.Slot{{ProviderID: 1, Time: "08:00"}}, nil)
	r := newTestRouter(cal, &MockRoster{}, &MockAcceptor{})

	w := serve(r, "GET", "/admin/slots?status=reserved", "admin-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "08:00")

	w = serve(r, "GET", "/admin/slots?status=bogus", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Regenerate(t *testing.T) {
	cal := &MockSlotCalendar{}
	cal.On("Regenerate", mock.Anything, fixedNow).Return(calendar.RegenerateResult{Inserted: 33}, nil)
	r := newTestRouter(cal, &MockRoster{}, &MockAcceptor{})

	w := serve(r, "POST", "/admin/calendar/regenerate", "admin-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":0,"inserted":33,"completed":0}`, w.Body.String())
}

func TestRouter_RosterReload(t *testing.T) {
	rst := &MockRoster{}
	rst.On("Reload", mock.Anything).Return(roster.Result{Created: 2}, nil)
	r := newTestRouter(&MockSlotCalendar{}, rst, &MockAcceptor{})

	w := serve(r, "POST", "/admin/roster/reload", "admin-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created":2`)
}

func TestRouter_Webhook(t *testing.T) {
	acc := &MockAcceptor{}
	acc.On("Accept", mock.Anything, mock.MatchedBy(func(u tgbotapi.Update) bool {
		return u.UpdateID == 5 && u.Message != nil && u.Message.Text == "/start"
	}), mock.Anything).Return()
	r := newTestRouter(&MockSlotCalendar{}, &MockRoster{}, acc)

	body := []byte(`{"update_id":5,"message":{"message_id":1,"date":0,"text":"/start","from":{"id":7},"chat":{"id":7,"type":"private"}}}`)

	assert.Equal(t, http.StatusNotFound, serve(r, "POST", "/bot/webhook/guess", "", body).Code)
	assert.Equal(t, http.StatusOK, serve(r, "POST", "/bot/webhook/s3cret", "", body).Code)
	acc.AssertNumberOfCalls(t, "Accept", 1)
}
