package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/Domenick1991/barberbooking/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock структуры

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Reserve(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) CancelActive(ctx context.Context, userID int64) (*domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetActive(ctx context.Context, userID int64) (*domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) SetPaymentStatus(ctx context.Context, userID int64, status domain.PaymentStatus) (*domain.Booking, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) SetTrackingCode(ctx context.Context, bookingID int64, code string) error {
	args := m.Called(ctx, bookingID, code)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Booking, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) SettleByTrackingCode(ctx context.Context, code string) (*domain.Booking, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CompleteBefore(ctx context.Context, date string) (int64, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(int64), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireSlotLock(ctx context.Context, key domain.SlotKey, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLocker) ReleaseSlotLock(ctx context.Context, key domain.SlotKey, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type hours map[string]string

func (h hours) Next(t string) (string, bool) {
	n, ok := h[t]
	return n, ok
}

var testHours = hours{"08:00": "09:00", "12:00": "13:00", "16:00": "17:00"}

func TestLedger_Reserve_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	locker := &MockLocker{}
	producer := &MockProducer{}
	l := New(repo, testHours, WithLocker(locker, time.Minute), WithProducer(producer, "booking-events"))
	ctx := context.Background()

	key := domain.SlotKey{ProviderID: 2, Date: "1403-01-01", Time: "08:00"}
	locker.On("AcquireSlotLock", ctx, key, time.Minute).Return("tok-1", true, nil)
	locker.On("ReleaseSlotLock", ctx, key, "tok-1").Return(nil)
	repo.On("Reserve", ctx, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.UserID == 7 && b.PairTime == "" && b.Service == domain.ServiceHaircut
	})).Run(func(args mock.Arguments) {
		b := args.Get(1).(*domain.Booking)
		b.ID = 11
		b.Status = domain.BookingStatusActive
	}).Return(nil)
	producer.On("Publish", ctx, "booking-events", "7", mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingReserved && e.BookingID == 11
	})).Return(nil)

	b, err := l.Reserve(ctx, ReserveInput{UserID: 7, ProviderID: 2, Date: "1403-01-01", Time: "08:00", Service: domain.ServiceHaircut, Name: "Sara", Phone: "09123456789"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), b.ID)

	repo.AssertExpectations(t)
	locker.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestLedger_Reserve_VIPLocksBothSlots(t *testing.T) {
	repo := &MockBookingRepository{}
	locker := &MockLocker{}
	l := New(repo, testHours, WithLocker(locker, time.Minute))
	ctx := context.Background()

	first := domain.SlotKey{ProviderID: 2, Date: "d", Time: "16:00"}
	second := domain.SlotKey{ProviderID: 2, Date: "d", Time: "17:00"}
	locker.On("AcquireSlotLock", ctx, first, time.Minute).Return("tok-16", true, nil)
	locker.On("AcquireSlotLock", ctx, second, time.Minute).Return("tok-17", true, nil)
	locker.On("ReleaseSlotLock", ctx, first, "tok-16").Return(nil)
	locker.On("ReleaseSlotLock", ctx, second, "tok-17").Return(nil)
	repo.On("Reserve", ctx, mock.MatchedBy(func(b *domain.Booking) bool { return b.PairTime == "17:00" })).Return(nil)

	b, err := l.Reserve(ctx, ReserveInput{UserID: 1, ProviderID: 2, Date: "d", Time: "16:00", Service: domain.ServiceVIP})
	require.NoError(t, err)
	assert.Equal(t, "17:00", b.PairTime)
	locker.AssertExpectations(t)
}

func TestLedger_Reserve_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown service", func(t *testing.T) {
		l := New(&MockBookingRepository{}, testHours)
		_, err := l.Reserve(ctx, ReserveInput{Service: "massage"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("vip without adjacent hour", func(t *testing.T) {
		l := New(&MockBookingRepository{}, testHours)
		_, err := l.Reserve(ctx, ReserveInput{Time: "13:00", Service: domain.ServiceVIP})
		assert.ErrorIs(t, err, domain.ErrReservationConflict)
	})

	t.Run("lock held elsewhere", func(t *testing.T) {
		repo := &MockBookingRepository{}
		locker := &MockLocker{}
		l := New(repo, testHours, WithLocker(locker, time.Minute))
		locker.On("AcquireSlotLock", ctx, mock.Anything, time.Minute).Return("", false, nil)

		_, err := l.Reserve(ctx, ReserveInput{Time: "08:00", Service: domain.ServiceHaircut})
		assert.ErrorIs(t, err, domain.ErrReservationConflict)
		repo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
	})

	t.Run("storage conflict releases lock", func(t *testing.T) {
		repo := &MockBookingRepository{}
		locker := &MockLocker{}
		l := New(repo, testHours, WithLocker(locker, time.Minute))
		locker.On("AcquireSlotLock", ctx, mock.Anything, time.Minute).Return("tok", true, nil)
		locker.On("ReleaseSlotLock", ctx, mock.Anything, "tok").Return(nil)
		repo.On("Reserve", ctx, mock.Anything).Return(domain.ErrReservationConflict)

		_, err := l.Reserve(ctx, ReserveInput{Time: "08:00", Service: domain.ServiceHaircut})
		assert.ErrorIs(t, err, domain.ErrReservationConflict)
		locker.AssertCalled(t, "ReleaseSlotLock", ctx, mock.Anything, "tok")
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		repo := &MockBookingRepository{}
		producer := &MockProducer{}
		l := New(repo, testHours, WithProducer(producer, "topic"))
		repo.On("Reserve", ctx, mock.Anything).Return(nil)
		producer.On("Publish", ctx, "topic", mock.Anything, mock.Anything).Return(errors.New("kafka down"))

		_, err := l.Reserve(ctx, ReserveInput{Time: "08:00", Service: domain.ServiceHaircut})
		assert.NoError(t, err)
	})
}

func TestLedger_Cancel(t *testing.T) {
	ctx := context.Background()
	repo := &MockBookingRepository{}
	l := New(repo, testHours)

	repo.On("CancelActive", ctx, int64(1)).Return(&domain.Booking{ID: 4, UserID: 1, Status: domain.BookingStatusCancelled}, nil).Once()
	repo.On("CancelActive", ctx, int64(1)).Return(nil, domain.ErrNotFound).Once()
	repo.On("CancelActive", ctx, int64(2)).Return(nil, errors.New("db down"))

	ok, err := l.Cancel(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Cancel(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.Cancel(ctx, 2)
	assert.Error(t, err)
}

func TestLedger_IssueAndSettle(t *testing.T) {
	ctx := context.Background()
	repo := &MockBookingRepository{}
	producer := &MockProducer{}
	l := New(repo, testHours, WithProducer(producer, "topic"))

	active := &domain.Booking{ID: 9, UserID: 3, Status: domain.BookingStatusActive}
	repo.On("GetActive", ctx, int64(3)).Return(active, nil)
	repo.On("SetTrackingCode", ctx, int64(9), mock.AnythingOfType("string")).Return(nil)

	issued, err := l.IssueTrackingCode(ctx, 3)
	require.NoError(t, err)
	_, err = uuid.Parse(issued.TrackingCode)
	assert.NoError(t, err)

	repo.On("SettleByTrackingCode", ctx, issued.TrackingCode).Return(&domain.Booking{ID: 9, UserID: 3, PaymentStatus: domain.PaymentStatusPaid}, nil)
	producer.On("Publish", ctx, "topic", "3", mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingPaid && e.BookingID == 9
	})).Return(nil)

	settled, err := l.SettlePayment(ctx, issued.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, settled.PaymentStatus)
	producer.AssertExpectations(t)

	repo.On("SettleByTrackingCode", ctx, "unknown").Return(nil, domain.ErrNotFound)
	_, err = l.SettlePayment(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = l.SettlePayment(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "SettleByTrackingCode", ctx, "")
}

func TestLedger_SettleOldInvoiceAfterRebookOnSQLite(t *testing.T) {
	db, err := repository.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	ctx := context.Background()

	p := domain.Provider{Name: "p", ExternalID: 1}
	_, err = repository.NewGormProviderRepository(db).Upsert(ctx, &p)
	require.NoError(t, err)
	_, err = repository.NewGormSlotRepository(db).InsertMissing(ctx, []domain.SlotKey{
		{ProviderID: p.ID, Date: "d", Time: "08:00"},
		{ProviderID: p.ID, Date: "d", Time: "10:00"},
	})
	require.NoError(t, err)

	l := New(repository.NewGormBookingRepository(db), testHours)

	first, err := l.Reserve(ctx, ReserveInput{UserID: 4, ProviderID: p.ID, Date: "d", Time: "08:00", Service: domain.ServiceHaircut})
	require.NoError(t, err)
	issued, err := l.IssueTrackingCode(ctx, 4)
	require.NoError(t, err)
	ok, err := l.Cancel(ctx, 4)
	require.NoError(t, err)
	require.True(t, ok)
	second, err := l.Reserve(ctx, ReserveInput{UserID: 4, ProviderID: p.ID, Date: "d", Time: "10:00", Service: domain.ServiceHaircut})
	require.NoError(t, err)

	settled, err := l.SettlePayment(ctx, issued.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, first.ID, settled.ID)

	history, err := l.History(ctx, 4)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, b := range history {
		switch b.ID {
		case first.ID:
			assert.Equal(t, domain.PaymentStatusPaid, b.PaymentStatus)
			assert.Equal(t, domain.BookingStatusCancelled, b.Status)
		case second.ID:
			assert.Equal(t, domain.PaymentStatusUnpaid, b.PaymentStatus)
			assert.Equal(t, domain.BookingStatusActive, b.Status)
		}
	}
}

func TestLedger_ConcurrentReserveOnSQLite(t *testing.T) {
	db, err := repository.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	ctx := context.Background()

	p := domain.Provider{Name: "p", ExternalID: 1}
	_, err = repository.NewGormProviderRepository(db).Upsert(ctx, &p)
	require.NoError(t, err)
	_, err = repository.NewGormSlotRepository(db).InsertMissing(ctx, []domain.SlotKey{{ProviderID: p.ID, Date: "d", Time: "08:00"}})
	require.NoError(t, err)

	l := New(repository.NewGormBookingRepository(db), testHours)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = l.Reserve(ctx, ReserveInput{UserID: int64(i + 1), ProviderID: p.ID, Date: "d", Time: "08:00", Service: domain.ServiceHaircut})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrReservationConflict)
	}
	assert.Equal(t, 1, successes)

	// отмена дважды: второй раз без эффекта
	var winner int64 = 1
	if results[0] != nil {
		winner = 2
	}
	ok, err := l.Cancel(ctx, winner)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Cancel(ctx, winner)
	require.NoError(t, err)
	assert.False(t, ok)
}
