package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, user_id, provider_id, booking_date, booking_time, pair_time, service, name, phone, status, payment_status, tracking_code, created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Reserve(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE user_id=$1 AND status=$2)`, b.UserID, domain.BookingStatusActive).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.ErrActiveBookingExists
	}

	for _, k := range b.Keys() {
		cmd, err := tx.Exec(ctx, `UPDATE slots
			SET status=$1, user_id=$2, name=$3, phone=$4, service=$5, payment_status=$6, tracking_code=''
			WHERE provider_id=$7 AND slot_date=$8 AND slot_time=$9 AND status=$10`,
			domain.SlotStatusReserved, b.UserID, b.Name, b.Phone, b.Service, domain.PaymentStatusUnpaid,
			k.ProviderID, k.Date, k.Time, domain.SlotStatusEmpty)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() != 1 {
			return domain.ErrReservationConflict
		}
	}

	b.Status = domain.BookingStatusActive
	b.PaymentStatus = domain.PaymentStatusUnpaid
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (user_id, provider_id, booking_date, booking_time, pair_time, service, name, phone, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		b.UserID, b.ProviderID, b.Date, b.Time, b.PairTime, b.Service, b.Name, b.Phone, b.Status, b.PaymentStatus).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrActiveBookingExists
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) CancelActive(ctx context.Context, userID int64) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 AND status=$2 FOR UPDATE`, userID, domain.BookingStatusActive))
	if err != nil {
		return nil, err
	}

	for _, k := range current.Keys() {
		if _, err := tx.Exec(ctx, `UPDATE slots
			SET status=$1, user_id=0, name='', phone='', service='', payment_status=$2, tracking_code=''
			WHERE provider_id=$3 AND slot_date=$4 AND slot_time=$5 AND user_id=$6`,
			domain.SlotStatusEmpty, domain.PaymentStatusUnpaid, k.ProviderID, k.Date, k.Time, userID); err != nil {
			return nil, err
		}
	}

	cancelled, err := scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns, domain.BookingStatusCancelled, current.ID))
	if err != nil {
		return nil, err
	}
	return cancelled, tx.Commit(ctx)
}

func (r *PGBookingRepository) GetActive(ctx context.Context, userID int64) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 AND status=$2`, userID, domain.BookingStatusActive))
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) SetPaymentStatus(ctx context.Context, userID int64, status domain.PaymentStatus) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	updated, err := scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET payment_status=$1, updated_at=now()
		WHERE id = (
			SELECT id FROM bookings WHERE user_id=$2
			ORDER BY (status = 'active') DESC, id DESC LIMIT 1
		)
		RETURNING `+bookingColumns, status, userID))
	if err != nil {
		return nil, err
	}

	for _, k := range updated.Keys() {
		if _, err := tx.Exec(ctx, `UPDATE slots SET payment_status=$1 WHERE provider_id=$2 AND slot_date=$3 AND slot_time=$4 AND user_id=$5`,
			status, k.ProviderID, k.Date, k.Time, userID); err != nil {
			return nil, err
		}
	}
	return updated, tx.Commit(ctx)
}

func (r *PGBookingRepository) SetTrackingCode(ctx context.Context, bookingID int64, code string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET tracking_code=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns, code, bookingID))
	if err != nil {
		return err
	}
	for _, k := range b.Keys() {
		if _, err := tx.Exec(ctx, `UPDATE slots SET tracking_code=$1 WHERE provider_id=$2 AND slot_date=$3 AND slot_time=$4 AND user_id=$5`,
			code, k.ProviderID, k.Date, k.Time, b.UserID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE tracking_code=$1`, code))
}

func (r *PGBookingRepository) SettleByTrackingCode(ctx context.Context, code string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	settled, err := scanBooking(tx.QueryRow(ctx, `UPDATE bookings SET payment_status=$1, updated_at=now() WHERE tracking_code=$2 RETURNING `+bookingColumns,
		domain.PaymentStatusPaid, code))
	if err != nil {
		return nil, err
	}
	for _, k := range settled.Keys() {
		if _, err := tx.Exec(ctx, `UPDATE slots SET payment_status=$1 WHERE provider_id=$2 AND slot_date=$3 AND slot_time=$4 AND user_id=$5 AND tracking_code=$6`,
			domain.PaymentStatusPaid, k.ProviderID, k.Date, k.Time, settled.UserID, code); err != nil {
			return nil, err
		}
	}
	return settled, tx.Commit(ctx)
}

func (r *PGBookingRepository) CompleteBefore(ctx context.Context, date string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE status=$2 AND booking_date < $3`,
		domain.BookingStatusCompleted, domain.BookingStatusActive, date)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.ProviderID, &b.Date, &b.Time, &b.PairTime, &b.Service, &b.Name, &b.Phone,
		&b.Status, &b.PaymentStatus, &b.TrackingCode, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
