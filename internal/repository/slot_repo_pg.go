package repository

import (
	"context"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `provider_id, slot_date, slot_time, status, user_id, name, phone, service, payment_status, tracking_code`

type PGSlotRepository struct {
	db *pgxpool.Pool
}

func NewSlotRepository(db *pgxpool.Pool) SlotRepository {
	return &PGSlotRepository{db: db}
}

func (r *PGSlotRepository) DeleteOutside(ctx context.Context, dates []string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM slots WHERE slot_date <> ALL($1)`, dates)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *PGSlotRepository) InsertMissing(ctx context.Context, keys []domain.SlotKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(`INSERT INTO slots (provider_id, slot_date, slot_time, status, payment_status)
			VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
			k.ProviderID, k.Date, k.Time, domain.SlotStatusEmpty, domain.PaymentStatusUnpaid)
	}

	br := tx.SendBatch(ctx, batch)
	var inserted int64
	for range keys {
		cmd, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, err
		}
		inserted += cmd.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	return inserted, tx.Commit(ctx)
}

func (r *PGSlotRepository) ListByProvider(ctx context.Context, providerID int64, dates []string) ([]domain.Slot, error) {
	rows, err := r.db.Query(ctx, `SELECT `+slotColumns+` FROM slots WHERE provider_id=$1 AND slot_date = ANY($2) ORDER BY slot_date, slot_time`, providerID, dates)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PGSlotRepository) ListByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.Slot, error) {
	rows, err := r.db.Query(ctx, `SELECT `+slotColumns+` FROM slots WHERE status=$1 ORDER BY slot_date, slot_time, provider_id`, status)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]domain.Slot, error) {
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var s domain.Slot
		if err := rows.Scan(&s.ProviderID, &s.Date, &s.Time, &s.Status, &s.UserID, &s.Name, &s.Phone, &s.Service, &s.PaymentStatus, &s.TrackingCode); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

var _ SlotRepository = (*PGSlotRepository)(nil)
