package repository

import (
	"context"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) SlotRepository {
	return &GormSlotRepository{db: db}
}

func (r *GormSlotRepository) DeleteOutside(ctx context.Context, dates []string) (int64, error) {
	q := r.db.WithContext(ctx)
	if len(dates) > 0 {
		q = q.Where("slot_date NOT IN ?", dates)
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Delete(&slotModel{})
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) InsertMissing(ctx context.Context, keys []domain.SlotKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	rows := make([]slotModel, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, slotModel{
			ProviderID:    k.ProviderID,
			Date:          k.Date,
			Time:          k.Time,
			Status:        string(domain.SlotStatusEmpty),
			PaymentStatus: string(domain.PaymentStatusUnpaid),
		})
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 200)
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) ListByProvider(ctx context.Context, providerID int64, dates []string) ([]domain.Slot, error) {
	var rows []slotModel
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND slot_date IN ?", providerID, dates).
		Order("slot_date, slot_time").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toSlots(rows), nil
}

func (r *GormSlotRepository) ListByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.Slot, error) {
	var rows []slotModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("slot_date, slot_time, provider_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toSlots(rows), nil
}

func toSlots(rows []slotModel) []domain.Slot {
	slots := make([]domain.Slot, 0, len(rows))
	for _, m := range rows {
		slots = append(slots, toSlot(m))
	}
	return slots
}

// freeSlot resets a slot row to its empty state.
func freeSlot(tx *gorm.DB, k domain.SlotKey, userID int64) error {
	return tx.Model(&slotModel{}).
		Where("provider_id = ? AND slot_date = ? AND slot_time = ? AND user_id = ?", k.ProviderID, k.Date, k.Time, userID).
		Updates(map[string]any{
			"status":         string(domain.SlotStatusEmpty),
			"user_id":        0,
			"name":           "",
			"phone":          "",
			"service":        "",
			"payment_status": string(domain.PaymentStatusUnpaid),
			"tracking_code":  "",
		}).Error
}

var _ SlotRepository = (*GormSlotRepository)(nil)
