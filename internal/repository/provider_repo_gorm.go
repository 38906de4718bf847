package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"gorm.io/gorm"
)

type GormProviderRepository struct {
	db *gorm.DB
}

func NewGormProviderRepository(db *gorm.DB) ProviderRepository {
	return &GormProviderRepository{db: db}
}

func (r *GormProviderRepository) List(ctx context.Context) ([]domain.Provider, error) {
	var rows []providerModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	providers := make([]domain.Provider, 0, len(rows))
	for _, m := range rows {
		providers = append(providers, toProvider(m))
	}
	return providers, nil
}

func (r *GormProviderRepository) GetByID(ctx context.Context, id int64) (*domain.Provider, error) {
	var m providerModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p := toProvider(m)
	return &p, nil
}

func (r *GormProviderRepository) Upsert(ctx context.Context, p *domain.Provider) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m providerModel
		err := tx.Where("external_id = ?", p.ExternalID).First(&m).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			m = providerModel{
				Name:       p.Name,
				Phone:      p.Phone,
				Address:    p.Address,
				ExternalID: p.ExternalID,
				CardNumber: p.CardNumber,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			if err := tx.Model(&m).Updates(map[string]any{
				"name":        p.Name,
				"phone":       p.Phone,
				"address":     p.Address,
				"card_number": p.CardNumber,
			}).Error; err != nil {
				return err
			}
		}
		p.ID = m.ID
		return nil
	})
	return created, err
}

var _ ProviderRepository = (*GormProviderRepository)(nil)
