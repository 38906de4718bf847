package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGProviderRepository struct {
	db *pgxpool.Pool
}

func NewProviderRepository(db *pgxpool.Pool) ProviderRepository {
	return &PGProviderRepository{db: db}
}

func (r *PGProviderRepository) List(ctx context.Context) ([]domain.Provider, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, phone, address, external_id, card_number FROM providers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []domain.Provider
	for rows.Next() {
		var p domain.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Address, &p.ExternalID, &p.CardNumber); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (r *PGProviderRepository) GetByID(ctx context.Context, id int64) (*domain.Provider, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, phone, address, external_id, card_number FROM providers WHERE id=$1`, id)
	var p domain.Provider
	if err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Address, &p.ExternalID, &p.CardNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGProviderRepository) Upsert(ctx context.Context, p *domain.Provider) (bool, error) {
	var inserted bool
	err := r.db.QueryRow(ctx, `INSERT INTO providers (name, phone, address, external_id, card_number)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id) DO UPDATE
		SET name = EXCLUDED.name, phone = EXCLUDED.phone, address = EXCLUDED.address, card_number = EXCLUDED.card_number
		RETURNING id, (xmax = 0)`, p.Name, p.Phone, p.Address, p.ExternalID, p.CardNumber).
		Scan(&p.ID, &inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

var _ ProviderRepository = (*PGProviderRepository)(nil)
