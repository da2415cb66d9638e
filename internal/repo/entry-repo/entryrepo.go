package entryrepo

import (
	"context"

	"github.com/kstolbov/pointsledger/internal/domain"
	"github.com/kstolbov/pointsledger/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) CreateEntry(ctx context.Context, entry *domain.LoyaltyEntry) (*domain.LoyaltyEntry, error) {
	query := `
		INSERT INTO loyalty_entries (user_id, kind, amount, order_ref, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, entry.UserID, entry.Kind, entry.Amount, entry.OrderRef, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		zap.L().Error("can't save loyalty entry", zap.Error(err))
		return nil, err
	}
	return entry, nil
}

func (r *Repository) GetEntriesByUserID(ctx context.Context, userID int) ([]domain.LoyaltyEntry, error) {
	query := `
        SELECT id, user_id, kind, amount, order_ref, created_at
        FROM loyalty_entries
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("failed to fetch loyalty entries", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LoyaltyEntry
	for rows.Next() {
		var e domain.LoyaltyEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Amount, &e.OrderRef, &e.CreatedAt)
		if err != nil {
			zap.L().Error("failed to scan loyalty entry row", zap.Error(err))
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, nil
}
