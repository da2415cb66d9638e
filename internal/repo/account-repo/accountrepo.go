package accountrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kstolbov/pointsledger/internal/domain"
	"github.com/kstolbov/pointsledger/internal/pg"
	"go.uber.org/zap"
)

const pgUniqueViolationCode = "23505"

var (
	ErrNotFound           = errors.New("loyalty account not found")
	ErrAlreadyExists      = errors.New("loyalty account already exists")
	ErrInsufficientPoints = errors.New("insufficient points")
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanAccount(row pgx.Row) (*domain.LoyaltyAccount, error) {
	var acc domain.LoyaltyAccount
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Points, &acc.TotalEarned, &acc.TotalSpent, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *Repository) FindByUser(ctx context.Context, userID int) (*domain.LoyaltyAccount, error) {
	query := `
        SELECT id, user_id, points, total_earned, total_spent, created_at, updated_at
        FROM loyalty_accounts
        WHERE user_id = $1
    `
	account, err := scanAccount(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		zap.L().Error("failed to find loyalty account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

func (r *Repository) Create(ctx context.Context, userID int) (*domain.LoyaltyAccount, error) {
	query := `
        INSERT INTO loyalty_accounts (user_id, points, total_earned, total_spent)
        VALUES ($1, 0, 0, 0)
        RETURNING id, user_id, points, total_earned, total_spent, created_at, updated_at
    `
	account, err := scanAccount(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return nil, ErrAlreadyExists
		}
		zap.L().Error("failed to create loyalty account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

// Debit applies the conditional spend. The non-negativity check is part of
// the UPDATE predicate, so two concurrent debits can never both commit when
// their combined amount exceeds the stored balance: the losing statement
// matches zero rows and reports ErrInsufficientPoints.
func (r *Repository) Debit(ctx context.Context, userID int, amount int) (*domain.LoyaltyAccount, error) {
	query := `
        UPDATE loyalty_accounts
        SET points = points - $2, total_spent = total_spent + $2, updated_at = now()
        WHERE user_id = $1 AND points >= $2
        RETURNING id, user_id, points, total_earned, total_spent, created_at, updated_at
    `
	account, err := scanAccount(r.db.QueryRow(ctx, query, userID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientPoints
		}
		zap.L().Error("failed to debit loyalty account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

func (r *Repository) Credit(ctx context.Context, userID int, amount int) (*domain.LoyaltyAccount, error) {
	query := `
        UPDATE loyalty_accounts
        SET points = points + $2, total_earned = total_earned + $2, updated_at = now()
        WHERE user_id = $1
        RETURNING id, user_id, points, total_earned, total_spent, created_at, updated_at
    `
	account, err := scanAccount(r.db.QueryRow(ctx, query, userID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		zap.L().Error("failed to credit loyalty account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

func (r *Repository) ListByPoints(ctx context.Context) ([]domain.LoyaltyAccount, error) {
	query := `
        SELECT id, user_id, points, total_earned, total_spent, created_at, updated_at
        FROM loyalty_accounts
        ORDER BY points DESC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		zap.L().Error("failed to list loyalty accounts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.LoyaltyAccount
	for rows.Next() {
		var acc domain.LoyaltyAccount
		err := rows.Scan(&acc.ID, &acc.UserID, &acc.Points, &acc.TotalEarned, &acc.TotalSpent, &acc.CreatedAt, &acc.UpdatedAt)
		if err != nil {
			zap.L().Error("failed to scan loyalty account row", zap.Error(err))
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	return accounts, nil
}
