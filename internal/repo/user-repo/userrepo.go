package userrepo

import (
	"context"
	"errors"

	"github.com/kstolbov/pointsledger/internal/domain"
	"github.com/kstolbov/pointsledger/internal/pg"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (repo *Repository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	var user domain.User
	err := repo.db.QueryRow(ctx, "SELECT id, login, password_hash FROM users WHERE login = $1", login).Scan(&user.ID, &user.Login, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		zap.L().Error("can't find user", zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (repo *Repository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (login, password_hash, first_name, last_name, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := repo.db.QueryRow(ctx, query, user.Login, user.PasswordHash, user.FirstName, user.LastName, user.Email).Scan(&user.ID)
	if err != nil {
		zap.L().Error("can't save user", zap.Error(err))
		return nil, err
	}
	return user, nil
}

// FindProfile returns the display attributes for an identity. Missing users
// report ErrNotFound; the caller decides whether that is fatal.
func (repo *Repository) FindProfile(ctx context.Context, userID int) (*domain.Profile, error) {
	var profile domain.Profile
	err := repo.db.QueryRow(ctx, "SELECT first_name, last_name, email FROM users WHERE id = $1", userID).
		Scan(&profile.FirstName, &profile.LastName, &profile.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		zap.L().Error("can't find user profile", zap.Error(err))
		return nil, err
	}
	return &profile, nil
}
