package service

import (
	"github.com/kstolbov/pointsledger/internal/handlers/auth"
	"github.com/kstolbov/pointsledger/internal/handlers/loyalty"

	pkgauth "github.com/kstolbov/pointsledger/pkg/auth"

	"github.com/kstolbov/pointsledger/internal/pg"
	"github.com/kstolbov/pointsledger/internal/repo"
	authservice "github.com/kstolbov/pointsledger/internal/service/authservice"
	ledgerservice "github.com/kstolbov/pointsledger/internal/service/ledgerservice"
)

type Services struct {
	AuthService   auth.Service
	LedgerService loyalty.Service
}

func New(repo *repo.Repositories, txManager pg.TXManager, notifier ledgerservice.Notifier, leaderboard ledgerservice.LeaderboardCache, jwtService pkgauth.JWTServiceInterface) *Services {
	ledgerService := ledgerservice.New(repo.AccountRepo, repo.EntryRepo, repo.ProfileRepo, txManager, notifier, leaderboard)
	authService := authservice.New(repo.UserRepo, ledgerService, &pkgauth.HashService{}, jwtService)

	return &Services{
		AuthService:   authService,
		LedgerService: ledgerService,
	}
}
