package repo

import (
	"github.com/kstolbov/pointsledger/internal/pg"
	accountrepo "github.com/kstolbov/pointsledger/internal/repo/account-repo"
	entryrepo "github.com/kstolbov/pointsledger/internal/repo/entry-repo"
	userrepo "github.com/kstolbov/pointsledger/internal/repo/user-repo"
	"github.com/kstolbov/pointsledger/internal/service/authservice"
	"github.com/kstolbov/pointsledger/internal/service/ledgerservice"
)

type Repositories struct {
	UserRepo    authservice.Repo
	AccountRepo ledgerservice.AccountRepo
	EntryRepo   ledgerservice.EntryRepo
	ProfileRepo ledgerservice.ProfileRepo
}

func New(conn pg.Database) *Repositories {
	userRepo := userrepo.New(conn)
	accountRepo := accountrepo.New(conn)
	entryRepo := entryrepo.New(conn)

	return &Repositories{
		UserRepo:    userRepo,
		AccountRepo: accountRepo,
		EntryRepo:   entryRepo,
		ProfileRepo: userRepo,
	}
}
