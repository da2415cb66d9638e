package service

import (
	"testing"

	"github.com/kstolbov/pointsledger/internal/pg"
	"github.com/kstolbov/pointsledger/internal/repo"
	"github.com/kstolbov/pointsledger/internal/service/authservice"
	"github.com/kstolbov/pointsledger/internal/service/ledgerservice"
	pkgauth "github.com/kstolbov/pointsledger/pkg/auth"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUserRepo := authservice.NewMockRepo(ctrl)
	mockAccountRepo := ledgerservice.NewMockAccountRepo(ctrl)
	mockEntryRepo := ledgerservice.NewMockEntryRepo(ctrl)
	mockProfileRepo := ledgerservice.NewMockProfileRepo(ctrl)
	mockTxManager := pg.NewMockTXManager(ctrl)
	mockNotifier := ledgerservice.NewMockNotifier(ctrl)
	mockLeaderboard := ledgerservice.NewMockLeaderboardCache(ctrl)

	repos := &repo.Repositories{
		UserRepo:    mockUserRepo,
		AccountRepo: mockAccountRepo,
		EntryRepo:   mockEntryRepo,
		ProfileRepo: mockProfileRepo,
	}

	services := New(repos, mockTxManager, mockNotifier, mockLeaderboard, pkgauth.NewJWTService("test-secret"))

	assert.NotNil(t, services.AuthService)
	assert.NotNil(t, services.LedgerService)
}
