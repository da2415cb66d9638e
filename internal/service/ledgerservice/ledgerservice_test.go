package ledgerservice

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/kstolbov/pointsledger/internal/domain"
	"github.com/kstolbov/pointsledger/internal/notify"
	"github.com/kstolbov/pointsledger/internal/pg"
	accountrepo "github.com/kstolbov/pointsledger/internal/repo/account-repo"
	userrepo "github.com/kstolbov/pointsledger/internal/repo/user-repo"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
)

type mocks struct {
	accountRepo *MockAccountRepo
	entryRepo   *MockEntryRepo
	profileRepo *MockProfileRepo
	txManager   *pg.MockTXManager
	notifier    *MockNotifier
	leaderboard *MockLeaderboardCache
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		accountRepo: NewMockAccountRepo(ctrl),
		entryRepo:   NewMockEntryRepo(ctrl),
		profileRepo: NewMockProfileRepo(ctrl),
		txManager:   pg.NewMockTXManager(ctrl),
		notifier:    NewMockNotifier(ctrl),
		leaderboard: NewMockLeaderboardCache(ctrl),
	}
	service := New(m.accountRepo, m.entryRepo, m.profileRepo, m.txManager, m.notifier, m.leaderboard)
	defer ctrl.Finish()
	return service, m
}

func passThroughTx(m *mocks) {
	m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	}).AnyTimes()
}

func TestGetOrCreate(t *testing.T) {
	existing := &domain.LoyaltyAccount{ID: 7, UserID: 1, Points: 40, TotalEarned: 50, TotalSpent: 10}
	fresh := &domain.LoyaltyAccount{ID: 8, UserID: 2}

	tests := []struct {
		name            string
		userID          int
		prepareMock     func(m *mocks)
		expectedAccount *domain.LoyaltyAccount
		expectedError   error
	}{
		{
			name:   "Returns existing account",
			userID: 1,
			prepareMock: func(m *mocks) {
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 1).Return(existing, nil)
			},
			expectedAccount: existing,
		},
		{
			name:   "Creates account with zero balances on first access",
			userID: 2,
			prepareMock: func(m *mocks) {
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 2).Return(nil, accountrepo.ErrNotFound)
				m.accountRepo.EXPECT().Create(gomock.Any(), 2).Return(fresh, nil)
			},
			expectedAccount: fresh,
		},
		{
			name:   "Re-reads when a concurrent creator won the race",
			userID: 2,
			prepareMock: func(m *mocks) {
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 2).Return(nil, accountrepo.ErrNotFound)
				m.accountRepo.EXPECT().Create(gomock.Any(), 2).Return(nil, accountrepo.ErrAlreadyExists)
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 2).Return(fresh, nil)
			},
			expectedAccount: fresh,
		},
		{
			name:   "Store failure is surfaced",
			userID: 1,
			prepareMock: func(m *mocks) {
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 1).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
		{
			name:          "Unauthenticated caller performs no store access",
			userID:        0,
			prepareMock:   func(m *mocks) {},
			expectedError: ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			account, err := service.GetOrCreate(context.Background(), tt.userID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedAccount, account)
			}
		})
	}
}

func TestSpend(t *testing.T) {
	funded := &domain.LoyaltyAccount{ID: 1, UserID: 1, Points: 70, TotalEarned: 100, TotalSpent: 30}

	tests := []struct {
		name           string
		userID         int
		amount         int
		prepareMock    func(m *mocks)
		expectedPoints int
		expectedError  error
	}{
		{
			name:   "Successful spend debits and records entry",
			userID: 1,
			amount: 30,
			prepareMock: func(m *mocks) {
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 1).
					Return(&domain.LoyaltyAccount{ID: 1, UserID: 1, Points: 100, TotalEarned: 100}, nil)
				passThroughTx(m)
				m.accountRepo.EXPECT().Debit(gomock.Any(), 1, 30).Return(funded, nil)
				m.entryRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).Return(&domain.LoyaltyEntry{ID: 1}, nil)
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindSpendSuccess, UserID: 1, Amount: 30})
			},
			expectedPoints: 70,
		},
		{
			name:   "Zero amount fails with invalid amount",
			userID: 1,
			amount: 0,
			prepareMock: func(m *mocks) {
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindSpendFailure, UserID: 1, Reason: ErrInvalidAmount.Error()})
			},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Negative amount fails with invalid amount",
			userID: 1,
			amount: -5,
			prepareMock: func(m *mocks) {
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindSpendFailure, UserID: 1, Reason: ErrInvalidAmount.Error()})
			},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Spend over balance fails before any mutation",
			userID: 1,
			amount: 1000,
			prepareMock: func(m *mocks) {
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 1).Return(funded, nil)
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindSpendFailure, UserID: 1, Reason: ErrInsufficientBalance.Error()})
			},
			expectedError: ErrInsufficientBalance,
		},
		{
			name:   "Failed write precondition maps to insufficient balance",
			userID: 1,
			amount: 50,
			prepareMock: func(m *mocks) {
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 1).Return(funded, nil)
				passThroughTx(m)
				m.accountRepo.EXPECT().Debit(gomock.Any(), 1, 50).Return(nil, accountrepo.ErrInsufficientPoints)
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindSpendFailure, UserID: 1, Reason: ErrInsufficientBalance.Error()})
			},
			expectedError: ErrInsufficientBalance,
		},
		{
			name:   "Unauthenticated caller performs no store access",
			userID: 0,
			amount: 10,
			prepareMock: func(m *mocks) {
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindSpendFailure, UserID: 0, Reason: ErrUnauthenticated.Error()})
			},
			expectedError: ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			account, err := service.Spend(context.Background(), tt.userID, tt.amount, "2377225624")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, account)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedPoints, account.Points)
				assert.Equal(t, account.TotalEarned-account.TotalSpent, account.Points)
			}
		})
	}
}

func TestEarn(t *testing.T) {
	credited := &domain.LoyaltyAccount{ID: 1, UserID: 1, Points: 100, TotalEarned: 100, TotalSpent: 0}

	tests := []struct {
		name           string
		userID         int
		amount         int
		prepareMock    func(m *mocks)
		expectedPoints int
		expectedError  error
	}{
		{
			name:   "Successful earn credits and records entry",
			userID: 1,
			amount: 100,
			prepareMock: func(m *mocks) {
				m.accountRepo.EXPECT().FindByUser(gomock.Any(), 1).Return(&domain.LoyaltyAccount{ID: 1, UserID: 1}, nil)
				passThroughTx(m)
				m.accountRepo.EXPECT().Credit(gomock.Any(), 1, 100).Return(credited, nil)
				m.entryRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).Return(&domain.LoyaltyEntry{ID: 1}, nil)
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindEarnSuccess, UserID: 1, Amount: 100})
			},
			expectedPoints: 100,
		},
		{
			name:   "Non-positive amount fails with invalid amount",
			userID: 1,
			amount: 0,
			prepareMock: func(m *mocks) {
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindEarnFailure, UserID: 1, Reason: ErrInvalidAmount.Error()})
			},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Unauthenticated caller performs no store access",
			userID: 0,
			amount: 100,
			prepareMock: func(m *mocks) {
				m.notifier.EXPECT().Notify(gomock.Any(), notify.Event{Kind: notify.KindEarnFailure, UserID: 0, Reason: ErrUnauthenticated.Error()})
			},
			expectedError: ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			account, err := service.Earn(context.Background(), tt.userID, tt.amount, "")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, account)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedPoints, account.Points)
				assert.Equal(t, account.TotalEarned-account.TotalSpent, account.Points)
			}
		})
	}
}

// Two concurrent spends of 8 against a balance of 10: the store precondition
// lets exactly one through, the other reports insufficient balance.
func TestSpendConcurrentDebits(t *testing.T) {
	service, m := NewMock(t)

	account := &domain.LoyaltyAccount{ID: 1, UserID: 1, Points: 10, TotalEarned: 10}
	m.accountRepo.EXPECT().FindByUser(gomock.Any(), 1).Return(account, nil).Times(2)
	passThroughTx(m)

	var debits int32
	m.accountRepo.EXPECT().Debit(gomock.Any(), 1, 8).DoAndReturn(
		func(ctx context.Context, userID, amount int) (*domain.LoyaltyAccount, error) {
			if atomic.AddInt32(&debits, 1) == 1 {
				return &domain.LoyaltyAccount{ID: 1, UserID: 1, Points: 2, TotalEarned: 10, TotalSpent: 8}, nil
			}
			return nil, accountrepo.ErrInsufficientPoints
		}).Times(2)
	m.entryRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).Return(&domain.LoyaltyEntry{ID: 1}, nil)
	m.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(2)

	var successes, insufficient int32
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			acc, err := service.Spend(context.Background(), 1, 8, "")
			switch {
			case err == nil:
				assert.Equal(t, 2, acc.Points)
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, ErrInsufficientBalance):
				atomic.AddInt32(&insufficient, 1)
			default:
				return err
			}
			return nil
		})
	}

	assert.NoError(t, g.Wait())
	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(1), insufficient)
}

func TestGetHistory(t *testing.T) {
	service, m := NewMock(t)

	entries := []domain.LoyaltyEntry{
		{ID: 2, UserID: 1, Kind: domain.EntrySpend, Amount: 30},
		{ID: 1, UserID: 1, Kind: domain.EntryEarn, Amount: 100},
	}
	m.entryRepo.EXPECT().GetEntriesByUserID(gomock.Any(), 1).Return(entries, nil)

	got, err := service.GetHistory(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, entries, got)

	_, err = service.GetHistory(context.Background(), 0)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestListAllBalances(t *testing.T) {
	accounts := []domain.LoyaltyAccount{
		{ID: 2, UserID: 2, Points: 200},
		{ID: 1, UserID: 1, Points: 50},
		{ID: 3, UserID: 3, Points: 10},
	}

	tests := []struct {
		name          string
		userID        int
		prepareMock   func(m *mocks)
		check         func(t *testing.T, entries []domain.LeaderboardEntry)
		expectedError error
	}{
		{
			name:   "Orders by descending balance and joins profiles",
			userID: 1,
			prepareMock: func(m *mocks) {
				m.leaderboard.EXPECT().Get(gomock.Any()).Return(nil, false)
				m.accountRepo.EXPECT().ListByPoints(gomock.Any()).Return(accounts, nil)
				m.profileRepo.EXPECT().FindProfile(gomock.Any(), 2).Return(&domain.Profile{FirstName: "Boris", LastName: "Bo", Email: "b@example.com"}, nil)
				m.profileRepo.EXPECT().FindProfile(gomock.Any(), 1).Return(&domain.Profile{FirstName: "Anna", LastName: "An", Email: "a@example.com"}, nil)
				m.profileRepo.EXPECT().FindProfile(gomock.Any(), 3).Return(nil, userrepo.ErrNotFound)
				m.leaderboard.EXPECT().Set(gomock.Any(), gomock.Any())
			},
			check: func(t *testing.T, entries []domain.LeaderboardEntry) {
				assert.Len(t, entries, 3)
				assert.Equal(t, []int{2, 1, 3}, []int{entries[0].Account.UserID, entries[1].Account.UserID, entries[2].Account.UserID})
				assert.Equal(t, "Boris", entries[0].Profile.FirstName)
				// missing profile keeps the entry with empty display fields
				assert.Equal(t, domain.Profile{}, entries[2].Profile)
			},
		},
		{
			name:   "Serves from cache on hit",
			userID: 1,
			prepareMock: func(m *mocks) {
				m.leaderboard.EXPECT().Get(gomock.Any()).Return([]domain.LeaderboardEntry{
					{Account: domain.LoyaltyAccount{UserID: 2, Points: 200}},
				}, true)
			},
			check: func(t *testing.T, entries []domain.LeaderboardEntry) {
				assert.Len(t, entries, 1)
				assert.Equal(t, 2, entries[0].Account.UserID)
			},
		},
		{
			name:          "Unauthenticated caller performs no store access",
			userID:        0,
			prepareMock:   func(m *mocks) {},
			expectedError: ErrUnauthenticated,
		},
		{
			name:   "Store failure is surfaced",
			userID: 1,
			prepareMock: func(m *mocks) {
				m.leaderboard.EXPECT().Get(gomock.Any()).Return(nil, false)
				m.accountRepo.EXPECT().ListByPoints(gomock.Any()).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			entries, err := service.ListAllBalances(context.Background(), tt.userID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				tt.check(t, entries)
			}
		})
	}
}

// New user lifecycle: earn 100, spend 30, then an over-balance spend is
// rejected with the balance unchanged.
func TestEarnSpendScenario(t *testing.T) {
	service, m := NewMock(t)
	passThroughTx(m)

	var created bool
	state := &domain.LoyaltyAccount{ID: 1, UserID: 5}
	m.accountRepo.EXPECT().FindByUser(gomock.Any(), 5).DoAndReturn(
		func(ctx context.Context, userID int) (*domain.LoyaltyAccount, error) {
			if !created {
				return nil, accountrepo.ErrNotFound
			}
			snapshot := *state
			return &snapshot, nil
		}).AnyTimes()
	m.accountRepo.EXPECT().Create(gomock.Any(), 5).DoAndReturn(
		func(ctx context.Context, userID int) (*domain.LoyaltyAccount, error) {
			created = true
			snapshot := *state
			return &snapshot, nil
		})
	m.accountRepo.EXPECT().Credit(gomock.Any(), 5, 100).DoAndReturn(
		func(ctx context.Context, userID, amount int) (*domain.LoyaltyAccount, error) {
			state.TotalEarned += amount
			state.Points += amount
			snapshot := *state
			return &snapshot, nil
		})
	m.accountRepo.EXPECT().Debit(gomock.Any(), 5, 30).DoAndReturn(
		func(ctx context.Context, userID, amount int) (*domain.LoyaltyAccount, error) {
			state.TotalSpent += amount
			state.Points -= amount
			snapshot := *state
			return &snapshot, nil
		})
	m.entryRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).Return(&domain.LoyaltyEntry{}, nil).Times(2)
	m.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).AnyTimes()

	acc, err := service.Earn(context.Background(), 5, 100, "")
	assert.NoError(t, err)
	assert.Equal(t, 100, acc.Points)
	assert.Equal(t, 100, acc.TotalEarned)

	acc, err = service.Spend(context.Background(), 5, 30, "")
	assert.NoError(t, err)
	assert.Equal(t, 70, acc.Points)
	assert.Equal(t, 30, acc.TotalSpent)

	_, err = service.Spend(context.Background(), 5, 1000, "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 70, state.Points)
	assert.Equal(t, state.TotalEarned-state.TotalSpent, state.Points)
}
