package ledgerservice

import (
	"context"
	"errors"
	"time"

	accountrepo "github.com/kstolbov/pointsledger/internal/repo/account-repo"
	userrepo "github.com/kstolbov/pointsledger/internal/repo/user-repo"

	"github.com/kstolbov/pointsledger/internal/domain"
	"github.com/kstolbov/pointsledger/internal/notify"
	"github.com/kstolbov/pointsledger/internal/pg"
	"go.uber.org/zap"
)

type AccountRepo interface {
	FindByUser(ctx context.Context, userID int) (*domain.LoyaltyAccount, error)
	Create(ctx context.Context, userID int) (*domain.LoyaltyAccount, error)
	Debit(ctx context.Context, userID int, amount int) (*domain.LoyaltyAccount, error)
	Credit(ctx context.Context, userID int, amount int) (*domain.LoyaltyAccount, error)
	ListByPoints(ctx context.Context) ([]domain.LoyaltyAccount, error)
}

type EntryRepo interface {
	CreateEntry(ctx context.Context, entry *domain.LoyaltyEntry) (*domain.LoyaltyEntry, error)
	GetEntriesByUserID(ctx context.Context, userID int) ([]domain.LoyaltyEntry, error)
}

type ProfileRepo interface {
	FindProfile(ctx context.Context, userID int) (*domain.Profile, error)
}

type Notifier interface {
	Notify(ctx context.Context, event notify.Event)
}

type LeaderboardCache interface {
	Get(ctx context.Context) ([]domain.LeaderboardEntry, bool)
	Set(ctx context.Context, entries []domain.LeaderboardEntry)
}

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidAmount       = errors.New("amount must be a positive number of points")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Service is the only component allowed to change a balance. It validates
// intent, resolves the account, and delegates the actual mutation to the
// store's conditional write.
type Service struct {
	accountRepo AccountRepo
	entryRepo   EntryRepo
	profileRepo ProfileRepo
	txManager   pg.TXManager
	notifier    Notifier
	leaderboard LeaderboardCache
}

func New(accountRepo AccountRepo, entryRepo EntryRepo, profileRepo ProfileRepo, txManager pg.TXManager, notifier Notifier, leaderboard LeaderboardCache) *Service {
	return &Service{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		profileRepo: profileRepo,
		txManager:   txManager,
		notifier:    notifier,
		leaderboard: leaderboard,
	}
}

// GetOrCreate resolves the account for userID, creating it with zero
// balances on first access. A concurrent creator winning the race is
// recovered by re-reading, so creation is idempotent for the caller.
func (s *Service) GetOrCreate(ctx context.Context, userID int) (*domain.LoyaltyAccount, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}

	account, err := s.accountRepo.FindByUser(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, accountrepo.ErrNotFound) {
		zap.L().Error("failed to find loyalty account", zap.Error(err))
		return nil, err
	}

	account, err = s.accountRepo.Create(ctx, userID)
	if err == nil {
		return account, nil
	}
	if errors.Is(err, accountrepo.ErrAlreadyExists) {
		return s.accountRepo.FindByUser(ctx, userID)
	}
	zap.L().Error("failed to create loyalty account", zap.Error(err))
	return nil, err
}

// Spend debits amount points. The balance pre-check only produces a friendly
// early error: the authoritative non-negativity guard is the store's
// conditional write, so an interleaved debit from another request cannot
// invalidate the decision.
func (s *Service) Spend(ctx context.Context, userID int, amount int, orderRef string) (*domain.LoyaltyAccount, error) {
	if userID <= 0 {
		return nil, s.spendFailed(ctx, userID, ErrUnauthenticated)
	}
	if amount <= 0 {
		return nil, s.spendFailed(ctx, userID, ErrInvalidAmount)
	}

	account, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, s.spendFailed(ctx, userID, err)
	}
	if account.Points < amount {
		return nil, s.spendFailed(ctx, userID, ErrInsufficientBalance)
	}

	var updated *domain.LoyaltyAccount
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		updated, err = s.accountRepo.Debit(ctx, userID, amount)
		if err != nil {
			return err
		}
		_, err = s.entryRepo.CreateEntry(ctx, &domain.LoyaltyEntry{
			UserID:    userID,
			Kind:      domain.EntrySpend,
			Amount:    amount,
			OrderRef:  orderRef,
			CreatedAt: time.Now(),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, accountrepo.ErrInsufficientPoints) {
			return nil, s.spendFailed(ctx, userID, ErrInsufficientBalance)
		}
		zap.L().Error("failed to debit points", zap.Error(err))
		return nil, s.spendFailed(ctx, userID, err)
	}

	s.emit(ctx, notify.Event{Kind: notify.KindSpendSuccess, UserID: userID, Amount: amount})
	return updated, nil
}

// Earn credits amount points, symmetric to Spend. No upper bound is imposed.
func (s *Service) Earn(ctx context.Context, userID int, amount int, orderRef string) (*domain.LoyaltyAccount, error) {
	if userID <= 0 {
		return nil, s.earnFailed(ctx, userID, ErrUnauthenticated)
	}
	if amount <= 0 {
		return nil, s.earnFailed(ctx, userID, ErrInvalidAmount)
	}

	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, s.earnFailed(ctx, userID, err)
	}

	var updated *domain.LoyaltyAccount
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.accountRepo.Credit(ctx, userID, amount)
		if err != nil {
			return err
		}
		_, err = s.entryRepo.CreateEntry(ctx, &domain.LoyaltyEntry{
			UserID:    userID,
			Kind:      domain.EntryEarn,
			Amount:    amount,
			OrderRef:  orderRef,
			CreatedAt: time.Now(),
		})
		return err
	})
	if err != nil {
		zap.L().Error("failed to credit points", zap.Error(err))
		return nil, s.earnFailed(ctx, userID, err)
	}

	s.emit(ctx, notify.Event{Kind: notify.KindEarnSuccess, UserID: userID, Amount: amount})
	return updated, nil
}

// GetHistory returns the earn/spend log for userID, newest first.
func (s *Service) GetHistory(ctx context.Context, userID int) ([]domain.LoyaltyEntry, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	entries, err := s.entryRepo.GetEntriesByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to fetch loyalty entries", zap.Error(err))
		return nil, err
	}
	return entries, nil
}

// ListAllBalances returns every account ordered by descending balance, each
// paired with the display attributes of its owner. A missing profile leaves
// the display fields empty instead of failing the listing.
func (s *Service) ListAllBalances(ctx context.Context, userID int) ([]domain.LeaderboardEntry, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}

	if s.leaderboard != nil {
		if entries, ok := s.leaderboard.Get(ctx); ok {
			return entries, nil
		}
	}

	accounts, err := s.accountRepo.ListByPoints(ctx)
	if err != nil {
		zap.L().Error("failed to list balances", zap.Error(err))
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, len(accounts))
	for i, acc := range accounts {
		entry := domain.LeaderboardEntry{Account: acc}
		profile, err := s.profileRepo.FindProfile(ctx, acc.UserID)
		switch {
		case err == nil:
			entry.Profile = *profile
		case !errors.Is(err, userrepo.ErrNotFound):
			zap.L().Error("failed to fetch profile for leaderboard", zap.Int("user_id", acc.UserID), zap.Error(err))
		}
		entries[i] = entry
	}

	if s.leaderboard != nil {
		s.leaderboard.Set(ctx, entries)
	}
	return entries, nil
}

func (s *Service) emit(ctx context.Context, event notify.Event) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, event)
	}
}

func (s *Service) spendFailed(ctx context.Context, userID int, reason error) error {
	s.emit(ctx, notify.Event{Kind: notify.KindSpendFailure, UserID: userID, Reason: reason.Error()})
	return reason
}

func (s *Service) earnFailed(ctx context.Context, userID int, reason error) error {
	s.emit(ctx, notify.Event{Kind: notify.KindEarnFailure, UserID: userID, Reason: reason.Error()})
	return reason
}
