package domain

import "time"

type User struct {
	ID           int       `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	CreatedAt    time.Time `db:"created_at"`
}

// LoyaltyAccount is the per-user ledger record. Points is the spendable
// balance and always equals TotalEarned - TotalSpent; both totals only grow.
type LoyaltyAccount struct {
	ID          int       `db:"id"`
	UserID      int       `db:"user_id"`
	Points      int       `db:"points"`
	TotalEarned int       `db:"total_earned"`
	TotalSpent  int       `db:"total_spent"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type EntryKind string

const (
	EntryEarn  EntryKind = "earn"
	EntrySpend EntryKind = "spend"
)

// LoyaltyEntry is one row of the append-only earn/spend history.
type LoyaltyEntry struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	Kind      EntryKind `db:"kind"`
	Amount    int       `db:"amount"`
	OrderRef  string    `db:"order_ref"`
	CreatedAt time.Time `db:"created_at"`
}

// Profile carries the display attributes of an identity for leaderboard
// presentation. All fields may be empty when the profile is incomplete.
type Profile struct {
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`
}

// LeaderboardEntry pairs an account with the display attributes of its owner.
type LeaderboardEntry struct {
	Account LoyaltyAccount
	Profile Profile
}
