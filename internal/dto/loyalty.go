package dto

import "time"

type BalanceResponseDTO struct {
	Points      int `json:"points" example:"70"`
	TotalEarned int `json:"total_earned" example:"100"`
	TotalSpent  int `json:"total_spent" example:"30"`
}

type SpendRequestDTO struct {
	Order  string `json:"order,omitempty" example:"2377225624"`
	Amount int    `json:"amount" example:"30"`
}

type EarnRequestDTO struct {
	Order  string `json:"order,omitempty" example:"2377225624"`
	Amount int    `json:"amount" example:"100"`
}

type HistoryEntryResponseDTO struct {
	Kind        string    `json:"kind" example:"spend"`
	Amount      int       `json:"amount" example:"30"`
	Order       string    `json:"order,omitempty" example:"2377225624"`
	ProcessedAt time.Time `json:"processed_at" example:"2020-12-09T16:09:57+03:00"`
}

type LeaderboardEntryResponseDTO struct {
	UserID    int    `json:"user_id" example:"1"`
	Points    int    `json:"points" example:"200"`
	FirstName string `json:"first_name,omitempty" example:"Anna"`
	LastName  string `json:"last_name,omitempty" example:"Arkhipova"`
	Email     string `json:"email,omitempty" example:"anna@example.com"`
}
