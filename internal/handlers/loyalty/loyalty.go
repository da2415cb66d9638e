package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kstolbov/pointsledger/internal/domain"
	"github.com/kstolbov/pointsledger/internal/dto"
	ledgerservice "github.com/kstolbov/pointsledger/internal/service/ledgerservice"
	"github.com/kstolbov/pointsledger/pkg/auth"
	"github.com/kstolbov/pointsledger/pkg/utils"
	"github.com/kstolbov/pointsledger/pkg/validate"
)

type Service interface {
	GetOrCreate(ctx context.Context, userID int) (*domain.LoyaltyAccount, error)
	Spend(ctx context.Context, userID int, amount int, orderRef string) (*domain.LoyaltyAccount, error)
	Earn(ctx context.Context, userID int, amount int, orderRef string) (*domain.LoyaltyAccount, error)
	GetHistory(ctx context.Context, userID int) ([]domain.LoyaltyEntry, error)
	ListAllBalances(ctx context.Context, userID int) ([]domain.LeaderboardEntry, error)
}

type LoyaltyHandler struct {
	ledgerService Service
}

func New(ledgerService Service) *LoyaltyHandler {
	return &LoyaltyHandler{
		ledgerService: ledgerService,
	}
}

func balanceDTO(account *domain.LoyaltyAccount) dto.BalanceResponseDTO {
	return dto.BalanceResponseDTO{
		Points:      account.Points,
		TotalEarned: account.TotalEarned,
		TotalSpent:  account.TotalSpent,
	}
}

// GetBalance godoc
//
//	@Summary		Get current loyalty balance
//	@Description	Retrieve the spendable points balance and the lifetime earned/spent totals for the authenticated user. The account is created lazily on first access.
//	@Tags			Loyalty
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.BalanceResponseDTO	"Current balance"
//	@Failure		401	{object}	utils.Response			"User not authorized"
//	@Failure		500	{object}	utils.Response			"Internal server error"
//	@Router			/api/user/loyalty/balance [get]
func (h *LoyaltyHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	account, err := h.ledgerService.GetOrCreate(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ledgerservice.ErrUnauthenticated) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, balanceDTO(account))
}

// Spend godoc
//
//	@Summary		Spend loyalty points
//	@Description	Debit points from the authenticated user's balance, optionally against an order number.
//	@Tags			Loyalty
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SpendRequestDTO		true	"Spend request payload"
//	@Success		200		{object}	dto.BalanceResponseDTO	"Balance after the debit"
//	@Failure		400		{object}	utils.Response			"Invalid request body or amount"
//	@Failure		401		{object}	utils.Response			"User not authorized"
//	@Failure		402		{object}	utils.Response			"Insufficient balance"
//	@Failure		422		{object}	utils.Response			"Invalid order number"
//	@Failure		500		{object}	utils.Response			"Internal server error"
//	@Router			/api/user/loyalty/spend [post]
func (h *LoyaltyHandler) Spend(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req dto.SpendRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Order != "" && !validate.IsLuhn(req.Order) {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid order number")
		return
	}

	account, err := h.ledgerService.Spend(r.Context(), userID, req.Amount, req.Order)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, balanceDTO(account))
}

// Earn godoc
//
//	@Summary		Earn loyalty points
//	@Description	Credit points to the authenticated user's balance, optionally against an order number.
//	@Tags			Loyalty
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.EarnRequestDTO		true	"Earn request payload"
//	@Success		200		{object}	dto.BalanceResponseDTO	"Balance after the credit"
//	@Failure		400		{object}	utils.Response			"Invalid request body or amount"
//	@Failure		401		{object}	utils.Response			"User not authorized"
//	@Failure		422		{object}	utils.Response			"Invalid order number"
//	@Failure		500		{object}	utils.Response			"Internal server error"
//	@Router			/api/user/loyalty/earn [post]
func (h *LoyaltyHandler) Earn(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req dto.EarnRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Order != "" && !validate.IsLuhn(req.Order) {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid order number")
		return
	}

	account, err := h.ledgerService.Earn(r.Context(), userID, req.Amount, req.Order)
	if err != nil {
		respondWithLedgerError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, balanceDTO(account))
}

// GetHistory godoc
//
//	@Summary		Get earn/spend history
//	@Description	Get the loyalty ledger entries of the authenticated user, newest first.
//	@Tags			Loyalty
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.HistoryEntryResponseDTO	"Ledger entries"
//	@Success		204	{object}	utils.Response				"No entries yet"
//	@Failure		401	{object}	utils.Response				"User not authorized"
//	@Failure		500	{object}	utils.Response				"Internal server error"
//	@Router			/api/user/loyalty/history [get]
func (h *LoyaltyHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	entries, err := h.ledgerService.GetHistory(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ledgerservice.ErrUnauthenticated) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	if len(entries) == 0 {
		utils.RespondWithError(w, http.StatusNoContent, "History is empty")
		return
	}

	response := make([]dto.HistoryEntryResponseDTO, len(entries))
	for i, e := range entries {
		response[i] = dto.HistoryEntryResponseDTO{
			Kind:        string(e.Kind),
			Amount:      e.Amount,
			Order:       e.OrderRef,
			ProcessedAt: e.CreatedAt,
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetLeaderboard godoc
//
//	@Summary		List all balances
//	@Description	All loyalty accounts ordered by descending balance, each with the display attributes of its owner.
//	@Tags			Loyalty
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.LeaderboardEntryResponseDTO	"Accounts ordered by balance"
//	@Failure		401	{object}	utils.Response					"User not authorized"
//	@Failure		500	{object}	utils.Response					"Internal server error"
//	@Router			/api/user/loyalty/leaderboard [get]
func (h *LoyaltyHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	entries, err := h.ledgerService.ListAllBalances(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ledgerservice.ErrUnauthenticated) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
		return
	}

	response := make([]dto.LeaderboardEntryResponseDTO, len(entries))
	for i, e := range entries {
		response[i] = dto.LeaderboardEntryResponseDTO{
			UserID:    e.Account.UserID,
			Points:    e.Account.Points,
			FirstName: e.Profile.FirstName,
			LastName:  e.Profile.LastName,
			Email:     e.Profile.Email,
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

func respondWithLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgerservice.ErrUnauthenticated):
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ledgerservice.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledgerservice.ErrInsufficientBalance):
		utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
