package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dtx/apperror"
	"dtx/core/id"
	"dtx/domain/ledger"
)

// LedgerHandler exposes the ledger demo domain over HTTP.
type LedgerHandler struct {
	svc *ledger.Service
}

func NewLedgerHandler(svc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

type openAccountRequest struct {
	Owner    string          `json:"owner" binding:"required"`
	Currency string          `json:"currency" binding:"required"`
	Opening  decimal.Decimal `json:"opening"`
}

func (h *LedgerHandler) OpenAccount(c *gin.Context) {
	var req openAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation("request body: " + err.Error()))
		return
	}

	acc, err := h.svc.OpenAccount(c.Request.Context(), req.Owner, req.Currency, req.Opening)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (h *LedgerHandler) GetBalance(c *gin.Context) {
	accountID, err := id.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperror.NewValidation("id must be a valid uuid"))
		return
	}

	balance, err := h.svc.Balance(c.Request.Context(), accountID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "balance": balance})
}

type transferRequest struct {
	FromID string          `json:"from_id" binding:"required"`
	ToID   string          `json:"to_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation("request body: " + err.Error()))
		return
	}

	fromID, err := id.Parse(req.FromID)
	if err != nil {
		_ = c.Error(apperror.NewValidation("from_id must be a valid uuid"))
		return
	}
	toID, err := id.Parse(req.ToID)
	if err != nil {
		_ = c.Error(apperror.NewValidation("to_id must be a valid uuid"))
		return
	}

	transfer, err := h.svc.Transfer(c.Request.Context(), fromID, toID, req.Amount)
	if err != nil {
		var insufficient *ledger.InsufficientFundsError
		if errors.As(err, &insufficient) {
			_ = c.Error(apperror.NewConflict(insufficient.Error()))
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}
