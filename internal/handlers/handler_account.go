package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledgerbook/internal/core/ports/services"
	"github.com/SscSPs/ledgerbook/internal/dto"
	"github.com/SscSPs/ledgerbook/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
}

// RegisterAccountRoutes registers routes related to the chart of accounts.
func RegisterAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade) {
	h := &accountHandler{accountService: accountService}

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.GET("/:id/depth", h.getAccountDepth)
		accounts.PUT("/:id", h.updateAccount)
		accounts.DELETE("/:id", h.deleteAccount)
	}
}

// createAccount handles POST /accounts.
func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger.Info("Received request to create account", slog.String("code", req.Code), slog.String("account_type", string(req.AccountType)))
	account, err := h.accountService.CreateAccount(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, logger, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

// getAccount handles GET /accounts/:id.
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid account ID")
		return
	}

	account, err := h.accountService.GetAccountByID(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve account")
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListAccountsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListAccounts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list accounts")
		return
	}

	c.JSON(http.StatusOK, dto.ToListAccountResponse(accounts))
}

// getAccountDepth handles GET /accounts/:id/depth.
func (h *accountHandler) getAccountDepth(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid account ID")
		return
	}

	depth, err := h.accountService.AccountDepth(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to resolve account depth")
		return
	}

	c.JSON(http.StatusOK, gin.H{"accountID": accountID, "depth": depth})
}

// updateAccount handles PUT /accounts/:id. Only name, description and the active flag can change.
func (h *accountHandler) updateAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid account ID")
		return
	}

	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), accountID, req, userID)
	if err != nil {
		respondError(c, logger, err, "Failed to update account")
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// deleteAccount handles DELETE /accounts/:id.
func (h *accountHandler) deleteAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid account ID")
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(c.Request.Context(), accountID, userID); err != nil {
		respondError(c, logger, err, "Failed to delete account")
		return
	}

	logger.Info("Account deleted", slog.Int64("account_id", accountID))
	c.Status(http.StatusNoContent)
}
