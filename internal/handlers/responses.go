package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/SscSPs/ledgerbook/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its HTTP status. Client errors carry
// the error text; server errors carry only fallback.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": fallback})
		return
	}

	logger.Warn(fallback, slog.String("error", err.Error()), slog.Int("status", status))
	body := gin.H{"error": err.Error()}
	var unknown *domain.UnknownAccountsError
	if errors.As(err, &unknown) {
		body["accountIDs"] = unknown.AccountIDs
	}
	c.JSON(status, body)
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", apperrors.ErrValidation, name, raw)
	}
	return id, nil
}

// requireUser returns the authenticated actor or writes a 401.
func requireUser(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}
