package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledgerbook/internal/core/ports/services"
	"github.com/SscSPs/ledgerbook/internal/dto"
	"github.com/SscSPs/ledgerbook/internal/middleware"
	"github.com/gin-gonic/gin"
)

// journalHandler handles HTTP requests for journal entries and their lines.
type journalHandler struct {
	journalService portssvc.JournalSvcFacade
}

// RegisterJournalRoutes registers the journal entry lifecycle routes.
func RegisterJournalRoutes(rg *gin.RouterGroup, journalService portssvc.JournalSvcFacade) {
	h := &journalHandler{journalService: journalService}

	journals := rg.Group("/journals")
	{
		journals.POST("", h.createJournalEntry)
		journals.GET("", h.listJournalEntries)
		journals.GET("/:id", h.getJournalEntry)
		journals.PUT("/:id", h.updateJournalEntry)
		journals.DELETE("/:id", h.deleteJournalEntry)
		journals.POST("/:id/post", h.postJournalEntry)
	}

	rg.DELETE("/journal-lines/:id", h.deleteJournalLine)
}

// createJournalEntry handles POST /journals. The entry is stored as a draft.
func (h *journalHandler) createJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateJournalEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger.Info("Received request to create journal entry", slog.Int("line_count", len(req.Lines)))
	entry, err := h.journalService.CreateJournalEntry(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, logger, err, "Failed to create journal entry")
		return
	}

	c.JSON(http.StatusCreated, dto.ToJournalEntryResponse(entry))
}

// getJournalEntry handles GET /journals/:id.
func (h *journalHandler) getJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid journal entry ID")
		return
	}

	entry, err := h.journalService.GetJournalEntry(c.Request.Context(), entryID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve journal entry")
		return
	}

	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// listJournalEntries handles GET /journals?limit=&nextToken=.
func (h *journalHandler) listJournalEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListJournalEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListJournalEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.journalService.ListJournalEntries(c.Request.Context(), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list journal entries")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// updateJournalEntry handles PUT /journals/:id. The request replaces the header and every line.
func (h *journalHandler) updateJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid journal entry ID")
		return
	}

	var req dto.UpdateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateJournalEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	entry, err := h.journalService.UpdateJournalEntry(c.Request.Context(), entryID, req, userID)
	if err != nil {
		respondError(c, logger, err, "Failed to update journal entry")
		return
	}

	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// postJournalEntry handles POST /journals/:id/post.
func (h *journalHandler) postJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid journal entry ID")
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	if err := h.journalService.PostJournalEntry(c.Request.Context(), entryID, userID); err != nil {
		respondError(c, logger, err, "Failed to post journal entry")
		return
	}

	entry, err := h.journalService.GetJournalEntry(c.Request.Context(), entryID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve journal entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

func (h *journalHandler) deleteJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid journal entry ID")
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	if err := h.journalService.DeleteJournalEntry(c.Request.Context(), entryID, userID); err != nil {
		respondError(c, logger, err, "Failed to delete journal entry")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *journalHandler) deleteJournalLine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	lineID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, logger, err, "Invalid journal line ID")
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	if err := h.journalService.DeleteJournalLine(c.Request.Context(), lineID, userID); err != nil {
		respondError(c, logger, err, "Failed to delete journal line")
		return
	}
	c.Status(http.StatusNoContent)
}
