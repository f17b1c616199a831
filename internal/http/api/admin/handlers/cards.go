package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cardkeyhq/cardkey/internal/card"
	dbutil "github.com/cardkeyhq/cardkey/internal/db"
	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/cardkeyhq/cardkey/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CardHandler handles admin card management endpoints.
type CardHandler struct {
	db  *gorm.DB
	svc *card.Service
}

// NewCardHandler constructs an admin card handler.
func NewCardHandler(db *gorm.DB, svc *card.Service) *CardHandler {
	return &CardHandler{db: db, svc: svc}
}

// issuePolicy builds the issuance policy from the settings snapshot.
func issuePolicy() card.IssuePolicy {
	return card.IssuePolicy{
		CodePrefix:  settings.CardPrefix(),
		MaxBatch:    settings.BatchIssueCap(),
		DefaultType: settings.DefaultCardType(),
	}
}

// List returns cards filtered by query parameters.
func (h *CardHandler) List(c *gin.Context) {
	var (
		codeQ   = strings.TrimSpace(c.Query("code"))
		statusQ = strings.TrimSpace(c.Query("status"))
		typeQ   = strings.TrimSpace(c.Query("type"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Card{})
	if codeQ != "" {
		expr, pattern := dbutil.CaseInsensitiveLike(h.db, "code", "%"+codeQ+"%")
		q = q.Where(expr, pattern)
	}
	if statusQ != "" {
		q = q.Where("status = ?", statusQ)
	}
	if typeQ != "" {
		q = q.Where("type = ?", typeQ)
	}

	var rows []models.Card
	if errFind := q.Order("created_at DESC").Limit(500).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list cards failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatCard(&row))
	}
	c.JSON(http.StatusOK, gin.H{"cards": out})
}

// Get fetches a single card by ID.
func (h *CardHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var row models.Card
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatCard(&row))
}

// createCardRequest captures the payload for creating a single card.
type createCardRequest struct {
	Code         string `json:"code"`          // Optional caller-assigned code.
	Type         string `json:"type"`          // Card type; defaults to month.
	DurationDays int    `json:"duration_days"` // Window override for custom cards.
	Remark       string `json:"remark"`        // Optional note.
}

// Create issues a single card.
func (h *CardHandler) Create(c *gin.Context) {
	var body createCardRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	row, errIssue := h.svc.Engine().Issue(c.Request.Context(), issuePolicy(), card.IssueParams{
		Code:         body.Code,
		Type:         body.Type,
		DurationDays: body.DurationDays,
		CreatedBy:    getUserID(c),
		Remark:       body.Remark,
	})
	if errIssue != nil {
		if errors.Is(errIssue, card.ErrIssuanceFailed) {
			c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
			return
		}
		log.WithError(errIssue).Error("create card failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create card failed"})
		return
	}
	c.JSON(http.StatusCreated, formatCard(row))
}

// batchCreateCardRequest captures the payload for batch issuance.
type batchCreateCardRequest struct {
	Type         string `json:"type"`
	Count        int    `json:"count"`
	DurationDays int    `json:"duration_days"`
	Remark       string `json:"remark"`
}

// BatchCreate issues multiple cards of one type. The response lists exactly
// the cards that persisted.
func (h *CardHandler) BatchCreate(c *gin.Context) {
	var body batchCreateCardRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Count < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be positive"})
		return
	}

	issued, errIssue := h.svc.Engine().IssueBatch(c.Request.Context(), issuePolicy(), body.Type, body.Count, card.IssueParams{
		DurationDays: body.DurationDays,
		CreatedBy:    getUserID(c),
		Remark:       body.Remark,
	})
	if errIssue != nil && len(issued) == 0 {
		log.WithError(errIssue).Error("batch create cards failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "batch create cards failed"})
		return
	}

	out := make([]gin.H, 0, len(issued))
	for i := range issued {
		out = append(out, formatCard(&issued[i]))
	}
	c.JSON(http.StatusCreated, gin.H{"cards": out, "requested": body.Count, "issued": len(out)})
}

// Delete revokes a card by ID.
func (h *CardHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var row models.Card
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if errRevoke := h.svc.Engine().Revoke(c.Request.Context(), row.Code); errRevoke != nil {
		if errors.Is(errRevoke, card.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	h.svc.Invalidate(c.Request.Context(), row.Code)
	c.Status(http.StatusNoContent)
}

// formatCard maps a card model into a response payload.
func formatCard(row *models.Card) gin.H {
	return gin.H{
		"id":            row.ID,
		"code":          row.Code,
		"type":          row.Type,
		"duration_days": row.DurationDays,
		"status":        row.Status,
		"activated":     row.Activated(),
		"activated_at":  row.ActivatedAt,
		"expires_at":    row.ExpiresAt,
		"remark":        row.Remark,
		"created_by":    row.CreatedBy,
		"created_at":    row.CreatedAt,
	}
}
