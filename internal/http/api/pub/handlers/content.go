package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cardkeyhq/cardkey/internal/card"
	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ContentHandler serves protected content behind the card validity gate.
type ContentHandler struct {
	db  *gorm.DB
	svc *card.Service
}

// NewContentHandler constructs a ContentHandler.
func NewContentHandler(db *gorm.DB, svc *card.Service) *ContentHandler {
	return &ContentHandler{db: db, svc: svc}
}

// Get returns a published content entry when the supplied card is valid.
func (h *ContentHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	validity, errStatus := h.svc.Status(c.Request.Context(), code)
	if errStatus != nil {
		if errors.Is(errStatus, card.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query card failed"})
		return
	}
	if !validity.Valid {
		c.JSON(http.StatusForbidden, gin.H{"error": "card is not valid"})
		return
	}

	var row models.Content
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND status = ?", id, models.ContentStatusPublished).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query content failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          row.ID,
		"title":       row.Title,
		"description": row.Description,
		"body":        row.Body,
	})
}
