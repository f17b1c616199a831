package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ContentHandler handles admin content management endpoints.
type ContentHandler struct {
	db *gorm.DB
}

// NewContentHandler constructs an admin content handler.
func NewContentHandler(db *gorm.DB) *ContentHandler {
	return &ContentHandler{db: db}
}

// List returns all content entries.
func (h *ContentHandler) List(c *gin.Context) {
	var rows []models.Content
	if errFind := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list contents failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":          row.ID,
			"title":       row.Title,
			"description": row.Description,
			"status":      row.Status,
			"created_at":  row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"contents": out})
}

// createContentRequest captures the payload for creating content.
type createContentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Body        string `json:"body"`
	Status      string `json:"status"`
}

// Create adds a content entry.
func (h *ContentHandler) Create(c *gin.Context) {
	var body createContentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing title"})
		return
	}
	if strings.TrimSpace(body.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing body"})
		return
	}
	status := strings.TrimSpace(body.Status)
	if status == "" {
		status = models.ContentStatusDraft
	}

	row := models.Content{
		Title:       title,
		Description: strings.TrimSpace(body.Description),
		Body:        body.Body,
		Status:      status,
		CreatedBy:   getUserID(c),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create content failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": row.ID})
}

// updateContentRequest captures optional fields for content updates.
type updateContentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Body        *string `json:"body"`
	Status      *string `json:"status"`
}

// Update applies field changes to a content entry.
func (h *ContentHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateContentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Title != nil {
		title := strings.TrimSpace(*body.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
			return
		}
		updates["title"] = title
	}
	if body.Description != nil {
		updates["description"] = strings.TrimSpace(*body.Description)
	}
	if body.Body != nil {
		updates["body"] = *body.Body
	}
	if body.Status != nil {
		updates["status"] = strings.TrimSpace(*body.Status)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Content{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a content entry.
func (h *ContentHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Content{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
