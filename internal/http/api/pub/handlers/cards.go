package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cardkeyhq/cardkey/internal/card"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CardHandler handles the public card verification and activation endpoints.
type CardHandler struct {
	svc *card.Service
}

// NewCardHandler constructs a CardHandler.
func NewCardHandler(svc *card.Service) *CardHandler {
	return &CardHandler{svc: svc}
}

// verifyRequest defines the request body for card verification.
type verifyRequest struct {
	Code string `json:"code"`
}

// Verify returns the validity projection for a card code.
func (h *CardHandler) Verify(c *gin.Context) {
	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	h.respondStatus(c, body.Code)
}

// Status returns the validity projection for the code in the path.
func (h *CardHandler) Status(c *gin.Context) {
	h.respondStatus(c, c.Param("code"))
}

func (h *CardHandler) respondStatus(c *gin.Context, code string) {
	code = strings.TrimSpace(code)
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
		log.WithError(errStatus).Error("card status query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query card failed"})
		return
	}
	c.JSON(http.StatusOK, validity)
}

// activateRequest defines the request body for card activation.
type activateRequest struct {
	Code     string         `json:"code"`
	UserInfo map[string]any `json:"user_info"`
}

// Activate performs the one-time activation of a card.
func (h *CardHandler) Activate(c *gin.Context) {
	var body activateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	row, errActivate := h.svc.Engine().Activate(c.Request.Context(), code, body.UserInfo)
	if errActivate != nil {
		switch {
		case errors.Is(errActivate, card.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		case errors.Is(errActivate, card.ErrAlreadyActivated):
			c.JSON(http.StatusConflict, gin.H{"error": "card already activated"})
		default:
			log.WithError(errActivate).Error("card activation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "activate card failed"})
		}
		return
	}
	h.svc.Invalidate(c.Request.Context(), code)

	c.JSON(http.StatusOK, gin.H{
		"code":          row.Code,
		"type":          row.Type,
		"duration_days": row.DurationDays,
		"status":        row.Status,
		"activated_at":  row.ActivatedAt,
		"expires_at":    row.ExpiresAt,
	})
}
