// Package http exposes the companion API behind the web signing page:
// canonical-message issuance, claim submission and the public group listing.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fans3-backend/internal/common/errors"
	"fans3-backend/internal/common/middleware"
	bindingmodels "fans3-backend/internal/features/binding/models"
	listingmodels "fans3-backend/internal/features/listing/models"
)

// BindingService is the slice of the binding feature the API serves.
type BindingService interface {
	Bind(ctx context.Context, userID int64, username, encodedClaim string) (string, error)
}

// ListingService backs the public group listing.
type ListingService interface {
	KnownGroups(ctx context.Context) ([]listingmodels.Group, error)
}

type VerifyHandler struct {
	binding BindingService
	listing ListingService
	now     func() time.Time
}

func NewVerifyHandler(binding BindingService, listing ListingService) *VerifyHandler {
	return &VerifyHandler{binding: binding, listing: listing, now: time.Now}
}

type messageResponse struct {
	Message  string `json:"message"`
	IssuedAt string `json:"issued_at"`
}

// IssueMessage returns the canonical text the user's wallet must sign,
// bound to the authenticated Telegram identity and the current instant.
func (h *VerifyHandler) IssueMessage(c *gin.Context) {
	user, ok := middleware.TelegramUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	issuedAt := h.now().UTC().Format(time.RFC3339)
	c.JSON(http.StatusOK, messageResponse{
		Message:  bindingmodels.CanonicalMessage(user.Username, user.ID, issuedAt),
		IssuedAt: issuedAt,
	})
}

type claimRequest struct {
	Code string `json:"code" binding:"required"`
}

// SubmitClaim consumes an encoded signed claim and binds the recovered
// address to the authenticated user.
func (h *VerifyHandler) SubmitClaim(c *gin.Context) {
	user, ok := middleware.TelegramUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	address, err := h.binding.Bind(c.Request.Context(), user.ID, user.Username, req.Code)
	if err != nil {
		code := apperrors.CodeOf(err)
		var appErr *apperrors.AppError
		status := http.StatusInternalServerError
		if errors.As(err, &appErr) && appErr.IsBindingError() {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"code": code, "error": "claim rejected"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address})
}

type groupResponse struct {
	ChatID     int64  `json:"chat_id"`
	Title      string `json:"title"`
	Address    string `json:"address"`
	PriceEther string `json:"price_eth,omitempty"`
}

// ListGroups returns every registered chat with its informational buy price.
func (h *VerifyHandler) ListGroups(c *gin.Context) {
	groups, err := h.listing.KnownGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing unavailable"})
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse{
			ChatID:     g.ChatID,
			Title:      g.Title,
			Address:    g.Address,
			PriceEther: g.PriceEther(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}
