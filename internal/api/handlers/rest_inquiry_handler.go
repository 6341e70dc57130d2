package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ayewealth/harbourhub/internal/api/middleware"
	"github.com/Ayewealth/harbourhub/internal/services"
)

// RestInquiryHandler handles REST requests for inquiry threads.
type RestInquiryHandler struct {
	inquiryService services.IInquiryService
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(inquiryService services.IInquiryService) *RestInquiryHandler {
	return &RestInquiryHandler{inquiryService: inquiryService}
}

// SubmitInquiryRequest is the body for POST /v1/inquiry.
type SubmitInquiryRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	Subject   string `json:"subject"`
	Message   string `json:"message" binding:"required"`
}

// SubmitInquiry handles POST /v1/inquiry
func (h *RestInquiryHandler) SubmitInquiry(c *gin.Context) {
	var req SubmitInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	inquiry, err := h.inquiryService.SubmitInquiry(c.Request.Context(), actor, req.ListingID, req.Subject, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

// ReplyRequest is the body for POST /v1/inquiry/:id/reply.
type ReplyRequest struct {
	Message string `json:"message" binding:"required"`
}

// Reply handles POST /v1/inquiry/:id/reply
func (h *RestInquiryHandler) Reply(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	inquiry, err := h.inquiryService.Reply(c.Request.Context(), actor, c.Param("id"), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// CloseInquiry handles POST /v1/inquiry/:id/close
func (h *RestInquiryHandler) CloseInquiry(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := h.inquiryService.CloseInquiry(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetInquiryByID handles GET /v1/inquiry/:id
func (h *RestInquiryHandler) GetInquiryByID(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	inquiry, err := h.inquiryService.FindInquiryByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// GetMyInquiries handles GET /v1/inquiry/mine — threads where the caller is
// buyer or seller.
func (h *RestInquiryHandler) GetMyInquiries(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	inquiries, err := h.inquiryService.ListInquiriesForUser(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inquiries})
}

// MarkRead handles POST /v1/inquiry/:id/read
func (h *RestInquiryHandler) MarkRead(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := h.inquiryService.MarkRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
