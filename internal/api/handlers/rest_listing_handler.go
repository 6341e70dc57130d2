package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/Ayewealth/harbourhub/internal/api/middleware"
	"github.com/Ayewealth/harbourhub/internal/events"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/services"
	"github.com/Ayewealth/harbourhub/internal/storage"
	"github.com/Ayewealth/harbourhub/internal/tasks"
)

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
	storageService storage.IS3Storage // nil when AWS is not configured
	taskClient     *asynq.Client      // nil in tests
	emitter        events.Emitter
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService, storageService storage.IS3Storage, taskClient *asynq.Client, emitter events.Emitter) *RestListingHandler {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &RestListingHandler{
		listingService: listingService,
		storageService: storageService,
		taskClient:     taskClient,
		emitter:        emitter,
	}
}

// SearchListings handles GET /v1/listing/search
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	opts := services.SearchListingsOptions{Limit: 50}

	if q := c.Query("q"); q != "" {
		opts.Query = &q
	}
	if categoryID := c.Query("category"); categoryID != "" {
		opts.CategoryID = &categoryID
	}
	if typeStr := c.Query("type"); typeStr != "" {
		listingType := models.ListingType(typeStr)
		if !listingType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown listing type"})
			return
		}
		opts.Type = &listingType
	}
	if country := c.Query("country"); country != "" {
		cc := strings.ToUpper(country)
		opts.Country = &cc
	}
	if maxPriceStr := c.Query("max_price"); maxPriceStr != "" {
		maxPrice, err := strconv.ParseFloat(maxPriceStr, 64)
		if err == nil && maxPrice > 0 {
			opts.MaxPrice = &maxPrice
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err == nil && limit > 0 && limit <= 200 {
			opts.Limit = limit
		}
	}
	if cursor := c.Query("cursor"); cursor != "" {
		opts.Cursor = &cursor
	}

	listings, nextCursor, err := h.listingService.SearchListings(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        listings,
		"next_cursor": nextCursor,
	})
}

// GetListingByID handles GET /v1/listing/:id. Every hit bumps the view
// counter and records an analytics event; neither can fail the response.
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listingID := c.Param("id")

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.listingService.IncrementViewCount(c.Request.Context(), listingID); err != nil {
		log.Printf("WARN: failed to increment view count for listing %s: %v", listingID, err)
	}
	viewData := map[string]any{
		"listing_id": listingID,
		"ip_address": c.ClientIP(),
		"user_agent": c.Request.UserAgent(),
	}
	if actor := middleware.ActorFromContext(c); actor != nil {
		viewData["user_id"] = actor.ID
	}
	h.emitter.Analytics(c.Request.Context(), events.KindListingViewed, viewData)

	c.JSON(http.StatusOK, listing)
}

// CreateListingRequest is the body for POST /v1/listing.
type CreateListingRequest struct {
	CategoryID  string          `json:"category_id" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Type        string          `json:"type" binding:"required"`
	Price       *models.Price   `json:"price"`
	Location    string          `json:"location"`
	Country     string          `json:"country"`
	Metadata    models.Metadata `json:"metadata"`
	ServiceArea string          `json:"service_area"`
}

// CreateListing handles POST /v1/listing. New listings always start as drafts.
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	listing, err := h.listingService.CreateListing(c.Request.Context(), actor, services.CreateListingInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Type:        models.ListingType(req.Type),
		Price:       req.Price,
		Location:    req.Location,
		Country:     strings.ToUpper(req.Country),
		Metadata:    req.Metadata,
		ServiceArea: req.ServiceArea,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// UpdateListing handles PATCH /v1/listing/:id
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	listing, err := h.listingService.UpdateListing(c.Request.Context(), actor, c.Param("id"), updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// TransitionListingRequest is the body for POST /v1/listing/:id/transition.
type TransitionListingRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransitionListing handles POST /v1/listing/:id/transition
func (h *RestListingHandler) TransitionListing(c *gin.Context) {
	var req TransitionListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	listing, err := h.listingService.Transition(c.Request.Context(), actor, c.Param("id"), models.ListingStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /v1/listing/:id (soft delete).
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := h.listingService.DeleteListing(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetMyListings handles GET /v1/listing/mine — all of the caller's listings
// including drafts.
func (h *RestListingHandler) GetMyListings(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	listings, err := h.listingService.FindListingsByOwner(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// AttachmentUploadRequest is the body for POST /v1/listing/:id/attachment/upload-url.
type AttachmentUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// GetAttachmentUploadURL handles POST /v1/listing/:id/attachment/upload-url.
// The client PUTs the file to the presigned URL, then registers the returned
// key via AddAttachment.
func (h *RestListingHandler) GetAttachmentUploadURL(c *gin.Context) {
	if h.storageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File uploads are not available"})
		return
	}
	var req AttachmentUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	listingID := c.Param("id")

	// Ownership check up front so strangers cannot mint keys under someone
	// else's listing prefix.
	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	if listing.OwnerID != actor.ID && !actor.Role.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the listing owner can upload attachments"})
		return
	}

	url, key, err := h.storageService.GenerateListingUploadURL(c.Request.Context(), actor.ID, listingID, req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

// AddAttachmentRequest is the body for POST /v1/listing/:id/attachment.
type AddAttachmentRequest struct {
	Key         string `json:"key" binding:"required"`
	Caption     string `json:"caption"`
	ContentType string `json:"content_type"`
	SortOrder   int    `json:"sort_order"`
	Primary     bool   `json:"primary"`
}

// AddAttachment handles POST /v1/listing/:id/attachment. Images are queued
// for background normalization after being registered.
func (h *RestListingHandler) AddAttachment(c *gin.Context) {
	var req AddAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	listingID := c.Param("id")

	attachment := models.Attachment{
		Key:         req.Key,
		Caption:     req.Caption,
		ContentType: req.ContentType,
		SortOrder:   req.SortOrder,
		Primary:     req.Primary,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.listingService.AddAttachment(c.Request.Context(), actor, listingID, attachment); err != nil {
		respondError(c, err)
		return
	}

	if h.taskClient != nil && strings.HasPrefix(req.ContentType, "image/") {
		payload, _ := json.Marshal(tasks.ImageTaskPayload{S3Key: req.Key, ListingID: listingID})
		if _, err := h.taskClient.EnqueueContext(c.Request.Context(), asynq.NewTask(tasks.TypeImageProcess, payload), asynq.Queue("images")); err != nil {
			log.Printf("WARN: failed to enqueue image processing for %s: %v", req.Key, err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"success": true})
}
