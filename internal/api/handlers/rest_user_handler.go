package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ayewealth/harbourhub/internal/api/middleware"
	"github.com/Ayewealth/harbourhub/internal/auth"
	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/services"
	"github.com/Ayewealth/harbourhub/internal/storage"
)

// RestUserHandler handles REST requests for accounts and verification.
type RestUserHandler struct {
	userService    services.IUserService
	storageService storage.IS3Storage // nil when AWS is not configured
	cfg            *config.Config
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService, storageService storage.IS3Storage, cfg *config.Config) *RestUserHandler {
	return &RestUserHandler{userService: userService, storageService: storageService, cfg: cfg}
}

// PublicUser is the profile shape exposed to other users.
type PublicUser struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Role       models.Role `json:"role"`
	Verified   bool        `json:"verified"`
	Company    string      `json:"company,omitempty"`
	Location   string      `json:"location,omitempty"`
	DateJoined string      `json:"date_joined"`
}

func publicUserFrom(user *models.User) PublicUser {
	return PublicUser{
		ID:         user.ID,
		Name:       user.Name,
		Role:       user.Role,
		Verified:   user.Verified,
		Company:    user.Company,
		Location:   user.Location,
		DateJoined: user.CreatedAt.Format("2006-01-02"),
	}
}

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"`
}

// Register handles POST /v1/auth/register. Admin roles cannot be
// self-assigned; the service rejects them.
func (h *RestUserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleBuyer
	}
	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Password, req.Name, role)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := auth.GenerateJWT(user, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/auth/login
func (h *RestUserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := auth.GenerateJWT(user, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetUserByID handles GET /v1/user/:id (public profile).
func (h *RestUserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.FindUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicUserFrom(user))
}

// GetProfile handles GET /v1/profile — the caller's own full record.
func (h *RestUserHandler) GetProfile(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	// The JWT actor only carries the claims; reload for the full profile.
	user, err := h.userService.FindUserByID(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PATCH /v1/profile
func (h *RestUserHandler) UpdateProfile(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	user, err := h.userService.UpdateProfile(c.Request.Context(), actor, actor.ID, updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// VerificationUploadRequest is the body for POST /v1/verification/upload-url.
type VerificationUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// GetVerificationUploadURL handles POST /v1/verification/upload-url. The
// returned key goes into the subsequent verification request.
func (h *RestUserHandler) GetVerificationUploadURL(c *gin.Context) {
	if h.storageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File uploads are not available"})
		return
	}
	var req VerificationUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	url, key, err := h.storageService.GenerateVerificationUploadURL(c.Request.Context(), actor.ID, req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

// SubmitVerificationRequest is the body for POST /v1/verification.
type SubmitVerificationRequest struct {
	CompanyName    string   `json:"company_name" binding:"required"`
	DocumentKeys   []string `json:"document_keys" binding:"required"`
	Certifications string   `json:"certifications"`
	References     string   `json:"references"`
}

// SubmitVerification handles POST /v1/verification
func (h *RestUserHandler) SubmitVerification(c *gin.Context) {
	var req SubmitVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	request, err := h.userService.SubmitVerificationRequest(c.Request.Context(), actor,
		req.CompanyName, req.DocumentKeys, req.Certifications, req.References)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// ChangeRoleRequest is the body for POST /v1/admin/user/:id/role.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeRole handles POST /v1/admin/user/:id/role
func (h *RestUserHandler) ChangeRole(c *gin.Context) {
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	user, err := h.userService.ChangeRole(c.Request.Context(), actor, c.Param("id"), models.Role(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SuspendRequest is the body for POST /v1/admin/user/:id/suspend.
type SuspendRequest struct {
	Suspended bool `json:"suspended"`
}

// SetSuspended handles POST /v1/admin/user/:id/suspend
func (h *RestUserHandler) SetSuspended(c *gin.Context) {
	var req SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	if err := h.userService.SetSuspended(c.Request.Context(), actor, c.Param("id"), req.Suspended); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListPendingVerifications handles GET /v1/admin/verification/pending
func (h *RestUserHandler) ListPendingVerifications(c *gin.Context) {
	requests, err := h.userService.ListPendingVerificationRequests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": requests})
}

// ReviewVerificationRequest is the body for POST /v1/admin/verification/:id/review.
type ReviewVerificationRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// ReviewVerification handles POST /v1/admin/verification/:id/review
func (h *RestUserHandler) ReviewVerification(c *gin.Context) {
	var req ReviewVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	request, err := h.userService.ReviewVerificationRequest(c.Request.Context(), actor, c.Param("id"), req.Approve, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}
