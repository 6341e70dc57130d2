package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ayewealth/harbourhub/internal/api/middleware"
	"github.com/Ayewealth/harbourhub/internal/services"
)

// RestCategoryHandler handles REST requests for the category tree.
type RestCategoryHandler struct {
	categoryService services.ICategoryService
}

// NewRestCategoryHandler creates a new RestCategoryHandler.
func NewRestCategoryHandler(categoryService services.ICategoryService) *RestCategoryHandler {
	return &RestCategoryHandler{categoryService: categoryService}
}

// GetTree handles GET /v1/category/tree. The payload is the pre-serialized
// nested forest (inactive branches pruned), usually straight from cache.
func (h *RestCategoryHandler) GetTree(c *gin.Context) {
	tree, err := h.categoryService.Tree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", tree)
}

// ListCategories handles GET /v1/category — the flat table, admin tooling
// mostly.
func (h *RestCategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// GetCategoryByID handles GET /v1/category/:id
func (h *RestCategoryHandler) GetCategoryByID(c *gin.Context) {
	category, err := h.categoryService.FindCategoryByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// GetCategoryPath handles GET /v1/category/:id/path — the root-to-node
// breadcrumb trail.
func (h *RestCategoryHandler) GetCategoryPath(c *gin.Context) {
	path, err := h.categoryService.PathTo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": path})
}

// GetCategorySubtree handles GET /v1/category/:id/subtree
func (h *RestCategoryHandler) GetCategorySubtree(c *gin.Context) {
	subtree, err := h.categoryService.Subtree(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subtree})
}

// CreateCategoryRequest is the body for POST /v1/admin/category.
type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	ParentID    *string `json:"parent_id"`
	SortOrder   int     `json:"sort_order"`
}

// CreateCategory handles POST /v1/admin/category
func (h *RestCategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	category, err := h.categoryService.CreateCategory(c.Request.Context(), actor,
		req.Name, req.Description, req.Icon, req.ParentID, req.SortOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategoryRequest is the body for PATCH /v1/admin/category/:id. Only
// provided fields change; the slug is fixed at creation.
type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	SortOrder   *int    `json:"sort_order"`
}

// UpdateCategory handles PATCH /v1/admin/category/:id
func (h *RestCategoryHandler) UpdateCategory(c *gin.Context) {
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	actor := middleware.ActorFromContext(c)
	category, err := h.categoryService.UpdateCategory(c.Request.Context(), actor, c.Param("id"), updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// MoveCategoryRequest is the body for POST /v1/admin/category/:id/move.
// A null parent_id moves the category to the root level.
type MoveCategoryRequest struct {
	ParentID *string `json:"parent_id"`
}

// MoveCategory handles POST /v1/admin/category/:id/move
func (h *RestCategoryHandler) MoveCategory(c *gin.Context) {
	var req MoveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	actor := middleware.ActorFromContext(c)
	if err := h.categoryService.MoveCategory(c.Request.Context(), actor, c.Param("id"), req.ParentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeactivateCategory handles POST /v1/admin/category/:id/deactivate
func (h *RestCategoryHandler) DeactivateCategory(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := h.categoryService.DeactivateCategory(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReactivateCategory handles POST /v1/admin/category/:id/reactivate
func (h *RestCategoryHandler) ReactivateCategory(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := h.categoryService.ReactivateCategory(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
