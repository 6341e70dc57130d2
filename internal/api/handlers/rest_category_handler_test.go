package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Ayewealth/harbourhub/internal/api/handlers"
	"github.com/Ayewealth/harbourhub/internal/api/middleware"
	"github.com/Ayewealth/harbourhub/internal/apperr"
	"github.com/Ayewealth/harbourhub/internal/models"
)

// withActor injects an authenticated user the way AuthMiddleware would.
func withActor(actor *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyActor, actor)
		c.Next()
	}
}

func testAdmin() *models.User {
	admin := &models.User{Role: models.RoleAdmin}
	admin.ID = "admin-1"
	return admin
}

func TestRestCategoryHandler_GetTree_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockCategorySvc := new(MockCategoryService)
	handler := handlers.NewRestCategoryHandler(mockCategorySvc)

	r := gin.New()
	r.GET("/v1/category/tree", handler.GetTree)

	treeJSON := []byte(`[{"category":{"name":"Equipment","slug":"equipment"},"children":[]}]`)
	mockCategorySvc.On("Tree", mock.Anything).Return(treeJSON, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/category/tree", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, string(treeJSON), w.Body.String())
	mockCategorySvc.AssertExpectations(t)
}

func TestRestCategoryHandler_GetCategoryByID_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockCategorySvc := new(MockCategoryService)
	handler := handlers.NewRestCategoryHandler(mockCategorySvc)

	r := gin.New()
	r.GET("/v1/category/:id", handler.GetCategoryByID)

	mockCategorySvc.On("FindCategoryByID", mock.Anything, "missing").
		Return(nil, apperr.NotFound("category", "missing"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/category/missing", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockCategorySvc.AssertExpectations(t)
}

func TestRestCategoryHandler_CreateCategory_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockCategorySvc := new(MockCategoryService)
	handler := handlers.NewRestCategoryHandler(mockCategorySvc)
	admin := testAdmin()

	r := gin.New()
	r.POST("/v1/admin/category", withActor(admin), handler.CreateCategory)

	created := &models.Category{Name: "Drilling", Slug: "drilling", Active: true}
	created.ID = "cat-1"
	mockCategorySvc.On("CreateCategory", mock.Anything, admin, "Drilling", "Downhole tools", "", (*string)(nil), 2).
		Return(created, nil)

	body := `{"name":"Drilling","description":"Downhole tools","sort_order":2}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/category", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var respBody models.Category
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "drilling", respBody.Slug)
	mockCategorySvc.AssertExpectations(t)
}

func TestRestCategoryHandler_CreateCategory_MissingName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockCategorySvc := new(MockCategoryService)
	handler := handlers.NewRestCategoryHandler(mockCategorySvc)

	r := gin.New()
	r.POST("/v1/admin/category", withActor(testAdmin()), handler.CreateCategory)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/category", strings.NewReader(`{"description":"no name"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockCategorySvc.AssertNotCalled(t, "CreateCategory")
}

func TestRestCategoryHandler_MoveCategory_CycleConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockCategorySvc := new(MockCategoryService)
	handler := handlers.NewRestCategoryHandler(mockCategorySvc)
	admin := testAdmin()

	r := gin.New()
	r.POST("/v1/admin/category/:id/move", withActor(admin), handler.MoveCategory)

	newParent := "cat-child"
	mockCategorySvc.On("MoveCategory", mock.Anything, admin, "cat-root", &newParent).
		Return(apperr.Cycle("category", "cat-root", "new parent is a descendant"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/category/cat-root/move", strings.NewReader(`{"parent_id":"cat-child"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "cycle", respBody["kind"])
	mockCategorySvc.AssertExpectations(t)
}

func TestRestCategoryHandler_MoveCategory_ToRoot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockCategorySvc := new(MockCategoryService)
	handler := handlers.NewRestCategoryHandler(mockCategorySvc)
	admin := testAdmin()

	r := gin.New()
	r.POST("/v1/admin/category/:id/move", withActor(admin), handler.MoveCategory)

	mockCategorySvc.On("MoveCategory", mock.Anything, admin, "cat-1", (*string)(nil)).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/category/cat-1/move", strings.NewReader(`{"parent_id":null}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockCategorySvc.AssertExpectations(t)
}

func TestRestCategoryHandler_DeactivateCategory_PermissionDenied(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockCategorySvc := new(MockCategoryService)
	handler := handlers.NewRestCategoryHandler(mockCategorySvc)
	seller := &models.User{Role: models.RoleSeller}
	seller.ID = "user-1"

	r := gin.New()
	r.POST("/v1/admin/category/:id/deactivate", withActor(seller), handler.DeactivateCategory)

	mockCategorySvc.On("DeactivateCategory", mock.Anything, seller, "cat-1").
		Return(apperr.Permission("category", "cat-1", "deactivate", "requires admin role"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/category/cat-1/deactivate", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockCategorySvc.AssertExpectations(t)
}

func TestRestCategoryHandler_GetCategoryPath_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockCategorySvc := new(MockCategoryService)
	handler := handlers.NewRestCategoryHandler(mockCategorySvc)

	r := gin.New()
	r.GET("/v1/category/:id/path", handler.GetCategoryPath)

	path := []models.Category{
		{Name: "Equipment", Slug: "equipment"},
		{Name: "Drilling", Slug: "drilling"},
	}
	mockCategorySvc.On("PathTo", mock.Anything, "cat-drilling").Return(path, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/category/cat-drilling/path", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string][]models.Category
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Len(t, respBody["data"], 2)
	assert.Equal(t, "equipment", respBody["data"][0].Slug)
	mockCategorySvc.AssertExpectations(t)
}
