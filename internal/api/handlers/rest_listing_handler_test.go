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
	"github.com/Ayewealth/harbourhub/internal/apperr"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/services"
)

func testSeller() *models.User {
	seller := &models.User{Role: models.RoleSeller}
	seller.ID = "seller-1"
	return seller
}

func TestRestListingHandler_GetListingByID_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)

	r := gin.New()
	r.GET("/v1/listing/:id", handler.GetListingByID)

	expectedListing := &models.Listing{
		Title:  "Triplex Mud Pump",
		Status: models.ListingStatusActive,
		Type:   models.ListingTypeSell,
	}
	expectedListing.ID = "lst-1"
	mockListingSvc.On("FindListingByID", mock.Anything, "lst-1").Return(expectedListing, nil)
	mockListingSvc.On("IncrementViewCount", mock.Anything, "lst-1").Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/lst-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody models.Listing
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, expectedListing.ID, respBody.ID)
	assert.Equal(t, expectedListing.Title, respBody.Title)
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_GetListingByID_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)

	r := gin.New()
	r.GET("/v1/listing/:id", handler.GetListingByID)

	mockListingSvc.On("FindListingByID", mock.Anything, "missing").
		Return(nil, apperr.NotFound("listing", "missing"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/missing", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockListingSvc.AssertNotCalled(t, "IncrementViewCount")
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_SearchListings_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)

	r := gin.New()
	r.GET("/v1/listing/search", handler.SearchListings)

	query := "pump"
	expectedListings := []models.Listing{
		{Title: "Triplex Mud Pump"},
		{Title: "Centrifugal Pump"},
	}
	nextCursor := "2026-01-15T10:00:00.000000000Z"

	mockListingSvc.On("SearchListings", mock.Anything, services.SearchListingsOptions{
		Query: &query,
		Limit: 10,
	}).Return(expectedListings, &nextCursor, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/search?q=pump&limit=10", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, nextCursor, respBody["next_cursor"])
	data, ok := respBody["data"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, data, 2)
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_SearchListings_WithFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)

	r := gin.New()
	r.GET("/v1/listing/search", handler.SearchListings)

	categoryID := "cat-pumps"
	listingType := models.ListingTypeRent
	country := "NG"
	maxPrice := 50000.0
	mockListingSvc.On("SearchListings", mock.Anything, services.SearchListingsOptions{
		CategoryID: &categoryID,
		Type:       &listingType,
		Country:    &country,
		MaxPrice:   &maxPrice,
		Limit:      50,
	}).Return([]models.Listing{}, nil, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/search?category=cat-pumps&type=rent&country=ng&max_price=50000", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_SearchListings_UnknownType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)

	r := gin.New()
	r.GET("/v1/listing/search", handler.SearchListings)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/search?type=barter", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockListingSvc.AssertNotCalled(t, "SearchListings")
}

func TestRestListingHandler_CreateListing_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)
	seller := testSeller()

	r := gin.New()
	r.POST("/v1/listing", withActor(seller), handler.CreateListing)

	created := &models.Listing{
		Title:  "Rotary Table",
		Status: models.ListingStatusDraft,
	}
	created.ID = "lst-new"
	mockListingSvc.On("CreateListing", mock.Anything, seller, services.CreateListingInput{
		CategoryID: "cat-drilling",
		Title:      "Rotary Table",
		Type:       models.ListingTypeSell,
		Country:    "NG",
	}).Return(created, nil)

	body := `{"category_id":"cat-drilling","title":"Rotary Table","type":"sell","country":"ng"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var respBody models.Listing
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, models.ListingStatusDraft, respBody.Status)
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_CreateListing_RoleDenied(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)
	buyer := &models.User{Role: models.RoleBuyer}
	buyer.ID = "buyer-1"

	r := gin.New()
	r.POST("/v1/listing", withActor(buyer), handler.CreateListing)

	mockListingSvc.On("CreateListing", mock.Anything, buyer, mock.Anything).
		Return(nil, apperr.Permission("listing", "", "create", "buyers cannot create listings"))

	body := `{"category_id":"cat-drilling","title":"Rotary Table","type":"sell"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_TransitionListing_InvalidEdgeConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)
	seller := testSeller()

	r := gin.New()
	r.POST("/v1/listing/:id/transition", withActor(seller), handler.TransitionListing)

	mockListingSvc.On("Transition", mock.Anything, seller, "lst-1", models.ListingStatusClosed).
		Return(nil, apperr.State("listing", "lst-1", "transition", "draft", "draft listings cannot be closed"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing/lst-1/transition", strings.NewReader(`{"status":"closed"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "state", respBody["kind"])
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_TransitionListing_Publish(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)
	seller := testSeller()

	r := gin.New()
	r.POST("/v1/listing/:id/transition", withActor(seller), handler.TransitionListing)

	published := &models.Listing{Status: models.ListingStatusActive}
	published.ID = "lst-1"
	mockListingSvc.On("Transition", mock.Anything, seller, "lst-1", models.ListingStatusActive).
		Return(published, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing/lst-1/transition", strings.NewReader(`{"status":"active"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody models.Listing
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, models.ListingStatusActive, respBody.Status)
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_GetMyListings_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)
	seller := testSeller()

	r := gin.New()
	r.GET("/v1/listing/mine", withActor(seller), handler.GetMyListings)

	mockListingSvc.On("FindListingsByOwner", mock.Anything, seller.ID).
		Return([]models.Listing{{Status: models.ListingStatusDraft}}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listing/mine", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_AddAttachment_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)
	seller := testSeller()

	r := gin.New()
	r.POST("/v1/listing/:id/attachment", withActor(seller), handler.AddAttachment)

	mockListingSvc.On("AddAttachment", mock.Anything, seller, "lst-1", mock.MatchedBy(func(a models.Attachment) bool {
		return a.Key == "listings/seller-1/lst-1/abc_pump.jpg" && a.Primary
	})).Return(nil)

	body := `{"key":"listings/seller-1/lst-1/abc_pump.jpg","content_type":"image/jpeg","primary":true}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing/lst-1/attachment", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockListingSvc.AssertExpectations(t)
}

func TestRestListingHandler_GetAttachmentUploadURL_StorageUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewRestListingHandler(mockListingSvc, nil, nil, nil)
	seller := testSeller()

	r := gin.New()
	r.POST("/v1/listing/:id/attachment/upload-url", withActor(seller), handler.GetAttachmentUploadURL)

	body := `{"filename":"pump.jpg","content_type":"image/jpeg"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/listing/lst-1/attachment/upload-url", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	mockListingSvc.AssertNotCalled(t, "FindListingByID")
}
