package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Ayewealth/harbourhub/internal/api/handlers"
	"github.com/Ayewealth/harbourhub/internal/apperr"
	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/models"
)

func testUserHandlerConfig() *config.Config {
	return &config.Config{JwtSecret: "test-secret-for-handler-tests", JwtTTL: time.Hour}
}

func TestRestUserHandler_Register_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(mockUserSvc, nil, testUserHandlerConfig())

	r := gin.New()
	r.POST("/v1/auth/register", handler.Register)

	created := &models.User{Email: "ada@rig.example.com", Name: "Ada", Role: models.RoleSeller}
	created.ID = "user-1"
	mockUserSvc.On("Register", mock.Anything, "ada@rig.example.com", "str0ng-pass", "Ada", models.RoleSeller).
		Return(created, nil)

	body := `{"email":"ada@rig.example.com","password":"str0ng-pass","name":"Ada","role":"seller"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.NotEmpty(t, respBody["token"])
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_Register_DefaultsToBuyer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(mockUserSvc, nil, testUserHandlerConfig())

	r := gin.New()
	r.POST("/v1/auth/register", handler.Register)

	created := &models.User{Email: "bob@example.com", Role: models.RoleBuyer}
	created.ID = "user-2"
	mockUserSvc.On("Register", mock.Anything, "bob@example.com", "str0ng-pass", "Bob", models.RoleBuyer).
		Return(created, nil)

	body := `{"email":"bob@example.com","password":"str0ng-pass","name":"Bob"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_Login_InvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(mockUserSvc, nil, testUserHandlerConfig())

	r := gin.New()
	r.POST("/v1/auth/login", handler.Login)

	mockUserSvc.On("Authenticate", mock.Anything, "ada@rig.example.com", "wrong").
		Return(nil, apperr.Permission("user", "", "authenticate", "invalid email or password"))

	body := `{"email":"ada@rig.example.com","password":"wrong"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_GetUserByID_PublicShapeOmitsEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(mockUserSvc, nil, testUserHandlerConfig())

	r := gin.New()
	r.GET("/v1/user/:id", handler.GetUserByID)

	user := &models.User{Email: "ada@rig.example.com", Name: "Ada", Role: models.RoleSeller, Verified: true}
	user.ID = "user-1"
	mockUserSvc.On("FindUserByID", mock.Anything, "user-1").Return(user, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/user-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "Ada", respBody["name"])
	assert.NotContains(t, respBody, "email")
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_ChangeRole_DowngradeRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(mockUserSvc, nil, testUserHandlerConfig())
	admin := testAdmin()

	r := gin.New()
	r.POST("/v1/admin/user/:id/role", withActor(admin), handler.ChangeRole)

	mockUserSvc.On("ChangeRole", mock.Anything, admin, "user-1", models.RoleBuyer).
		Return(nil, apperr.Validation("user", "user-1", "roles cannot be downgraded"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/user/user-1/role", strings.NewReader(`{"role":"buyer"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_SubmitVerification_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(mockUserSvc, nil, testUserHandlerConfig())
	provider := &models.User{Role: models.RoleServiceProvider}
	provider.ID = "provider-1"

	r := gin.New()
	r.POST("/v1/verification", withActor(provider), handler.SubmitVerification)

	request := &models.VerificationRequest{
		UserID:      provider.ID,
		CompanyName: "Delta Well Services",
		Status:      models.VerificationPending,
	}
	request.ID = "vr-1"
	mockUserSvc.On("SubmitVerificationRequest", mock.Anything, provider,
		"Delta Well Services", []string{"verification/provider-1/abc_license.pdf"}, "API Q1", "").
		Return(request, nil)

	body := `{"company_name":"Delta Well Services","document_keys":["verification/provider-1/abc_license.pdf"],"certifications":"API Q1"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/verification", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var respBody models.VerificationRequest
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, models.VerificationPending, respBody.Status)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_ReviewVerification_AlreadyReviewedConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(mockUserSvc, nil, testUserHandlerConfig())
	admin := testAdmin()

	r := gin.New()
	r.POST("/v1/admin/verification/:id/review", withActor(admin), handler.ReviewVerification)

	mockUserSvc.On("ReviewVerificationRequest", mock.Anything, admin, "vr-1", true, "").
		Return(nil, apperr.State("verification_request", "vr-1", "review", "approved", "already reviewed"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/verification/vr-1/review", strings.NewReader(`{"approve":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_GetProfile_ReloadsFullRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(mockUserSvc, nil, testUserHandlerConfig())
	claimsActor := &models.User{Role: models.RoleSeller}
	claimsActor.ID = "user-1"

	r := gin.New()
	r.GET("/v1/profile", withActor(claimsActor), handler.GetProfile)

	full := &models.User{Email: "ada@rig.example.com", Name: "Ada", Role: models.RoleSeller, Company: "Rig & Co"}
	full.ID = "user-1"
	mockUserSvc.On("FindUserByID", mock.Anything, "user-1").Return(full, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/profile", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody models.User
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "Rig & Co", respBody.Company)
	mockUserSvc.AssertExpectations(t)
}
