package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/services"
)

// --- Mocks ---

// MockCategoryService
type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) CreateCategory(ctx context.Context, actor *models.User, name, description, icon string, parentID *string, sortOrder int) (*models.Category, error) {
	args := m.Called(ctx, actor, name, description, icon, parentID, sortOrder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}
func (m *MockCategoryService) UpdateCategory(ctx context.Context, actor *models.User, categoryID string, updates map[string]interface{}) (*models.Category, error) {
	args := m.Called(ctx, actor, categoryID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}
func (m *MockCategoryService) MoveCategory(ctx context.Context, actor *models.User, categoryID string, newParentID *string) error {
	args := m.Called(ctx, actor, categoryID, newParentID)
	return args.Error(0)
}
func (m *MockCategoryService) DeactivateCategory(ctx context.Context, actor *models.User, categoryID string) error {
	args := m.Called(ctx, actor, categoryID)
	return args.Error(0)
}
func (m *MockCategoryService) ReactivateCategory(ctx context.Context, actor *models.User, categoryID string) error {
	args := m.Called(ctx, actor, categoryID)
	return args.Error(0)
}
func (m *MockCategoryService) FindCategoryByID(ctx context.Context, categoryID string) (*models.Category, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}
func (m *MockCategoryService) PathTo(ctx context.Context, categoryID string) ([]models.Category, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}
func (m *MockCategoryService) Subtree(ctx context.Context, categoryID string) ([]models.Category, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}
func (m *MockCategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}
func (m *MockCategoryService) Tree(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
func (m *MockCategoryService) IsEffectivelyActive(ctx context.Context, categoryID string) (bool, error) {
	args := m.Called(ctx, categoryID)
	return args.Bool(0), args.Error(1)
}

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, actor *models.User, input services.CreateListingInput) (*models.Listing, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}
func (m *MockListingService) FindListingByID(ctx context.Context, listingID string) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}
func (m *MockListingService) UpdateListing(ctx context.Context, actor *models.User, listingID string, updates map[string]interface{}) (*models.Listing, error) {
	args := m.Called(ctx, actor, listingID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}
func (m *MockListingService) Transition(ctx context.Context, actor *models.User, listingID string, target models.ListingStatus) (*models.Listing, error) {
	args := m.Called(ctx, actor, listingID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}
func (m *MockListingService) DeleteListing(ctx context.Context, actor *models.User, listingID string) error {
	args := m.Called(ctx, actor, listingID)
	return args.Error(0)
}
func (m *MockListingService) SearchListings(ctx context.Context, opts services.SearchListingsOptions) ([]models.Listing, *string, error) {
	args := m.Called(ctx, opts)
	var listings []models.Listing
	if args.Get(0) != nil {
		listings = args.Get(0).([]models.Listing)
	}
	var cursor *string
	if args.Get(1) != nil {
		cursor = args.Get(1).(*string)
	}
	return listings, cursor, args.Error(2)
}
func (m *MockListingService) FindListingsByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}
func (m *MockListingService) AddAttachment(ctx context.Context, actor *models.User, listingID string, attachment models.Attachment) error {
	args := m.Called(ctx, actor, listingID, attachment)
	return args.Error(0)
}
func (m *MockListingService) IncrementViewCount(ctx context.Context, listingID string) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}
func (m *MockListingService) IncrementInquiryCount(ctx context.Context, listingID string) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}
func (m *MockListingService) CloseExpiredListings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) SubmitInquiry(ctx context.Context, actor *models.User, listingID, subject, message string) (*models.Inquiry, error) {
	args := m.Called(ctx, actor, listingID, subject, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) Reply(ctx context.Context, actor *models.User, inquiryID, message string) (*models.Inquiry, error) {
	args := m.Called(ctx, actor, inquiryID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) CloseInquiry(ctx context.Context, actor *models.User, inquiryID string) error {
	args := m.Called(ctx, actor, inquiryID)
	return args.Error(0)
}
func (m *MockInquiryService) FindInquiryByID(ctx context.Context, actor *models.User, inquiryID string) (*models.Inquiry, error) {
	args := m.Called(ctx, actor, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) ListInquiriesForUser(ctx context.Context, userID string) ([]models.Inquiry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) MarkRead(ctx context.Context, actor *models.User, inquiryID string) error {
	args := m.Called(ctx, actor, inquiryID)
	return args.Error(0)
}

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	args := m.Called(ctx, email, password, name, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) UpdateProfile(ctx context.Context, actor *models.User, userID string, updates map[string]interface{}) (*models.User, error) {
	args := m.Called(ctx, actor, userID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) ChangeRole(ctx context.Context, actor *models.User, targetID string, newRole models.Role) (*models.User, error) {
	args := m.Called(ctx, actor, targetID, newRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) SetSuspended(ctx context.Context, actor *models.User, targetID string, suspended bool) error {
	args := m.Called(ctx, actor, targetID, suspended)
	return args.Error(0)
}
func (m *MockUserService) SubmitVerificationRequest(ctx context.Context, actor *models.User, companyName string, documentKeys []string, certifications, references string) (*models.VerificationRequest, error) {
	args := m.Called(ctx, actor, companyName, documentKeys, certifications, references)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerificationRequest), args.Error(1)
}
func (m *MockUserService) ReviewVerificationRequest(ctx context.Context, actor *models.User, requestID string, approve bool, notes string) (*models.VerificationRequest, error) {
	args := m.Called(ctx, actor, requestID, approve, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerificationRequest), args.Error(1)
}
func (m *MockUserService) ListPendingVerificationRequests(ctx context.Context) ([]models.VerificationRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VerificationRequest), args.Error(1)
}
