package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ayewealth/harbourhub/internal/apperr"
	"github.com/Ayewealth/harbourhub/internal/auth"
	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/db"
	"github.com/Ayewealth/harbourhub/internal/events"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/policy"
)

// IUserService defines the interface for account and verification operations.
type IUserService interface {
	Register(ctx context.Context, email, password, name string, role models.Role) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindUserByID(ctx context.Context, userID string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, actor *models.User, userID string, updates map[string]interface{}) (*models.User, error)
	ChangeRole(ctx context.Context, actor *models.User, targetID string, newRole models.Role) (*models.User, error)
	SetSuspended(ctx context.Context, actor *models.User, targetID string, suspended bool) error
	SubmitVerificationRequest(ctx context.Context, actor *models.User, companyName string, documentKeys []string, certifications, references string) (*models.VerificationRequest, error)
	ReviewVerificationRequest(ctx context.Context, actor *models.User, requestID string, approve bool, notes string) (*models.VerificationRequest, error)
	ListPendingVerificationRequests(ctx context.Context) ([]models.VerificationRequest, error)
}

const (
	usersCollection         = "users"
	verificationsCollection = "verification_requests"
)

// userService implements IUserService.
type userService struct {
	db      *mongo.Database
	cfg     *config.Config
	emitter events.Emitter
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config, emitter events.Emitter) IUserService {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &userService{db: database, cfg: cfg, emitter: emitter}
}

// Register creates an account. Self-registration is limited to the
// non-administrative roles; admins are minted by other admins via ChangeRole.
func (s *userService) Register(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("user", "", "a valid email address is required")
	}
	if len(password) < s.cfg.PasswordMinLength {
		return nil, apperr.Validation("user", "", fmt.Sprintf("password must be at least %d characters", s.cfg.PasswordMinLength))
	}
	if role == "" {
		role = models.RoleBuyer
	}
	if !role.Valid() || role.IsAdmin() {
		return nil, apperr.Validation("user", "", fmt.Sprintf("cannot self-register with role %q", role))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		Base:         models.NewBase(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.Collection(usersCollection).InsertOne(ctx, user)
	if db.IsMongoDuplicateKeyError(err) {
		return nil, apperr.Validation("user", "", fmt.Sprintf("email %s is already registered", email))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert user %s: %w", email, err)
	}
	return user, nil
}

// Authenticate verifies credentials and returns the account. Suspended and
// deleted accounts cannot log in.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			// Same failure as a wrong password; do not leak which emails exist.
			return nil, apperr.Permission("user", "", "login", "invalid email or password")
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Permission("user", "", "login", "invalid email or password")
	}
	if user.Suspended {
		return nil, apperr.Permission("user", user.ID, "login", "account is suspended")
	}
	return user, nil
}

// FindUserByID returns a non-deleted user.
func (s *userService) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID, "deleted": false}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID, err)
	}
	return &user, nil
}

// FindUserByEmail returns a non-deleted user by lowercased email.
func (s *userService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": strings.ToLower(email), "deleted": false}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// UpdateProfile edits profile fields. A user edits their own profile; admins
// may edit anyone they can manage.
func (s *userService) UpdateProfile(ctx context.Context, actor *models.User, userID string, updates map[string]interface{}) (*models.User, error) {
	target, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if actor.ID != target.ID && !actor.CanManage(target) {
		return nil, apperr.Permission("user", userID, "update", "cannot edit another user's profile")
	}

	allowed := map[string]bool{
		"name": true, "company": true, "phone": true, "location": true,
		"notification_preferences": true,
	}
	set := bson.M{}
	for k, v := range updates {
		if !allowed[k] {
			return nil, apperr.Validation("user", userID, fmt.Sprintf("field %q cannot be updated", k))
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil, apperr.Validation("user", userID, "no updatable fields provided")
	}
	set["updated_at"] = time.Now().UTC()

	if _, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set}); err != nil {
		return nil, fmt.Errorf("db error updating user %s: %w", userID, err)
	}
	return s.FindUserByID(ctx, userID)
}

// ChangeRole elevates a user's role. Downgrades and non-admin actors are
// rejected by policy.
func (s *userService) ChangeRole(ctx context.Context, actor *models.User, targetID string, newRole models.Role) (*models.User, error) {
	target, err := s.FindUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanChangeRole(actor, target, newRole); err != nil {
		return nil, err
	}

	_, err = s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$set": bson.M{"role": newRole, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return nil, fmt.Errorf("db error changing role of user %s: %w", targetID, err)
	}

	s.emitter.Notify(ctx, events.KindRoleChanged, targetID, map[string]any{
		"user_id":  targetID,
		"old_role": string(target.Role),
		"new_role": string(newRole),
		"actor_id": actor.ID,
	})
	return s.FindUserByID(ctx, targetID)
}

// SetSuspended flips the account suspension flag. Admin gate is the same as
// for role changes.
func (s *userService) SetSuspended(ctx context.Context, actor *models.User, targetID string, suspended bool) error {
	target, err := s.FindUserByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !actor.Role.IsAdmin() || !actor.CanManage(target) {
		return apperr.Permission("user", targetID, "suspend", "insufficient privileges to manage this user")
	}
	_, err = s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$set": bson.M{"suspended": suspended, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error setting suspended=%t on user %s: %w", suspended, targetID, err)
	}
	return nil
}

// SubmitVerificationRequest files an application to become a verified
// provider. One pending request per user at a time.
func (s *userService) SubmitVerificationRequest(ctx context.Context, actor *models.User, companyName string, documentKeys []string, certifications, references string) (*models.VerificationRequest, error) {
	if actor.Role != models.RoleSeller && actor.Role != models.RoleServiceProvider {
		return nil, apperr.Permission("verification", "", "submit", fmt.Sprintf("role %s cannot request verification", actor.Role))
	}
	if actor.Verified {
		return nil, apperr.Validation("verification", "", "account is already verified")
	}
	if strings.TrimSpace(companyName) == "" {
		return nil, apperr.Validation("verification", "", "company name is required")
	}
	if len(documentKeys) == 0 {
		return nil, apperr.Validation("verification", "", "at least one supporting document is required")
	}

	collection := s.db.Collection(verificationsCollection)
	count, err := collection.CountDocuments(ctx, bson.M{"user_id": actor.ID, "status": models.VerificationPending})
	if err != nil {
		return nil, fmt.Errorf("error checking pending verifications for user %s: %w", actor.ID, err)
	}
	if count > 0 {
		return nil, apperr.Validation("verification", "", "a verification request is already pending")
	}

	request := &models.VerificationRequest{
		Base:           models.NewBase(),
		UserID:         actor.ID,
		CompanyName:    companyName,
		DocumentKeys:   documentKeys,
		Certifications: certifications,
		References:     references,
		Status:         models.VerificationPending,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := collection.InsertOne(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to insert verification request for user %s: %w", actor.ID, err)
	}
	return request, nil
}

// ReviewVerificationRequest approves or rejects a pending request. Approval
// sets the applicant's Verified flag. The update is guarded on pending
// status, so two admins racing on the same request resolve to one decision.
func (s *userService) ReviewVerificationRequest(ctx context.Context, actor *models.User, requestID string, approve bool, notes string) (*models.VerificationRequest, error) {
	if err := policy.CanReviewVerification(actor); err != nil {
		return nil, err
	}

	collection := s.db.Collection(verificationsCollection)
	var request models.VerificationRequest
	err := collection.FindOne(ctx, bson.M{"_id": requestID}).Decode(&request)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("verification", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding verification request %s: %w", requestID, err)
	}

	newStatus := models.VerificationRejected
	if approve {
		newStatus = models.VerificationApproved
	}
	now := time.Now().UTC()

	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": models.VerificationPending},
		bson.M{"$set": bson.M{
			"status":      newStatus,
			"reviewed_by": actor.ID,
			"admin_notes": notes,
			"reviewed_at": now,
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("db error reviewing verification request %s: %w", requestID, err)
	}
	if result.MatchedCount == 0 {
		return nil, apperr.State("verification", requestID, "review", string(request.Status), "request has already been reviewed")
	}

	if approve {
		_, err = s.db.Collection(usersCollection).UpdateOne(ctx,
			bson.M{"_id": request.UserID},
			bson.M{"$set": bson.M{"verified": true, "updated_at": now}},
		)
		if err != nil {
			return nil, fmt.Errorf("db error marking user %s verified: %w", request.UserID, err)
		}
	}

	decision := "rejected"
	if approve {
		decision = "approved"
	}
	s.emitter.Notify(ctx, events.KindVerificationDecided, request.UserID, map[string]any{
		"request_id": requestID,
		"decision":   decision,
		"notes":      notes,
	})

	err = collection.FindOne(ctx, bson.M{"_id": requestID}).Decode(&request)
	if err != nil {
		return nil, fmt.Errorf("error reloading verification request %s: %w", requestID, err)
	}
	return &request, nil
}

// ListPendingVerificationRequests returns the admin review queue, oldest first.
func (s *userService) ListPendingVerificationRequests(ctx context.Context) ([]models.VerificationRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.db.Collection(verificationsCollection).Find(ctx, bson.M{"status": models.VerificationPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing pending verification requests: %w", err)
	}
	var requests []models.VerificationRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("error decoding verification requests: %w", err)
	}
	return requests, nil
}
