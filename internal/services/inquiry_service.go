package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ayewealth/harbourhub/internal/apperr"
	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/events"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/policy"
)

// IInquiryService defines the interface for inquiry thread operations.
type IInquiryService interface {
	SubmitInquiry(ctx context.Context, actor *models.User, listingID, subject, message string) (*models.Inquiry, error)
	Reply(ctx context.Context, actor *models.User, inquiryID, message string) (*models.Inquiry, error)
	CloseInquiry(ctx context.Context, actor *models.User, inquiryID string) error
	FindInquiryByID(ctx context.Context, actor *models.User, inquiryID string) (*models.Inquiry, error)
	ListInquiriesForUser(ctx context.Context, userID string) ([]models.Inquiry, error)
	MarkRead(ctx context.Context, actor *models.User, inquiryID string) error
}

const inquiriesCollection = "inquiries"

// inquiryService implements IInquiryService.
type inquiryService struct {
	db       *mongo.Database
	cfg      *config.Config
	listings IListingService
	emitter  events.Emitter
}

// NewInquiryService creates a new InquiryService.
func NewInquiryService(database *mongo.Database, cfg *config.Config, listings IListingService, emitter events.Emitter) IInquiryService {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &inquiryService{db: database, cfg: cfg, listings: listings, emitter: emitter}
}

// SubmitInquiry opens a thread against an active listing. The seller side is
// frozen from the listing owner at this moment; a later ownership or role
// change never re-points existing threads.
func (s *inquiryService) SubmitInquiry(ctx context.Context, actor *models.User, listingID, subject, message string) (*models.Inquiry, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("inquiry", "", "message is required")
	}

	listing, err := s.listings.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusActive {
		return nil, apperr.Validation("inquiry", "", fmt.Sprintf("listing %s is not active", listingID))
	}
	if err := policy.CanInquire(actor, listing); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inquiry := &models.Inquiry{
		Base:      models.NewBase(),
		ListingID: listingID,
		BuyerID:   actor.ID,
		SellerID:  listing.OwnerID,
		Subject:   subject,
		Status:    models.InquiryStatusOpen,
		Messages: []models.InquiryMessage{
			{AuthorID: actor.ID, Body: message, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.Collection(inquiriesCollection).InsertOne(ctx, inquiry); err != nil {
		return nil, fmt.Errorf("failed to insert inquiry for listing %s: %w", listingID, err)
	}

	if err := s.listings.IncrementInquiryCount(ctx, listingID); err != nil {
		// The counter is denormalized convenience data, not the thread itself.
		log.Printf("WARN: inquiry counter update failed for listing %s: %v", listingID, err)
	}

	// Keys here are the placeholders the new_inquiry template renders.
	s.emitter.Notify(ctx, events.KindInquiryCreated, inquiry.SellerID, map[string]any{
		"inquiry_id":    inquiry.ID,
		"listing_id":    listingID,
		"listing_title": listing.Title,
		"buyer_name":    actor.Name,
		"subject":       subject,
		"message":       message,
	})
	return inquiry, nil
}

// Reply appends a message to the thread. Only the two frozen participants may
// post; the counterparty gets a notification.
func (s *inquiryService) Reply(ctx context.Context, actor *models.User, inquiryID, message string) (*models.Inquiry, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("inquiry", inquiryID, "message is required")
	}

	inquiry, err := s.findByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanReply(actor, inquiry); err != nil {
		return nil, err
	}
	if inquiry.Status == models.InquiryStatusClosed {
		return nil, apperr.State("inquiry", inquiryID, "reply", string(inquiry.Status), "cannot reply to a closed inquiry")
	}

	now := time.Now().UTC()
	msg := models.InquiryMessage{AuthorID: actor.ID, Body: message, CreatedAt: now}

	// Guard on status so a reply racing a close loses cleanly.
	result, err := s.db.Collection(inquiriesCollection).UpdateOne(ctx,
		bson.M{"_id": inquiryID, "status": bson.M{"$ne": models.InquiryStatusClosed}},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"status": models.InquiryStatusReplied, "replied_at": now, "updated_at": now},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("db error replying to inquiry %s: %w", inquiryID, err)
	}
	if result.MatchedCount == 0 {
		return nil, apperr.State("inquiry", inquiryID, "reply", string(models.InquiryStatusClosed), "inquiry was closed concurrently")
	}

	s.emitter.Notify(ctx, events.KindInquiryReplied, inquiry.Counterparty(actor.ID), map[string]any{
		"inquiry_id":  inquiryID,
		"listing_id":  inquiry.ListingID,
		"author_name": actor.Name,
		"subject":     inquiry.Subject,
		"message":     message,
	})
	return s.findByID(ctx, inquiryID)
}

// CloseInquiry ends the thread. Participants and admins only; closing an
// already-closed inquiry is a no-op.
func (s *inquiryService) CloseInquiry(ctx context.Context, actor *models.User, inquiryID string) error {
	inquiry, err := s.findByID(ctx, inquiryID)
	if err != nil {
		return err
	}
	if err := policy.CanViewInquiry(actor, inquiry); err != nil {
		return err
	}
	if inquiry.Status == models.InquiryStatusClosed {
		return nil
	}

	now := time.Now().UTC()
	_, err = s.db.Collection(inquiriesCollection).UpdateOne(ctx,
		bson.M{"_id": inquiryID},
		bson.M{"$set": bson.M{"status": models.InquiryStatusClosed, "closed_at": now, "updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("db error closing inquiry %s: %w", inquiryID, err)
	}
	return nil
}

// FindInquiryByID returns the inquiry if the actor is a participant or admin.
func (s *inquiryService) FindInquiryByID(ctx context.Context, actor *models.User, inquiryID string) (*models.Inquiry, error) {
	inquiry, err := s.findByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanViewInquiry(actor, inquiry); err != nil {
		return nil, err
	}
	return inquiry, nil
}

func (s *inquiryService) findByID(ctx context.Context, inquiryID string) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := s.db.Collection(inquiriesCollection).FindOne(ctx, bson.M{"_id": inquiryID}).Decode(&inquiry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("inquiry", inquiryID)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding inquiry by ID %s: %w", inquiryID, err)
	}
	return &inquiry, nil
}

// ListInquiriesForUser returns every thread the user participates in, both
// sides, most recently updated first.
func (s *inquiryService) ListInquiriesForUser(ctx context.Context, userID string) ([]models.Inquiry, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"buyer_id": userID},
		bson.M{"seller_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.db.Collection(inquiriesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing inquiries for user %s: %w", userID, err)
	}
	var inquiries []models.Inquiry
	if err := cursor.All(ctx, &inquiries); err != nil {
		return nil, fmt.Errorf("error decoding inquiries for user %s: %w", userID, err)
	}
	return inquiries, nil
}

// MarkRead stamps read_at for the seller-side unread indicator.
func (s *inquiryService) MarkRead(ctx context.Context, actor *models.User, inquiryID string) error {
	inquiry, err := s.findByID(ctx, inquiryID)
	if err != nil {
		return err
	}
	if err := policy.CanViewInquiry(actor, inquiry); err != nil {
		return err
	}
	_, err = s.db.Collection(inquiriesCollection).UpdateOne(ctx,
		bson.M{"_id": inquiryID},
		bson.M{"$set": bson.M{"read_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error marking inquiry %s read: %w", inquiryID, err)
	}
	return nil
}
