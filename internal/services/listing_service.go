package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ayewealth/harbourhub/internal/apperr"
	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/db"
	"github.com/Ayewealth/harbourhub/internal/events"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/policy"
	"github.com/Ayewealth/harbourhub/internal/utils"
)

// CreateListingInput carries the caller-supplied fields for a new listing.
type CreateListingInput struct {
	CategoryID  string
	Title       string
	Description string
	Type        models.ListingType
	Price       *models.Price
	Location    string
	Country     string
	Metadata    models.Metadata
	ServiceArea string
}

// SearchListingsOptions narrows a buyer-facing search. CategoryID, when set,
// matches the whole subtree rooted there. Cursor is opaque to callers: it
// encodes the sort position (featured flag plus created_at) of the last
// listing from the previous page.
type SearchListingsOptions struct {
	Query      *string
	CategoryID *string
	Type       *models.ListingType
	Country    *string
	MaxPrice   *float64
	Limit      int
	Cursor     *string
}

// IListingService defines the interface for listing lifecycle operations.
type IListingService interface {
	CreateListing(ctx context.Context, actor *models.User, input CreateListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID string) (*models.Listing, error)
	UpdateListing(ctx context.Context, actor *models.User, listingID string, updates map[string]interface{}) (*models.Listing, error)
	Transition(ctx context.Context, actor *models.User, listingID string, target models.ListingStatus) (*models.Listing, error)
	DeleteListing(ctx context.Context, actor *models.User, listingID string) error
	SearchListings(ctx context.Context, opts SearchListingsOptions) ([]models.Listing, *string, error)
	FindListingsByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	AddAttachment(ctx context.Context, actor *models.User, listingID string, attachment models.Attachment) error
	IncrementViewCount(ctx context.Context, listingID string) error
	IncrementInquiryCount(ctx context.Context, listingID string) error
	CloseExpiredListings(ctx context.Context) (int64, error)
}

const listingsCollection = "listings"

// listingService implements IListingService.
type listingService struct {
	db         *mongo.Database
	cfg        *config.Config
	categories ICategoryService
	emitter    events.Emitter
}

// NewListingService creates a new ListingService.
func NewListingService(database *mongo.Database, cfg *config.Config, categories ICategoryService, emitter events.Emitter) IListingService {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &listingService{db: database, cfg: cfg, categories: categories, emitter: emitter}
}

// CreateListing creates a listing in draft state. The actor's role must
// permit the listing type, and the category (with all its ancestors) must be
// active.
func (s *listingService) CreateListing(ctx context.Context, actor *models.User, input CreateListingInput) (*models.Listing, error) {
	if !input.Type.Valid() {
		return nil, apperr.Validation("listing", "", fmt.Sprintf("unknown listing type %q", input.Type))
	}
	if err := policy.CanCreateListing(actor, input.Type); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperr.Validation("listing", "", "title is required")
	}

	active, err := s.categories.IsEffectivelyActive(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperr.Validation("listing", "", fmt.Sprintf("category %s is not active", input.CategoryID))
	}

	collection := s.db.Collection(listingsCollection)
	now := time.Now().UTC()
	baseSlug := utils.Slugify(input.Title)
	if baseSlug == "" {
		return nil, apperr.Validation("listing", "", "title must contain at least one letter or digit")
	}

	newListing := &models.Listing{
		Base:        models.NewBase(),
		OwnerID:     actor.ID,
		CategoryID:  input.CategoryID,
		Title:       input.Title,
		Slug:        baseSlug,
		Description: input.Description,
		Type:        input.Type,
		Status:      models.ListingStatusDraft,
		Price:       input.Price,
		Location:    input.Location,
		Country:     input.Country,
		Metadata:    input.Metadata,
		ServiceArea: input.ServiceArea,
		Attachments: []models.Attachment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	attempt := 0
	operation := func() error {
		if attempt > 0 {
			// Slug taken; disambiguate and retry with a fresh ID.
			newListing.Slug = fmt.Sprintf("%s-%d", baseSlug, attempt+1)
			newListing.GenID()
		}
		attempt++
		_, insertErr := collection.InsertOne(ctx, newListing)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert new listing for user %s after multiple retries: %w", actor.ID, err)
	}

	s.emitter.Analytics(ctx, events.KindListingCreated, map[string]any{
		"listing_id":  newListing.ID,
		"owner_id":    actor.ID,
		"category_id": input.CategoryID,
		"type":        string(input.Type),
	})
	return newListing, nil
}

// FindListingByID finds a non-deleted listing by its ID. It does NOT check
// ownership or status; callers gate visibility themselves (draft listings are
// only shown to their owner and admins).
func (s *listingService) FindListingByID(ctx context.Context, listingID string) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID, "deleted": false}).Decode(&listing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("listing", listingID)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding listing by ID %s: %w", listingID, err)
	}
	return &listing, nil
}

// UpdateListing edits listing content. Only a whitelisted field set can
// change this way; status moves exclusively through Transition.
func (s *listingService) UpdateListing(ctx context.Context, actor *models.User, listingID string, updates map[string]interface{}) (*models.Listing, error) {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanUpdateListing(actor, listing); err != nil {
		return nil, err
	}

	allowed := map[string]bool{
		"title": true, "description": true, "price": true, "location": true,
		"country": true, "metadata": true, "service_area": true,
	}
	set := bson.M{}
	for k, v := range updates {
		if !allowed[k] {
			return nil, apperr.Validation("listing", listingID, fmt.Sprintf("field %q cannot be updated", k))
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil, apperr.Validation("listing", listingID, "no updatable fields provided")
	}
	set["updated_at"] = time.Now().UTC()

	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, bson.M{"_id": listingID, "deleted": false}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("db error updating listing %s: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return nil, apperr.NotFound("listing", listingID)
	}
	return s.FindListingByID(ctx, listingID)
}

// Transition moves a listing along a lifecycle edge. The update is guarded by
// a conditional filter on the current status, so two racing transitions can
// never both apply: the loser's filter no longer matches and the miss is
// re-diagnosed into the right typed error.
func (s *listingService) Transition(ctx context.Context, actor *models.User, listingID string, target models.ListingStatus) (*models.Listing, error) {
	if !target.Valid() {
		return nil, apperr.Validation("listing", listingID, fmt.Sprintf("unknown listing status %q", target))
	}

	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanTransition(actor, listing, target); err != nil {
		return nil, err
	}

	from := listing.Status
	now := time.Now().UTC()
	set := bson.M{"status": target, "updated_at": now}
	unset := bson.M{}
	switch target {
	case models.ListingStatusActive:
		if listing.PublishedAt == nil {
			set["published_at"] = now
		}
		if s.cfg.ListingTTLDays > 0 {
			set["expires_at"] = now.AddDate(0, 0, s.cfg.ListingTTLDays)
		}
		unset["closed_at"] = ""
	case models.ListingStatusClosed:
		set["closed_at"] = now
		unset["expires_at"] = ""
	case models.ListingStatusDraft:
		unset["expires_at"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	filter := bson.M{"_id": listingID, "status": from, "deleted": false}
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("db error transitioning listing %s to %s: %w", listingID, target, err)
	}
	if result.MatchedCount == 0 {
		// Diagnose why the guarded update missed.
		current, checkErr := s.FindListingByID(ctx, listingID)
		if checkErr != nil {
			return nil, checkErr
		}
		return nil, apperr.State("listing", listingID, "transition", string(current.Status),
			fmt.Sprintf("listing moved from %s to %s concurrently", from, current.Status))
	}

	s.emitter.Notify(ctx, events.KindListingTransitioned, listing.OwnerID, map[string]any{
		"listing_id":    listingID,
		"listing_title": listing.Title,
		"from":          string(from),
		"to":            string(target),
		"actor_id":      actor.ID,
	})
	s.emitter.Analytics(ctx, events.KindListingTransitioned, map[string]any{
		"listing_id": listingID,
		"from":       string(from),
		"to":         string(target),
	})

	return s.FindListingByID(ctx, listingID)
}

// DeleteListing soft-deletes a listing. Owner or admin only.
func (s *listingService) DeleteListing(ctx context.Context, actor *models.User, listingID string) error {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if err := policy.CanUpdateListing(actor, listing); err != nil {
		return err
	}
	_, err = s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error deleting listing %s: %w", listingID, err)
	}
	return nil
}

// SearchListings runs the buyer-facing search: active, non-deleted listings
// in effectively-active categories only. Returns the page and the cursor for
// the next one (nil when exhausted).
func (s *listingService) SearchListings(ctx context.Context, opts SearchListingsOptions) ([]models.Listing, *string, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	filter := bson.M{
		"status":  models.ListingStatusActive,
		"deleted": false,
	}
	if opts.Query != nil && strings.TrimSpace(*opts.Query) != "" {
		filter["$text"] = bson.M{"$search": *opts.Query}
	}
	if opts.Type != nil {
		filter["type"] = *opts.Type
	}
	if opts.Country != nil {
		filter["country"] = *opts.Country
	}
	if opts.MaxPrice != nil {
		filter["price.value"] = bson.M{"$lte": *opts.MaxPrice}
	}

	visibleCategories, err := s.visibleCategoryIDs(ctx, opts.CategoryID)
	if err != nil {
		return nil, nil, err
	}
	filter["category_id"] = bson.M{"$in": visibleCategories}

	if opts.Cursor != nil {
		cursorFeatured, cursorTime, parseErr := parseSearchCursor(*opts.Cursor)
		if parseErr != nil {
			return nil, nil, apperr.Validation("listing", "", "malformed search cursor")
		}
		// The sort is (featured desc, created_at desc), so the position after
		// a featured listing includes every non-featured one; after a
		// non-featured listing only older non-featured ones remain.
		if cursorFeatured {
			filter["$or"] = []bson.M{
				{"featured": true, "created_at": bson.M{"$lt": cursorTime}},
				{"featured": false},
			}
		} else {
			filter["featured"] = false
			filter["created_at"] = bson.M{"$lt": cursorTime}
		}
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "featured", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("error searching listings: %w", err)
	}
	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, nil, fmt.Errorf("error decoding listing search results: %w", err)
	}

	var nextCursor *string
	if len(listings) == limit {
		last := listings[len(listings)-1]
		c := encodeSearchCursor(last.Featured, last.CreatedAt)
		nextCursor = &c
	}
	return listings, nextCursor, nil
}

func encodeSearchCursor(featured bool, createdAt time.Time) string {
	return fmt.Sprintf("%t|%s", featured, createdAt.Format(time.RFC3339Nano))
}

func parseSearchCursor(s string) (bool, time.Time, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return false, time.Time{}, fmt.Errorf("cursor %q: missing separator", s)
	}
	featured, err := strconv.ParseBool(parts[0])
	if err != nil {
		return false, time.Time{}, fmt.Errorf("cursor %q: %w", s, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return false, time.Time{}, fmt.Errorf("cursor %q: %w", s, err)
	}
	return featured, createdAt, nil
}

// visibleCategoryIDs resolves the effectively-active category set, optionally
// narrowed to the subtree rooted at rootID. The table is small, so computing
// this per search is fine; the tree itself is usually served from cache.
func (s *listingService) visibleCategoryIDs(ctx context.Context, rootID *string) ([]string, error) {
	cats, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	var root *models.Category
	if rootID != nil {
		for i := range cats {
			if cats[i].ID == *rootID {
				root = &cats[i]
				break
			}
		}
		if root == nil {
			return nil, apperr.NotFound("category", *rootID)
		}
	}

	// A node is visible when it and every ancestor are active. Walking in
	// lft order, an inactive node hides its whole bounds interval.
	ids := make([]string, 0, len(cats))
	hiddenUntil := 0
	for i := range cats {
		c := &cats[i]
		if c.Lft <= hiddenUntil {
			continue
		}
		if !c.Active {
			if c.Rgt > hiddenUntil {
				hiddenUntil = c.Rgt
			}
			continue
		}
		if root != nil && !root.Contains(c) {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// FindListingsByOwner returns all of a user's non-deleted listings, any status.
func (s *listingService) FindListingsByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, bson.M{"owner_id": ownerID, "deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding listings for owner %s: %w", ownerID, err)
	}
	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("error decoding listings for owner %s: %w", ownerID, err)
	}
	return listings, nil
}

// AddAttachment appends an attachment reference after the client has uploaded
// the blob to the presigned URL.
func (s *listingService) AddAttachment(ctx context.Context, actor *models.User, listingID string, attachment models.Attachment) error {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if err := policy.CanUpdateListing(actor, listing); err != nil {
		return err
	}
	if attachment.Key == "" {
		return apperr.Validation("listing", listingID, "attachment key is required")
	}
	attachment.CreatedAt = time.Now().UTC()

	collection := s.db.Collection(listingsCollection)
	if attachment.Primary {
		// At most one attachment is primary. Demote the current one first;
		// this cannot share an update with the $push below because Mongo
		// rejects writes touching the attachments path twice.
		_, err = collection.UpdateOne(ctx,
			bson.M{"_id": listingID, "deleted": false},
			bson.M{"$set": bson.M{"attachments.$[].primary": false}},
		)
		if err != nil {
			return fmt.Errorf("db error demoting primary attachment on listing %s: %w", listingID, err)
		}
	}

	_, err = collection.UpdateOne(ctx,
		bson.M{"_id": listingID, "deleted": false},
		bson.M{
			"$push": bson.M{"attachments": attachment},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("db error adding attachment to listing %s: %w", listingID, err)
	}
	return nil
}

// IncrementViewCount bumps the denormalized view counter. The per-view
// analytics record is written by the background worker, not here.
func (s *listingService) IncrementViewCount(ctx context.Context, listingID string) error {
	_, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID},
		bson.M{"$inc": bson.M{"views_count": 1}},
	)
	if err != nil {
		return fmt.Errorf("db error incrementing view count for listing %s: %w", listingID, err)
	}
	return nil
}

// IncrementInquiryCount bumps the denormalized inquiry counter.
func (s *listingService) IncrementInquiryCount(ctx context.Context, listingID string) error {
	_, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID},
		bson.M{"$inc": bson.M{"inquiries_count": 1}},
	)
	if err != nil {
		return fmt.Errorf("db error incrementing inquiry count for listing %s: %w", listingID, err)
	}
	return nil
}

// CloseExpiredListings closes every active listing whose expires_at has
// passed and notifies each owner. Run periodically by the background worker.
func (s *listingService) CloseExpiredListings(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	collection := s.db.Collection(listingsCollection)

	expiredFilter := bson.M{
		"status":     models.ListingStatusActive,
		"deleted":    false,
		"expires_at": bson.M{"$lte": now},
	}
	cursor, err := collection.Find(ctx, expiredFilter,
		options.Find().SetProjection(bson.M{"_id": 1, "owner_id": 1, "title": 1}))
	if err != nil {
		return 0, fmt.Errorf("db error finding expired listings: %w", err)
	}
	var expired []models.Listing
	if err := cursor.All(ctx, &expired); err != nil {
		return 0, fmt.Errorf("error decoding expired listings: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, len(expired))
	for i := range expired {
		ids[i] = expired[i].ID
	}
	// Guard on status so a listing reopened between the read and the write
	// is left alone.
	result, err := collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": models.ListingStatusActive},
		bson.M{
			"$set":   bson.M{"status": models.ListingStatusClosed, "closed_at": now, "updated_at": now},
			"$unset": bson.M{"expires_at": ""},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("db error closing expired listings: %w", err)
	}

	for i := range expired {
		l := &expired[i]
		s.emitter.Notify(ctx, events.KindListingExpired, l.OwnerID, map[string]any{
			"listing_id":    l.ID,
			"listing_title": l.Title,
		})
	}
	return result.ModifiedCount, nil
}
