package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ayewealth/harbourhub/internal/apperr"
	"github.com/Ayewealth/harbourhub/internal/cache"
	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/db"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/policy"
	"github.com/Ayewealth/harbourhub/internal/utils"
)

// ICategoryService defines the interface for category tree operations.
type ICategoryService interface {
	CreateCategory(ctx context.Context, actor *models.User, name, description, icon string, parentID *string, sortOrder int) (*models.Category, error)
	UpdateCategory(ctx context.Context, actor *models.User, categoryID string, updates map[string]interface{}) (*models.Category, error)
	MoveCategory(ctx context.Context, actor *models.User, categoryID string, newParentID *string) error
	DeactivateCategory(ctx context.Context, actor *models.User, categoryID string) error
	ReactivateCategory(ctx context.Context, actor *models.User, categoryID string) error
	FindCategoryByID(ctx context.Context, categoryID string) (*models.Category, error)
	PathTo(ctx context.Context, categoryID string) ([]models.Category, error)
	Subtree(ctx context.Context, categoryID string) ([]models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	Tree(ctx context.Context) ([]byte, error)
	IsEffectivelyActive(ctx context.Context, categoryID string) (bool, error)
}

const categoriesCollection = "categories"

// categoryService implements ICategoryService.
type categoryService struct {
	db        *mongo.Database
	cfg       *config.Config
	treeCache *cache.TreeCache
	// mu serializes structural mutations: each one re-derives the nested-set
	// encoding from the full table, and two interleaved rebuilds could
	// persist bounds computed from different snapshots.
	mu sync.Mutex
}

// NewCategoryService creates a new CategoryService. treeCache may be nil
// (tests, tooling); reads then always go to Mongo.
func NewCategoryService(database *mongo.Database, cfg *config.Config, treeCache *cache.TreeCache) ICategoryService {
	return &categoryService{db: database, cfg: cfg, treeCache: treeCache}
}

// CreateCategory inserts a category under parentID (nil for a new root) and
// re-derives the tree encoding. The slug is generated from the name; on a
// sibling collision a numeric suffix is appended and the insert retried, but
// an explicit duplicate of an existing sibling name is rejected outright.
func (s *categoryService) CreateCategory(ctx context.Context, actor *models.User, name, description, icon string, parentID *string, sortOrder int) (*models.Category, error) {
	if err := policy.CanManageCategories(actor); err != nil {
		return nil, err
	}

	slug := utils.Slugify(name)
	if slug == "" {
		return nil, apperr.Validation("category", "", "name must contain at least one letter or digit")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != nil {
		parent, err := s.findByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !parent.Active {
			return nil, apperr.Validation("category", *parentID, "cannot create a category under an inactive parent")
		}
	}

	collection := s.db.Collection(categoriesCollection)

	// An exact sibling slug match is a caller mistake, not a collision to
	// resolve with a suffix.
	count, err := collection.CountDocuments(ctx, bson.M{"parent_id": parentID, "slug": slug})
	if err != nil {
		return nil, fmt.Errorf("error checking sibling slugs for %q: %w", slug, err)
	}
	if count > 0 {
		return nil, apperr.Validation("category", "", fmt.Sprintf("a sibling category with slug %q already exists", slug))
	}

	now := time.Now().UTC()
	newCategory := &models.Category{
		Base:        models.NewBase(),
		Name:        name,
		Slug:        slug,
		ParentID:    parentID,
		Description: description,
		Icon:        icon,
		Active:      true,
		SortOrder:   sortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	attempt := 0
	operation := func() error {
		if attempt > 0 {
			// A concurrent insert won the slug; regenerate with a suffix.
			newCategory.Slug = fmt.Sprintf("%s-%d", slug, attempt+1)
			newCategory.GenID()
		}
		attempt++
		// Insert and bounds rebuild commit together: a failed rebuild must
		// not leave a category behind with zero bounds. A duplicate key
		// aborts the whole transaction, so the retry re-runs it with the
		// regenerated slug instead of retrying the insert inside it.
		return s.runTreeMutation(ctx, func(ctx context.Context) error {
			if _, insertErr := collection.InsertOne(ctx, newCategory); insertErr != nil {
				return insertErr
			}
			return s.rebuildAndPersist(ctx)
		})
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert category %q after multiple retries: %w", name, err)
	}
	return newCategory, nil
}

// UpdateCategory changes presentation fields (name, description, icon,
// sort_order). Structure is changed only via MoveCategory. Renaming does not
// alter the slug; slugs are stable once minted.
func (s *categoryService) UpdateCategory(ctx context.Context, actor *models.User, categoryID string, updates map[string]interface{}) (*models.Category, error) {
	if err := policy.CanManageCategories(actor); err != nil {
		return nil, err
	}

	allowed := map[string]bool{"name": true, "description": true, "icon": true, "sort_order": true}
	set := bson.M{}
	for k, v := range updates {
		if !allowed[k] {
			return nil, apperr.Validation("category", categoryID, fmt.Sprintf("field %q cannot be updated", k))
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil, apperr.Validation("category", categoryID, "no updatable fields provided")
	}
	set["updated_at"] = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	collection := s.db.Collection(categoriesCollection)
	apply := func(ctx context.Context) error {
		result, err := collection.UpdateOne(ctx, bson.M{"_id": categoryID}, bson.M{"$set": set})
		if err != nil {
			return fmt.Errorf("db error updating category %s: %w", categoryID, err)
		}
		if result.MatchedCount == 0 {
			return apperr.NotFound("category", categoryID)
		}
		return nil
	}

	// sort_order participates in sibling ordering, which the encoding bakes
	// in, so that path commits together with the rebuild.
	if _, ok := set["sort_order"]; ok {
		err := s.runTreeMutation(ctx, func(ctx context.Context) error {
			if err := apply(ctx); err != nil {
				return err
			}
			return s.rebuildAndPersist(ctx)
		})
		if err != nil {
			return nil, err
		}
	} else {
		if err := apply(ctx); err != nil {
			return nil, err
		}
		s.invalidateTreeCache(ctx)
	}
	return s.findByID(ctx, categoryID)
}

// MoveCategory re-parents a category (nil newParentID promotes it to a root)
// and re-derives the encoding. Moving a node under itself or any of its
// descendants is a CycleError.
func (s *categoryService) MoveCategory(ctx context.Context, actor *models.User, categoryID string, newParentID *string) error {
	if err := policy.CanManageCategories(actor); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.findByID(ctx, categoryID)
	if err != nil {
		return err
	}

	var newParent *models.Category
	if newParentID != nil {
		newParent, err = s.findByID(ctx, *newParentID)
		if err != nil {
			return err
		}
	}

	if wouldCreateCycle(cat, newParent) {
		return apperr.Cycle("category", categoryID, "new parent lies inside the category's own subtree")
	}

	if newParentID != nil {
		// Sibling slugs must stay unique under the new parent.
		count, err := s.db.Collection(categoriesCollection).CountDocuments(ctx, bson.M{
			"parent_id": newParentID,
			"slug":      cat.Slug,
			"_id":       bson.M{"$ne": categoryID},
		})
		if err != nil {
			return fmt.Errorf("error checking sibling slugs for move of %s: %w", categoryID, err)
		}
		if count > 0 {
			return apperr.Validation("category", categoryID, fmt.Sprintf("a sibling with slug %q already exists under the new parent", cat.Slug))
		}
	}

	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if newParentID == nil {
		update["$unset"] = bson.M{"parent_id": ""}
	} else {
		update["$set"].(bson.M)["parent_id"] = *newParentID
	}
	return s.runTreeMutation(ctx, func(ctx context.Context) error {
		if _, err := s.db.Collection(categoriesCollection).UpdateOne(ctx, bson.M{"_id": categoryID}, update); err != nil {
			return fmt.Errorf("db error moving category %s: %w", categoryID, err)
		}
		return s.rebuildAndPersist(ctx)
	})
}

// DeactivateCategory hides the category (and, effectively, its whole subtree)
// from buyer-facing queries. Idempotent: deactivating an inactive category is
// a no-op, not an error.
func (s *categoryService) DeactivateCategory(ctx context.Context, actor *models.User, categoryID string) error {
	return s.setActive(ctx, actor, categoryID, false)
}

// ReactivateCategory makes the category itself active again. Descendants keep
// their own flags, and visibility still requires every ancestor to be active.
func (s *categoryService) ReactivateCategory(ctx context.Context, actor *models.User, categoryID string) error {
	return s.setActive(ctx, actor, categoryID, true)
}

func (s *categoryService) setActive(ctx context.Context, actor *models.User, categoryID string, active bool) error {
	if err := policy.CanManageCategories(actor); err != nil {
		return err
	}

	collection := s.db.Collection(categoriesCollection)
	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": categoryID},
		bson.M{"$set": bson.M{"active": active, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error setting category %s active=%t: %w", categoryID, active, err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("category", categoryID)
	}
	s.invalidateTreeCache(ctx)
	return nil
}

// FindCategoryByID returns a category regardless of its active flag.
func (s *categoryService) FindCategoryByID(ctx context.Context, categoryID string) (*models.Category, error) {
	return s.findByID(ctx, categoryID)
}

func (s *categoryService) findByID(ctx context.Context, categoryID string) (*models.Category, error) {
	var cat models.Category
	err := s.db.Collection(categoriesCollection).FindOne(ctx, bson.M{"_id": categoryID}).Decode(&cat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("category", categoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding category by ID %s: %w", categoryID, err)
	}
	return &cat, nil
}

// PathTo returns the breadcrumb from the root down to (and including) the
// category, resolved with a single bounds query over the encoding.
func (s *categoryService) PathTo(ctx context.Context, categoryID string) ([]models.Category, error) {
	cat, err := s.findByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"lft": bson.M{"$lte": cat.Lft},
		"rgt": bson.M{"$gte": cat.Rgt},
	}
	opts := options.Find().SetSort(bson.D{{Key: "lft", Value: 1}})
	cursor, err := s.db.Collection(categoriesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying ancestors of category %s: %w", categoryID, err)
	}
	var path []models.Category
	if err := cursor.All(ctx, &path); err != nil {
		return nil, fmt.Errorf("error decoding ancestors of category %s: %w", categoryID, err)
	}
	return path, nil
}

// Subtree returns the category and all its descendants in depth-first,
// sort-order-respecting order, as a single range query.
func (s *categoryService) Subtree(ctx context.Context, categoryID string) ([]models.Category, error) {
	cat, err := s.findByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"lft": bson.M{"$gte": cat.Lft},
		"rgt": bson.M{"$lte": cat.Rgt},
	}
	opts := options.Find().SetSort(bson.D{{Key: "lft", Value: 1}})
	cursor, err := s.db.Collection(categoriesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying subtree of category %s: %w", categoryID, err)
	}
	var subtree []models.Category
	if err := cursor.All(ctx, &subtree); err != nil {
		return nil, fmt.Errorf("error decoding subtree of category %s: %w", categoryID, err)
	}
	return subtree, nil
}

// ListCategories returns the full flat table, encoding order. Admin surface;
// includes inactive nodes.
func (s *categoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lft", Value: 1}})
	cursor, err := s.db.Collection(categoriesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	var cats []models.Category
	if err := cursor.All(ctx, &cats); err != nil {
		return nil, fmt.Errorf("error decoding categories: %w", err)
	}
	return cats, nil
}

// Tree returns the buyer-facing tree as serialized JSON: active nodes only,
// with inactive subtrees pruned wholesale. Served from the Redis cache when
// warm.
func (s *categoryService) Tree(ctx context.Context) ([]byte, error) {
	if cached, err := s.treeCache.Get(ctx); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrTreeCacheMiss) {
		log.Printf("WARN: category tree cache read failed: %v", err)
	}

	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	forest := pruneInactive(buildCategoryForest(cats))

	serialized, err := json.Marshal(forest)
	if err != nil {
		return nil, fmt.Errorf("error serializing category tree: %w", err)
	}
	if err := s.treeCache.Set(ctx, serialized); err != nil {
		log.Printf("WARN: category tree cache write failed: %v", err)
	}
	return serialized, nil
}

// pruneInactive drops inactive nodes and everything below them.
func pruneInactive(forest []*models.CategoryNode) []*models.CategoryNode {
	out := make([]*models.CategoryNode, 0, len(forest))
	for _, n := range forest {
		if !n.Active {
			continue
		}
		n.Children = pruneInactive(n.Children)
		if n.Children == nil {
			n.Children = []*models.CategoryNode{}
		}
		out = append(out, n)
	}
	return out
}

// IsEffectivelyActive reports whether the category and every ancestor are
// active. Listing placement checks this, not just the node's own flag.
func (s *categoryService) IsEffectivelyActive(ctx context.Context, categoryID string) (bool, error) {
	path, err := s.PathTo(ctx, categoryID)
	if err != nil {
		return false, err
	}
	for i := range path {
		if !path[i].Active {
			return false, nil
		}
	}
	return true, nil
}

// runTreeMutation runs fn, a structural write followed by the bounds rebuild,
// inside a Mongo transaction so neither half can commit without the other.
// Standalone deployments have no transaction support; there fn runs directly
// against the base context, trading the atomicity away to keep single-node
// dev and CI setups working. Callers hold s.mu.
func (s *categoryService) runTreeMutation(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("error starting session for category tree mutation: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && isTransactionUnsupported(err) {
		return fn(ctx)
	}
	return err
}

// isTransactionUnsupported recognizes the server rejecting transactions
// outright (standalone mongod), as opposed to a transaction that failed.
func isTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}

// rebuildAndPersist recomputes lft/rgt/depth for the whole table and writes
// the derived fields back in one bulk operation. Callers hold s.mu.
func (s *categoryService) rebuildAndPersist(ctx context.Context) error {
	collection := s.db.Collection(categoriesCollection)

	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("error loading categories for tree rebuild: %w", err)
	}
	var cats []*models.Category
	if err := cursor.All(ctx, &cats); err != nil {
		return fmt.Errorf("error decoding categories for tree rebuild: %w", err)
	}

	if err := rebuildCategoryTree(cats); err != nil {
		return fmt.Errorf("category tree rebuild failed: %w", err)
	}

	writes := make([]mongo.WriteModel, 0, len(cats))
	for _, c := range cats {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": c.ID}).
			SetUpdate(bson.M{"$set": bson.M{"lft": c.Lft, "rgt": c.Rgt, "depth": c.Depth}}))
	}
	if len(writes) > 0 {
		if _, err := collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("error persisting rebuilt category tree: %w", err)
		}
	}

	s.invalidateTreeCache(ctx)
	return nil
}

func (s *categoryService) invalidateTreeCache(ctx context.Context) {
	if err := s.treeCache.Invalidate(ctx); err != nil {
		log.Printf("WARN: category tree cache invalidation failed: %v", err)
	}
}
