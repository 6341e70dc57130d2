package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayewealth/harbourhub/internal/models"
)

func cat(id, slug string, parentID *string, sortOrder int) *models.Category {
	c := &models.Category{
		Name:      slug,
		Slug:      slug,
		ParentID:  parentID,
		Active:    true,
		SortOrder: sortOrder,
	}
	c.SetID(id)
	return c
}

func strPtr(s string) *string { return &s }

func TestRebuildCategoryTree_SingleRoot(t *testing.T) {
	root := cat("r", "equipment", nil, 0)
	drilling := cat("d", "drilling", strPtr("r"), 0)
	pumps := cat("p", "pumps", strPtr("r"), 1)
	bits := cat("b", "drill-bits", strPtr("d"), 0)

	cats := []*models.Category{pumps, bits, root, drilling} // deliberately shuffled
	require.NoError(t, rebuildCategoryTree(cats))

	// equipment(1,8){ drilling(2,5){ drill-bits(3,4) }, pumps(6,7) }
	assert.Equal(t, 1, root.Lft)
	assert.Equal(t, 8, root.Rgt)
	assert.Equal(t, 0, root.Depth)
	assert.Equal(t, 2, drilling.Lft)
	assert.Equal(t, 5, drilling.Rgt)
	assert.Equal(t, 1, drilling.Depth)
	assert.Equal(t, 3, bits.Lft)
	assert.Equal(t, 4, bits.Rgt)
	assert.Equal(t, 2, bits.Depth)
	assert.Equal(t, 6, pumps.Lft)
	assert.Equal(t, 7, pumps.Rgt)
	assert.Equal(t, 1, pumps.Depth)
}

func TestRebuildCategoryTree_SiblingOrderBySortOrderThenSlug(t *testing.T) {
	a := cat("a", "valves", nil, 5)
	b := cat("b", "compressors", nil, 1)
	c := cat("c", "casing", nil, 1) // ties with b on sort_order, slug breaks it

	require.NoError(t, rebuildCategoryTree([]*models.Category{a, b, c}))

	assert.True(t, c.Lft < b.Lft, "casing sorts before compressors on slug")
	assert.True(t, b.Lft < a.Lft, "sort_order 1 comes before sort_order 5")
}

func TestRebuildCategoryTree_Deterministic(t *testing.T) {
	build := func() []*models.Category {
		return []*models.Category{
			cat("r", "equipment", nil, 0),
			cat("d", "drilling", strPtr("r"), 2),
			cat("p", "pumps", strPtr("r"), 1),
			cat("b", "drill-bits", strPtr("d"), 0),
		}
	}
	first := build()
	require.NoError(t, rebuildCategoryTree(first))

	// Same parent pointers in a different input order must yield identical bounds.
	second := build()
	second[0], second[3] = second[3], second[0]
	second[1], second[2] = second[2], second[1]
	require.NoError(t, rebuildCategoryTree(second))

	bounds := func(cats []*models.Category) map[string][3]int {
		m := make(map[string][3]int)
		for _, c := range cats {
			m[c.ID] = [3]int{c.Lft, c.Rgt, c.Depth}
		}
		return m
	}
	assert.Equal(t, bounds(first), bounds(second))
}

func TestRebuildCategoryTree_MissingParent(t *testing.T) {
	orphan := cat("o", "orphan", strPtr("nope"), 0)
	err := rebuildCategoryTree([]*models.Category{orphan})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing parent")
}

func TestRebuildCategoryTree_CycleDetected(t *testing.T) {
	a := cat("a", "a", strPtr("b"), 0)
	b := cat("b", "b", strPtr("a"), 0)
	root := cat("r", "root", nil, 0)

	err := rebuildCategoryTree([]*models.Category{a, b, root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuildCategoryForest(t *testing.T) {
	root := cat("r", "equipment", nil, 0)
	drilling := cat("d", "drilling", strPtr("r"), 0)
	pumps := cat("p", "pumps", strPtr("r"), 1)
	bits := cat("b", "drill-bits", strPtr("d"), 0)
	other := cat("s", "services", nil, 1)

	cats := []*models.Category{root, drilling, pumps, bits, other}
	require.NoError(t, rebuildCategoryTree(cats))

	flat := make([]models.Category, len(cats))
	for i, c := range cats {
		flat[i] = *c
	}
	forest := buildCategoryForest(flat)

	require.Len(t, forest, 2)
	assert.Equal(t, "equipment", forest[0].Slug)
	assert.Equal(t, "services", forest[1].Slug)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, "drilling", forest[0].Children[0].Slug)
	assert.Equal(t, "pumps", forest[0].Children[1].Slug)
	require.Len(t, forest[0].Children[0].Children, 1)
	assert.Equal(t, "drill-bits", forest[0].Children[0].Children[0].Slug)
	assert.Empty(t, forest[1].Children)
}

func TestWouldCreateCycle(t *testing.T) {
	root := cat("r", "equipment", nil, 0)
	drilling := cat("d", "drilling", strPtr("r"), 0)
	bits := cat("b", "drill-bits", strPtr("d"), 0)
	other := cat("s", "services", nil, 1)
	require.NoError(t, rebuildCategoryTree([]*models.Category{root, drilling, bits, other}))

	assert.True(t, wouldCreateCycle(drilling, drilling), "self-parenting")
	assert.True(t, wouldCreateCycle(drilling, bits), "parenting under own descendant")
	assert.True(t, wouldCreateCycle(root, bits), "deep descendant")
	assert.False(t, wouldCreateCycle(drilling, other), "unrelated subtree is fine")
	assert.False(t, wouldCreateCycle(bits, root), "moving up the same branch is fine")
	assert.False(t, wouldCreateCycle(drilling, nil), "promotion to root is fine")
}

func TestPruneInactive(t *testing.T) {
	root := cat("r", "equipment", nil, 0)
	drilling := cat("d", "drilling", strPtr("r"), 0)
	drilling.Active = false
	bits := cat("b", "drill-bits", strPtr("d"), 0) // active, but under an inactive parent
	pumps := cat("p", "pumps", strPtr("r"), 1)
	require.NoError(t, rebuildCategoryTree([]*models.Category{root, drilling, bits, pumps}))

	flat := []models.Category{*root, *drilling, *bits, *pumps}
	forest := pruneInactive(buildCategoryForest(flat))

	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "pumps", forest[0].Children[0].Slug, "inactive subtree pruned wholesale")
}
