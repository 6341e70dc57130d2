package services

import (
	"fmt"
	"sort"

	"github.com/Ayewealth/harbourhub/internal/models"
)

// The category tree is stored flat; every structural mutation recomputes the
// nested-set encoding (lft/rgt/depth) for the whole table in memory and
// persists it with one bulk write. The table is small (hundreds of nodes) so
// a full recompute is cheaper and far easier to get right than incremental
// interval surgery.

// rebuildCategoryTree assigns lft/rgt/depth to every node from the parent
// pointers alone. Siblings are ordered by sort_order, then slug, so the
// encoding is deterministic. Returns an error when a parent pointer is
// dangling or the parent pointers form a cycle.
func rebuildCategoryTree(cats []*models.Category) error {
	byID := make(map[string]*models.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	children := make(map[string][]*models.Category)
	var roots []*models.Category
	for _, c := range cats {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			return fmt.Errorf("category %s references missing parent %s", c.ID, *c.ParentID)
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	orderSiblings(roots)
	for _, sibs := range children {
		orderSiblings(sibs)
	}

	counter := 1
	visited := 0
	var walk func(node *models.Category, depth int)
	walk = func(node *models.Category, depth int) {
		node.Lft = counter
		counter++
		node.Depth = depth
		visited++
		for _, child := range children[node.ID] {
			walk(child, depth+1)
		}
		node.Rgt = counter
		counter++
	}
	for _, root := range roots {
		walk(root, 0)
	}

	// Any node not reached from a root sits on a parent cycle.
	if visited != len(cats) {
		return fmt.Errorf("category parent pointers contain a cycle (%d of %d nodes reachable)", visited, len(cats))
	}
	return nil
}

func orderSiblings(sibs []*models.Category) {
	sort.SliceStable(sibs, func(i, j int) bool {
		if sibs[i].SortOrder != sibs[j].SortOrder {
			return sibs[i].SortOrder < sibs[j].SortOrder
		}
		return sibs[i].Slug < sibs[j].Slug
	})
}

// buildCategoryForest assembles parent/child nodes from a slice that already
// carries a valid nested-set encoding. Input order does not matter.
func buildCategoryForest(cats []models.Category) []*models.CategoryNode {
	nodes := make([]*models.CategoryNode, len(cats))
	for i := range cats {
		nodes[i] = &models.CategoryNode{Category: cats[i]}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Lft < nodes[j].Lft })

	var forest []*models.CategoryNode
	var stack []*models.CategoryNode
	for _, n := range nodes {
		for len(stack) > 0 && stack[len(stack)-1].Rgt < n.Lft {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			forest = append(forest, n)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, n)
		}
		stack = append(stack, n)
	}
	return forest
}

// wouldCreateCycle reports whether re-parenting cat under newParent would
// make the tree cyclic, i.e. the new parent is the category itself or one of
// its current descendants. Bounds come from the stored encoding.
func wouldCreateCycle(cat, newParent *models.Category) bool {
	if newParent == nil {
		return false
	}
	if cat.ID == newParent.ID {
		return true
	}
	return cat.Contains(newParent)
}
