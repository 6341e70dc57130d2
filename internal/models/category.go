package models

import (
	"time"
)

// Category is a node in the hierarchical classification tree for listings.
//
// The tree is encoded with nested-set bounds (Lft/Rgt) plus Depth, re-derived
// transactionally on every mutation, so that subtree and ancestor queries are
// single range checks instead of recursive descent. ParentID is the source of
// truth for structure; Lft/Rgt/Depth are derived.
type Category struct {
	Base        `bson:",inline"`
	Name        string    `bson:"name" json:"name"`
	Slug        string    `bson:"slug" json:"slug"`
	ParentID    *string   `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Icon        string    `bson:"icon,omitempty" json:"icon,omitempty"`
	Active      bool      `bson:"active" json:"active"`
	SortOrder   int       `bson:"sort_order" json:"sort_order"`
	Lft         int       `bson:"lft" json:"-"`
	Rgt         int       `bson:"rgt" json:"-"`
	Depth       int       `bson:"depth" json:"depth"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// Contains reports whether other lies within c's subtree (c included),
// using the derived nested-set bounds.
func (c *Category) Contains(other *Category) bool {
	return other.Lft >= c.Lft && other.Rgt <= c.Rgt
}

// CategoryNode is a category with its children resolved, for tree responses.
type CategoryNode struct {
	Category `bson:",inline"`
	Children []*CategoryNode `json:"children"`
}
