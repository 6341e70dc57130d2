package models

import (
	"time"
)

// ListingType defines what kind of offering a listing is.
type ListingType string

const (
	ListingTypeSell    ListingType = "sell"
	ListingTypeRent    ListingType = "rent"
	ListingTypeLease   ListingType = "lease"
	ListingTypeService ListingType = "service"
)

// Valid reports whether t is a known listing type.
func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeSell, ListingTypeRent, ListingTypeLease, ListingTypeService:
		return true
	}
	return false
}

// ListingStatus defines the lifecycle state of a listing.
type ListingStatus string

const (
	ListingStatusDraft  ListingStatus = "draft"
	ListingStatusActive ListingStatus = "active"
	ListingStatusClosed ListingStatus = "closed"
)

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusDraft, ListingStatusActive, ListingStatusClosed:
		return true
	}
	return false
}

// AllowedTransition reports whether from→to is a legal lifecycle edge and
// whether that edge is restricted to admins. The lifecycle is
// draft → active → closed; active → draft is the owner's edit-and-resubmit
// path; closed is terminal except the admin reactivation override.
func AllowedTransition(from, to ListingStatus) (ok, adminOnly bool) {
	switch {
	case from == ListingStatusDraft && to == ListingStatusActive:
		return true, false
	case from == ListingStatusActive && to == ListingStatusClosed:
		return true, false
	case from == ListingStatusActive && to == ListingStatusDraft:
		return true, false
	case from == ListingStatusClosed && to == ListingStatusActive:
		return true, true
	}
	return false, false
}

// Price holds the asking price of a listing.
type Price struct {
	Value        float64 `bson:"value" json:"value"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
	Unit         string  `bson:"unit,omitempty" json:"unit,omitempty"` // e.g. "per day" for rentals
	Negotiable   bool    `bson:"negotiable" json:"negotiable"`
}

// Metadata holds free-form equipment attributes.
type Metadata struct {
	Manufacturer string `bson:"manufacturer,omitempty" json:"manufacturer,omitempty"`
	Model        string `bson:"model,omitempty" json:"model,omitempty"`
	Year         int    `bson:"year,omitempty" json:"year,omitempty"`
	Condition    string `bson:"condition,omitempty" json:"condition,omitempty"` // new, excellent, good, fair, poor
}

// Attachment is a reference to an uploaded file; the blob itself lives in S3.
type Attachment struct {
	Key         string    `bson:"key" json:"key"` // S3 object key
	Caption     string    `bson:"caption,omitempty" json:"caption,omitempty"`
	ContentType string    `bson:"content_type,omitempty" json:"content_type,omitempty"`
	SortOrder   int       `bson:"sort_order" json:"sort_order"`
	Primary     bool      `bson:"primary" json:"primary"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Listing is an equipment or service offering.
type Listing struct {
	Base           `bson:",inline"`
	OwnerID        string        `bson:"owner_id" json:"owner_id"`
	CategoryID     string        `bson:"category_id" json:"category_id"`
	Title          string        `bson:"title" json:"title"`
	Slug           string        `bson:"slug" json:"slug"`
	Description    string        `bson:"description" json:"description"`
	Type           ListingType   `bson:"type" json:"type"`
	Status         ListingStatus `bson:"status" json:"status"`
	Price          *Price        `bson:"price,omitempty" json:"price,omitempty"`
	Location       string        `bson:"location,omitempty" json:"location,omitempty"`
	Country        string        `bson:"country,omitempty" json:"country,omitempty"`
	Metadata       Metadata      `bson:"metadata" json:"metadata"`
	ServiceArea    string        `bson:"service_area,omitempty" json:"service_area,omitempty"` // service listings only
	Attachments    []Attachment  `bson:"attachments" json:"attachments"`
	Featured       bool          `bson:"featured" json:"featured"`
	ViewsCount     int64         `bson:"views_count" json:"views_count"`
	InquiriesCount int64         `bson:"inquiries_count" json:"inquiries_count"`
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at" json:"updated_at"`
	PublishedAt    *time.Time    `bson:"published_at,omitempty" json:"published_at,omitempty"`
	ClosedAt       *time.Time    `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	ExpiresAt      *time.Time    `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	Deleted        bool          `bson:"deleted" json:"-"`
}

// ListingView is an analytics record of one detail-page view, written
// asynchronously by the background worker.
type ListingView struct {
	Base      `bson:",inline"`
	ListingID string    `bson:"listing_id" json:"listing_id"`
	UserID    string    `bson:"user_id,omitempty" json:"user_id,omitempty"`
	IPAddress string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent string    `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	ViewedAt  time.Time `bson:"viewed_at" json:"viewed_at"`
}
