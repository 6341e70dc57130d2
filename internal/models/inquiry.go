package models

import (
	"time"
)

// InquiryStatus defines the state of a buyer-seller conversation.
type InquiryStatus string

const (
	InquiryStatusOpen    InquiryStatus = "open"
	InquiryStatusReplied InquiryStatus = "replied"
	InquiryStatusClosed  InquiryStatus = "closed"
)

// InquiryMessage is one message in an inquiry thread.
type InquiryMessage struct {
	AuthorID  string    `bson:"author_id" json:"author_id"`
	Body      string    `bson:"body" json:"body"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Inquiry is a conversation thread attached to a listing.
//
// BuyerID and SellerID are frozen at creation: SellerID is derived from the
// listing owner at that moment and never follows later ownership changes.
type Inquiry struct {
	Base      `bson:",inline"`
	ListingID string           `bson:"listing_id" json:"listing_id"`
	BuyerID   string           `bson:"buyer_id" json:"buyer_id"`
	SellerID  string           `bson:"seller_id" json:"seller_id"`
	Subject   string           `bson:"subject" json:"subject"`
	Status    InquiryStatus    `bson:"status" json:"status"`
	Messages  []InquiryMessage `bson:"messages" json:"messages"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at" json:"updated_at"`
	ReadAt    *time.Time       `bson:"read_at,omitempty" json:"read_at,omitempty"`
	RepliedAt *time.Time       `bson:"replied_at,omitempty" json:"replied_at,omitempty"`
	ClosedAt  *time.Time       `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
}

// Participant reports whether userID is the buyer or seller of the inquiry.
func (i *Inquiry) Participant(userID string) bool {
	return userID == i.BuyerID || userID == i.SellerID
}

// Counterparty returns the other participant's ID, or "" when userID is
// not a participant.
func (i *Inquiry) Counterparty(userID string) string {
	switch userID {
	case i.BuyerID:
		return i.SellerID
	case i.SellerID:
		return i.BuyerID
	}
	return ""
}
