// Package policy holds the role-based permission checks for every core
// operation as plain functions, callable without any routing layer. Each
// check returns nil to allow, or a typed apperr error to deny.
package policy

import (
	"fmt"

	"github.com/Ayewealth/harbourhub/internal/apperr"
	"github.com/Ayewealth/harbourhub/internal/models"
)

// CanCreateListing checks whether actor may create a listing of type t.
// Buyers may not create listings at all; type "service" additionally requires
// a verified service provider. Admins may create any type.
func CanCreateListing(actor *models.User, t models.ListingType) error {
	if actor.Suspended {
		return apperr.Permission("listing", "", "create", "account is suspended")
	}
	if actor.Role.IsAdmin() {
		return nil
	}
	if !actor.Role.CanCreateListings() {
		return apperr.Permission("listing", "", "create", fmt.Sprintf("role %s may not create listings", actor.Role))
	}
	if t == models.ListingTypeService {
		if actor.Role != models.RoleServiceProvider {
			return apperr.Permission("listing", "", "create", fmt.Sprintf("role %s may not create service listings", actor.Role))
		}
		if !actor.Verified {
			return apperr.Permission("listing", "", "create", "service listings require a verified service provider")
		}
	}
	return nil
}

// CanUpdateListing checks whether actor may edit the listing's content.
func CanUpdateListing(actor *models.User, listing *models.Listing) error {
	if actor.Suspended {
		return apperr.Permission("listing", listing.ID, "update", "account is suspended")
	}
	if actor.ID != listing.OwnerID && !actor.Role.IsAdmin() {
		return apperr.Permission("listing", listing.ID, "update", "only the owner or an admin may update a listing")
	}
	return nil
}

// CanTransition checks whether actor may move the listing to target.
// Invalid lifecycle edges yield a StateError; actor restrictions yield a
// PermissionError. Admin-only edges (reactivating a closed listing) are
// denied for everyone else including the owner.
func CanTransition(actor *models.User, listing *models.Listing, target models.ListingStatus) error {
	if actor.Suspended {
		return apperr.Permission("listing", listing.ID, "transition", "account is suspended")
	}
	if actor.ID != listing.OwnerID && !actor.Role.IsAdmin() {
		return apperr.Permission("listing", listing.ID, "transition", "only the owner or an admin may change listing state")
	}
	ok, adminOnly := models.AllowedTransition(listing.Status, target)
	if !ok {
		return apperr.State("listing", listing.ID, "transition", string(listing.Status),
			fmt.Sprintf("cannot transition from %s to %s", listing.Status, target))
	}
	if adminOnly && !actor.Role.IsAdmin() {
		return apperr.Permission("listing", listing.ID, "transition",
			fmt.Sprintf("only an admin may transition %s to %s", listing.Status, target))
	}
	return nil
}

// CanInquire checks whether actor may open an inquiry on the listing.
// Owners may not inquire about their own listings.
func CanInquire(actor *models.User, listing *models.Listing) error {
	if actor.Suspended {
		return apperr.Permission("inquiry", "", "submit", "account is suspended")
	}
	if actor.ID == listing.OwnerID {
		return apperr.Permission("inquiry", "", "submit", "cannot inquire about your own listing")
	}
	return nil
}

// CanReply checks whether actor may append a message to the inquiry.
// Only the frozen buyer and seller participate; admins are not parties
// to the conversation.
func CanReply(actor *models.User, inquiry *models.Inquiry) error {
	if actor.Suspended {
		return apperr.Permission("inquiry", inquiry.ID, "reply", "account is suspended")
	}
	if !inquiry.Participant(actor.ID) {
		return apperr.Permission("inquiry", inquiry.ID, "reply", "only the buyer or seller of this inquiry may reply")
	}
	return nil
}

// CanViewInquiry checks whether actor may read the inquiry thread.
func CanViewInquiry(actor *models.User, inquiry *models.Inquiry) error {
	if inquiry.Participant(actor.ID) || actor.Role.IsAdmin() {
		return nil
	}
	return apperr.Permission("inquiry", inquiry.ID, "view", "not a participant of this inquiry")
}

// CanManageCategories checks whether actor may mutate the category tree.
// The tree is platform-owned; only admins touch it.
func CanManageCategories(actor *models.User) error {
	if !actor.Role.IsAdmin() {
		return apperr.Permission("category", "", "manage", "administrator privileges required")
	}
	return nil
}

// CanChangeRole checks whether actor may set target's role to newRole.
// Only admins who can manage the target qualify, and the change must not be
// a downgrade.
func CanChangeRole(actor, target *models.User, newRole models.Role) error {
	if !actor.Role.IsAdmin() {
		return apperr.Permission("user", target.ID, "change_role", "administrator privileges required")
	}
	if !actor.CanManage(target) {
		return apperr.Permission("user", target.ID, "change_role", "insufficient privileges to manage this user")
	}
	if !newRole.Valid() {
		return apperr.Validation("user", target.ID, fmt.Sprintf("unknown role %q", newRole))
	}
	if newRole.Rank() < target.Role.Rank() {
		return apperr.Validation("user", target.ID,
			fmt.Sprintf("role %s would be a downgrade from %s", newRole, target.Role))
	}
	return nil
}

// CanReviewVerification checks whether actor may approve or reject
// verification requests.
func CanReviewVerification(actor *models.User) error {
	if !actor.Role.IsAdmin() {
		return apperr.Permission("verification", "", "review", "administrator privileges required")
	}
	return nil
}
