package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ayewealth/harbourhub/internal/models"
)

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	"new_inquiry": {
		TemplateID: "new_inquiry",
		Locale:     "en-US",
		Subject:    "New enquiry about {{.listing_title}}",
		Body:       "{{.buyer_name}} sent an enquiry about your listing \"{{.listing_title}}\":\n\n{{.message}}\n\nReply here: {{.site_url}}/inquiry/{{.inquiry_id}}",
	},
	"inquiry_reply": {
		TemplateID: "inquiry_reply",
		Locale:     "en-US",
		Subject:    "{{.author_name}} replied to your enquiry",
		Body:       "New reply on \"{{.subject}}\":\n\n{{.message}}\n\nView the thread: {{.site_url}}/inquiry/{{.inquiry_id}}",
	},
	"listing_transition": {
		TemplateID: "listing_transition",
		Locale:     "en-US",
		Subject:    "Your listing \"{{.listing_title}}\" is now {{.to}}",
		Body:       "The status of your listing \"{{.listing_title}}\" changed from {{.from}} to {{.to}}.\n\nManage it here: {{.site_url}}/listing/{{.listing_id}}",
	},
	"listing_expired": {
		TemplateID: "listing_expired",
		Locale:     "en-US",
		Subject:    "Your listing \"{{.listing_title}}\" has expired",
		Body:       "Your listing \"{{.listing_title}}\" reached the end of its active period and has been closed. You can reopen it from your dashboard: {{.site_url}}/listing/{{.listing_id}}",
	},
	"verification_decision": {
		TemplateID: "verification_decision",
		Locale:     "en-US",
		Subject:    "Your verification request was {{.decision}}",
		Body:       "An administrator has {{.decision}} your verification request.\n\n{{.notes}}",
	},
	"role_change": {
		TemplateID: "role_change",
		Locale:     "en-US",
		Subject:    "Your account role has changed",
		Body:       "Your account role is now {{.new_role}} (was {{.old_role}}).",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
}

const emailTemplatesCollection = "email_templates"

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{
		db: db,
	}
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// If template not found in DB, try to get from defaults
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// SaveTemplate saves an email template to the database
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}

	update := bson.M{"$set": template}
	opts := options.Update().SetUpsert(true)

	if _, err := collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error saving template %s (locale: %s): %w", template.TemplateID, template.Locale, err)
	}
	return nil
}
