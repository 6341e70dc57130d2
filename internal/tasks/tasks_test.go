package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/tasks"
)

// --- Mocks ---

// MockEmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

// MockEmailTemplateService
type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

// --- Tests ---

func TestHandleEmailDeliveryTask_Success(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockTmplService := new(MockEmailTemplateService)
	cfg := &config.Config{SmtpFromAddress: "noreply@harbourhub.example.com"}

	p := tasks.NewTaskProcessor(cfg, nil, mockEmailSender, nil, nil, nil, mockTmplService, nil)

	// Data mirrors exactly what the inquiry service emits on submit, and the
	// template is the stock new_inquiry one; together they must render with
	// no placeholder left behind.
	payloadData := map[string]interface{}{
		"inquiry_id":    "inq-1",
		"listing_id":    "lst-1",
		"listing_title": "Triplex Mud Pump",
		"buyer_name":    "Ada",
		"subject":       "Availability",
		"message":       "Is the pump still available?",
		"site_url":      "https://harbourhub.example.com",
	}
	payloadBytes, _ := json.Marshal(tasks.EmailTaskPayload{
		To:         "seller@example.com",
		TemplateID: "new_inquiry",
		Locale:     "en-US",
		Data:       payloadData,
	})
	task := asynq.NewTask(tasks.TypeEmailDelivery, payloadBytes)

	expectedTemplate := &models.EmailTemplate{
		Subject: "New enquiry about {{.listing_title}}",
		Body:    "{{.buyer_name}} sent an enquiry about your listing \"{{.listing_title}}\":\n\n{{.message}}\n\nReply here: {{.site_url}}/inquiry/{{.inquiry_id}}",
	}
	mockTmplService.On("GetTemplate", mock.Anything, "new_inquiry", "en-US").Return(expectedTemplate, nil)

	expectedTo := "seller@example.com"
	expectedSubject := "New enquiry about Triplex Mud Pump"

	mockEmailSender.On("Send",
		mock.Anything,
		[]string{expectedTo},
		expectedSubject,
		mock.MatchedBy(func(rawMsg []byte) bool {
			msgStr := string(rawMsg)
			assert.Contains(t, msgStr, fmt.Sprintf("To: %s", expectedTo), "Raw message should contain To address")
			assert.Contains(t, msgStr, fmt.Sprintf("From: %s", cfg.SmtpFromAddress), "Raw message should contain From address")
			assert.Contains(t, msgStr, fmt.Sprintf("Subject: %s", expectedSubject), "Raw message should contain Subject")
			assert.Contains(t, msgStr, "Ada sent an enquiry about your listing \"Triplex Mud Pump\"")
			assert.Contains(t, msgStr, "Is the pump still available?")
			assert.Contains(t, msgStr, "https://harbourhub.example.com/inquiry/inq-1")
			assert.NotContains(t, msgStr, "{{.", "Rendered message must not contain unreplaced placeholders")
			return true
		}),
	).Return(nil)

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.NoError(t, err)
	mockTmplService.AssertExpectations(t)
	mockEmailSender.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_TemplateNotFound(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockTmplService := new(MockEmailTemplateService)
	cfg := &config.Config{}
	p := tasks.NewTaskProcessor(cfg, nil, mockEmailSender, nil, nil, nil, mockTmplService, nil)

	payloadBytes, _ := json.Marshal(tasks.EmailTaskPayload{
		To:         "seller@example.com",
		TemplateID: "nonexistent_template",
		Locale:     "en-US",
	})
	task := asynq.NewTask(tasks.TypeEmailDelivery, payloadBytes)

	mockTmplService.On("GetTemplate", mock.Anything, "nonexistent_template", "en-US").Return(nil, assert.AnError)

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Error should be SkipRetry for template not found")
	mockTmplService.AssertExpectations(t)
	mockEmailSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEmailDeliveryTask_MalformedPayloadSkipsRetry(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, nil, new(MockEmailSender), nil, nil, nil, new(MockEmailTemplateService), nil)

	task := asynq.NewTask(tasks.TypeEmailDelivery, []byte("{not json"))
	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
