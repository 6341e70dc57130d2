package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // registered for image.Decode
	"io"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ayewealth/harbourhub/internal/config"
	"github.com/Ayewealth/harbourhub/internal/email"
	"github.com/Ayewealth/harbourhub/internal/events"
	"github.com/Ayewealth/harbourhub/internal/models"
	"github.com/Ayewealth/harbourhub/internal/services"
	"github.com/Ayewealth/harbourhub/internal/storage"
)

// Task types processed by the background worker. The event:* types are the
// ones the emitter enqueues; the rest are enqueued here or by the scheduler.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
	TypeListingExpiry = "listing:expire"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	db                   *mongo.Database
	emailSender          email.Sender
	storageService       storage.IS3Storage
	listingService       services.IListingService
	userService          services.IUserService
	emailTemplateService services.IEmailTemplateService
	taskClient           *asynq.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	db *mongo.Database,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	listingService services.IListingService,
	userService services.IUserService,
	emailTemplateService services.IEmailTemplateService,
	taskClient *asynq.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		db:                   db,
		emailSender:          emailSender,
		storageService:       storageService,
		listingService:       listingService,
		userService:          userService,
		emailTemplateService: emailTemplateService,
		taskClient:           taskClient,
	}
}

// SetupServer configures an Asynq server with all handlers registered and
// runs it. Blocks until the server stops.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
				"images":   5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(events.TaskTypeNotify, processor.HandleNotifyTask)
	mux.HandleFunc(events.TaskTypeAnalytics, processor.HandleAnalyticsTask)
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	mux.HandleFunc(TypeListingExpiry, processor.HandleListingExpiryTask)
	log.Println("Registered background task handlers.")

	if err := srv.Run(mux); err != nil {
		log.Fatalf("Could not run Asynq server: %v", err)
	}
	return srv
}

// NewScheduler returns an asynq scheduler with the periodic jobs registered.
// Runs the expiry sweep hourly.
func NewScheduler(rdb *redis.Client) *asynq.Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		&asynq.SchedulerOpts{Location: time.UTC},
	)
	if _, err := scheduler.Register("@every 1h", asynq.NewTask(TypeListingExpiry, nil), asynq.Queue("low")); err != nil {
		log.Fatalf("Could not register listing expiry schedule: %v", err)
	}
	return scheduler
}

// --- Task Handlers ---

// notificationTemplates maps an event kind to the email template rendered for
// it. Events without an entry are dropped silently.
var notificationTemplates = map[string]string{
	events.KindInquiryCreated:      "new_inquiry",
	events.KindInquiryReplied:      "inquiry_reply",
	events.KindListingTransitioned: "listing_transition",
	events.KindListingExpired:      "listing_expired",
	events.KindVerificationDecided: "verification_decision",
	events.KindRoleChanged:         "role_change",
}

// wantsNotification consults the user's notification preferences for the
// event kind. Absent preferences mean everything is on.
func wantsNotification(user *models.User, kind string) bool {
	prefs := user.NotificationPreferences
	if prefs == nil {
		return true
	}
	switch kind {
	case events.KindInquiryCreated:
		return prefs.Inquiry
	case events.KindInquiryReplied:
		return prefs.InquiryReply
	case events.KindListingTransitioned, events.KindListingExpired:
		return prefs.ListingLifecycle
	case events.KindVerificationDecided:
		return prefs.Verification
	}
	return true
}

// HandleNotifyTask resolves an emitted event to a recipient email and hands
// off to the email delivery task.
func (p *TaskProcessor) HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload events.Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal notify task payload: %v: %w", err, asynq.SkipRetry)
	}

	templateID, ok := notificationTemplates[payload.Kind]
	if !ok {
		log.Printf("No notification template for event kind %s, dropping.", payload.Kind)
		return nil
	}

	user, err := p.userService.FindUserByID(ctx, payload.Recipient)
	if err != nil {
		// A vanished recipient is not worth retrying.
		log.Printf("Recipient %s for %s notification not found: %v", payload.Recipient, payload.Kind, err)
		return fmt.Errorf("notification recipient not found: %w", asynq.SkipRetry)
	}
	if !wantsNotification(user, payload.Kind) {
		log.Printf("User %s opted out of %s notifications, dropping.", user.ID, payload.Kind)
		return nil
	}

	data := make(map[string]interface{}, len(payload.Data)+2)
	for k, v := range payload.Data {
		data[k] = v
	}
	data["site_url"] = p.cfg.SiteURL
	data["recipient_name"] = user.Name

	emailPayload, err := json.Marshal(EmailTaskPayload{
		To:         user.Email,
		TemplateID: templateID,
		Locale:     p.cfg.DefaultLocale,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload for %s: %w", payload.Kind, err)
	}
	if _, err := p.taskClient.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, emailPayload), asynq.Queue("default")); err != nil {
		return fmt.Errorf("failed to enqueue email delivery for %s notification: %w", payload.Kind, err)
	}
	return nil
}

// HandleAnalyticsTask persists analytics events. Listing views get their own
// collection; everything else lands in a generic event log.
func (p *TaskProcessor) HandleAnalyticsTask(ctx context.Context, t *asynq.Task) error {
	var payload events.Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal analytics task payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.Kind == events.KindListingViewed {
		view := models.ListingView{
			Base:     models.NewBase(),
			ViewedAt: payload.OccurredAt,
		}
		if v, ok := payload.Data["listing_id"].(string); ok {
			view.ListingID = v
		}
		if v, ok := payload.Data["user_id"].(string); ok {
			view.UserID = v
		}
		if v, ok := payload.Data["ip_address"].(string); ok {
			view.IPAddress = v
		}
		if v, ok := payload.Data["user_agent"].(string); ok {
			view.UserAgent = v
		}
		if view.ListingID == "" {
			return fmt.Errorf("listing view event without listing_id: %w", asynq.SkipRetry)
		}
		if _, err := p.db.Collection("listing_views").InsertOne(ctx, view); err != nil {
			return fmt.Errorf("failed to insert listing view record: %w", err)
		}
		return nil
	}

	doc := map[string]interface{}{
		"kind":        payload.Kind,
		"data":        payload.Data,
		"occurred_at": payload.OccurredAt,
	}
	if _, err := p.db.Collection("analytics_events").InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert analytics event %s: %w", payload.Kind, err)
	}
	return nil
}

// EmailTaskPayload is the input to the email delivery task.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// HandleEmailDeliveryTask renders the template and sends the email.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = p.cfg.DefaultLocale
	}
	if locale == "" {
		locale = "en-US"
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Printf("Error getting email template %s/%s: %v", payload.TemplateID, locale, err)
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	// Simple placeholder replacement (replace {{.key}})
	subjectRendered := tmpl.Subject
	bodyRendered := tmpl.Body
	for key, val := range payload.Data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		valueStr := fmt.Sprintf("%v", val)
		subjectRendered = strings.ReplaceAll(subjectRendered, placeholder, valueStr)
		bodyRendered = strings.ReplaceAll(bodyRendered, placeholder, valueStr)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@harbourhub.example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s for email to %s", fromAddress, payload.To)
	}

	rawMessage := email.BuildMessage(fromAddress, []string{payload.To}, subjectRendered, bodyRendered)
	if err := p.emailSender.Send(ctx, []string{payload.To}, subjectRendered, rawMessage); err != nil {
		log.Printf("Email sending failed (will retry): %v", err)
		return err
	}

	log.Printf("Email task processed: To=%s, Template=%s", payload.To, payload.TemplateID)
	return nil
}

// ImageTaskPayload is the input to the image normalization task.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// HandleImageProcessTask downloads an uploaded listing image, enforces the
// size cap, scales it down to the configured maximum dimension, and writes
// the normalized JPEG back over the original key.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, ListingID=%s", payload.S3Key, payload.ListingID)

	body, err := p.storageService.GetObject(ctx, payload.S3Key)
	if err != nil {
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer body.Close()

	imgData, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read image data for %s: %w", payload.S3Key, err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if maxSizeBytes > 0 && int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Deleting.", payload.S3Key, len(imgData), maxSizeBytes)
		if delErr := p.storageService.DeleteObject(ctx, payload.S3Key); delErr != nil {
			log.Printf("WARN: failed to delete oversized image %s: %v", payload.S3Key, delErr)
		}
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	maxDim := uint(p.cfg.ImageMaxDimension)
	if maxDim == 0 || (uint(img.Bounds().Dx()) <= maxDim && uint(img.Bounds().Dy()) <= maxDim) {
		return nil // already within bounds, nothing to rewrite
	}

	resizedImg := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to re-encode resized image %s: %w", payload.S3Key, err)
	}

	if err := p.storageService.PutObject(ctx, payload.S3Key, "image/jpeg", bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("failed to upload processed image: %w", err)
	}

	log.Printf("Image task processed: Key=%s resized to %dx%d", payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy())
	return nil
}

// HandleListingExpiryTask closes active listings whose expiry has passed.
func (p *TaskProcessor) HandleListingExpiryTask(ctx context.Context, t *asynq.Task) error {
	closed, err := p.listingService.CloseExpiredListings(ctx)
	if err != nil {
		log.Printf("Listing expiry sweep failed: %v", err)
		return err
	}
	if closed > 0 {
		log.Printf("Listing expiry sweep closed %d listings.", closed)
	}
	return nil
}
