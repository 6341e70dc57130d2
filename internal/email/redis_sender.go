package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ayewealth/harbourhub/internal/config"
)

// RedisSender implements the Sender interface by storing emails in Redis.
// Integration tests read these keys back instead of scraping a mailbox.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// classifySubject maps an email subject to the notification kind that
// produced it. Heuristic, but the subjects are ours so it holds.
func classifySubject(subject string) string {
	switch {
	case strings.Contains(subject, "New enquiry"):
		return "new_inquiry"
	case strings.Contains(subject, "replied to your enquiry"):
		return "inquiry_reply"
	case strings.Contains(subject, "verification"):
		return "verification_decision"
	case strings.Contains(subject, "expired"):
		return "listing_expired"
	case strings.Contains(subject, "role"):
		return "role_change"
	default:
		return "unknown"
	}
}

// Send stores a representation of the email in Redis instead of sending it via SMTP.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	kind := classifySubject(subject)

	// Use the first recipient for the mock key.
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"from":    s.cfg.SmtpFromAddress,
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
		"kind":    kind,
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	// Store as a simple String with TTL.
	key := fmt.Sprintf("mockemail:%s:%s", primaryTo, kind)
	ttl := 5 * time.Minute

	err = s.client.Set(ctx, key, jsonData, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, To: %s, Subject: %s)", key, ttl, strings.Join(to, ", "), subject)
	return nil
}
