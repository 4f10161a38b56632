package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// MessageSender is the part of *messaging.Client the push service needs.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TokenSource lists the device tokens registered for a user.
type TokenSource interface {
	DeviceTokens(ctx context.Context, userID int64) ([]*DeviceToken, error)
}

type FCMService struct {
	client MessageSender
	tokens TokenSource
}

// NewFCMService initializes FCMService. It first attempts to use
// credentials from the FCM_SERVICE_ACCOUNT_JSON environment variable (Base64 encoded).
// If that's not found, it falls back to a local service account key file.
func NewFCMService(ctx context.Context, localFilePath string, tokens TokenSource) (*FCMService, error) {
	var opt option.ClientOption

	encodedCreds := os.Getenv("FCM_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FCM_SERVICE_ACCOUNT_JSON: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("FCM Service: Initializing from FCM_SERVICE_ACCOUNT_JSON environment variable.")
	} else {
		if localFilePath == "" {
			return nil, fmt.Errorf("no firebase credentials: set FCM_CREDENTIALS_FILE or FCM_SERVICE_ACCOUNT_JSON")
		}
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase file not found: %s, and FCM_SERVICE_ACCOUNT_JSON environment variable is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("FCM Service: Initializing from local file: %s.", localFilePath)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return NewFCMServiceWithSender(client, tokens), nil
}

func NewFCMServiceWithSender(client MessageSender, tokens TokenSource) *FCMService {
	return &FCMService{client: client, tokens: tokens}
}

func (s *FCMService) Name() string {
	return "fcm"
}

// SendReminder pushes one notification to each device the recipient registered.
// A recipient without devices gets ErrNoDevices.
func (s *FCMService) SendReminder(ctx context.Context, r *Recipient, habits []*OutstandingHabit) error {
	tokens, err := s.tokens.DeviceTokens(ctx, r.TelegramID)
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return ErrNoDevices
	}

	names := make([]string, 0, len(habits))
	for _, h := range habits {
		names = append(names, strings.TrimSpace(h.Icon+" "+h.Name))
	}

	title := "⏰ Habit reminder"
	body := "Still not done today: " + strings.Join(names, ", ")
	data := map[string]string{
		"type":        "habit_reminder",
		"outstanding": strconv.Itoa(len(habits)),
	}

	return s.SendPush(ctx, tokens, title, body, data)
}

// SendPush sends messages one token at a time. It fails only when every send failed.
func (s *FCMService) SendPush(ctx context.Context, tokens []*DeviceToken, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	successCount := 0
	failureCount := 0

	for _, t := range tokens {
		message := buildMessage(t, title, body, data)

		if _, err := s.client.Send(ctx, message); err != nil {
			log.Printf("FCM: Failed to send to %s token of user %d: %v", t.Platform, t.UserID, err)
			failureCount++
		} else {
			successCount++
		}
	}

	log.Printf("FCM: Sent %d messages, %d failed", successCount, failureCount)

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all push notifications failed")
	}
	return nil
}

func buildMessage(t *DeviceToken, title, body string, data map[string]string) *messaging.Message {
	message := &messaging.Message{
		Token: t.Token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	switch t.Platform {
	case PlatformIOS:
		message.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		}
	case PlatformWeb:
		message.Webpush = &messaging.WebpushConfig{
			Headers: map[string]string{"Urgency": "high"},
		}
	default:
		message.Android = &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		}
	}
	return message
}
