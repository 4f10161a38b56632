package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"habitTrackerAPI/internal/apperr"
	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/internal/store"
)

const (
	minTimezoneOffset = -12 * 60
	maxTimezoneOffset = 14 * 60
)

type NotificationService struct {
	db store.NotificationStore
}

func NewNotificationService(db store.NotificationStore) *NotificationService {
	return &NotificationService{db: db}
}

// GetSettings returns the stored settings or the defaults when none were saved.
func (s *NotificationService) GetSettings(ctx context.Context, userID int64) (*notification.Settings, error) {
	settings, err := s.db.GetNotificationSettings(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return notification.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings replaces the user's settings. Fields left out of the request
// take their defaults, not their previous values.
func (s *NotificationService) UpdateSettings(ctx context.Context, userID int64, req *notification.UpdateSettingsRequest) (*notification.Settings, error) {
	settings := notification.DefaultSettings(userID)

	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.RemindTime != nil {
		settings.RemindTime = min(23, max(0, *req.RemindTime))
	}
	if req.TimezoneOffset != nil {
		offset := *req.TimezoneOffset
		if offset < minTimezoneOffset || offset > maxTimezoneOffset {
			return nil, apperr.Validation(fmt.Sprintf("timezone_offset must be between %d and %d minutes", minTimezoneOffset, maxTimezoneOffset))
		}
		settings.TimezoneOffset = offset
	}

	if err := s.db.UpsertNotificationSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save notification settings: %w", err)
	}
	return settings, nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID int64, req *notification.RegisterDeviceRequest) (*notification.DeviceToken, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, apperr.Validation("token is required")
	}

	platform := notification.Platform(strings.ToLower(strings.TrimSpace(string(req.Platform))))
	if platform == "" {
		platform = notification.PlatformAndroid
	}
	if !platform.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown platform %q", req.Platform))
	}

	device := &notification.DeviceToken{UserID: userID, Token: token, Platform: platform}
	if err := s.db.UpsertDeviceToken(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	return device, nil
}
