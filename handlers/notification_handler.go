package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	settings, err := h.notificationService.GetSettings(ctx, identity.ID)
	if err != nil {
		respondWithServiceError(w, "GetSettings Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, settings)
}

func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req notification.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := h.notificationService.UpdateSettings(ctx, identity.ID, &req)
	if err != nil {
		respondWithServiceError(w, "UpdateSettings Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, settings)
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req notification.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	device, err := h.notificationService.RegisterDevice(ctx, identity.ID, &req)
	if err != nil {
		respondWithServiceError(w, "RegisterDevice Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"platform": device.Platform,
	})
}
