package handlers

import (
	"context"
	"net/http"
	"time"

	"habitTrackerAPI/services"
)

// InviteHandler serves the public preview behind invite links. No identity is required.
type InviteHandler struct {
	socialService *services.SocialService
}

func NewInviteHandler(socialService *services.SocialService) *InviteHandler {
	return &InviteHandler{
		socialService: socialService,
	}
}

func (h *InviteHandler) GetInvite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	habitID, ok := pathID(r, "habitId")
	if !ok {
		respondWithError(w, http.StatusNotFound, "habit not found or not public")
		return
	}

	preview, err := h.socialService.GetInvitePreview(ctx, habitID)
	if err != nil {
		respondWithServiceError(w, "GetInvite Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, preview)
}
