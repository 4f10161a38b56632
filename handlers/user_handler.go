package handlers

import (
	"context"
	"net/http"
	"time"

	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.userService.GetProfile(ctx, identity.ID)
	if err != nil {
		respondWithServiceError(w, "GetProfile Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}
