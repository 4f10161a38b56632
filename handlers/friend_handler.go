package handlers

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
)

type FriendHandler struct {
	socialService *services.SocialService
}

func NewFriendHandler(socialService *services.SocialService) *FriendHandler {
	return &FriendHandler{
		socialService: socialService,
	}
}

func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	friends, err := h.socialService.ListDiscoverable(ctx, identity.ID)
	if err != nil {
		respondWithServiceError(w, "ListFriends Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, friends)
}

func (h *FriendHandler) GetFriendHabits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	friendID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusNotFound, "user not found")
		return
	}

	res, err := h.socialService.ListFriendHabits(ctx, identity.ID, friendID)
	if err != nil {
		respondWithServiceError(w, "GetFriendHabits Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}

func (h *FriendHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	habitID, ok := pathID(r, "habitId")
	if !ok {
		respondWithError(w, http.StatusNotFound, "habit not found")
		return
	}

	log.Printf("Subscribe Handler: user %d subscribing to habit %d", identity.ID, habitID)

	res, err := h.socialService.Subscribe(ctx, identity.ID, habitID)
	if err != nil {
		respondWithServiceError(w, "Subscribe Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}

func (h *FriendHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	habitID, ok := pathID(r, "habitId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid habit id")
		return
	}

	res, err := h.socialService.Unsubscribe(ctx, identity.ID, habitID)
	if err != nil {
		respondWithServiceError(w, "Unsubscribe Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}
