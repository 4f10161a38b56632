package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
)

type HabitHandler struct {
	habitService *services.HabitService
}

func NewHabitHandler(habitService *services.HabitService) *HabitHandler {
	return &HabitHandler{
		habitService: habitService,
	}
}

func (h *HabitHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	habits, err := h.habitService.ListHabits(ctx, identity.ID)
	if err != nil {
		respondWithServiceError(w, "ListHabits Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req habit.CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.habitService.CreateHabit(ctx, identity.ID, &req)
	if err != nil {
		respondWithServiceError(w, "CreateHabit Handler", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HabitHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	habitID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusNotFound, "habit not found")
		return
	}

	if err := h.habitService.DeleteHabit(ctx, identity.ID, habitID); err != nil {
		respondWithServiceError(w, "DeleteHabit Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HabitHandler) GetHabitStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	habitID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid habit id")
		return
	}

	stats, err := h.habitService.GetHabitStats(ctx, habitID, identity.ID)
	if err != nil {
		respondWithServiceError(w, "GetHabitStats Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
