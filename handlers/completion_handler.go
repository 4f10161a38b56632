package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"habitTrackerAPI/internal/types/completion"
	"habitTrackerAPI/middleware"
	"habitTrackerAPI/services"
)

type CompletionHandler struct {
	habitService *services.HabitService
}

func NewCompletionHandler(habitService *services.HabitService) *CompletionHandler {
	return &CompletionHandler{
		habitService: habitService,
	}
}

func (h *CompletionHandler) ToggleCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req completion.ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.habitService.ToggleCompletion(ctx, identity.ID, req.HabitID)
	if err != nil {
		respondWithServiceError(w, "ToggleCompletion Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *CompletionHandler) GetMonthCompletions(w http.ResponseWriter, r *http.Request) {
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

	month := r.URL.Query().Get("month")

	completions, err := h.habitService.GetCompletionsForMonth(ctx, habitID, identity.ID, month)
	if err != nil {
		respondWithServiceError(w, "GetMonthCompletions Handler", err)
		return
	}

	respondWithJSON(w, http.StatusOK, completions)
}
