package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"habitTrackerAPI/internal/apperr"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps an error kind to its status. Unexpected errors
// are returned as 500 with their message.
func respondWithServiceError(w http.ResponseWriter, op string, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		respondWithError(w, http.StatusBadRequest, err.Error())
	case apperr.KindUnauthenticated:
		respondWithError(w, http.StatusUnauthorized, err.Error())
	case apperr.KindAccessDenied:
		respondWithError(w, http.StatusForbidden, err.Error())
	case apperr.KindNotFound:
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("%s: %v", op, err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
