package handlers

import (
	"net/http"
	"strconv"

	"paybridge/internal/store/postgres"
)

// ListHistory returns recorded terminal outcomes, newest first.
func ListHistory(repo *postgres.HistoryRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		rows, err := repo.ListRecent(r.Context(), limit, offset)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if rows == nil {
			rows = []postgres.HistoryRow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"flows": rows})
	}
}
