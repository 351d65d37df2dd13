package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-qbank/internal/exam"
)

// POST /exams/{id}/generate {"number_of_variants": n}
func GenerateVariantsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req struct {
			NumberOfVariants int `json:"number_of_variants"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		variants, err := svc.GenerateAndSave(r.Context(), id, req.NumberOfVariants)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"exam_id": id, "variants": variants})
	}
}

// GET /exams/{id}/variants -> {"CODE-001": [...], ...}
func ListVariantsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		set, err := svc.Variants(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}
