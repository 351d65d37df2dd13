package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	auth "github.com/mind-engage/mindengage-qbank/internal/auth/middleware"
	"github.com/mind-engage/mindengage-qbank/internal/exam"
	"github.com/mind-engage/mindengage-qbank/internal/lock"
	"github.com/mind-engage/mindengage-qbank/internal/logger"
)

// maxBodyBytes bounds JSON bodies and bulk uploads.
const maxBodyBytes = 8 << 20

type apiError struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Required   *int   `json:"required,omitempty"`
	Available  *int   `json:"available,omitempty"`
	Max        *int   `json:"max,omitempty"`
	QuestionID *int64 `json:"question_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to a status and a stable code. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		insufficient *exam.InsufficientQuestionsError
		variantCount *exam.InvalidVariantCountError
		malformed    *exam.MalformedQuestionError
	)
	body := apiError{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &insufficient):
		status, body.Code = http.StatusUnprocessableEntity, "insufficient_questions"
		body.Required, body.Available = &insufficient.Required, &insufficient.Available
	case errors.Is(err, exam.ErrNoQuestionsAvailable):
		status, body.Code = http.StatusUnprocessableEntity, "no_questions_available"
	case errors.As(err, &malformed):
		status, body.Code = http.StatusUnprocessableEntity, "malformed_question_data"
		body.QuestionID = &malformed.QuestionID
	case errors.Is(err, exam.ErrMalformedQuestionData):
		status, body.Code = http.StatusUnprocessableEntity, "malformed_question_data"
	case errors.As(err, &variantCount):
		status, body.Code = http.StatusBadRequest, "invalid_variant_count"
		body.Max = &variantCount.Max
	case errors.Is(err, exam.ErrInvalidVariantCount):
		status, body.Code = http.StatusBadRequest, "invalid_variant_count"
	case errors.Is(err, exam.ErrInvalidQuestionCount):
		status, body.Code = http.StatusBadRequest, "invalid_question_count"
	case errors.Is(err, exam.ErrInvalid), errors.Is(err, auth.ErrInvalidUser), errors.Is(err, errBadRequest):
		status, body.Code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, exam.ErrNotFound), errors.Is(err, auth.ErrUnknownUser):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, exam.ErrNoVariants):
		status, body.Code = http.StatusNotFound, "no_variants"
	case errors.Is(err, lock.ErrLocked):
		status, body.Code = http.StatusConflict, "generation_in_progress"
	case errors.Is(err, auth.ErrBadPassword):
		status, body.Code = http.StatusForbidden, "bad_password"
	default:
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		body = apiError{Error: "internal error", Code: "internal"}
	}
	writeJSON(w, status, body)
}

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error { return fmt.Errorf("%w: %s", errBadRequest, msg) }

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}
