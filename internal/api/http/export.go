package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-qbank/internal/exam"
	"github.com/mind-engage/mindengage-qbank/internal/export"
)

// GET /exams/{id}/export?variant_code=&include_answers=true&format=text|qti
func ExportHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		q := r.URL.Query()
		code := q.Get("variant_code")
		format := q.Get("format")
		if format == "" {
			format = "text"
		}
		if format != "text" && format != "qti" {
			writeError(w, r, badRequest("format must be text or qti"))
			return
		}
		includeAnswers, _ := strconv.ParseBool(q.Get("include_answers"))

		ex, qs, err := svc.ExportQuestions(r.Context(), id, code)
		if err != nil {
			writeError(w, r, err)
			return
		}
		name := ex.Code
		if code != "" {
			name = code
		}

		switch format {
		case "qti":
			pkg, err := export.BuildQTIPackage(ex.Name, code, qs)
			if err != nil {
				writeError(w, r, err)
				return
			}
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-qti.zip"`, name))
			_, _ = w.Write(pkg)
		default:
			body := export.RenderText(export.ExamHeader{Name: ex.Name, VariantCode: code, DurationMin: ex.DurationMin}, qs, includeAnswers)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.txt"`, name))
			_, _ = w.Write([]byte(body))
		}
	}
}
