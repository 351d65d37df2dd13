package export

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-qbank/internal/exam"
)

type ExamHeader struct {
	Name        string
	VariantCode string // empty means every variant
	DurationMin int
}

// RenderText prints questions in the order given, numbered from 1, with an
// optional answer key after them.
func RenderText(h ExamHeader, qs []exam.VariantQuestion, includeAnswers bool) string {
	code := h.VariantCode
	if code == "" {
		code = "All"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "EXAM: %s\n", h.Name)
	fmt.Fprintf(&b, "Variant code: %s\n", code)
	fmt.Fprintf(&b, "Duration: %d minutes\n\n", h.DurationMin)

	for i, q := range qs {
		fmt.Fprintf(&b, "Question %d: %s\n", i+1, q.Text)
		for j, a := range q.Answers() {
			fmt.Fprintf(&b, "%s. %s\n", exam.Letters[j], a)
		}
		b.WriteString("\n")
	}

	if includeAnswers {
		b.WriteString("\n--- ANSWER KEY ---\n")
		for i, q := range qs {
			fmt.Fprintf(&b, "Question %d: %s\n", i+1, q.CorrectAnswer)
		}
	}
	return b.String()
}
