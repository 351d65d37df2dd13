package exam

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func (s Subject) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("subject name required")
	}
	if strings.TrimSpace(s.Code) == "" {
		return invalid("subject code required")
	}
	return nil
}

// Validate checks a bank question before it is stored. Answer texts may repeat.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return invalid("question text required")
	}
	for i, a := range q.Answers() {
		if strings.TrimSpace(a) == "" {
			return invalid("answer %s required", Letters[i])
		}
	}
	if LetterIndex(q.CorrectAnswer) < 0 {
		return invalid("correct answer must be one of A, B, C, D (got %q)", q.CorrectAnswer)
	}
	if q.SubjectID <= 0 {
		return invalid("subject_id required")
	}
	return nil
}

func (e Exam) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return invalid("exam name required")
	}
	if strings.TrimSpace(e.Code) == "" {
		return invalid("exam code required")
	}
	if e.NumberOfQuestions < 1 {
		return invalid("number_of_questions must be positive")
	}
	if e.DurationMin < 0 {
		return invalid("duration must not be negative")
	}
	if e.SubjectID <= 0 {
		return invalid("subject_id required")
	}
	return nil
}
