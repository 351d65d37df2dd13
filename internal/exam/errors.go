package exam

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrNoQuestionsAvailable  = errors.New("no questions available for this subject")
	ErrInsufficientQuestions = errors.New("insufficient questions")
	ErrInvalidVariantCount   = errors.New("invalid variant count")
	ErrInvalidQuestionCount  = errors.New("invalid number of questions")
	ErrMalformedQuestionData = errors.New("malformed question data")
)

type InsufficientQuestionsError struct {
	Required  int
	Available int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("not enough questions: need %d but only have %d", e.Required, e.Available)
}

func (e *InsufficientQuestionsError) Is(target error) bool { return target == ErrInsufficientQuestions }

type InvalidVariantCountError struct {
	Requested int
	Max       int
}

func (e *InvalidVariantCountError) Error() string {
	return fmt.Sprintf("invalid variant count %d: must be between 1 and %d", e.Requested, e.Max)
}

func (e *InvalidVariantCountError) Is(target error) bool { return target == ErrInvalidVariantCount }

// MalformedQuestionError reports a bank question whose correct letter names no answer slot.
type MalformedQuestionError struct {
	QuestionID int64
	Letter     string
}

func (e *MalformedQuestionError) Error() string {
	return fmt.Sprintf("question %d: correct answer %q is not one of A, B, C, D", e.QuestionID, e.Letter)
}

func (e *MalformedQuestionError) Is(target error) bool { return target == ErrMalformedQuestionData }

func notFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}
