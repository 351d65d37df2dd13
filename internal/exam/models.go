package exam

import "strings"

// Letters are the display slots of a question, in order.
var Letters = [4]string{"A", "B", "C", "D"}

type Subject struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// Question is a bank entry: four answers, exactly one marked correct by letter.
type Question struct {
	ID            int64  `json:"id"`
	SubjectID     int64  `json:"subject_id"`
	Text          string `json:"question"`
	AnswerA       string `json:"answer_a"`
	AnswerB       string `json:"answer_b"`
	AnswerC       string `json:"answer_c"`
	AnswerD       string `json:"answer_d"`
	CorrectAnswer string `json:"correct_answer"` // A|B|C|D
	CreatedAt     int64  `json:"created_at,omitempty"`
}

// Answers returns the answer texts in A..D order.
func (q Question) Answers() [4]string {
	return [4]string{q.AnswerA, q.AnswerB, q.AnswerC, q.AnswerD}
}

type Exam struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Code              string `json:"code"`
	DurationMin       int    `json:"duration"` // minutes
	NumberOfQuestions int    `json:"number_of_questions"`
	SubjectID         int64  `json:"subject_id"`
	CreatedAt         int64  `json:"created_at,omitempty"`
}

// VariantQuestion is a question as printed in one variant. Texts are copies, so
// editing the bank question later does not change generated exams.
type VariantQuestion struct {
	Order         int    `json:"question_order"` // 1-based
	QuestionID    int64  `json:"question_id"`
	Text          string `json:"question"`
	AnswerA       string `json:"answer_a"`
	AnswerB       string `json:"answer_b"`
	AnswerC       string `json:"answer_c"`
	AnswerD       string `json:"answer_d"`
	CorrectAnswer string `json:"correct_answer"`
}

func (v VariantQuestion) Answers() [4]string {
	return [4]string{v.AnswerA, v.AnswerB, v.AnswerC, v.AnswerD}
}

// CorrectText returns the answer text at the correct letter, or "" if the letter is invalid.
func (v VariantQuestion) CorrectText() string {
	i := LetterIndex(v.CorrectAnswer)
	if i < 0 {
		return ""
	}
	return v.Answers()[i]
}

type Variant struct {
	Code      string            `json:"code"`
	ExamID    int64             `json:"exam_id"`
	Questions []VariantQuestion `json:"questions"`
}

// LetterIndex maps "A".."D" (case and surrounding space ignored) to 0..3, or -1.
func LetterIndex(letter string) int {
	switch strings.ToUpper(strings.TrimSpace(letter)) {
	case "A":
		return 0
	case "B":
		return 1
	case "C":
		return 2
	case "D":
		return 3
	}
	return -1
}

// NormalizeLetter returns the canonical upper-case letter, or "" if invalid.
func NormalizeLetter(letter string) string {
	i := LetterIndex(letter)
	if i < 0 {
		return ""
	}
	return Letters[i]
}
