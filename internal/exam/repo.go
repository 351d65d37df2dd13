package exam

import "context"

type QuestionSource interface {
	QuestionsBySubject(ctx context.Context, subjectID int64) ([]Question, error)
}

type ExamSource interface {
	GetExam(ctx context.Context, id int64) (Exam, error)
}

// VariantSink persists generated variants. Implementations write one row per
// (variant, question) and must store a whole call or nothing.
type VariantSink interface {
	SaveVariants(ctx context.Context, examID int64, variants []Variant) error
}

type VariantReader interface {
	LoadVariants(ctx context.Context, examID int64) (VariantSet, error)
	// VariantQuestions returns one variant's questions by order; empty code means all variants.
	VariantQuestions(ctx context.Context, examID int64, code string) ([]VariantQuestion, error)
}

// SubjectPatch and friends carry partial updates; nil fields keep the stored value.
type SubjectPatch struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
}

type QuestionPatch struct {
	Text          *string `json:"question"`
	AnswerA       *string `json:"answer_a"`
	AnswerB       *string `json:"answer_b"`
	AnswerC       *string `json:"answer_c"`
	AnswerD       *string `json:"answer_d"`
	CorrectAnswer *string `json:"correct_answer"`
	SubjectID     *int64  `json:"subject_id"`
}

type ExamPatch struct {
	Name              *string `json:"name"`
	Code              *string `json:"code"`
	DurationMin       *int    `json:"duration"`
	NumberOfQuestions *int    `json:"number_of_questions"`
	SubjectID         *int64  `json:"subject_id"`
}

type Store interface {
	QuestionSource
	ExamSource
	VariantSink
	VariantReader

	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	GetSubject(ctx context.Context, id int64) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
	UpdateSubject(ctx context.Context, id int64, p SubjectPatch) (Subject, error)
	DeleteSubject(ctx context.Context, id int64) error

	CreateQuestions(ctx context.Context, qs []Question) ([]Question, error)
	GetQuestion(ctx context.Context, id int64) (Question, error)
	ListQuestions(ctx context.Context) ([]Question, error)
	UpdateQuestion(ctx context.Context, id int64, p QuestionPatch) (Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	CreateExam(ctx context.Context, e Exam) (Exam, error)
	ListExams(ctx context.Context) ([]Exam, error)
	UpdateExam(ctx context.Context, id int64, p ExamPatch) (Exam, error)
	DeleteExam(ctx context.Context, id int64) error
}

func (p SubjectPatch) apply(s *Subject) {
	setIf(&s.Name, p.Name)
	setIf(&s.Code, p.Code)
	setIf(&s.Description, p.Description)
}

func (p QuestionPatch) apply(q *Question) {
	setIf(&q.Text, p.Text)
	setIf(&q.AnswerA, p.AnswerA)
	setIf(&q.AnswerB, p.AnswerB)
	setIf(&q.AnswerC, p.AnswerC)
	setIf(&q.AnswerD, p.AnswerD)
	if p.CorrectAnswer != nil {
		q.CorrectAnswer = NormalizeLetter(*p.CorrectAnswer)
	}
	setIf(&q.SubjectID, p.SubjectID)
}

func (p ExamPatch) apply(e *Exam) {
	setIf(&e.Name, p.Name)
	setIf(&e.Code, p.Code)
	setIf(&e.DurationMin, p.DurationMin)
	setIf(&e.NumberOfQuestions, p.NumberOfQuestions)
	setIf(&e.SubjectID, p.SubjectID)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
