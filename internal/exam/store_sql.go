package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// ---- subjects ----

func (s *SQLStore) CreateSubject(ctx context.Context, sub Subject) (Subject, error) {
	if err := sub.Validate(); err != nil {
		return Subject{}, err
	}
	sub.CreatedAt = time.Now().Unix()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO subjects (name,code,description,created_at) VALUES ($1,$2,$3,$4) RETURNING id`,
		sub.Name, sub.Code, sub.Description, sub.CreatedAt).Scan(&sub.ID)
	if err != nil {
		return Subject{}, err
	}
	return sub, nil
}

func (s *SQLStore) GetSubject(ctx context.Context, id int64) (Subject, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,code,description,created_at FROM subjects WHERE id=$1`, id)
	var sub Subject
	if err := row.Scan(&sub.ID, &sub.Name, &sub.Code, &sub.Description, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, notFound("subject", id)
		}
		return Subject{}, err
	}
	return sub, nil
}

func (s *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,code,description,created_at FROM subjects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subject{}
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Code, &sub.Description, &sub.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateSubject(ctx context.Context, id int64, p SubjectPatch) (Subject, error) {
	sub, err := s.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	p.apply(&sub)
	if err := sub.Validate(); err != nil {
		return Subject{}, err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE subjects SET name=$1, code=$2, description=$3 WHERE id=$4`,
		sub.Name, sub.Code, sub.Description, id)
	if err != nil {
		return Subject{}, err
	}
	return sub, nil
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "subjects", "subject", id)
}

// ---- questions ----

const questionCols = `id,subject_id,question,answer_a,answer_b,answer_c,answer_d,correct_answer,created_at`

type scanner interface{ Scan(dest ...any) error }

func scanQuestion(r scanner) (Question, error) {
	var q Question
	err := r.Scan(&q.ID, &q.SubjectID, &q.Text, &q.AnswerA, &q.AnswerB, &q.AnswerC, &q.AnswerD, &q.CorrectAnswer, &q.CreatedAt)
	return q, err
}

// CreateQuestions inserts all questions in one transaction.
func (s *SQLStore) CreateQuestions(ctx context.Context, qs []Question) ([]Question, error) {
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	out := make([]Question, 0, len(qs))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		checked := map[int64]bool{}
		now := time.Now().Unix()
		for _, q := range qs {
			if !checked[q.SubjectID] {
				if err := rowExists(ctx, tx, "subjects", "subject", q.SubjectID); err != nil {
					return err
				}
				checked[q.SubjectID] = true
			}
			q.CorrectAnswer = NormalizeLetter(q.CorrectAnswer)
			q.CreatedAt = now
			err := tx.QueryRowContext(ctx,
				`INSERT INTO questions (subject_id,question,answer_a,answer_b,answer_c,answer_d,correct_answer,created_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
				q.SubjectID, q.Text, q.AnswerA, q.AnswerB, q.AnswerC, q.AnswerD, q.CorrectAnswer, q.CreatedAt).Scan(&q.ID)
			if err != nil {
				return err
			}
			out = append(out, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, notFound("question", id)
		}
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context) ([]Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionCols+` FROM questions ORDER BY id`)
}

func (s *SQLStore) QuestionsBySubject(ctx context.Context, subjectID int64) ([]Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionCols+` FROM questions WHERE subject_id=$1 ORDER BY id`, subjectID)
}

func (s *SQLStore) queryQuestions(ctx context.Context, query string, args ...any) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, id int64, p QuestionPatch) (Question, error) {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	p.apply(&q)
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	if p.SubjectID != nil {
		if err := rowExists(ctx, s.db, "subjects", "subject", q.SubjectID); err != nil {
			return Question{}, err
		}
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE questions SET subject_id=$1, question=$2, answer_a=$3, answer_b=$4, answer_c=$5, answer_d=$6, correct_answer=$7
		 WHERE id=$8`,
		q.SubjectID, q.Text, q.AnswerA, q.AnswerB, q.AnswerC, q.AnswerD, q.CorrectAnswer, id)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "questions", "question", id)
}

// ---- exams ----

const examCols = `id,name,code,duration,number_of_questions,subject_id,created_at`

func scanExam(r scanner) (Exam, error) {
	var e Exam
	err := r.Scan(&e.ID, &e.Name, &e.Code, &e.DurationMin, &e.NumberOfQuestions, &e.SubjectID, &e.CreatedAt)
	return e, err
}

func (s *SQLStore) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	if err := e.Validate(); err != nil {
		return Exam{}, err
	}
	if err := rowExists(ctx, s.db, "subjects", "subject", e.SubjectID); err != nil {
		return Exam{}, err
	}
	e.CreatedAt = time.Now().Unix()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO exams (name,code,duration,number_of_questions,subject_id,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		e.Name, e.Code, e.DurationMin, e.NumberOfQuestions, e.SubjectID, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) GetExam(ctx context.Context, id int64) (Exam, error) {
	e, err := scanExam(s.db.QueryRowContext(ctx, `SELECT `+examCols+` FROM exams WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, notFound("exam", id)
		}
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) ListExams(ctx context.Context) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+examCols+` FROM exams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateExam(ctx context.Context, id int64, p ExamPatch) (Exam, error) {
	e, err := s.GetExam(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	p.apply(&e)
	if err := e.Validate(); err != nil {
		return Exam{}, err
	}
	if p.SubjectID != nil {
		if err := rowExists(ctx, s.db, "subjects", "subject", e.SubjectID); err != nil {
			return Exam{}, err
		}
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE exams SET name=$1, code=$2, duration=$3, number_of_questions=$4, subject_id=$5 WHERE id=$6`,
		e.Name, e.Code, e.DurationMin, e.NumberOfQuestions, e.SubjectID, id)
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) DeleteExam(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM exam_questions WHERE exam_id=$1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("exam", id)
		}
		return nil
	})
}

// ---- variants ----

// SaveVariants replaces the exam's stored variants with variants in a single
// transaction: either every (variant, question) row is written or none is.
func (s *SQLStore) SaveVariants(ctx context.Context, examID int64, variants []Variant) error {
	rows := Rows(examID, variants)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := rowExists(ctx, tx, "exams", "exam", examID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM exam_questions WHERE exam_id=$1`, examID); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO exam_questions
			 (exam_id,question_id,question_order,variant_code,question_text,answer_a,answer_b,answer_c,answer_d,correct_answer,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		now := time.Now().Unix()
		for _, r := range rows {
			if r.CorrectAnswer == "" {
				return fmt.Errorf("variant %s question %d: %w", r.VariantCode, r.Order, ErrMalformedQuestionData)
			}
			if _, err := stmt.ExecContext(ctx, r.ExamID, r.QuestionID, r.Order, r.VariantCode, r.Text,
				r.AnswerA, r.AnswerB, r.AnswerC, r.AnswerD, r.CorrectAnswer, now); err != nil {
				return fmt.Errorf("insert variant %s question %d: %w", r.VariantCode, r.Order, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) LoadVariants(ctx context.Context, examID int64) (VariantSet, error) {
	rows, err := s.variantRows(ctx, examID, "")
	if err != nil {
		return VariantSet{}, err
	}
	return GroupVariants(rows), nil
}

func (s *SQLStore) VariantQuestions(ctx context.Context, examID int64, code string) ([]VariantQuestion, error) {
	rows, err := s.variantRows(ctx, examID, code)
	if err != nil {
		return nil, err
	}
	out := make([]VariantQuestion, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.VariantQuestion)
	}
	return out, nil
}

func (s *SQLStore) variantRows(ctx context.Context, examID int64, code string) ([]VariantRow, error) {
	query := `SELECT exam_id,variant_code,question_order,question_id,question_text,answer_a,answer_b,answer_c,answer_d,correct_answer
		FROM exam_questions WHERE exam_id=$1`
	args := []any{examID}
	if code != "" {
		query += ` AND variant_code=$2`
		args = append(args, code)
	}
	query += ` ORDER BY variant_code, question_order`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VariantRow
	for rows.Next() {
		var r VariantRow
		if err := rows.Scan(&r.ExamID, &r.VariantCode, &r.Order, &r.QuestionID, &r.Text,
			&r.AnswerA, &r.AnswerB, &r.AnswerC, &r.AnswerD, &r.CorrectAnswer); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- helpers ----

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func rowExists(ctx context.Context, q queryer, table, entity string, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(entity, id)
	}
	return err
}

func (s *SQLStore) deleteByID(ctx context.Context, table, entity string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(entity, id)
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}
