package exam_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-qbank/internal/db"
	"github.com/mind-engage/mindengage-qbank/internal/exam"
)

func openSQLite(t *testing.T) *exam.SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbh.Close() })
	return exam.NewSQLStore(dbh, string(db.DriverSQLite))
}

// eachStore runs fn against every Store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, s exam.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, exam.NewInMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLite(t)) })
}

func seedSubject(t *testing.T, s exam.Store, nQuestions int) (exam.Subject, []exam.Question) {
	t.Helper()
	ctx := context.Background()
	sub, err := s.CreateSubject(ctx, exam.Subject{Name: "Physics", Code: "PHY"})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	in := make([]exam.Question, nQuestions)
	for i := range in {
		in[i] = exam.Question{
			SubjectID:     sub.ID,
			Text:          fmt.Sprintf("Q%d", i+1),
			AnswerA:       "a",
			AnswerB:       "b",
			AnswerC:       "c",
			AnswerD:       fmt.Sprintf("d%d", i),
			CorrectAnswer: strings.ToLower(exam.Letters[i%4]),
		}
	}
	qs, err := s.CreateQuestions(ctx, in)
	if err != nil {
		t.Fatalf("create questions: %v", err)
	}
	return sub, qs
}

func TestStore_SubjectCRUD(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		sub, err := s.CreateSubject(ctx, exam.Subject{Name: "Math", Code: "MTH", Description: "numbers"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if sub.ID == 0 {
			t.Fatal("expected id")
		}
		name := "Mathematics"
		got, err := s.UpdateSubject(ctx, sub.ID, exam.SubjectPatch{Name: &name})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Name != name || got.Code != "MTH" || got.Description != "numbers" {
			t.Fatalf("partial update lost fields: %+v", got)
		}
		list, err := s.ListSubjects(ctx)
		if err != nil || len(list) != 1 {
			t.Fatalf("list: %v %v", list, err)
		}
		if err := s.DeleteSubject(ctx, sub.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetSubject(ctx, sub.ID); !errors.Is(err, exam.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
		if err := s.DeleteSubject(ctx, sub.ID); !errors.Is(err, exam.ErrNotFound) {
			t.Fatalf("second delete: want ErrNotFound, got %v", err)
		}
		if _, err := s.CreateSubject(ctx, exam.Subject{Code: "X"}); !errors.Is(err, exam.ErrInvalid) {
			t.Fatalf("want ErrInvalid, got %v", err)
		}
	})
}

func TestStore_Questions(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		sub, qs := seedSubject(t, s, 3)
		if len(qs) != 3 {
			t.Fatalf("want 3 questions, got %d", len(qs))
		}
		if qs[1].CorrectAnswer != "B" {
			t.Fatalf("letter not normalized: %q", qs[1].CorrectAnswer)
		}

		other, _ := s.CreateSubject(ctx, exam.Subject{Name: "Other", Code: "OTH"})
		if _, err := s.CreateQuestions(ctx, []exam.Question{{SubjectID: other.ID, Text: "x", AnswerA: "1", AnswerB: "2", AnswerC: "3", AnswerD: "4", CorrectAnswer: "A"}}); err != nil {
			t.Fatal(err)
		}

		bySub, err := s.QuestionsBySubject(ctx, sub.ID)
		if err != nil || len(bySub) != 3 {
			t.Fatalf("by subject: %d %v", len(bySub), err)
		}
		all, _ := s.ListQuestions(ctx)
		if len(all) != 4 {
			t.Fatalf("list all: %d", len(all))
		}

		letter := "d"
		text := "changed"
		q, err := s.UpdateQuestion(ctx, qs[0].ID, exam.QuestionPatch{CorrectAnswer: &letter, Text: &text})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if q.CorrectAnswer != "D" || q.Text != "changed" || q.AnswerA != "a" {
			t.Fatalf("unexpected update result: %+v", q)
		}
		bad := "Z"
		if _, err := s.UpdateQuestion(ctx, qs[0].ID, exam.QuestionPatch{CorrectAnswer: &bad}); !errors.Is(err, exam.ErrInvalid) {
			t.Fatalf("want ErrInvalid, got %v", err)
		}
		reread, _ := s.GetQuestion(ctx, qs[0].ID)
		if reread.CorrectAnswer != "D" {
			t.Fatalf("rejected update was stored: %+v", reread)
		}

		if _, err := s.CreateQuestions(ctx, []exam.Question{{SubjectID: 9999, Text: "x", AnswerA: "1", AnswerB: "2", AnswerC: "3", AnswerD: "4", CorrectAnswer: "A"}}); !errors.Is(err, exam.ErrNotFound) {
			t.Fatalf("unknown subject: want ErrNotFound, got %v", err)
		}
		if err := s.DeleteQuestion(ctx, qs[2].ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetQuestion(ctx, qs[2].ID); !errors.Is(err, exam.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestStore_BulkCreateIsAllOrNothing(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		sub, _ := seedSubject(t, s, 0)
		batch := []exam.Question{
			{SubjectID: sub.ID, Text: "ok", AnswerA: "1", AnswerB: "2", AnswerC: "3", AnswerD: "4", CorrectAnswer: "A"},
			{SubjectID: sub.ID, Text: "bad", AnswerA: "1", AnswerB: "2", AnswerC: "3", AnswerD: "4", CorrectAnswer: "F"},
		}
		if _, err := s.CreateQuestions(ctx, batch); !errors.Is(err, exam.ErrInvalid) {
			t.Fatalf("want ErrInvalid, got %v", err)
		}
		got, _ := s.QuestionsBySubject(ctx, sub.ID)
		if len(got) != 0 {
			t.Fatalf("partial batch stored: %d questions", len(got))
		}
	})
}

func TestStore_Exams(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		sub, _ := seedSubject(t, s, 1)
		ex, err := s.CreateExam(ctx, exam.Exam{Name: "Midterm", Code: "MT", DurationMin: 45, NumberOfQuestions: 1, SubjectID: sub.ID})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.GetExam(ctx, ex.ID)
		if err != nil || got.Code != "MT" || got.DurationMin != 45 {
			t.Fatalf("get: %+v %v", got, err)
		}
		d := 60
		up, err := s.UpdateExam(ctx, ex.ID, exam.ExamPatch{DurationMin: &d})
		if err != nil || up.DurationMin != 60 || up.Name != "Midterm" {
			t.Fatalf("update: %+v %v", up, err)
		}
		if _, err := s.CreateExam(ctx, exam.Exam{Name: "x", Code: "x", NumberOfQuestions: 1, SubjectID: 777}); !errors.Is(err, exam.ErrNotFound) {
			t.Fatalf("unknown subject: want ErrNotFound, got %v", err)
		}
		if _, err := s.CreateExam(ctx, exam.Exam{Name: "x", Code: "x", NumberOfQuestions: 0, SubjectID: sub.ID}); !errors.Is(err, exam.ErrInvalid) {
			t.Fatalf("zero questions: want ErrInvalid, got %v", err)
		}
		list, _ := s.ListExams(ctx)
		if len(list) != 1 {
			t.Fatalf("list: %d", len(list))
		}
		if err := s.DeleteExam(ctx, ex.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetExam(ctx, ex.ID); !errors.Is(err, exam.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestStore_SaveAndLoadVariants(t *testing.T) {
	eachStore(t, func(t *testing.T, s exam.Store) {
		ctx := context.Background()
		sub, pool := seedSubject(t, s, 6)
		ex, err := s.CreateExam(ctx, exam.Exam{Name: "Final", Code: "FN", NumberOfQuestions: 4, SubjectID: sub.ID})
		if err != nil {
			t.Fatal(err)
		}
		variants, err := exam.NewGenerator(12).Generate(pool, ex, 3)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.SaveVariants(ctx, ex.ID, variants); err != nil {
			t.Fatalf("save: %v", err)
		}

		set, err := s.LoadVariants(ctx, ex.ID)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got := set.Codes(); fmt.Sprint(got) != "[FN-001 FN-002 FN-003]" {
			t.Fatalf("codes = %v", got)
		}
		for _, v := range variants {
			got, ok := set.Get(v.Code)
			if !ok {
				t.Fatalf("missing %s", v.Code)
			}
			if fmt.Sprint(got) != fmt.Sprint(v.Questions) {
				t.Fatalf("%s round trip:\n got %v\nwant %v", v.Code, got, v.Questions)
			}
		}

		one, err := s.VariantQuestions(ctx, ex.ID, "FN-002")
		if err != nil || len(one) != 4 {
			t.Fatalf("variant questions: %d %v", len(one), err)
		}
		all, _ := s.VariantQuestions(ctx, ex.ID, "")
		if len(all) != 12 {
			t.Fatalf("all variant questions: %d", len(all))
		}

		// regenerating replaces the previous set
		again, _ := exam.NewGenerator(13).Generate(pool, ex, 2)
		if err := s.SaveVariants(ctx, ex.ID, again); err != nil {
			t.Fatalf("second save: %v", err)
		}
		set, _ = s.LoadVariants(ctx, ex.ID)
		if set.Len() != 2 {
			t.Fatalf("after regenerate: %v", set.Codes())
		}

		// bank edits do not touch stored variants
		txt := "edited"
		if _, err := s.UpdateQuestion(ctx, pool[0].ID, exam.QuestionPatch{Text: &txt}); err != nil {
			t.Fatal(err)
		}
		for _, q := range mustAll(t, s, ex.ID) {
			if q.Text == "edited" {
				t.Fatal("stored variant changed after question edit")
			}
		}

		if err := s.SaveVariants(ctx, 4242, again); !errors.Is(err, exam.ErrNotFound) {
			t.Fatalf("unknown exam: want ErrNotFound, got %v", err)
		}
	})
}

func mustAll(t *testing.T, s exam.Store, examID int64) []exam.VariantQuestion {
	t.Helper()
	qs, err := s.VariantQuestions(context.Background(), examID, "")
	if err != nil {
		t.Fatal(err)
	}
	return qs
}

func TestSQLStore_SaveVariantsRollsBack(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	sub, pool := seedSubject(t, s, 2)
	ex, _ := s.CreateExam(ctx, exam.Exam{Name: "E", Code: "E", NumberOfQuestions: 2, SubjectID: sub.ID})
	good, _ := exam.NewGenerator(1).Generate(pool, ex, 1)
	if err := s.SaveVariants(ctx, ex.ID, good); err != nil {
		t.Fatal(err)
	}

	broken := []exam.Variant{{Code: "E-001", Questions: []exam.VariantQuestion{
		{QuestionID: 1, Text: "t", AnswerA: "a", AnswerB: "b", AnswerC: "c", AnswerD: "d", CorrectAnswer: "A"},
		{QuestionID: 2, Text: "t", AnswerA: "a", AnswerB: "b", AnswerC: "c", AnswerD: "d", CorrectAnswer: ""},
	}}}
	if err := s.SaveVariants(ctx, ex.ID, broken); !errors.Is(err, exam.ErrMalformedQuestionData) {
		t.Fatalf("want ErrMalformedQuestionData, got %v", err)
	}
	set, _ := s.LoadVariants(ctx, ex.ID)
	got, _ := set.Get("E-001")
	if fmt.Sprint(got) != fmt.Sprint(good[0].Questions) {
		t.Fatalf("failed save changed stored variants: %v", got)
	}
}
