package exam_test

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/mind-engage/mindengage-qbank/internal/exam"
)

func pool(n int) []exam.Question {
	out := make([]exam.Question, n)
	for i := range out {
		id := int64(i + 1)
		out[i] = exam.Question{
			ID:            id,
			SubjectID:     1,
			Text:          fmt.Sprintf("Q%d", id),
			AnswerA:       fmt.Sprintf("q%d-a", id),
			AnswerB:       fmt.Sprintf("q%d-b", id),
			AnswerC:       fmt.Sprintf("q%d-c", id),
			AnswerD:       fmt.Sprintf("q%d-d", id),
			CorrectAnswer: exam.Letters[i%4],
		}
	}
	return out
}

func byID(qs []exam.Question) map[int64]exam.Question {
	m := make(map[int64]exam.Question, len(qs))
	for _, q := range qs {
		m[q.ID] = q
	}
	return m
}

func sortedAnswers(a [4]string) []string {
	s := a[:]
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestGenerate_ConcreteScenario(t *testing.T) {
	p := []exam.Question{{ID: 1, Text: "Q1", AnswerA: "x", AnswerB: "y", AnswerC: "z", AnswerD: "w", CorrectAnswer: "B"}}
	def := exam.Exam{ID: 7, Code: "T1", NumberOfQuestions: 1}

	vs, err := exam.NewGenerator(42).Generate(p, def, 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(vs) != 2 {
		t.Fatalf("want 2 variants, got %d", len(vs))
	}
	for i, want := range []string{"T1-001", "T1-002"} {
		v := vs[i]
		if v.Code != want {
			t.Errorf("variant %d code = %q, want %q", i, v.Code, want)
		}
		if v.ExamID != 7 {
			t.Errorf("variant %d exam id = %d", i, v.ExamID)
		}
		if len(v.Questions) != 1 {
			t.Fatalf("variant %d: want 1 question, got %d", i, len(v.Questions))
		}
		vq := v.Questions[0]
		if got := sortedAnswers(vq.Answers()); fmt.Sprint(got) != fmt.Sprint([]string{"w", "x", "y", "z"}) {
			t.Errorf("answers %v are not a permutation of x,y,z,w", vq.Answers())
		}
		if vq.CorrectText() != "y" {
			t.Errorf("correct letter %s points at %q, want \"y\"", vq.CorrectAnswer, vq.CorrectText())
		}
		if vq.Order != 1 || vq.QuestionID != 1 || vq.Text != "Q1" {
			t.Errorf("unexpected question metadata: %+v", vq)
		}
	}
}

func TestGenerate_CorrectAnswerFidelity(t *testing.T) {
	p := pool(30)
	src := byID(p)
	g := exam.NewGenerator(7)

	vs, err := g.Generate(p, exam.Exam{Code: "F", NumberOfQuestions: 25}, 20)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, v := range vs {
		for _, vq := range v.Questions {
			q := src[vq.QuestionID]
			want := q.Answers()[exam.LetterIndex(q.CorrectAnswer)]
			if vq.CorrectText() != want {
				t.Fatalf("%s q%d: letter %s -> %q, want %q", v.Code, vq.QuestionID, vq.CorrectAnswer, vq.CorrectText(), want)
			}
			if fmt.Sprint(sortedAnswers(vq.Answers())) != fmt.Sprint(sortedAnswers(q.Answers())) {
				t.Fatalf("%s q%d: answers %v not a permutation of %v", v.Code, vq.QuestionID, vq.Answers(), q.Answers())
			}
		}
	}
}

func TestGenerate_DuplicateAnswerTexts(t *testing.T) {
	// Three slots share a text. Matching by text would always resolve to the
	// first "same" slot (A or B); following the slot reaches all four letters.
	p := []exam.Question{{ID: 9, Text: "dup", AnswerA: "same", AnswerB: "same", AnswerC: "other", AnswerD: "same", CorrectAnswer: "D"}}
	g := exam.NewGenerator(3)
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		vs, err := g.Generate(p, exam.Exam{Code: "D", NumberOfQuestions: 1}, 1)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		vq := vs[0].Questions[0]
		if vq.CorrectText() != "same" {
			t.Fatalf("correct letter %s points at %q", vq.CorrectAnswer, vq.CorrectText())
		}
		seen[vq.CorrectAnswer]++
	}
	if len(seen) != 4 {
		t.Fatalf("correct letter did not follow its slot: %v", seen)
	}
}

func TestGenerate_CaseInsensitiveLetter(t *testing.T) {
	p := []exam.Question{{ID: 1, Text: "Q", AnswerA: "a", AnswerB: "b", AnswerC: "c", AnswerD: "d", CorrectAnswer: " c "}}
	vs, err := exam.NewGenerator(11).Generate(p, exam.Exam{Code: "L", NumberOfQuestions: 1}, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, v := range vs {
		if v.Questions[0].CorrectText() != "c" {
			t.Fatalf("%s: got %q", v.Code, v.Questions[0].CorrectText())
		}
	}
}

func TestGenerate_Counts(t *testing.T) {
	p := pool(12)
	vs, err := exam.NewGenerator(5).Generate(p, exam.Exam{Code: "C", NumberOfQuestions: 10}, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(vs) != 7 {
		t.Fatalf("want 7 variants, got %d", len(vs))
	}
	prev := ""
	for i, v := range vs {
		if len(v.Questions) != 10 {
			t.Errorf("%s: %d questions", v.Code, len(v.Questions))
		}
		if v.Code <= prev {
			t.Errorf("codes not strictly increasing: %q after %q", v.Code, prev)
		}
		prev = v.Code
		if want := exam.VariantCode("C", i+1); v.Code != want {
			t.Errorf("code %q, want %q", v.Code, want)
		}
		seen := map[int64]bool{}
		for j, vq := range v.Questions {
			if vq.Order != j+1 {
				t.Errorf("%s: order %d at position %d", v.Code, vq.Order, j)
			}
			if seen[vq.QuestionID] {
				t.Errorf("%s: question %d selected twice", v.Code, vq.QuestionID)
			}
			seen[vq.QuestionID] = true
		}
	}
}

func TestGenerate_DoesNotMutatePool(t *testing.T) {
	p := pool(8)
	before := fmt.Sprint(p)
	if _, err := exam.NewGenerator(9).Generate(p, exam.Exam{Code: "M", NumberOfQuestions: 8}, 5); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if fmt.Sprint(p) != before {
		t.Fatal("pool was modified")
	}
}

func TestGenerate_ShuffleIsApplied(t *testing.T) {
	p := pool(10)
	def := exam.Exam{Code: "S", NumberOfQuestions: 10}
	order := func(seed uint64) string {
		vs, err := exam.NewGenerator(seed).Generate(p, def, 1)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		var s string
		for _, vq := range vs[0].Questions {
			s += fmt.Sprintf("%d:%s%s%s%s,", vq.QuestionID, vq.AnswerA, vq.AnswerB, vq.AnswerC, vq.AnswerD)
		}
		return s
	}
	first := order(1)
	for seed := uint64(2); seed < 50; seed++ {
		if order(seed) != first {
			return
		}
	}
	t.Fatal("every seed produced the same ordering; shuffle looks like a no-op")
}

func TestGenerate_SameSeedIsDeterministic(t *testing.T) {
	p := pool(15)
	def := exam.Exam{Code: "R", NumberOfQuestions: 5}
	a, err := exam.NewGenerator(99).Generate(p, def, 4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := exam.NewGenerator(99).Generate(p, def, 4)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Fatal("same seed produced different variants")
	}
}

func TestGenerate_Errors(t *testing.T) {
	bad := pool(3)
	bad[1].CorrectAnswer = "E"

	cases := []struct {
		name  string
		pool  []exam.Question
		def   exam.Exam
		n     int
		want  error
		check func(t *testing.T, err error)
	}{
		{name: "empty pool", pool: nil, def: exam.Exam{Code: "E", NumberOfQuestions: 1}, n: 3, want: exam.ErrNoQuestionsAvailable},
		{
			name: "shortage", pool: pool(2), def: exam.Exam{Code: "E", NumberOfQuestions: 5}, n: 1, want: exam.ErrInsufficientQuestions,
			check: func(t *testing.T, err error) {
				var ie *exam.InsufficientQuestionsError
				if !errors.As(err, &ie) {
					t.Fatalf("want *InsufficientQuestionsError, got %T", err)
				}
				if ie.Required != 5 || ie.Available != 2 {
					t.Fatalf("required=%d available=%d", ie.Required, ie.Available)
				}
			},
		},
		{name: "zero variants", pool: pool(2), def: exam.Exam{Code: "E", NumberOfQuestions: 1}, n: 0, want: exam.ErrInvalidVariantCount},
		{name: "negative variants", pool: pool(2), def: exam.Exam{Code: "E", NumberOfQuestions: 1}, n: -4, want: exam.ErrInvalidVariantCount},
		{name: "too many variants", pool: pool(2), def: exam.Exam{Code: "E", NumberOfQuestions: 1}, n: exam.DefaultMaxVariants + 1, want: exam.ErrInvalidVariantCount},
		{name: "zero questions", pool: pool(2), def: exam.Exam{Code: "E", NumberOfQuestions: 0}, n: 1, want: exam.ErrInvalidQuestionCount},
		{
			name: "bad letter", pool: bad, def: exam.Exam{Code: "E", NumberOfQuestions: 1}, n: 1, want: exam.ErrMalformedQuestionData,
			check: func(t *testing.T, err error) {
				var me *exam.MalformedQuestionError
				if !errors.As(err, &me) || me.QuestionID != 2 || me.Letter != "E" {
					t.Fatalf("unexpected malformed error: %v", err)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vs, err := exam.NewGenerator(1).Generate(tc.pool, tc.def, tc.n)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if vs != nil {
				t.Fatalf("expected no output on error, got %d variants", len(vs))
			}
			if tc.check != nil {
				tc.check(t, err)
			}
		})
	}
}

func TestGenerate_ConfigurableMax(t *testing.T) {
	g := exam.NewGenerator(1)
	g.MaxVariants = 3
	_, err := g.Generate(pool(4), exam.Exam{Code: "X", NumberOfQuestions: 2}, 4)
	var ve *exam.InvalidVariantCountError
	if !errors.As(err, &ve) || ve.Max != 3 || ve.Requested != 4 {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Generate(pool(4), exam.Exam{Code: "X", NumberOfQuestions: 2}, 3); err != nil {
		t.Fatalf("3 variants should be allowed: %v", err)
	}
}
