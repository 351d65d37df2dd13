package exam

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultMaxVariants bounds a single generation request.
const DefaultMaxVariants = 20

// Generator builds exam variants from a subject's question pool.
// It holds its own random source and is not safe for concurrent use.
type Generator struct {
	MaxVariants int
	rng         *rand.Rand
}

// NewGenerator returns a generator seeded with seed, or from the clock when seed is 0.
func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		MaxVariants: DefaultMaxVariants,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate produces variantCount variants of def from pool. All validation runs
// before any variant is built; on error no variants are returned.
func (g *Generator) Generate(pool []Question, def Exam, variantCount int) ([]Variant, error) {
	if err := g.validate(pool, def, variantCount); err != nil {
		return nil, err
	}

	variants := make([]Variant, 0, variantCount)
	for i := 1; i <= variantCount; i++ {
		picked := g.pick(pool, def.NumberOfQuestions)
		qs := make([]VariantQuestion, 0, len(picked))
		for pos, q := range picked {
			vq, err := g.shuffleAnswers(q)
			if err != nil {
				return nil, err
			}
			vq.Order = pos + 1
			qs = append(qs, vq)
		}
		variants = append(variants, Variant{
			Code:      VariantCode(def.Code, i),
			ExamID:    def.ID,
			Questions: qs,
		})
	}
	return variants, nil
}

// VariantCode formats the code of the seq-th variant of an exam, e.g. "T1-001".
func VariantCode(examCode string, seq int) string {
	return fmt.Sprintf("%s-%03d", examCode, seq)
}

func (g *Generator) validate(pool []Question, def Exam, variantCount int) error {
	if len(pool) == 0 {
		return ErrNoQuestionsAvailable
	}
	if len(pool) < def.NumberOfQuestions {
		return &InsufficientQuestionsError{Required: def.NumberOfQuestions, Available: len(pool)}
	}
	limit := g.MaxVariants
	if limit <= 0 {
		limit = DefaultMaxVariants
	}
	if variantCount < 1 || variantCount > limit {
		return &InvalidVariantCountError{Requested: variantCount, Max: limit}
	}
	if def.NumberOfQuestions < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuestionCount, def.NumberOfQuestions)
	}
	for _, q := range pool {
		if LetterIndex(q.CorrectAnswer) < 0 {
			return &MalformedQuestionError{QuestionID: q.ID, Letter: q.CorrectAnswer}
		}
	}
	return nil
}

// pick returns the first n questions of a fresh uniform permutation of pool.
// pool itself is left untouched.
func (g *Generator) pick(pool []Question, n int) []Question {
	perm := make([]Question, len(pool))
	copy(perm, pool)
	g.rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	return perm[:n]
}

type slot struct {
	letter string // letter in the source question
	text   string
}

// shuffleAnswers permutes the four answers and recomputes the correct letter by
// following the slot that was correct in the source, never by comparing texts.
func (g *Generator) shuffleAnswers(q Question) (VariantQuestion, error) {
	answers := q.Answers()
	slots := make([]slot, 4)
	for i := range slots {
		slots[i] = slot{letter: Letters[i], text: answers[i]}
	}
	g.rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	want := NormalizeLetter(q.CorrectAnswer)
	correct := ""
	for pos, s := range slots {
		if s.letter == want {
			correct = Letters[pos]
			break
		}
	}
	if correct == "" {
		return VariantQuestion{}, &MalformedQuestionError{QuestionID: q.ID, Letter: q.CorrectAnswer}
	}

	return VariantQuestion{
		QuestionID:    q.ID,
		Text:          q.Text,
		AnswerA:       slots[0].text,
		AnswerB:       slots[1].text,
		AnswerC:       slots[2].text,
		AnswerD:       slots[3].text,
		CorrectAnswer: correct,
	}, nil
}
