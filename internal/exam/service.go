package exam

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mind-engage/mindengage-qbank/internal/lock"
	"github.com/mind-engage/mindengage-qbank/internal/logger"
	syncx "github.com/mind-engage/mindengage-qbank/internal/sync"
)

var ErrNoVariants = errors.New("no exam questions found")

// EventRecorder receives a note after variants are stored. Optional.
type EventRecorder interface {
	Record(ctx context.Context, typ, key string, data any) error
}

type ServiceOptions struct {
	MaxVariants int
	LockTTL     time.Duration
	// Seed fixes the random source of every generation when non-zero (tests).
	Seed   uint64
	Events EventRecorder
}

// Service loads inputs, runs the generator and persists the result.
type Service struct {
	store  Store
	locker lock.Locker
	log    *logger.Logger
	opts   ServiceOptions
}

func NewService(store Store, locker lock.Locker, log *logger.Logger, opts ServiceOptions) *Service {
	if opts.MaxVariants <= 0 {
		opts.MaxVariants = DefaultMaxVariants
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, locker: locker, log: log.With("service", "ExamService"), opts: opts}
}

// newGenerator returns a fresh generator per call so concurrent requests share no state.
func (s *Service) newGenerator() *Generator {
	g := NewGenerator(s.opts.Seed)
	g.MaxVariants = s.opts.MaxVariants
	return g
}

// GenerateAndSave builds variantCount variants for an exam and replaces its stored
// variant set. Generation for one exam is serialized across callers.
func (s *Service) GenerateAndSave(ctx context.Context, examID int64, variantCount int) ([]Variant, error) {
	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, "exam:"+strconv.FormatInt(examID, 10)+":generate", s.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("exam %d: %w", examID, err)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			s.log.Warn("release generation lock", "exam_id", examID, "error", rerr)
		}
	}()

	pool, err := s.store.QuestionsBySubject(ctx, ex.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load questions for subject %d: %w", ex.SubjectID, err)
	}

	variants, err := s.newGenerator().Generate(pool, ex, variantCount)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveVariants(ctx, examID, variants); err != nil {
		return nil, fmt.Errorf("save variants for exam %d: %w", examID, err)
	}

	codes := make([]string, len(variants))
	for i, v := range variants {
		codes[i] = v.Code
	}
	s.log.Info("variants generated",
		"exam_id", examID, "subject_id", ex.SubjectID, "pool", len(pool),
		"per_variant", ex.NumberOfQuestions, "variants", len(variants))

	if s.opts.Events != nil {
		data := map[string]any{"exam_id": examID, "codes": codes}
		if err := s.opts.Events.Record(ctx, syncx.TypeVariantsGenerated, strconv.FormatInt(examID, 10), data); err != nil {
			s.log.Warn("record event", "exam_id", examID, "error", err)
		}
	}
	return variants, nil
}

// Variants returns the stored variants of an exam grouped by code.
func (s *Service) Variants(ctx context.Context, examID int64) (VariantSet, error) {
	if _, err := s.store.GetExam(ctx, examID); err != nil {
		return VariantSet{}, err
	}
	return s.store.LoadVariants(ctx, examID)
}

// ExportQuestions returns the exam and the stored questions of one variant
// (or all variants when code is empty) in print order.
func (s *Service) ExportQuestions(ctx context.Context, examID int64, code string) (Exam, []VariantQuestion, error) {
	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return Exam{}, nil, err
	}
	qs, err := s.store.VariantQuestions(ctx, examID, code)
	if err != nil {
		return Exam{}, nil, err
	}
	if len(qs) == 0 {
		return Exam{}, nil, ErrNoVariants
	}
	return ex, qs, nil
}
