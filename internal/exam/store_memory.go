package exam

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu        sync.RWMutex
	seq       int64
	subjects  map[int64]Subject
	questions map[int64]Question
	exams     map[int64]Exam
	variants  []VariantRow
}

// NewInMemoryStore returns a Store kept in process memory; data is lost on exit.
func NewInMemoryStore() Store {
	return &memoryStore{
		subjects:  map[int64]Subject{},
		questions: map[int64]Question{},
		exams:     map[int64]Exam{},
	}
}

func (m *memoryStore) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *memoryStore) CreateSubject(_ context.Context, s Subject) (Subject, error) {
	if err := s.Validate(); err != nil {
		return Subject{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextID()
	s.CreatedAt = time.Now().Unix()
	m.subjects[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetSubject(_ context.Context, id int64) (Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, notFound("subject", id)
	}
	return s, nil
}

func (m *memoryStore) ListSubjects(_ context.Context) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) UpdateSubject(_ context.Context, id int64, p SubjectPatch) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, notFound("subject", id)
	}
	p.apply(&s)
	if err := s.Validate(); err != nil {
		return Subject{}, err
	}
	m.subjects[id] = s
	return s, nil
}

func (m *memoryStore) DeleteSubject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[id]; !ok {
		return notFound("subject", id)
	}
	delete(m.subjects, id)
	// cascade like the SQL schema does
	for qid, q := range m.questions {
		if q.SubjectID == id {
			delete(m.questions, qid)
		}
	}
	for eid, e := range m.exams {
		if e.SubjectID == id {
			delete(m.exams, eid)
			m.dropVariants(eid)
		}
	}
	return nil
}

func (m *memoryStore) CreateQuestions(_ context.Context, qs []Question) ([]Question, error) {
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range qs {
		if _, ok := m.subjects[q.SubjectID]; !ok {
			return nil, notFound("subject", q.SubjectID)
		}
	}
	now := time.Now().Unix()
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		q.ID = m.nextID()
		q.CorrectAnswer = NormalizeLetter(q.CorrectAnswer)
		q.CreatedAt = now
		m.questions[q.ID] = q
		out = append(out, q)
	}
	return out, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id int64) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, notFound("question", id)
	}
	return q, nil
}

func (m *memoryStore) ListQuestions(_ context.Context) ([]Question, error) {
	return m.filterQuestions(func(Question) bool { return true }), nil
}

func (m *memoryStore) QuestionsBySubject(_ context.Context, subjectID int64) ([]Question, error) {
	return m.filterQuestions(func(q Question) bool { return q.SubjectID == subjectID }), nil
}

func (m *memoryStore) filterQuestions(keep func(Question) bool) []Question {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) UpdateQuestion(_ context.Context, id int64, p QuestionPatch) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, notFound("question", id)
	}
	p.apply(&q)
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	if _, ok := m.subjects[q.SubjectID]; !ok {
		return Question{}, notFound("subject", q.SubjectID)
	}
	m.questions[id] = q
	return q, nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return notFound("question", id)
	}
	delete(m.questions, id)
	return nil
}

func (m *memoryStore) CreateExam(_ context.Context, e Exam) (Exam, error) {
	if err := e.Validate(); err != nil {
		return Exam{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[e.SubjectID]; !ok {
		return Exam{}, notFound("subject", e.SubjectID)
	}
	e.ID = m.nextID()
	e.CreatedAt = time.Now().Unix()
	m.exams[e.ID] = e
	return e, nil
}

func (m *memoryStore) GetExam(_ context.Context, id int64) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, notFound("exam", id)
	}
	return e, nil
}

func (m *memoryStore) ListExams(_ context.Context) ([]Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Exam, 0, len(m.exams))
	for _, e := range m.exams {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) UpdateExam(_ context.Context, id int64, p ExamPatch) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, notFound("exam", id)
	}
	p.apply(&e)
	if err := e.Validate(); err != nil {
		return Exam{}, err
	}
	if _, ok := m.subjects[e.SubjectID]; !ok {
		return Exam{}, notFound("subject", e.SubjectID)
	}
	m.exams[id] = e
	return e, nil
}

func (m *memoryStore) DeleteExam(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return notFound("exam", id)
	}
	delete(m.exams, id)
	m.dropVariants(id)
	return nil
}

func (m *memoryStore) dropVariants(examID int64) {
	kept := m.variants[:0]
	for _, r := range m.variants {
		if r.ExamID != examID {
			kept = append(kept, r)
		}
	}
	m.variants = kept
}

func (m *memoryStore) SaveVariants(_ context.Context, examID int64, variants []Variant) error {
	rows := Rows(examID, variants)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[examID]; !ok {
		return notFound("exam", examID)
	}
	// a new generation replaces the exam's previous variant set
	m.dropVariants(examID)
	m.variants = append(m.variants, rows...)
	return nil
}

func (m *memoryStore) rowsFor(examID int64, code string) []VariantRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []VariantRow
	for _, r := range m.variants {
		if r.ExamID == examID && (code == "" || r.VariantCode == code) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memoryStore) LoadVariants(_ context.Context, examID int64) (VariantSet, error) {
	return GroupVariants(m.rowsFor(examID, "")), nil
}

func (m *memoryStore) VariantQuestions(_ context.Context, examID int64, code string) ([]VariantQuestion, error) {
	var out []VariantQuestion
	for _, v := range GroupVariants(m.rowsFor(examID, code)).Variants(examID) {
		out = append(out, v.Questions...)
	}
	return out, nil
}
