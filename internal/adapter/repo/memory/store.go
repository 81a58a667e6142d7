// Package memory keeps subjects and feedback in process memory. It backs the
// service when no database is configured and doubles as the test store.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

// Store implements domain.SubjectRepository and domain.FeedbackRepository.
type Store struct {
	mu       sync.RWMutex
	subjects map[string]domain.Subject
	order    []string
	feedback []domain.Feedback
	now      func() time.Time
}

var (
	_ domain.SubjectRepository  = (*Store)(nil)
	_ domain.FeedbackRepository = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{subjects: map[string]domain.Subject{}, now: func() time.Time { return time.Now().UTC() }}
}

// Subjects adapts the store to domain.SubjectRepository.
func (s *Store) Subjects() domain.SubjectRepository { return s }

// Feedback adapts the store to domain.FeedbackRepository.
func (s *Store) Feedback() domain.FeedbackRepository { return s }

func (s *Store) filterSubjects(keep func(domain.Subject) bool) []domain.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Subject, 0)
	for _, id := range s.order {
		if sub := s.subjects[id]; keep(sub) {
			out = append(out, sub)
		}
	}
	return out
}

func (s *Store) List(_ domain.Context, dept domain.Department, year, semester int) ([]domain.Subject, error) {
	return s.filterSubjects(func(sub domain.Subject) bool {
		return sub.Department == dept && sub.Year == year && sub.Semester == semester
	}), nil
}

func (s *Store) ListAll(_ domain.Context) ([]domain.Subject, error) {
	return s.filterSubjects(func(domain.Subject) bool { return true }), nil
}

func (s *Store) ListByDepartment(_ domain.Context, dept domain.Department) ([]domain.Subject, error) {
	return s.filterSubjects(func(sub domain.Subject) bool { return sub.Department == dept }), nil
}

func (s *Store) ListFirstYear(_ domain.Context) ([]domain.Subject, error) {
	return s.filterSubjects(func(sub domain.Subject) bool { return sub.Department == domain.DeptSH || sub.Year == 1 }), nil
}

func (s *Store) Get(_ domain.Context, id string) (domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[id]
	if !ok {
		return domain.Subject{}, fmt.Errorf("op=subject.get: %w", domain.ErrNotFound)
	}
	return sub, nil
}

// Create stores sub, generating an id when empty. An existing id is a conflict.
func (s *Store) Create(_ domain.Context, sub domain.Subject) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if _, dup := s.subjects[sub.ID]; dup {
		return "", fmt.Errorf("op=subject.create: %w", domain.ErrConflict)
	}
	s.subjects[sub.ID] = sub
	s.order = append(s.order, sub.ID)
	return sub.ID, nil
}

func (s *Store) Delete(_ domain.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[id]; !ok {
		return fmt.Errorf("op=subject.delete: %w", domain.ErrNotFound)
	}
	delete(s.subjects, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Exists(_ domain.Context, registerNumber string, semester int, dept domain.Department) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(registerNumber, semester, dept), nil
}

func (s *Store) existsLocked(registerNumber string, semester int, dept domain.Department) bool {
	for _, f := range s.feedback {
		if f.RegisterNumber == registerNumber && f.Semester == semester && f.Department == dept {
			return true
		}
	}
	return false
}

// AppendBatch stores every entry with a fresh id and a shared timestamp. A
// batch from a student who already has feedback for the semester is rejected
// whole with ErrConflict.
func (s *Store) AppendBatch(_ domain.Context, entries []domain.Feedback) ([]domain.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range entries {
		if s.existsLocked(f.RegisterNumber, f.Semester, f.Department) {
			return nil, fmt.Errorf("op=feedback.append_batch: %w", domain.ErrConflict)
		}
	}
	now := s.now()
	out := make([]domain.Feedback, len(entries))
	for i, f := range entries {
		f.ID = uuid.New().String()
		f.CreatedAt = now
		out[i] = f
	}
	s.feedback = append(s.feedback, out...)
	return out, nil
}

func (s *Store) filterFeedback(keep func(domain.Feedback) bool) []domain.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Feedback, 0)
	for _, f := range s.feedback {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) ListByCohort(_ domain.Context, dept domain.Department, year, semester int) ([]domain.Feedback, error) {
	return s.filterFeedback(func(f domain.Feedback) bool {
		return f.Department == dept && f.Year == year && f.Semester == semester
	}), nil
}

func (s *Store) ListForHOD(_ domain.Context, dept domain.Department) ([]domain.Feedback, error) {
	if dept == domain.DeptSH {
		return s.filterFeedback(func(f domain.Feedback) bool { return f.Year == 1 }), nil
	}
	return s.filterFeedback(func(f domain.Feedback) bool { return f.Department == dept && f.Year > 1 }), nil
}
