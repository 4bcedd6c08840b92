// Package inmem provides in-memory implementations of the repository
// interfaces. They back the service tests so batch-job behavior (idempotence,
// dry runs, races) can be exercised without a database.
package inmem

import (
	"sync"

	"github.com/classtrack/assessment-service/internal/models"
)

// DB is a process-local store shared by the in-memory repositories.
type DB struct {
	mu          sync.RWMutex
	enrollments map[string]models.Enrollment
	assessments map[string]models.Assessment
	questions   map[string]models.QuestionWithChoices
	assignments map[string]models.Assignment
	answers     map[string]models.Answer
}

func Open() *DB {
	return &DB{
		enrollments: make(map[string]models.Enrollment),
		assessments: make(map[string]models.Assessment),
		questions:   make(map[string]models.QuestionWithChoices),
		assignments: make(map[string]models.Assignment),
		answers:     make(map[string]models.Answer),
	}
}

// Seed helpers, for tests.

func (db *DB) AddEnrollment(e models.Enrollment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.enrollments[e.ID] = e
}

func (db *DB) AddAssessment(a models.Assessment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.assessments[a.ID] = a
}

func (db *DB) AddQuestion(q models.QuestionWithChoices) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.questions[q.ID] = q
}

func (db *DB) AddAssignment(a models.Assignment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.assignments[a.ID] = a
}

func (db *DB) AddAnswer(a models.Answer) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.answers[a.ID] = a
}

func (db *DB) GetAssessment(id string) (models.Assessment, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	a, ok := db.assessments[id]
	return a, ok
}

func (db *DB) GetAssignment(id string) (models.Assignment, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	a, ok := db.assignments[id]
	return a, ok
}

func (db *DB) AssignmentCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.assignments)
}

func (db *DB) AnswersFor(assignmentID string) []models.Answer {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []models.Answer
	for _, a := range db.answers {
		if a.AssignmentID == assignmentID {
			out = append(out, a)
		}
	}
	return out
}
