package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository/inmem"
)

// fixture wires the full service graph over the in-memory repositories with a
// frozen clock.
type fixture struct {
	db           *inmem.DB
	assignments  AssignmentService
	grading      GradingService
	materializer MaterializerService
	expiry       ExpiryService
	notifier     *fakeNotifier
	now          time.Time
}

func newFixture(now time.Time) *fixture {
	db := inmem.Open()
	log := zerolog.Nop()
	clock := func() time.Time { return now }
	notifier := newFakeNotifier()

	assessmentRepo := inmem.NewAssessmentRepository(db)
	enrollmentRepo := inmem.NewEnrollmentRepository(db)
	questionRepo := inmem.NewQuestionRepository(db)
	assignmentRepo := inmem.NewAssignmentRepository(db)
	answerRepo := inmem.NewAnswerRepository(db)

	assignments := NewAssignmentService(assignmentRepo, assessmentRepo, questionRepo, answerRepo, notifier, clock, log)

	return &fixture{
		db:           db,
		assignments:  assignments,
		grading:      NewGradingService(assignmentRepo, assessmentRepo, questionRepo, answerRepo, clock, log),
		materializer: NewMaterializerService(assessmentRepo, enrollmentRepo, assignmentRepo, clock, log),
		expiry:       NewExpiryService(assignmentRepo, assignments, clock, log),
		notifier:     notifier,
		now:          now,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }

// fakeNotifier records delivered events; failFor lists student ids whose
// delivery should error.
type fakeNotifier struct {
	mu        sync.Mutex
	events    []*models.AssessmentStartingSoonEvent
	submitted []*models.AssignmentSubmittedEvent
	failFor   map[string]error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[string]error)}
}

func (n *fakeNotifier) Notify(ctx context.Context, event *models.AssessmentStartingSoonEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err, ok := n.failFor[event.StudentID]; ok {
		return err
	}
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) PublishAssignmentSubmitted(ctx context.Context, event *models.AssignmentSubmittedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, event)
	return nil
}

func (n *fakeNotifier) Close() error { return nil }

func (n *fakeNotifier) delivered() []*models.AssessmentStartingSoonEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*models.AssessmentStartingSoonEvent, len(n.events))
	copy(out, n.events)
	return out
}

func (n *fakeNotifier) submittedEvents() []*models.AssignmentSubmittedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*models.AssignmentSubmittedEvent, len(n.submitted))
	copy(out, n.submitted)
	return out
}
