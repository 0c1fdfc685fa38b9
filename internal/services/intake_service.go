package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"techstock/internal/domain"
)

const sessionTTL = 12 * time.Hour

type intakeSession struct {
	wizard  *Wizard
	created time.Time
}

// IntakeService owns the in-memory wizard sessions. Sessions do not survive
// a restart; a failed unit is re-entered in a new batch.
type IntakeService struct {
	Persister *Persister
	Checker   SerialChecker
	Tables    map[domain.Variant]domain.DestinationTable

	mu       sync.Mutex
	sessions map[string]*intakeSession
	now      func() time.Time
}

func NewIntakeService(p *Persister, checker SerialChecker) *IntakeService {
	return &IntakeService{
		Persister: p,
		Checker:   checker,
		sessions:  map[string]*intakeSession{},
		now:       time.Now,
	}
}

// Start opens a new wizard for the operator.
func (s *IntakeService) Start(operator string, target domain.DestinationKind) (string, *Wizard) {
	bc := BatchContext{Operator: operator, Tables: s.Tables, Target: target}
	w := NewWizard(bc, s.Persister, s.Checker)
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.sessions[id] = &intakeSession{wizard: w, created: s.now()}
	return id, w
}

// Get returns the session's wizard; only its owner may use it.
func (s *IntakeService) Get(id, operator string) (*Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.wizard.Operator() != operator {
		return nil, ErrSessionNotFound
	}
	return sess.wizard, nil
}

func (s *IntakeService) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *IntakeService) evictLocked() {
	cutoff := s.now().Add(-sessionTTL)
	for id, sess := range s.sessions {
		if sess.created.Before(cutoff) && sess.wizard.State() != StatePersisting {
			delete(s.sessions, id)
		}
	}
}
