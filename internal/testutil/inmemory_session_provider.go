package testutil

import (
	"context"
	"sync"

	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/domain/session"
	ierr "github.com/policlinic/backoffice/internal/errors"
)

var _ session.Provider = (*InMemorySessionProvider)(nil)

// InMemorySessionProvider stands in for the scheduling system
type InMemorySessionProvider struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	err      error
}

func NewInMemorySessionProvider() *InMemorySessionProvider {
	return &InMemorySessionProvider{
		sessions: make(map[string]*session.Session),
	}
}

func copySession(s *session.Session) *session.Session {
	c := *s
	c.Consultations = append([]billing.ConsultationCharge(nil), s.Consultations...)
	return &c
}

// AddSession stores a copy of s, replacing any session with the same id
func (p *InMemorySessionProvider) AddSession(s *session.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[s.ID] = copySession(s)
}

// SetConsultations replaces the charges of a stored session. Billings read
// charges on demand so this changes their derived amounts.
func (p *InMemorySessionProvider) SetConsultations(sessionID string, charges []billing.ConsultationCharge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[sessionID]; ok {
		s.Consultations = append([]billing.ConsultationCharge(nil), charges...)
	}
}

// SetError makes every lookup fail with err until it is reset with nil
func (p *InMemorySessionProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *InMemorySessionProvider) Get(_ context.Context, id string) (*session.Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.err != nil {
		return nil, p.err
	}
	s, ok := p.sessions[id]
	if !ok {
		return nil, ierr.NewError("session not found").
			WithHintf("Session %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copySession(s), nil
}

func (p *InMemorySessionProvider) ListByIDs(_ context.Context, ids []string) ([]*session.Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.err != nil {
		return nil, p.err
	}
	result := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := p.sessions[id]; ok {
			result = append(result, copySession(s))
		}
	}
	return result, nil
}

func (p *InMemorySessionProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = make(map[string]*session.Session)
	p.err = nil
}
