package session

import (
	"context"
	"time"

	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/types"
)

// Session is a clinical appointment as seen by billing. It is owned by the
// scheduling system and never modified here.
type Session struct {
	ID            string                       `db:"id" json:"id"`
	PatientID     string                       `db:"patient_id" json:"patient_id"`
	DoctorID      string                       `db:"doctor_id" json:"doctor_id"`
	Status        types.SessionStatus          `db:"status" json:"status"`
	ScheduledAt   time.Time                    `db:"scheduled_at" json:"scheduled_at"`
	Consultations []billing.ConsultationCharge `db:"-" json:"consultations"`
}

// ConsultationNames returns the names of the session's consultations in order
func (s *Session) ConsultationNames() []string {
	names := make([]string, 0, len(s.Consultations))
	for _, c := range s.Consultations {
		names = append(names, c.Name)
	}
	return names
}

// Provider resolves sessions by id. Get returns an ErrNotFound marked error
// for unknown ids.
type Provider interface {
	Get(ctx context.Context, id string) (*Session, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Session, error)
}
