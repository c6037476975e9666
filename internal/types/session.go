package types

// SessionStatus is the lifecycle state of a clinical session as reported by the scheduling system
type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "SCHEDULED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
	SessionStatusNoShow     SessionStatus = "NO_SHOW"
)

func (s SessionStatus) String() string {
	return string(s)
}

// IsBillable reports whether a billing may be raised for a session in this state
func (s SessionStatus) IsBillable() bool {
	return s == SessionStatusCompleted
}
