package event

// Type identifies the type of domain event
type Type string

const (
	TypeSwipesImported   Type = "swipes.imported"
	TypeStatusSubmitted  Type = "status.submitted"
	TypeStatusDecided    Type = "status.decided"
	TypeMismatchDetected Type = "mismatch.detected"
	TypeMismatchDecided  Type = "mismatch.decided"
	TypeHoursCorrected   Type = "hours.corrected"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeSwipesImported,
		TypeStatusSubmitted,
		TypeStatusDecided,
		TypeMismatchDetected,
		TypeMismatchDecided,
		TypeHoursCorrected:
		return true
	default:
		return false
	}
}
