package workflow

// State is an approval state shared by daily statuses and mismatch records
type State string

const (
	StatePending  State = "PENDING"
	StateApproved State = "APPROVED"
	StateRejected State = "REJECTED"
)

var validStates = map[State]bool{
	StatePending:  true,
	StateApproved: true,
	StateRejected: true,
}

func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known approval state
func (s State) IsValid() bool {
	return validStates[s]
}
