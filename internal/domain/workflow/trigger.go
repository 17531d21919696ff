package workflow

// Trigger represents an actor action that may cause a state transition
type Trigger string

const (
	// TriggerEdit is a vendor changing their own daily status
	TriggerEdit Trigger = "EDIT"
	// TriggerExplain is a vendor attaching an explanation to a mismatch
	TriggerExplain Trigger = "EXPLAIN"
	// TriggerRedetect is the detector refreshing a mismatch's signal fields
	TriggerRedetect Trigger = "REDETECT"
	TriggerApprove  Trigger = "APPROVE"
	TriggerReject   Trigger = "REJECT"
)

func (t Trigger) String() string {
	return string(t)
}
