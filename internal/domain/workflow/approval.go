package workflow

import "context"

// approvalLifecycle is PENDING -> APPROVED | REJECTED with no way back.
// Edits and explanations are only accepted while pending; the detector may
// refresh signal fields in any state.
var approvalLifecycle = func() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StatePending).
		PermitReentry(TriggerEdit).
		PermitReentry(TriggerExplain).
		PermitReentry(TriggerRedetect).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateApproved).
		PermitReentry(TriggerRedetect)
	b.Configure(StateRejected).
		PermitReentry(TriggerRedetect)
	return b
}()

// NewApprovalMachine returns a machine for the approval lifecycle positioned at current
func NewApprovalMachine(current State) StateMachine {
	return approvalLifecycle.Build(current)
}

// Next returns the state reached by firing trigger from current
func Next(ctx context.Context, current State, trigger Trigger) (State, error) {
	if !current.IsValid() {
		return current, ErrInvalidTransition
	}
	m := NewApprovalMachine(current)
	if err := m.Fire(ctx, trigger); err != nil {
		return current, err
	}
	return m.State(), nil
}
