package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"pending", StatePending, true},
		{"approved", StateApproved, true},
		{"unknown", State("ON_HOLD"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigureReturnsSameConfig(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StatePending)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}
	if config != builder.Configure(StatePending) {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_PanicsOnInvalidStates(t *testing.T) {
	t.Run("configure", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Configure() should panic on invalid state")
			}
		}()
		NewBuilder().Configure(State("INVALID"))
	})

	t.Run("build", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Build() should panic on invalid initial state")
			}
		}()
		NewBuilder().Build(State("INVALID"))
	})
}

func TestStateConfiguration_PermitIf(t *testing.T) {
	allow := true
	builder := NewBuilder()
	builder.Configure(StatePending).
		PermitIf(TriggerApprove, StateApproved, func(ctx context.Context) bool { return allow })

	machine := builder.Build(StatePending)
	if err := machine.Fire(context.Background(), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StateApproved {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateApproved)
	}

	allow = false
	machine = builder.Build(StatePending)
	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StatePending {
		t.Errorf("State should remain %v after failed Fire(), got %v", StatePending, machine.State())
	}
}

func TestBuilder_BuildIsolatesLaterConfiguration(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).Permit(TriggerApprove, StateApproved)
	machine := builder.Build(StatePending)

	builder.Configure(StatePending).Permit(TriggerReject, StateRejected)

	if machine.CanFire(TriggerReject) {
		t.Error("machine built before Permit(TriggerReject) should not see it")
	}
}

func TestApprovalMachine_PendingTransitions(t *testing.T) {
	tests := []struct {
		trigger Trigger
		want    State
	}{
		{TriggerEdit, StatePending},
		{TriggerExplain, StatePending},
		{TriggerRedetect, StatePending},
		{TriggerApprove, StateApproved},
		{TriggerReject, StateRejected},
	}

	for _, tt := range tests {
		t.Run(string(tt.trigger), func(t *testing.T) {
			got, err := Next(context.Background(), StatePending, tt.trigger)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApprovalMachine_TerminalStatesNeverReturnToPending(t *testing.T) {
	triggers := []Trigger{TriggerEdit, TriggerExplain, TriggerApprove, TriggerReject}

	for _, from := range []State{StateApproved, StateRejected} {
		for _, trigger := range triggers {
			t.Run(string(from)+"/"+string(trigger), func(t *testing.T) {
				got, err := Next(context.Background(), from, trigger)
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("Next() error = %v, want %v", err, ErrInvalidTransition)
				}
				if got != from {
					t.Errorf("Next() moved to %v, want to stay in %v", got, from)
				}
			})
		}

		t.Run(string(from)+"/REDETECT", func(t *testing.T) {
			got, err := Next(context.Background(), from, TriggerRedetect)
			if err != nil || got != from {
				t.Errorf("Next() = %v, %v; want %v, nil", got, err, from)
			}
		})
	}
}

func TestApprovalMachine_PermittedTriggers(t *testing.T) {
	got := NewApprovalMachine(StateApproved).PermittedTriggers()
	if len(got) != 1 || got[0] != TriggerRedetect {
		t.Errorf("PermittedTriggers() = %v, want [REDETECT]", got)
	}

	got = NewApprovalMachine(StatePending).PermittedTriggers()
	if len(got) != 5 {
		t.Errorf("PermittedTriggers() returned %d triggers, want 5", len(got))
	}
}

func TestNext_InvalidCurrentState(t *testing.T) {
	_, err := Next(context.Background(), State("BOGUS"), TriggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Next() error = %v, want %v", err, ErrInvalidTransition)
	}
}
