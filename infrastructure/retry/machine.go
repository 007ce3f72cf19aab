// Package retry implements the per-operation retry controller as a statekit
// statechart wrapping a caller-supplied action.
package retry

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/dealgrid/freshness/domain/retry"
)

// machineContext carries attempt accounting through the state machine.
type machineContext struct {
	Attempt    int
	MaxRetries int
	LastErr    error
}

// State IDs as StateID type for statekit.
const (
	stateIdle       statekit.StateID = statekit.StateID(retry.StateIdle)
	stateAttempting statekit.StateID = statekit.StateID(retry.StateAttempting)
	stateExhausted  statekit.StateID = statekit.StateID(retry.StateExhausted)
)

// Event types driving the session statechart.
const (
	eventTrigger statekit.EventType = "TRIGGER"
	eventSucceed statekit.EventType = "SUCCEED"
	eventFail    statekit.EventType = "FAIL"
	eventExhaust statekit.EventType = "EXHAUST"
	eventRestore statekit.EventType = "RESTORE"
)

// resetAttempts clears the budget after a successful completion.
func resetAttempts(ctx **machineContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Attempt = 0
	(*ctx).LastErr = nil
}

// newSessionMachine creates the canonical retry session statechart:
// idle -> attempting -> {idle | exhausted}, with exhausted absorbing until a
// connectivity restoration sends it back to idle.
func newSessionMachine() (*statekit.MachineConfig[*machineContext], error) {
	return statekit.NewMachine[*machineContext]("retry-session").
		WithInitial(stateIdle).
		WithContext(&machineContext{}).
		WithAction("resetAttempts", resetAttempts).
		State(stateIdle).
			On(eventTrigger).Target(stateAttempting).
			Done().
		State(stateAttempting).
			On(eventSucceed).Target(stateIdle).Do("resetAttempts").
			On(eventFail).Target(stateIdle).
			On(eventExhaust).Target(stateExhausted).
			Done().
		State(stateExhausted).
			On(eventRestore).Target(stateIdle).
			Done().
		Build()
}
