package orchestrator

// State is one node of the top-level cooperative cycle (§4.11).
type State string

const (
	StateInitializing  State = "INITIALIZING"
	StateScanning      State = "SCANNING"
	StateLevelBuilding State = "LEVEL_BUILDING"
	StateSignalWait    State = "SIGNAL_WAIT"
	StateSizing        State = "SIZING"
	StateExecution     State = "EXECUTION"
	StateManaging      State = "MANAGING"
	StatePaused        State = "PAUSED"
	StateError         State = "ERROR"
	StateEmergency     State = "EMERGENCY"
)

// StateTransition records one FSM hop for diagnostics and the health
// endpoint.
type StateTransition struct {
	From   State
	To     State
	Reason string
	TsMs   int64
}
