package orchestrator

// CommandType is one of the control-plane verbs the orchestra accepts
// (§4.11 / §6).
type CommandType string

const (
	CommandStart     CommandType = "start"
	CommandStop      CommandType = "stop"
	CommandPause     CommandType = "pause"
	CommandResume    CommandType = "resume"
	CommandTimeStop  CommandType = "time_stop"
	CommandPanicExit CommandType = "panic_exit"
	CommandKillSwitch CommandType = "kill_switch"
	CommandRetry     CommandType = "retry"
)

// Command is one control-plane instruction, idempotent and
// correlation-tagged (§4.11).
type Command struct {
	Type          CommandType
	CorrelationID string
	PresetName    string
	Mode          string
}

// CommandResult is what the control plane receives back (§6).
type CommandResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
