package flow

// DeployStatus is the per-target deploy state machine value.
type DeployStatus string

const (
	DeployIdle    DeployStatus = "idle"
	DeployLoading DeployStatus = "loading"
	DeploySuccess DeployStatus = "success"
	DeployError   DeployStatus = "error"
	DeployStopped DeployStatus = "stopped"
)

// DeployState is the full per-target deploy record. Mutations are
// always whole-value replaces of this struct, never field updates, so
// readers can never observe a torn write.
type DeployState struct {
	Status  DeployStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// RunStatus is the channel run axis, independent of deploy outcome.
type RunStatus string

const (
	RunOffline RunStatus = "offline"
	RunOnline  RunStatus = "online"
)

// RunState carries the run status plus the IsRunning mirror kept for
// fast boolean reads.
type RunState struct {
	Status    RunStatus `json:"status"`
	IsRunning bool      `json:"isRunning"`
}
