package bridge

// ConnectivityState tracks whether the dispatcher answered the most
// recent liveness probe. Only probe results and the transport fault
// paths write it.
type ConnectivityState string

const (
	Unreachable ConnectivityState = "unreachable"
	Reachable   ConnectivityState = "reachable"
)

// PollingState tracks whether the user has opted in to the polling
// cycle. Written by user intent and by transport faults.
type PollingState string

const (
	Idle   PollingState = "idle"
	Active PollingState = "active"
)

// CyclePhase is the externally visible position of the polling cycle.
type CyclePhase string

const (
	PhaseStopped        CyclePhase = "stopped"
	PhaseAwaitingScript CyclePhase = "awaiting-script"
	PhaseExecuting      CyclePhase = "executing"
	PhaseReporting      CyclePhase = "reporting"
)

// cyclePhase is the internal cycle position. It additionally
// distinguishes "armed" (report acknowledged, next-cycle wakeup
// pending) from a cycle actively awaiting its script; the distinction
// is what lets stale next-cycle wakeups be discarded.
type cyclePhase int

const (
	phaseStopped cyclePhase = iota
	phaseArmed
	phaseAwaiting
	phaseExecuting
	phaseReporting
)

func (p cyclePhase) public() CyclePhase {
	switch p {
	case phaseArmed, phaseAwaiting:
		return PhaseAwaitingScript
	case phaseExecuting:
		return PhaseExecuting
	case phaseReporting:
		return PhaseReporting
	default:
		return PhaseStopped
	}
}

// Status is a point-in-time snapshot of bridge state for presenters.
type Status struct {
	Connectivity    ConnectivityState
	Polling         PollingState
	Phase           CyclePhase
	CyclesCompleted int
	ProbeFailures   int
	LastOutput      string
}
