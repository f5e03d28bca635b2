package node

// StatusKind enumerates the node life cycle states.
type StatusKind int

const (
	StatusInactive StatusKind = iota
	StatusStarting
	StatusRunning
	StatusShuttingDown
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusInactive:
		return "INACTIVE"
	case StatusStarting:
		return "STARTING"
	case StatusRunning:
		return "RUNNING"
	case StatusShuttingDown:
		return "SHUTTING DOWN"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Status is the current life cycle state. Err is set only when Kind is
// StatusFailed.
type Status struct {
	Kind StatusKind
	Err  error
}

func (s Status) String() string {
	return s.Kind.String()
}

// CanStart reports whether a Start request is accepted.
func (s Status) CanStart() bool {
	return s.Kind == StatusInactive || s.Kind == StatusFailed
}

// CanStop reports whether a Shutdown request is accepted.
func (s Status) CanStop() bool {
	return s.Kind == StatusRunning
}

// CanRestart reports whether a Restart request is accepted.
func (s Status) CanRestart() bool {
	return s.Kind == StatusRunning
}

// IsActive is true while a node process exists or is being created.
func (s Status) IsActive() bool {
	return s.Kind == StatusStarting || s.Kind == StatusRunning || s.Kind == StatusShuttingDown
}
